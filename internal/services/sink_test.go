package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Lllllllleong/inboundmailflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSink(records *fakeRecordStore, logs *fakeLogStore, dispatcher RecordDispatcher) *RecordSink {
	sink := NewRecordSink(records, NewAuditLogger(logs), dispatcher)
	sink.now = func() time.Time { return time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC) }
	return sink
}

func TestRecordSink_Save(t *testing.T) {
	records := &fakeRecordStore{}
	logs := &fakeLogStore{}
	dispatcher := &fakeDispatcher{}
	sink := newTestSink(records, logs, dispatcher)
	req := &Request{ID: "req-1"}
	rec := &models.ExtractedRecord{Amount: 42, Currency: "USD", Vendor: "Acme", Date: "2024-01-15"}

	id, err := sink.Save(context.Background(), req, rec, "body", "the body")
	require.NoError(t, err)
	assert.Equal(t, "rec-1", id)

	require.Len(t, records.records, 1)
	saved := records.records[0]
	assert.Equal(t, "body", saved.Source)
	assert.Equal(t, "req-1", saved.RequestID)
	assert.Equal(t, time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC), saved.CreatedAt)

	require.Len(t, logs.entries, 1)
	assert.Equal(t, ResultDataSaved, logs.entries[0].Result)
	assert.Equal(t, "the body", logs.entries[0].TextBody)

	var logged map[string]any
	require.NoError(t, json.Unmarshal([]byte(logs.entries[0].RequestData), &logged))
	assert.Equal(t, "Acme", logged["vendor"])

	assert.Equal(t, []string{"rec-1"}, dispatcher.recordIDs)
}

func TestRecordSink_SaveFailure(t *testing.T) {
	records := &fakeRecordStore{err: errors.New("permission denied")}
	logs := &fakeLogStore{}
	dispatcher := &fakeDispatcher{}
	sink := newTestSink(records, logs, dispatcher)

	id, err := sink.Save(context.Background(), &Request{}, &models.ExtractedRecord{}, "body", "text")
	require.Error(t, err)
	assert.Empty(t, id)
	assert.Equal(t, []string{"error saving data: permission denied"}, logs.results())
	assert.Empty(t, dispatcher.recordIDs)
}

func TestRecordSink_DispatchFailureKeepsRecord(t *testing.T) {
	records := &fakeRecordStore{}
	logs := &fakeLogStore{}
	sink := newTestSink(records, logs, &fakeDispatcher{err: errors.New("workflow not found")})

	id, err := sink.Save(context.Background(), &Request{}, &models.ExtractedRecord{}, "body", "")
	require.NoError(t, err)
	assert.Equal(t, "rec-1", id)
	assert.Equal(t, []string{ResultDataSaved}, logs.results())
}

func TestRecordSink_NoDispatcher(t *testing.T) {
	sink := newTestSink(&fakeRecordStore{}, &fakeLogStore{}, nil)
	_, err := sink.Save(context.Background(), nil, &models.ExtractedRecord{}, "body", "")
	assert.NoError(t, err)
}
