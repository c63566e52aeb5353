package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Lllllllleong/inboundmailflow/internal/models"
)

// RecordStore is the primary table for extracted records.
type RecordStore interface {
	CreateRecord(ctx context.Context, rec *models.ExtractedRecord) (string, error)
}

// RecordDispatcher hands a saved record to downstream processing.
type RecordDispatcher interface {
	Dispatch(ctx context.Context, recordID string, rec *models.ExtractedRecord) (string, error)
}

// RecordSink is the only writer of the primary store.
type RecordSink struct {
	store      RecordStore
	audit      *AuditLogger
	dispatcher RecordDispatcher
	now        func() time.Time
}

// NewRecordSink creates a sink. dispatcher may be nil.
func NewRecordSink(store RecordStore, audit *AuditLogger, dispatcher RecordDispatcher) *RecordSink {
	return &RecordSink{
		store:      store,
		audit:      audit,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

// Save persists rec and logs the outcome. source names where the text came from
// ("body" or "attachment:<name>"); textBody is kept with the log entry.
func (s *RecordSink) Save(ctx context.Context, req *Request, rec *models.ExtractedRecord, source, textBody string) (string, error) {
	logCtx := req.logger().With("source", source)
	logCtx.Info("Saving extracted information.")

	rec.Source = source
	rec.RequestID = req.id()
	rec.CreatedAt = s.now().UTC()

	recordID, err := s.store.CreateRecord(ctx, rec)
	if err != nil {
		logCtx.Error("Error saving extracted data", "error", err)
		s.audit.Log(ctx, req, rec, fmt.Sprintf(ResultSaveError, err), textBody)
		return "", err
	}

	logCtx.Info("Data successfully saved.", "recordId", recordID)
	s.audit.Log(ctx, req, rec, ResultDataSaved, textBody)

	if s.dispatcher != nil {
		execution, err := s.dispatcher.Dispatch(ctx, recordID, rec)
		if err != nil {
			logCtx.Error("Failed to hand off saved record", "error", err, "recordId", recordID)
		} else {
			logCtx.Info("Handed off saved record.", "recordId", recordID, "execution", execution)
		}
	}
	return recordID, nil
}
