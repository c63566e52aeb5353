package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/Lllllllleong/inboundmailflow/internal/models"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeCompleter struct {
	answer  string
	err     error
	systems []string
	prompts []string
}

func (f *fakeCompleter) Complete(_ context.Context, systemPrompt, userPrompt string) (string, error) {
	f.systems = append(f.systems, systemPrompt)
	f.prompts = append(f.prompts, userPrompt)
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

type fakeLogStore struct {
	mu      sync.Mutex
	entries []*models.AuditLogEntry
	err     error
}

func (f *fakeLogStore) AppendLog(_ context.Context, entry *models.AuditLogEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeLogStore) results() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.Result)
	}
	return out
}

type fakeRecordStore struct {
	records []*models.ExtractedRecord
	err     error
}

func (f *fakeRecordStore) CreateRecord(_ context.Context, rec *models.ExtractedRecord) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.records = append(f.records, rec)
	return fmt.Sprintf("rec-%d", len(f.records)), nil
}

type fakeDispatcher struct {
	recordIDs []string
	err       error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, recordID string, _ *models.ExtractedRecord) (string, error) {
	f.recordIDs = append(f.recordIDs, recordID)
	if f.err != nil {
		return "", f.err
	}
	return "executions/" + recordID, nil
}

type memArtifactStore struct {
	files   map[string][]byte
	saveErr error
	readErr error
}

func newMemArtifactStore() *memArtifactStore {
	return &memArtifactStore{files: map[string][]byte{}}
}

func (m *memArtifactStore) Save(_ context.Context, name string, data []byte) (string, error) {
	if m.saveErr != nil {
		return "", m.saveErr
	}
	location := "mem://" + name
	m.files[location] = data
	return location, nil
}

func (m *memArtifactStore) Read(_ context.Context, location string) ([]byte, error) {
	if m.readErr != nil {
		return nil, m.readErr
	}
	data, ok := m.files[location]
	if !ok {
		return nil, os.ErrNotExist
	}
	return data, nil
}

type mockTranscriber struct {
	mock.Mock
}

func (m *mockTranscriber) Transcribe(ctx context.Context, location, contentType string) (*models.Transcript, error) {
	args := m.Called(ctx, location, contentType)
	tr, _ := args.Get(0).(*models.Transcript)
	return tr, args.Error(1)
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, subject, body string) (string, error) {
	args := m.Called(ctx, subject, body)
	return args.String(0), args.Error(1)
}

// testDeps bundles fakes for every collaborator.
type testDeps struct {
	completer   *fakeCompleter
	transcriber *mockTranscriber
	notifier    *mockNotifier
	records     *fakeRecordStore
	logs        *fakeLogStore
	artifacts   *memArtifactStore
}

func newTestDeps() *testDeps {
	return &testDeps{
		completer:   &fakeCompleter{},
		transcriber: &mockTranscriber{},
		notifier:    &mockNotifier{},
		records:     &fakeRecordStore{},
		logs:        &fakeLogStore{},
		artifacts:   newMemArtifactStore(),
	}
}

func (d *testDeps) dependencies() Dependencies {
	return Dependencies{
		Completer:   d.completer,
		Transcriber: d.transcriber,
		Notifier:    d.notifier,
		Records:     d.records,
		Logs:        d.logs,
		Artifacts:   d.artifacts,
	}
}

func newTestProcessor(t *testing.T, d *testDeps) *InboundProcessor {
	t.Helper()
	p, err := NewInboundProcessorWith(d.dependencies(), ProcessorConfig{})
	require.NoError(t, err)
	p.newID = func() string { return "req-1" }
	return p
}

// newBufferLogger returns a logger writing text records into a buffer.
func newBufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(h), &buf
}

const validExtraction = `{"amount": 42, "currency": "USD", "vendor": "Acme", "date": "2024-01-15"}`
