package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"cloud.google.com/go/storage"
	"github.com/Lllllllleong/inboundmailflow/internal/email"
	"github.com/Lllllllleong/inboundmailflow/internal/gcp"
	"github.com/Lllllllleong/inboundmailflow/internal/models"
	"github.com/google/uuid"
)

// ErrInvalidPayload is returned when a delivery is not a JSON object.
var ErrInvalidPayload = errors.New("payload is not a JSON object")

// Dependencies are the external collaborators of the pipeline.
type Dependencies struct {
	Completer   Completer
	Transcriber Transcriber
	Notifier    Notifier
	Records     RecordStore
	Logs        LogStore
	Artifacts   ArtifactStore
	Dispatcher  RecordDispatcher // optional
}

// InboundProcessor runs one webhook delivery through the whole pipeline.
type InboundProcessor struct {
	extractor *Extractor
	sink      *RecordSink
	router    *AttachmentRouter
	audit     *AuditLogger
	closers   []io.Closer
	newID     func() string
}

// NewInboundProcessorWith wires the pipeline around the given collaborators.
func NewInboundProcessorWith(deps Dependencies, config ProcessorConfig) (*InboundProcessor, error) {
	extractor, err := NewExtractor(deps.Completer, config.ExtractionSystemPrompt, config.ExtractionUserPrompt)
	if err != nil {
		return nil, err
	}
	audit := NewAuditLogger(deps.Logs)
	sink := NewRecordSink(deps.Records, audit, deps.Dispatcher)
	router := NewAttachmentRouter(
		NewAudioPipeline(deps.Artifacts, deps.Transcriber, deps.Notifier),
		NewDocumentPipeline(deps.Artifacts, extractor),
		sink,
		audit,
	)
	return &InboundProcessor{
		extractor: extractor,
		sink:      sink,
		router:    router,
		audit:     audit,
		newID:     uuid.NewString,
	}, nil
}

// NewInboundProcessor loads the configuration from the environment and creates
// the Google Cloud and Resend clients.
func NewInboundProcessor(ctx context.Context) (*InboundProcessor, error) {
	config, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	var closers []io.Closer
	fail := func(err error) (*InboundProcessor, error) {
		for _, c := range closers {
			_ = c.Close()
		}
		return nil, err
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return fail(fmt.Errorf("failed to create firestore client: %w", err))
	}
	closers = append(closers, firestoreClient)

	vertexClient, err := gcp.NewVertexClient(ctx, config.ProjectID, config.VertexAIRegion, config.VertexModel)
	if err != nil {
		return fail(fmt.Errorf("failed to create vertex client: %w", err))
	}
	vertexClient.SetTranscriptionPrompt(config.TranscriptionPrompt)
	closers = append(closers, vertexClient)

	notifier, err := email.NewResendNotifier(config.ResendAPIKey, config.EmailFrom, config.Recipients())
	if err != nil {
		return fail(fmt.Errorf("failed to create notifier: %w", err))
	}

	var artifacts ArtifactStore
	if config.ArtifactBucket != "" {
		storageClient, err := storage.NewClient(ctx)
		if err != nil {
			return fail(fmt.Errorf("failed to create storage client: %w", err))
		}
		closers = append(closers, storageClient)
		artifacts = NewGCSArtifactStore(storageClient, config.ArtifactBucket)
	} else {
		local, err := NewLocalArtifactStore(config.DownloadDir)
		if err != nil {
			return fail(fmt.Errorf("failed to prepare download directory: %w", err))
		}
		artifacts = local
	}

	deps := Dependencies{
		Completer:   vertexClient,
		Transcriber: vertexClient,
		Notifier:    notifier,
		Records:     gcp.NewFirestoreTable(firestoreClient, config.RecordsCollection),
		Logs:        gcp.NewFirestoreTable(firestoreClient, config.LogsCollection),
		Artifacts:   artifacts,
	}
	if config.WorkflowID != "" {
		dispatcher, err := gcp.NewWorkflowDispatcher(ctx, config.ProjectID, config.WorkflowLocation, config.WorkflowID)
		if err != nil {
			return fail(fmt.Errorf("failed to create workflow dispatcher: %w", err))
		}
		closers = append(closers, dispatcher)
		deps.Dispatcher = dispatcher
	}

	p, err := NewInboundProcessorWith(deps, *config)
	if err != nil {
		return fail(err)
	}
	p.closers = closers
	slog.Info("Inbound processor initialized.",
		"recordsCollection", config.RecordsCollection,
		"logsCollection", config.LogsCollection,
		"artifactBucket", config.ArtifactBucket,
		"workflowId", config.WorkflowID,
	)
	return p, nil
}

// Close releases the clients created by NewInboundProcessor.
func (p *InboundProcessor) Close() error {
	var errs []error
	for _, c := range p.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DecodePayload reads exactly one JSON object and nothing after it. Numbers are
// kept as json.Number so the logged request data matches what was received.
func DecodePayload(r io.Reader) (map[string]any, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if raw == nil {
		return nil, fmt.Errorf("%w: got null", ErrInvalidPayload)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: unexpected data after the JSON object", ErrInvalidPayload)
	}
	return raw, nil
}

// ProcessRaw decodes and processes one delivery.
func (p *InboundProcessor) ProcessRaw(ctx context.Context, body []byte) error {
	raw, err := DecodePayload(bytes.NewReader(body))
	if err != nil {
		return err
	}
	p.Process(ctx, ClassifyPayload(raw))
	return nil
}

// Process runs the text body and then every attachment through the pipeline.
// It always completes; every outcome ends up in the processing log.
func (p *InboundProcessor) Process(ctx context.Context, payload *models.InboundPayload) {
	req := &Request{ID: p.newID(), Payload: payload}
	req.Log = slog.With("requestId", req.ID)
	req.Log.Info("Processing inbound email.", "hasTextBody", payload.HasTextBody(), "attachmentCount", len(payload.Attachments))

	p.processBody(ctx, req)
	p.router.Route(ctx, req)

	req.Log.Info("Inbound email processed.")
}

func (p *InboundProcessor) processBody(ctx context.Context, req *Request) {
	if !req.Payload.HasTextBody() {
		req.Log.Warn("No TextBody found in the email.")
		p.audit.Log(ctx, req, req.payloadContext(), ResultNoTextBody, "")
		return
	}

	textBody := *req.Payload.TextBody
	rec, err := p.extractor.Extract(ctx, req.Log, textBody)
	if err != nil {
		req.Log.Warn("No extracted data to save.", "error", err)
		p.audit.Log(ctx, req, req.payloadContext(), ResultNoExtractedData, textBody)
		return
	}
	_, _ = p.sink.Save(ctx, req, rec, "body", textBody)
}
