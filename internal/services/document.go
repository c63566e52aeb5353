package services

import (
	"context"
	"log/slog"

	"github.com/Lllllllleong/inboundmailflow/internal/models"
)

// PlainTextContentType is the only document type text is extracted from.
const PlainTextContentType = "text/plain"

// DocumentResult describes a processed document attachment. Text is empty when
// nothing could be extracted; Record is set only on a successful extraction.
type DocumentResult struct {
	Location string
	Text     string
	Record   *models.ExtractedRecord
}

// DocumentPipeline stores document attachments and extracts transaction data from their text.
type DocumentPipeline struct {
	artifacts ArtifactStore
	extractor *Extractor
}

func NewDocumentPipeline(artifacts ArtifactStore, extractor *Extractor) *DocumentPipeline {
	return &DocumentPipeline{artifacts: artifacts, extractor: extractor}
}

// Process handles one decoded document attachment.
func (p *DocumentPipeline) Process(ctx context.Context, logCtx *slog.Logger, name string, data []byte, contentType string) (*DocumentResult, error) {
	logCtx = logCtx.With("attachment", name, "contentType", contentType)
	logCtx.Info("Processing document.")

	location, err := p.artifacts.Save(ctx, name, data)
	if err != nil {
		logCtx.Error("Error saving document", "error", err)
		return nil, &StageError{Stage: StageArtifact, Name: name, Err: err}
	}
	result := &DocumentResult{Location: location}
	logCtx.Info("Saved document file.", "location", location, "bytes", len(data))

	text, err := ParseDocument(ctx, p.artifacts, location, contentType)
	if err != nil {
		logCtx.Error("Error reading document", "error", err)
		return result, &StageError{Stage: StageParse, Name: name, Err: err}
	}
	if text == "" {
		logCtx.Info("No text body found in the document.")
		return result, nil
	}
	result.Text = text
	logCtx.Info("Extracted text from document.", "textLength", len(text))

	rec, err := p.extractor.Extract(ctx, logCtx, text)
	if err != nil {
		return result, &StageError{Stage: StageExtraction, Name: name, Err: err}
	}
	result.Record = rec
	return result, nil
}

// ParseDocument returns the text of a stored artifact. Only plain text is
// supported; every other content type yields no text.
func ParseDocument(ctx context.Context, artifacts ArtifactStore, location, contentType string) (string, error) {
	if contentType != PlainTextContentType {
		return "", nil
	}
	data, err := artifacts.Read(ctx, location)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
