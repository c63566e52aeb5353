package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lllllllleong/inboundmailflow/internal/models"
)

// Result codes written to the processing log. They are kept short and stable
// so the log table can be filtered on them.
const (
	ResultDataSaved          = "data saved successfully"
	ResultSaveError          = "error saving data: %s"
	ResultNoExtractedData    = "no extracted data to save"
	ResultNoTextBody         = "no TextBody found in the email"
	ResultMissingContent     = "missing content for attachment: %s"
	ResultDecodeError        = "error decoding attachment: %s"
	ResultUnsupportedType    = "unsupported content type for attachment: %s"
	ResultArtifactError      = "error saving attachment: %s"
	ResultTranscriptionError = "error transcribing attachment: %s"
	ResultTranscriptionSent  = "transcription sent: %s"
	ResultNotificationError  = "error sending transcription: %s"
	ResultNoDocumentText     = "no text found in document: %s"
	ResultDocumentReadError  = "error reading document: %s"
)

// LogStore is the secondary table that receives processing log entries.
type LogStore interface {
	AppendLog(ctx context.Context, entry *models.AuditLogEntry) error
}

// AuditLogger records the outcome of every processed unit. It never fails the caller.
type AuditLogger struct {
	store LogStore
	now   func() time.Time
}

func NewAuditLogger(store LogStore) *AuditLogger {
	return &AuditLogger{store: store, now: time.Now}
}

// Log appends one entry. Append failures only reach the process log.
func (a *AuditLogger) Log(ctx context.Context, req *Request, data any, result, textBody string) {
	logCtx := req.logger()
	entry := &models.AuditLogEntry{
		RequestData: serializeContext(data),
		Result:      result,
		TextBody:    textBody,
		RequestID:   req.id(),
		CreatedAt:   a.now().UTC(),
	}

	if err := a.store.AppendLog(ctx, entry); err != nil {
		logCtx.Error("Failed to write processing log entry", "error", err, "result", result)
		return
	}
	logCtx.Info("Logged processing result.", "result", result)
}

// serializeContext renders data as JSON. Map keys come out sorted, so the same
// context always produces the same text.
func serializeContext(data any) string {
	if data == nil {
		return "{}"
	}
	if s, ok := data.(string); ok {
		return s
	}
	b, err := json.Marshal(data)
	if err != nil {
		slog.Warn("Could not serialize log context as JSON", "error", err)
		return fmt.Sprintf("%v", data)
	}
	return string(b)
}

// PayloadContext returns a copy of the raw payload suitable for the log table:
// attachment contents are replaced by their encoded length.
func PayloadContext(raw map[string]any) map[string]any {
	out := make(map[string]any, len(raw))
	for k, v := range raw {
		out[k] = v
	}

	list, ok := raw[models.KeyAttachments].([]any)
	if !ok {
		return out
	}
	attachments := make([]any, len(list))
	for i, item := range list {
		fields, ok := item.(map[string]any)
		if !ok {
			attachments[i] = item
			continue
		}
		copied := make(map[string]any, len(fields))
		for k, v := range fields {
			copied[k] = v
		}
		if content, ok := fields[models.KeyAttachmentContent].(string); ok && content != "" {
			copied[models.KeyAttachmentContent] = fmt.Sprintf("<%d base64 characters>", len(content))
		}
		attachments[i] = copied
	}
	out[models.KeyAttachments] = attachments
	return out
}
