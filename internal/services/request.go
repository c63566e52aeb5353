package services

import (
	"log/slog"

	"github.com/Lllllllleong/inboundmailflow/internal/models"
)

// Request carries the per-delivery state shared by every stage of the pipeline.
type Request struct {
	ID      string
	Payload *models.InboundPayload
	Log     *slog.Logger
}

func (r *Request) logger() *slog.Logger {
	if r == nil || r.Log == nil {
		return slog.Default()
	}
	return r.Log
}

func (r *Request) id() string {
	if r == nil {
		return ""
	}
	return r.ID
}

// payloadContext is the request data written alongside every log entry.
func (r *Request) payloadContext() map[string]any {
	if r == nil || r.Payload == nil {
		return map[string]any{}
	}
	return PayloadContext(r.Payload.Raw)
}

// textBody returns the email body, or "" when the payload had none.
func (r *Request) textBody() string {
	if r == nil || !r.Payload.HasTextBody() {
		return ""
	}
	return *r.Payload.TextBody
}
