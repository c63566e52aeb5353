package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/Lllllllleong/inboundmailflow/internal/models"
)

// AttachmentRouter decodes each attachment and dispatches it by content type.
type AttachmentRouter struct {
	audio     *AudioPipeline
	documents *DocumentPipeline
	sink      *RecordSink
	audit     *AuditLogger
}

func NewAttachmentRouter(audio *AudioPipeline, documents *DocumentPipeline, sink *RecordSink, audit *AuditLogger) *AttachmentRouter {
	return &AttachmentRouter{
		audio:     audio,
		documents: documents,
		sink:      sink,
		audit:     audit,
	}
}

// Route processes the attachments of req in declaration order. A failing
// attachment is logged and never stops the ones after it.
func (r *AttachmentRouter) Route(ctx context.Context, req *Request) {
	if req == nil || req.Payload == nil {
		return
	}
	for _, att := range req.Payload.Attachments {
		r.routeOne(ctx, req, att)
	}
}

func (r *AttachmentRouter) routeOne(ctx context.Context, req *Request, att models.AttachmentRef) {
	logCtx := req.logger().With("attachment", att.Name, "contentType", att.ContentType)

	if att.Content == "" {
		logCtx.Error("Missing content in attachment")
		r.auditAttachment(ctx, req, ResultMissingContent, att.Name)
		return
	}

	data, err := decodeAttachment(att.Content)
	if err != nil {
		logCtx.Error("Error decoding attachment", "error", err)
		r.auditAttachment(ctx, req, ResultDecodeError, att.Name)
		return
	}

	logCtx.Info("Processing attachment.", "bytes", len(data))
	switch {
	case strings.HasPrefix(att.ContentType, "audio/"):
		_, err := r.audio.Process(ctx, req.logger(), att.Name, data, att.ContentType)
		r.auditAudio(ctx, req, att.Name, err)
	case att.ContentType == PlainTextContentType:
		res, err := r.documents.Process(ctx, req.logger(), att.Name, data, att.ContentType)
		r.finishDocument(ctx, req, att.Name, res, err)
	default:
		logCtx.Warn("Unsupported content type")
		r.auditAttachment(ctx, req, ResultUnsupportedType, att.Name)
	}
}

func (r *AttachmentRouter) auditAudio(ctx context.Context, req *Request, name string, err error) {
	if err == nil {
		r.auditAttachment(ctx, req, ResultTranscriptionSent, name)
		return
	}
	var stageErr *StageError
	if !errors.As(err, &stageErr) {
		r.auditAttachment(ctx, req, ResultTranscriptionError, name)
		return
	}
	switch stageErr.Stage {
	case StageArtifact:
		r.auditAttachment(ctx, req, ResultArtifactError, name)
	case StageNotification:
		r.auditAttachment(ctx, req, ResultNotificationError, name)
	default:
		r.auditAttachment(ctx, req, ResultTranscriptionError, name)
	}
}

// finishDocument sends a record extracted from a document through the sink,
// which logs the outcome itself; every other outcome is logged here.
func (r *AttachmentRouter) finishDocument(ctx context.Context, req *Request, name string, res *DocumentResult, err error) {
	var stageErr *StageError
	switch {
	case err == nil && res.Record != nil:
		_, _ = r.sink.Save(ctx, req, res.Record, "attachment:"+name, res.Text)
	case err == nil:
		r.auditAttachment(ctx, req, ResultNoDocumentText, name)
	case errors.As(err, &stageErr) && stageErr.Stage == StageArtifact:
		r.auditAttachment(ctx, req, ResultArtifactError, name)
	case errors.As(err, &stageErr) && stageErr.Stage == StageParse:
		r.auditAttachment(ctx, req, ResultDocumentReadError, name)
	default:
		text := ""
		if res != nil {
			text = res.Text
		}
		r.audit.Log(ctx, req, req.payloadContext(), ResultNoExtractedData, text)
	}
}

func (r *AttachmentRouter) auditAttachment(ctx context.Context, req *Request, format, name string) {
	r.audit.Log(ctx, req, req.payloadContext(), fmt.Sprintf(format, name), req.textBody())
}

// decodeAttachment accepts padded and unpadded standard base64.
func decodeAttachment(content string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(content)
	if err == nil {
		return data, nil
	}
	if raw, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(content, "=")); rawErr == nil {
		return raw, nil
	}
	return nil, err
}
