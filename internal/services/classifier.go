package services

import (
	"github.com/Lllllllleong/inboundmailflow/internal/models"
)

// ClassifyPayload inspects a decoded webhook body. Missing or mistyped fields are
// normal states: the result always has a non-nil attachment list.
func ClassifyPayload(raw map[string]any) *models.InboundPayload {
	payload := &models.InboundPayload{
		Attachments: []models.AttachmentRef{},
		Raw:         raw,
	}
	if raw == nil {
		payload.Raw = map[string]any{}
		return payload
	}

	// null and non-string values are treated like a missing key.
	if text, ok := raw[models.KeyTextBody].(string); ok {
		payload.TextBody = &text
	}

	list, ok := raw[models.KeyAttachments].([]any)
	if !ok {
		return payload
	}
	for _, item := range list {
		payload.Attachments = append(payload.Attachments, classifyAttachment(item))
	}
	return payload
}

// classifyAttachment applies the name and content type defaults. An entry that is
// not an object yields a ref without content, which the router reports.
func classifyAttachment(item any) models.AttachmentRef {
	ref := models.AttachmentRef{
		Name:        models.DefaultAttachmentName,
		ContentType: models.UnknownContentType,
	}
	fields, ok := item.(map[string]any)
	if !ok {
		return ref
	}
	if name, ok := fields[models.KeyAttachmentName].(string); ok && name != "" {
		ref.Name = name
	}
	if content, ok := fields[models.KeyAttachmentContent].(string); ok {
		ref.Content = content
	}
	if contentType, ok := fields[models.KeyAttachmentMIMEType].(string); ok && contentType != "" {
		ref.ContentType = contentType
	}
	return ref
}
