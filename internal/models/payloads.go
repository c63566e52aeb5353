package models

// These structs define the JSON payloads accepted from the mail provider webhook
// and the response returned to it.

// Wire keys of the inbound mail webhook (Postmark inbound format).
const (
	KeyTextBody           = "TextBody"
	KeyAttachments        = "Attachments"
	KeyAttachmentName     = "Name"
	KeyAttachmentContent  = "Content"
	KeyAttachmentMIMEType = "ContentType"
)

const (
	// DefaultAttachmentName is used when an attachment declares no name.
	DefaultAttachmentName = "Unnamed"
	// UnknownContentType is used when an attachment declares no content type.
	UnknownContentType = "unknown"
)

// InboundPayload is the classified view of one webhook delivery.
// Raw keeps the payload exactly as decoded so it can be written to the audit log.
type InboundPayload struct {
	TextBody    *string
	Attachments []AttachmentRef
	Raw         map[string]any
}

// HasTextBody reports whether the payload carried a text body.
func (p *InboundPayload) HasTextBody() bool {
	return p != nil && p.TextBody != nil
}

// AttachmentRef is one declared attachment. Content is still base64 encoded.
type AttachmentRef struct {
	Name        string `json:"Name"`
	Content     string `json:"Content"`
	ContentType string `json:"ContentType"`
}

// InboundResponse is the body returned to the webhook caller.
type InboundResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ProcessedResponse is returned for every delivery the pipeline ran on,
// regardless of the outcome of the individual parts.
var ProcessedResponse = InboundResponse{
	Status:  "success",
	Message: "Data processed",
}

// PubSubMessage is the message carried inside a Pub/Sub CloudEvent.
type PubSubMessage struct {
	Data       []byte            `json:"data"`
	Attributes map[string]string `json:"attributes,omitempty"`
	MessageID  string            `json:"messageId,omitempty"`
}

// MessagePublishedData is the data payload of a google.cloud.pubsub.topic.v1.messagePublished event.
type MessagePublishedData struct {
	Message      PubSubMessage `json:"message"`
	Subscription string        `json:"subscription,omitempty"`
}
