// Package email sends notification mails through the Resend API.
package email

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/resend/resend-go/v2"
)

// TranscriptionSubject is the subject line of transcript notifications.
const TranscriptionSubject = "New Transcription"

// ResendNotifier delivers a subject and body to a fixed set of recipients.
type ResendNotifier struct {
	client *resend.Client
	from   string
	to     []string
}

func NewResendNotifier(apiKey, from string, to []string) (*ResendNotifier, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("NewResendNotifier: apiKey cannot be empty")
	}
	if from == "" || len(to) == 0 {
		return nil, fmt.Errorf("NewResendNotifier: sender and at least one recipient are required")
	}
	return &ResendNotifier{
		client: resend.NewClient(apiKey),
		from:   from,
		to:     to,
	}, nil
}

// Notify sends the message and returns the provider's message ID.
func (n *ResendNotifier) Notify(ctx context.Context, subject, body string) (string, error) {
	params := &resend.SendEmailRequest{
		From:    n.from,
		To:      n.to,
		Subject: subject,
		Html:    RenderHTML(body),
		Text:    body,
	}
	sent, err := n.client.Emails.SendWithContext(ctx, params)
	if err != nil {
		return "", fmt.Errorf("failed to send email via resend: %w", err)
	}
	return sent.Id, nil
}

// RenderHTML wraps the escaped body in <strong>, keeping line breaks.
func RenderHTML(body string) string {
	escaped := strings.ReplaceAll(html.EscapeString(body), "\n", "<br>")
	return "<strong>" + escaped + "</strong>"
}

// ParseRecipients splits a comma separated recipient list.
func ParseRecipients(list string) []string {
	var out []string
	for _, r := range strings.Split(list, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}
