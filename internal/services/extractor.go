package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"text/template"

	"github.com/Lllllllleong/inboundmailflow/internal/gcp"
	"github.com/Lllllllleong/inboundmailflow/internal/models"
)

var (
	// ErrNoMessage means the completion service answered without a usable message.
	ErrNoMessage = errors.New("completion response has no message content")
	// ErrMalformedJSON means the answer was not a JSON object of the expected shape.
	ErrMalformedJSON = errors.New("completion response is not a valid JSON object")
)

// Completer sends a system and a user instruction to a language model.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Extractor turns free text into an ExtractedRecord using a language model.
type Extractor struct {
	completer    Completer
	systemPrompt string
	userPrompt   *template.Template
}

// NewExtractor builds an extractor. Empty prompts fall back to the built-in ones;
// userPrompt is a text/template rendered with {{.Text}}.
func NewExtractor(completer Completer, systemPrompt, userPrompt string) (*Extractor, error) {
	if systemPrompt == "" {
		systemPrompt = gcp.ExtractionSystemPrompt
	}
	if userPrompt == "" {
		userPrompt = gcp.ExtractionUserPrompt
	}
	tmpl, err := template.New("extraction").Parse(userPrompt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse extraction prompt template: %w", err)
	}
	return &Extractor{
		completer:    completer,
		systemPrompt: systemPrompt,
		userPrompt:   tmpl,
	}, nil
}

// Extract asks the model for the four transaction fields. Any failure means no
// record: the returned record is nil whenever err is non-nil.
func (e *Extractor) Extract(ctx context.Context, logCtx *slog.Logger, text string) (*models.ExtractedRecord, error) {
	if logCtx == nil {
		logCtx = slog.Default()
	}
	logCtx.Info("Extracting information from text.", "textLength", len(text))

	prompt, err := e.renderPrompt(text)
	if err != nil {
		logCtx.Error("Failed to render extraction prompt", "error", err)
		return nil, err
	}

	answer, err := e.completer.Complete(ctx, e.systemPrompt, prompt)
	if err != nil {
		if errors.Is(err, gcp.ErrEmptyResponse) {
			logCtx.Error("Unexpected response structure from the completion service", "error", err)
			return nil, fmt.Errorf("%w: %v", ErrNoMessage, err)
		}
		logCtx.Error("Failed to extract information", "error", err)
		return nil, fmt.Errorf("completion call failed: %w", err)
	}

	rec, err := ParseExtraction(answer)
	if err != nil {
		logCtx.Error("JSON decoding error", "error", err, "responseBody", answer)
		return nil, err
	}

	logCtx.Info("Extracted information.", "amount", rec.Amount, "currency", rec.Currency, "vendor", rec.Vendor, "date", rec.Date)
	return rec, nil
}

func (e *Extractor) renderPrompt(text string) (string, error) {
	var buf bytes.Buffer
	if err := e.userPrompt.Execute(&buf, struct{ Text string }{Text: text}); err != nil {
		return "", fmt.Errorf("failed to render extraction prompt: %w", err)
	}
	return buf.String(), nil
}

// extractedFields is the shape requested from the model.
type extractedFields struct {
	Amount   amount `json:"amount"`
	Currency string `json:"currency"`
	Vendor   string `json:"vendor"`
	Date     string `json:"date"`
}

// amount accepts a JSON number or a string holding a plain decimal number such as
// "1299.00". Grouped or comma-decimal strings are rejected rather than guessed at.
type amount float64

func (a *amount) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err == nil {
		*a = amount(f)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("amount must be a number: %w", err)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("amount %q is not numeric: %w", s, err)
	}
	*a = amount(f)
	return nil
}

// ParseExtraction decodes the model answer into a record. Anything that is not a
// single JSON object of the expected shape is rejected as a whole.
func ParseExtraction(answer string) (*models.ExtractedRecord, error) {
	clean := gcp.StripCodeFences(answer)
	if !strings.HasPrefix(clean, "{") {
		return nil, ErrMalformedJSON
	}

	var fields extractedFields
	if err := json.Unmarshal([]byte(clean), &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}

	return &models.ExtractedRecord{
		Amount:   float64(fields.Amount),
		Currency: fields.Currency,
		Vendor:   fields.Vendor,
		Date:     fields.Date,
	}, nil
}
