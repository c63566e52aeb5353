package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Lllllllleong/inboundmailflow/internal/gcp"
	"github.com/Lllllllleong/inboundmailflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractor_ValidJSON(t *testing.T) {
	completer := &fakeCompleter{answer: validExtraction}
	ex, err := NewExtractor(completer, "", "")
	require.NoError(t, err)

	want := &models.ExtractedRecord{Amount: 42, Currency: "USD", Vendor: "Acme", Date: "2024-01-15"}

	first, err := ex.Extract(context.Background(), nil, "Receipt from Acme, $42 on Jan 15 2024")
	require.NoError(t, err)
	assert.Equal(t, want, first)

	second, err := ex.Extract(context.Background(), nil, "Receipt from Acme, $42 on Jan 15 2024")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	require.Len(t, completer.prompts, 2)
	assert.Equal(t, gcp.ExtractionSystemPrompt, completer.systems[0])
	assert.Contains(t, completer.prompts[0], "Receipt from Acme, $42 on Jan 15 2024")
	assert.Contains(t, completer.prompts[0], "via Paddle.com")
}

func TestExtractor_NonJSONIsLoggedWithRawText(t *testing.T) {
	completer := &fakeCompleter{answer: "Sure! The vendor is Acme and the amount is 42."}
	ex, err := NewExtractor(completer, "", "")
	require.NoError(t, err)
	logger, buf := newBufferLogger()

	rec, err := ex.Extract(context.Background(), logger, "some receipt")
	assert.Nil(t, rec)
	require.ErrorIs(t, err, ErrMalformedJSON)
	assert.Contains(t, buf.String(), "The vendor is Acme and the amount is 42.")
}

func TestExtractor_EmptyResponse(t *testing.T) {
	completer := &fakeCompleter{err: gcp.ErrEmptyResponse}
	ex, err := NewExtractor(completer, "", "")
	require.NoError(t, err)

	rec, err := ex.Extract(context.Background(), nil, "some receipt")
	assert.Nil(t, rec)
	assert.ErrorIs(t, err, ErrNoMessage)
}

func TestExtractor_CompletionFailure(t *testing.T) {
	boom := errors.New("deadline exceeded")
	completer := &fakeCompleter{err: fmt.Errorf("failed to generate content from gemini: %w", boom)}
	ex, err := NewExtractor(completer, "", "")
	require.NoError(t, err)

	rec, err := ex.Extract(context.Background(), nil, "some receipt")
	assert.Nil(t, rec)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrMalformedJSON)
}

func TestExtractor_EmptyTextIsPassedThrough(t *testing.T) {
	completer := &fakeCompleter{answer: validExtraction}
	ex, err := NewExtractor(completer, "sys", "TEXT=[{{.Text}}]")
	require.NoError(t, err)

	_, err = ex.Extract(context.Background(), nil, "")
	require.NoError(t, err)
	require.Len(t, completer.prompts, 1)
	assert.Equal(t, "TEXT=[]", completer.prompts[0])
	assert.Equal(t, "sys", completer.systems[0])
}

func TestNewExtractor_BadTemplate(t *testing.T) {
	_, err := NewExtractor(&fakeCompleter{}, "", "{{.Text")
	assert.Error(t, err)
}

func TestParseExtraction(t *testing.T) {
	tests := []struct {
		name    string
		answer  string
		want    *models.ExtractedRecord
		wantErr bool
	}{
		{
			name:   "plain object",
			answer: validExtraction,
			want:   &models.ExtractedRecord{Amount: 42, Currency: "USD", Vendor: "Acme", Date: "2024-01-15"},
		},
		{
			name:   "fenced object",
			answer: "```json\n{\"amount\": 9.99, \"currency\": \"EUR\", \"vendor\": \"Shop\", \"date\": \"2024-02-01\"}\n```",
			want:   &models.ExtractedRecord{Amount: 9.99, Currency: "EUR", Vendor: "Shop", Date: "2024-02-01"},
		},
		{
			name:   "numeric string amount",
			answer: `{"amount": "1299.00", "currency": "USD", "vendor": "Laptops Inc", "date": "2024-03-03"}`,
			want:   &models.ExtractedRecord{Amount: 1299, Currency: "USD", Vendor: "Laptops Inc", Date: "2024-03-03"},
		},
		{name: "prose", answer: "no receipt here", wantErr: true},
		{name: "array", answer: `[{"amount": 1}]`, wantErr: true},
		{name: "null", answer: "null", wantErr: true},
		{name: "truncated", answer: `{"amount": 42, "currency": "US`, wantErr: true},
		{name: "non numeric amount", answer: `{"amount": "forty two"}`, wantErr: true},
		{name: "comma decimal amount", answer: `{"amount": "12,50", "currency": "EUR", "vendor": "Cafe", "date": "2024-04-01"}`, wantErr: true},
		{name: "grouped comma decimal amount", answer: `{"amount": "1.299,00", "currency": "EUR", "vendor": "Laptops", "date": "2024-04-01"}`, wantErr: true},
		{name: "thousands separator amount", answer: `{"amount": "1,299.00", "currency": "USD", "vendor": "Laptops", "date": "2024-04-01"}`, wantErr: true},
		{name: "padded amount", answer: `{"amount": " 12.50 "}`, wantErr: true},
		{name: "empty", answer: "", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseExtraction(tc.answer)
			if tc.wantErr {
				assert.Nil(t, got)
				assert.ErrorIs(t, err, ErrMalformedJSON)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
