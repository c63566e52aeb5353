package gcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"github.com/Lllllllleong/inboundmailflow/internal/models"
)

// DefaultModel is the Gemini model used when VERTEX_MODEL is not set.
const DefaultModel = "gemini-1.5-pro"

// --- Extraction Model Prompts ---
const ExtractionSystemPrompt = "Only return the information asked for. No preamble, and no conclusion. Return a single JSON object and nothing else."
const ExtractionUserPrompt = `Extract the amount, currency, vendor, and date from the following text.

Follow these rules precisely:
1.  Prioritize the main vendor mentioned in the context of a receipt or transaction. Ignore secondary services or payment platforms mentioned in passing, such as "via Paddle.com".
2.  Return the amount as a number, without currency symbols or thousands separators.
3.  Return the currency as a separate field, using its short code (e.g. "USD", "EUR").
4.  Return the date in ISO 8601 format (YYYY-MM-DD).
5.  The output MUST be a single JSON object with exactly these keys: "amount", "currency", "vendor", "date".

Text:
{{.Text}}`

// --- Transcription Model Prompts ---
const TranscriptionSystemPrompt = "You are a speech transcription service. You must output your response as a valid JSON object."
const TranscriptionUserPrompt = `Transcribe the attached audio recording verbatim.

The output MUST be a single JSON object with two keys:
    - "text": A string containing the full transcript.
    - "utterances": An array of objects, one per speaker turn, each with a "speaker" label (e.g. "A", "B") and the "text" spoken in that turn.

Do not include any text before or after the JSON object.`

// ErrEmptyResponse is returned when the model answers without any text content.
var ErrEmptyResponse = errors.New("gemini returned no text content")

// VertexClient wraps the Gemini models used for extraction and transcription.
type VertexClient struct {
	modelName           string
	transcriptionPrompt string
	baseClient          *genai.Client
}

// NewVertexClient creates a new client for the given project, region and model.
func NewVertexClient(ctx context.Context, projectID, region, modelName string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}
	if modelName == "" {
		modelName = DefaultModel
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	return &VertexClient{
		modelName:           modelName,
		transcriptionPrompt: TranscriptionUserPrompt,
		baseClient:          baseClient,
	}, nil
}

// SetTranscriptionPrompt overrides the user prompt sent alongside audio.
func (c *VertexClient) SetTranscriptionPrompt(prompt string) {
	if prompt != "" {
		c.transcriptionPrompt = prompt
	}
}

// jsonModel returns a model configured for deterministic JSON output.
func (c *VertexClient) jsonModel(systemPrompt string) *genai.GenerativeModel {
	model := c.baseClient.GenerativeModel(c.modelName)
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(systemPrompt)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0),
	}
	// Receipts and voice notes trip the default filters on harmless content.
	model.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
	}
	return model
}

// Complete sends a system and a user instruction and returns the raw text answer.
func (c *VertexClient) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.jsonModel(systemPrompt).GenerateContent(ctx, genai.Text(userPrompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content from gemini: %w", err)
	}
	text := ResponseText(resp)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

// Transcribe sends the audio stored at location to Gemini and parses the transcript.
// Locations starting with gs:// are passed by reference, anything else is read from disk.
func (c *VertexClient) Transcribe(ctx context.Context, location, mimeType string) (*models.Transcript, error) {
	var audio genai.Part
	if strings.HasPrefix(location, "gs://") {
		audio = genai.FileData{MIMEType: mimeType, FileURI: location}
	} else {
		data, err := os.ReadFile(location)
		if err != nil {
			return nil, fmt.Errorf("failed to read audio file %s: %w", location, err)
		}
		audio = genai.Blob{MIMEType: mimeType, Data: data}
	}

	resp, err := c.jsonModel(TranscriptionSystemPrompt).GenerateContent(ctx, audio, genai.Text(c.transcriptionPrompt))
	if err != nil {
		return nil, fmt.Errorf("failed to transcribe audio with gemini: %w", err)
	}
	text := ResponseText(resp)
	if text == "" {
		return nil, ErrEmptyResponse
	}
	return ParseTranscript(text), nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}

// ResponseText concatenates the text parts of the first candidate.
func ResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ""
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return strings.TrimSpace(sb.String())
}

// StripCodeFences removes a surrounding ``` or ```json fence.
func StripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// ParseTranscript decodes the model's JSON transcript. When the model ignored the
// requested shape the whole answer is kept as the transcript text.
func ParseTranscript(text string) *models.Transcript {
	clean := StripCodeFences(text)

	var transcript models.Transcript
	if err := json.Unmarshal([]byte(clean), &transcript); err != nil || (transcript.Text == "" && len(transcript.Utterances) == 0) {
		slog.Warn("Transcript was not in the expected JSON shape. Using raw text.", "error", err)
		return &models.Transcript{Text: clean}
	}

	if transcript.Text == "" {
		parts := make([]string, 0, len(transcript.Utterances))
		for _, u := range transcript.Utterances {
			parts = append(parts, u.Text)
		}
		transcript.Text = strings.Join(parts, " ")
	}
	return &transcript
}
