package models

import "time"

// ExtractedRecord is the structured transaction data pulled out of free text.
// The first four fields come from the language model; the rest is filled in
// before the record is written to the primary store.
type ExtractedRecord struct {
	Amount    float64   `json:"amount" firestore:"amount"`
	Currency  string    `json:"currency" firestore:"currency"`
	Vendor    string    `json:"vendor" firestore:"vendor"`
	Date      string    `json:"date" firestore:"date"`
	Source    string    `json:"source,omitempty" firestore:"source,omitempty"`
	RequestID string    `json:"requestId,omitempty" firestore:"requestId,omitempty"`
	CreatedAt time.Time `json:"createdAt" firestore:"createdAt"`
}

// AuditLogEntry is one row of the processing log. Entries are append-only.
type AuditLogEntry struct {
	RequestData string    `firestore:"request_data"`
	Result      string    `firestore:"result"`
	TextBody    string    `firestore:"text_body"`
	RequestID   string    `firestore:"request_id,omitempty"`
	CreatedAt   time.Time `firestore:"created_at"`
}

// Utterance is one speaker turn of a transcript.
type Utterance struct {
	Speaker string `json:"speaker"`
	Text    string `json:"text"`
}

// Transcript is the result of transcribing an audio attachment.
type Transcript struct {
	Text       string      `json:"text"`
	Utterances []Utterance `json:"utterances,omitempty"`
}
