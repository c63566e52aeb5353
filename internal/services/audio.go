package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Lllllllleong/inboundmailflow/internal/email"
	"github.com/Lllllllleong/inboundmailflow/internal/models"
)

// ErrNoTranscript means the transcriber reported success without a transcript.
var ErrNoTranscript = errors.New("transcriber returned no transcript")

// Transcriber turns a stored audio artifact into text.
type Transcriber interface {
	Transcribe(ctx context.Context, location, contentType string) (*models.Transcript, error)
}

// Notifier sends a message with a subject and a body.
type Notifier interface {
	Notify(ctx context.Context, subject, body string) (string, error)
}

// AudioResult describes a processed audio attachment.
type AudioResult struct {
	Location   string
	Transcript *models.Transcript
	MessageID  string
}

// AudioPipeline stores, transcribes and mails out audio attachments.
type AudioPipeline struct {
	artifacts   ArtifactStore
	transcriber Transcriber
	notifier    Notifier
	subject     string
}

func NewAudioPipeline(artifacts ArtifactStore, transcriber Transcriber, notifier Notifier) *AudioPipeline {
	return &AudioPipeline{
		artifacts:   artifacts,
		transcriber: transcriber,
		notifier:    notifier,
		subject:     email.TranscriptionSubject,
	}
}

// Process handles one decoded audio attachment. A failed step is returned as a
// *StageError together with whatever was produced before it.
func (p *AudioPipeline) Process(ctx context.Context, logCtx *slog.Logger, name string, data []byte, contentType string) (*AudioResult, error) {
	logCtx = logCtx.With("attachment", name, "contentType", contentType)
	logCtx.Info("Processing audio file.")

	location, err := p.artifacts.Save(ctx, name, data)
	if err != nil {
		logCtx.Error("Error saving audio file", "error", err)
		return nil, &StageError{Stage: StageArtifact, Name: name, Err: err}
	}
	result := &AudioResult{Location: location}
	logCtx.Info("Saved audio file.", "location", location, "bytes", len(data))

	logCtx.Info("Starting transcription.")
	transcript, err := p.transcriber.Transcribe(ctx, location, contentType)
	if err != nil {
		logCtx.Error("Error during transcription", "error", err)
		return result, &StageError{Stage: StageTranscription, Name: name, Err: err}
	}
	if transcript == nil {
		logCtx.Error("Transcription returned no transcript")
		return result, &StageError{Stage: StageTranscription, Name: name, Err: ErrNoTranscript}
	}
	result.Transcript = transcript
	logCtx.Info("Transcription completed.", "transcript", transcript.Text)

	for _, u := range transcript.Utterances {
		logCtx.Info("Utterance", "speaker", u.Speaker, "text", u.Text)
	}

	messageID, err := p.notifier.Notify(ctx, p.subject, transcript.Text)
	if err != nil {
		logCtx.Error("Failed to send transcription email", "error", err)
		return result, &StageError{Stage: StageNotification, Name: name, Err: err}
	}
	result.MessageID = messageID
	logCtx.Info("Transcription email sent.", "messageId", messageID)
	return result, nil
}
