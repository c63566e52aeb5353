package services

import "fmt"

// Stage names the step of attachment processing that failed.
type Stage string

const (
	StageArtifact      Stage = "artifact"
	StageTranscription Stage = "transcription"
	StageNotification  Stage = "notification"
	StageParse         Stage = "parse"
	StageExtraction    Stage = "extraction"
)

// StageError is returned by the pipelines so the router can log exactly one
// outcome per attachment.
type StageError struct {
	Stage Stage
	Name  string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed for %s: %v", e.Stage, e.Name, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
