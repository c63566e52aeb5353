package services

import (
	"fmt"

	"github.com/Lllllllleong/inboundmailflow/internal/email"
	"github.com/spf13/viper"
)

// ProcessorConfig holds all configuration for the inbound processor.
type ProcessorConfig struct {
	ProjectID         string `mapstructure:"project_id"`
	VertexAIRegion    string `mapstructure:"vertex_ai_region"`
	VertexModel       string `mapstructure:"vertex_model"`
	RecordsCollection string `mapstructure:"records_collection"`
	LogsCollection    string `mapstructure:"logs_collection"`
	DownloadDir       string `mapstructure:"download_dir"`
	ArtifactBucket    string `mapstructure:"artifact_bucket"`

	ResendAPIKey string `mapstructure:"resend_api_key"`
	EmailFrom    string `mapstructure:"resend_email_from"`
	EmailTo      string `mapstructure:"resend_email_to"`

	WorkflowID       string `mapstructure:"workflow_id"`
	WorkflowLocation string `mapstructure:"workflow_location"`

	ExtractionSystemPrompt string `mapstructure:"extraction_system_prompt"`
	ExtractionUserPrompt   string `mapstructure:"extraction_user_prompt"`
	TranscriptionPrompt    string `mapstructure:"transcription_prompt"`
}

// Recipients returns the parsed notification recipients.
func (c *ProcessorConfig) Recipients() []string {
	return email.ParseRecipients(c.EmailTo)
}

var configDefaults = map[string]string{
	"project_id":               "",
	"vertex_ai_region":         "us-central1",
	"vertex_model":             "",
	"records_collection":       "receipts-inbox",
	"logs_collection":          "logs",
	"download_dir":             "./downloads",
	"artifact_bucket":          "",
	"resend_api_key":           "",
	"resend_email_from":        "",
	"resend_email_to":          "",
	"workflow_id":              "",
	"workflow_location":        "us-central1",
	"extraction_system_prompt": "",
	"extraction_user_prompt":   "",
	"transcription_prompt":     "",
}

// loadConfig loads and validates the environment. Keys map to upper-case
// variables, e.g. records_collection is read from RECORDS_COLLECTION.
func loadConfig() (*ProcessorConfig, error) {
	v := viper.New()
	for key, value := range configDefaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	var config ProcessorConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.ProjectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}
	if config.ResendAPIKey == "" {
		return nil, fmt.Errorf("RESEND_API_KEY environment variable must be set")
	}
	if config.EmailFrom == "" || len(config.Recipients()) == 0 {
		return nil, fmt.Errorf("RESEND_EMAIL_FROM and RESEND_EMAIL_TO must be set")
	}
	return &config, nil
}
