package gcp

import (
	"context"
	"encoding/json"
	"fmt"

	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
	"github.com/Lllllllleong/inboundmailflow/internal/models"
)

// WorkflowDispatcher hands saved records off to a Cloud Workflow for downstream processing.
type WorkflowDispatcher struct {
	executionsClient *executions.Client
	parent           string
}

func NewWorkflowDispatcher(ctx context.Context, projectID, location, workflowID string) (*WorkflowDispatcher, error) {
	if projectID == "" || location == "" || workflowID == "" {
		return nil, fmt.Errorf("NewWorkflowDispatcher: projectID, location and workflowID cannot be empty")
	}
	client, err := executions.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
	}
	return &WorkflowDispatcher{
		executionsClient: client,
		parent:           fmt.Sprintf("projects/%s/locations/%s/workflows/%s", projectID, location, workflowID),
	}, nil
}

// WorkflowArgument builds the execution argument for a saved record.
func WorkflowArgument(recordID string, rec *models.ExtractedRecord) (string, error) {
	payload := map[string]interface{}{
		"recordId":  recordID,
		"requestId": rec.RequestID,
		"source":    rec.Source,
		"amount":    rec.Amount,
		"currency":  rec.Currency,
		"vendor":    rec.Vendor,
		"date":      rec.Date,
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal workflow payload: %w", err)
	}
	return string(payloadBytes), nil
}

// Dispatch starts one workflow execution and returns its resource name.
func (d *WorkflowDispatcher) Dispatch(ctx context.Context, recordID string, rec *models.ExtractedRecord) (string, error) {
	argument, err := WorkflowArgument(recordID, rec)
	if err != nil {
		return "", err
	}
	req := &executionspb.CreateExecutionRequest{
		Parent: d.parent,
		Execution: &executionspb.Execution{
			Argument: argument,
		},
	}
	execution, err := d.executionsClient.CreateExecution(ctx, req)
	if err != nil {
		return "", fmt.Errorf("failed to trigger workflow execution: %w", err)
	}
	return execution.GetName(), nil
}

func (d *WorkflowDispatcher) Close() error {
	return d.executionsClient.Close()
}
