package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/Lllllllleong/inboundmailflow/internal/models"
)

// NewFirestoreClient creates and returns a new Firestore client for the given project ID.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return client, nil
}

// FirestoreTable appends documents to a single collection.
// It backs both the receipts table and the processing log table.
type FirestoreTable struct {
	client     *firestore.Client
	collection string
}

func NewFirestoreTable(client *firestore.Client, collection string) *FirestoreTable {
	return &FirestoreTable{client: client, collection: collection}
}

// CreateRecord adds an extracted record and returns the new document ID.
func (t *FirestoreTable) CreateRecord(ctx context.Context, rec *models.ExtractedRecord) (string, error) {
	docRef, _, err := t.client.Collection(t.collection).Add(ctx, rec)
	if err != nil {
		return "", fmt.Errorf("failed to add record to %s: %w", t.collection, err)
	}
	return docRef.ID, nil
}

// AppendLog adds one processing log entry.
func (t *FirestoreTable) AppendLog(ctx context.Context, entry *models.AuditLogEntry) error {
	if _, _, err := t.client.Collection(t.collection).Add(ctx, entry); err != nil {
		return fmt.Errorf("failed to add log entry to %s: %w", t.collection, err)
	}
	return nil
}
