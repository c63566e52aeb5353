package services

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/Lllllllleong/inboundmailflow/internal/gcp"
	"github.com/Lllllllleong/inboundmailflow/internal/models"
	"github.com/google/uuid"
)

// ArtifactStore keeps decoded attachment bytes so collaborators can read them by location.
type ArtifactStore interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
	Read(ctx context.Context, location string) ([]byte, error)
}

// artifactFileName reduces an attachment name to a single path element.
func artifactFileName(name string) string {
	base := filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	switch base {
	case ".", "..", "/", "":
		return models.DefaultAttachmentName
	}
	return base
}

// LocalArtifactStore writes one file per attachment name into a directory.
// A second attachment with the same name overwrites the first.
type LocalArtifactStore struct {
	dir string
}

// NewLocalArtifactStore creates dir on demand.
func NewLocalArtifactStore(dir string) (*LocalArtifactStore, error) {
	if err := os.MkdirAll(dir, 0o770); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return &LocalArtifactStore{dir: dir}, nil
}

func (s *LocalArtifactStore) Save(_ context.Context, name string, data []byte) (string, error) {
	filePath := filepath.Join(s.dir, artifactFileName(name))
	if err := os.WriteFile(filePath, data, 0o660); err != nil {
		return "", fmt.Errorf("failed to write artifact %s: %w", filePath, err)
	}
	return filePath, nil
}

func (s *LocalArtifactStore) Read(_ context.Context, location string) ([]byte, error) {
	data, err := os.ReadFile(location)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s: %w", location, err)
	}
	return data, nil
}

// GCSArtifactStore writes attachments to a bucket under a per-upload prefix.
type GCSArtifactStore struct {
	storageClient *storage.Client
	bucket        string
	now           func() time.Time
	newID         func() string
}

func NewGCSArtifactStore(client *storage.Client, bucket string) *GCSArtifactStore {
	return &GCSArtifactStore{
		storageClient: client,
		bucket:        bucket,
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

// objectName returns <yyyy/mm/dd>/<uuid>/<name>.
func (s *GCSArtifactStore) objectName(name string) string {
	return path.Join(s.now().UTC().Format("2006/01/02"), s.newID(), artifactFileName(name))
}

func (s *GCSArtifactStore) Save(ctx context.Context, name string, data []byte) (string, error) {
	objectName := s.objectName(name)
	if err := gcp.SaveToGCSAtomically(ctx, s.storageClient.Bucket(s.bucket), objectName, data); err != nil {
		return "", err
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, objectName), nil
}

func (s *GCSArtifactStore) Read(ctx context.Context, location string) ([]byte, error) {
	return gcp.ReadGCSObject(ctx, s.storageClient, location)
}
