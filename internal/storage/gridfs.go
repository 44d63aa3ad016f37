package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"degree-service/internal/errs"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
)

// Store is the blob-storage contract used for free-response attachments.
// The scoring path only ever persists the returned reference.
type Store interface {
	Store(ctx context.Context, data []byte, name string) (string, error)
}

// GridFSStore keeps attachments in a GridFS bucket alongside the service's
// other collections.
type GridFSStore struct {
	bucket *gridfs.Bucket
}

func NewGridFSStore(db *mongo.Database) (*GridFSStore, error) {
	bucket, err := gridfs.NewBucket(db)
	if err != nil {
		return nil, err
	}
	return &GridFSStore{bucket: bucket}, nil
}

// Store uploads the bytes under the given name and returns the reference
// recorded in answer documents.
func (s *GridFSStore) Store(ctx context.Context, data []byte, name string) (string, error) {
	id, err := s.bucket.UploadFromStream(name, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("upload %s: %v: %w", name, err, errs.ErrUpstream)
	}
	return "/public/learning/files/" + id.Hex(), nil
}

// Open streams a stored attachment by its hex id.
func (s *GridFSStore) Open(ctx context.Context, id string, w io.Writer) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("file id %s: %w", id, errs.ErrValidation)
	}
	if _, err := s.bucket.DownloadToStream(objID, w); err != nil {
		if err == gridfs.ErrFileNotFound {
			return fmt.Errorf("file %s: %w", id, errs.ErrNotFound)
		}
		return fmt.Errorf("download %s: %v: %w", id, err, errs.ErrUpstream)
	}
	return nil
}
