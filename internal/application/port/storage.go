package port

import "context"

// BlobStore persists attachment content. Keys are relative paths scoped to the
// store's base location; metadata lives in the attachment repository.
type BlobStore interface {
	Save(ctx context.Context, key string, content []byte) error
	Read(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) bool
	Delete(ctx context.Context, key string) error
}
