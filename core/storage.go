package core

import (
	"context"
	"io"
)

// MaxUploadSize caps submission artifacts at 50 MiB.
const MaxUploadSize = 50 << 20

// FileStorage is any service that can persist and delete submission artifacts.
// Save returns the canonical object path the artifact was stored under.
type FileStorage interface {
	Save(ctx context.Context, path, contentType string, size int64, content io.Reader) (string, error)
	Remove(ctx context.Context, path string) error
}
