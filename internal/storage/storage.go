// Package storage abstracts blob persistence for uploaded PDFs, logos and
// generated page images.
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a blob does not exist at the given path.
var ErrNotFound = errors.New("blob not found")

// BlobStorage persists opaque file content under slash-separated paths like
// "stores/{id}/pdf-page-1-1700000000.jpg". AbsolutePath resolves a stored
// blob to a real file on the local filesystem so external tools can read it;
// implementations backed by remote object stores stage a local copy.
type BlobStorage interface {
	Write(ctx context.Context, path string, data []byte, contentType string) error
	Read(ctx context.Context, path string) ([]byte, error)
	Delete(ctx context.Context, path string) error
	Exists(ctx context.Context, path string) (bool, error)
	AbsolutePath(ctx context.Context, path string) (string, error)
}
