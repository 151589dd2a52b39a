package media

import (
	"context"
	"errors"
	"io"
)

// ErrBlobExists is returned by Put when name is already taken
var ErrBlobExists = errors.New("blob already exists")

// BlobStore holds the bytes of uploaded files. Names are flat; stores
// reject path separators.
type BlobStore interface {
	// Put writes r under name and returns the number of bytes written
	Put(ctx context.Context, name string, r io.Reader) (int64, error)

	// Delete removes name. A missing blob is an error the caller may ignore.
	Delete(ctx context.Context, name string) error

	// Open returns a reader for name
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}
