package core

import "io"

// BlobStore is any key→bytes store holding uploaded files. Keys are
// generated by the store; the row referencing a key owns it.
type BlobStore interface {
	// Put stores the content of r under a newly generated key derived
	// from origName's extension.
	Put(r io.Reader, origName string) (key string, err error)
	// Open returns a reader over the stored blob; ErrNotFound if the key
	// has no backing content.
	Open(key string) (io.ReadCloser, error)
	// Path returns a local filesystem path for the blob, for stores that
	// have one; ErrNotFound if the blob is missing on storage.
	Path(key string) (string, error)
	// URL derives the servable URL for a key.
	URL(key string) string
	// Delete removes the blob. Best-effort: callers treat failure as
	// non-fatal.
	Delete(key string) error
}
