// Package fsblob stores uploaded files on the local filesystem under a
// media root, keyed by random uuid names.
package fsblob

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
)

const urlPrefix = "/uploads/submissions/"

type Store struct {
	root string
}

var _ core.BlobStore = (*Store)(nil) // interface compliance check

// NewStore creates (if needed) the submissions directory under mediaRoot.
func NewStore(mediaRoot string) (*Store, error) {
	root := filepath.Join(mediaRoot, "submissions")
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating media root")
	}
	return &Store{root: root}, nil
}

func (s *Store) Put(r io.Reader, origName string) (string, error) {
	key := uuid.New().String() + sanitizeExt(origName)

	f, err := os.Create(filepath.Join(s.root, key))
	if err != nil {
		return "", errors.Wrap(err, "creating blob file")
	}
	defer f.Close()

	if _, err = io.Copy(f, r); err != nil {
		os.Remove(f.Name())
		return "", errors.Wrap(err, "writing blob file")
	}
	return key, nil
}

func (s *Store) Open(key string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.root, filepath.Base(key)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.ErrNotFound
		}
		return nil, errors.Wrap(err, "opening blob file")
	}
	return f, nil
}

func (s *Store) Path(key string) (string, error) {
	path := filepath.Join(s.root, filepath.Base(key))
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", core.ErrNotFound
		}
		return "", errors.Wrap(err, "locating blob file")
	}
	return path, nil
}

func (s *Store) URL(key string) string { return urlPrefix + key }

func (s *Store) Delete(key string) error {
	if err := os.Remove(filepath.Join(s.root, filepath.Base(key))); err != nil {
		if os.IsNotExist(err) {
			return core.ErrNotFound
		}
		return errors.Wrap(err, "removing blob file")
	}
	return nil
}

// sanitizeExt keeps a short, lowercase extension from a client-supplied
// name; anything suspicious is dropped.
func sanitizeExt(origName string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(origName)))
	if len(ext) > 10 || strings.ContainsAny(ext, `/\`) {
		return ""
	}
	return ext
}
