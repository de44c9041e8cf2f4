package store

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"timecapsule/internal/domain"
)

// FileBlobStore keeps opaque ciphertext blobs as flat files under one
// directory. Refs are plain names; the bytes are never inspected.
type FileBlobStore struct {
	dir string
}

// NewFileBlobStore returns a blob store rooted at dir.
func NewFileBlobStore(dir string) *FileBlobStore { return &FileBlobStore{dir: dir} }

var errBadRef = errors.New("blob ref must be a bare name")

func (s *FileBlobStore) path(ref string) (string, error) {
	if ref == "" || strings.ContainsAny(ref, `/\`) || strings.Contains(ref, "..") {
		return "", errBadRef
	}
	return filepath.Join(s.dir, ref), nil
}

func (s *FileBlobStore) Put(ref string, data []byte) error {
	p, err := s.path(ref)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return &domain.TransientError{Err: err}
	}
	if err := os.WriteFile(p, data, 0o600); err != nil {
		return &domain.TransientError{Err: err}
	}
	return nil
}

func (s *FileBlobStore) Get(ref string) ([]byte, error) {
	p, err := s.path(ref)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, &domain.TransientError{Err: err}
	}
	return data, nil
}

func (s *FileBlobStore) Delete(ref string) error {
	p, err := s.path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return &domain.TransientError{Err: err}
	}
	return nil
}

var _ domain.BlobStore = (*FileBlobStore)(nil)
