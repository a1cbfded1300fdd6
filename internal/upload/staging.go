// Package upload stages multipart file uploads on disk for the duration of
// a single request.
package upload

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Asset is a staged upload. It lives for one request: created before the
// handler calls the provider, removed on every exit path afterwards.
type Asset struct {
	Path     string
	MimeType string
	Size     int64
}

// Staging writes uploads into a fixed directory under unique names.
type Staging struct {
	dir string
}

// NewStaging creates the staging directory if needed.
func NewStaging(dir string) (*Staging, error) {
	if dir == "" {
		return nil, errors.New("upload: staging dir must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("upload: create staging dir: %w", err)
	}
	return &Staging{dir: dir}, nil
}

// Dir returns the staging directory.
func (s *Staging) Dir() string { return s.dir }

// Save writes one multipart file to the staging directory under a unique
// name. The caller owns the returned asset and must Remove it when done.
func (s *Staging) Save(file multipart.File, header *multipart.FileHeader) (*Asset, error) {
	name := uuid.New().String() + filepath.Ext(header.Filename)
	path := filepath.Join(s.dir, name)

	dst, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("upload: create staged file: %w", err)
	}
	size, err := io.Copy(dst, file)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("upload: write staged file: %w", err)
	}

	return &Asset{
		Path:     path,
		MimeType: header.Header.Get("Content-Type"),
		Size:     size,
	}, nil
}

// Remove deletes the staged file. A file that is already gone is not an
// error: cleanup runs on every exit path, including ones where the file was
// never written.
func (a *Asset) Remove() error {
	if a == nil || a.Path == "" {
		return nil
	}
	if err := os.Remove(a.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("upload: remove staged file: %w", err)
	}
	return nil
}
