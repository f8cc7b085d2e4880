// Package filestore keeps uploaded files on the local disk.
package filestore

import (
	"context"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/beasiswa/core"
)

var (
	ErrNotFound    = core.NewNotFoundError("file not found")
	errInvalidPath = errors.New("invalid file path")
)

// LocalStorage stores files under a root directory.
type LocalStorage struct {
	root string
}

var _ core.FileStorage = (*LocalStorage)(nil)

func NewLocalStorage(root string) (*LocalStorage, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, "resolving uploads dir")
	}
	if err = os.MkdirAll(abs, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating uploads dir")
	}
	return &LocalStorage{root: abs}, nil
}

// resolve cleans a relative slash separated path and maps it under the root.
func (s *LocalStorage) resolve(p string) (string, string, error) {
	rel := path.Clean("/" + strings.ReplaceAll(p, "\\", "/"))[1:]
	if rel == "" || rel == "." {
		return "", "", errInvalidPath
	}
	full := filepath.Join(s.root, filepath.FromSlash(rel))
	if !strings.HasPrefix(full, s.root+string(filepath.Separator)) {
		return "", "", errInvalidPath
	}
	return rel, full, nil
}

// Save writes data at p, replacing any existing file.
func (s *LocalStorage) Save(_ context.Context, p string, data []byte) (core.StoredFile, error) {
	rel, full, err := s.resolve(p)
	if err != nil {
		return core.StoredFile{}, err
	}
	dir := filepath.Dir(full)
	if err = os.MkdirAll(dir, 0o755); err != nil {
		return core.StoredFile{}, errors.Wrap(err, "creating directory")
	}

	// write to a temp file first so readers never see a partial file
	tmp := filepath.Join(dir, "."+uuid.New().String()+".tmp")
	if err = os.WriteFile(tmp, data, 0o644); err != nil {
		return core.StoredFile{}, errors.Wrap(err, "writing file")
	}
	if err = os.Rename(tmp, full); err != nil {
		_ = os.Remove(tmp)
		return core.StoredFile{}, errors.Wrap(err, "moving file")
	}
	return core.StoredFile{Path: rel, Size: int64(len(data)), Checksum: core.Checksum(data)}, nil
}

func (s *LocalStorage) Read(_ context.Context, p string) (core.StoredFile, error) {
	rel, full, err := s.resolve(p)
	if err != nil {
		return core.StoredFile{}, err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return core.StoredFile{}, ErrNotFound
		}
		return core.StoredFile{}, errors.Wrap(err, "reading file")
	}
	return core.StoredFile{Path: rel, Size: int64(len(data)), Checksum: core.Checksum(data), Data: data}, nil
}

// Delete removes the file at p; missing files are ignored.
func (s *LocalStorage) Delete(_ context.Context, p string) error {
	_, full, err := s.resolve(p)
	if err != nil {
		return err
	}
	if err = os.Remove(full); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "deleting file")
	}
	return nil
}
