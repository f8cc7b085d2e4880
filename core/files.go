package core

import (
	"context"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/zeebo/blake3"
)

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]+`)

type (
	// Upload is a file received from a client.
	Upload struct {
		Filename    string
		ContentType string
		Data        []byte
	}

	// StoredFile describes a file kept by a FileStorage; Data is only set when reading.
	StoredFile struct {
		Path     string
		Size     int64
		Checksum string
		Data     []byte
	}

	// FileStorage stores uploaded files under relative, slash separated paths.
	FileStorage interface {
		Save(ctx context.Context, path string, data []byte) (StoredFile, error)
		Read(ctx context.Context, path string) (StoredFile, error)
		Delete(ctx context.Context, path string) error
	}
)

// Ext returns the lowercased extension of the upload, without the dot.
func (u Upload) Ext() string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(u.Filename), "."))
}

func (u Upload) Size() int64 { return int64(len(u.Data)) }

func (u *Upload) IsEmpty() bool { return u == nil || (u.Filename == "" && len(u.Data) == 0) }

// Validate checks the upload's extension and size; the returned error is a ValidationError on `field`.
func (u Upload) Validate(field string, maxSize int64, exts ...string) error {
	ext := u.Ext()
	if !contains(exts, ext) {
		return NewFieldError(field, fmt.Sprintf("file type not allowed; allowed types: %s", strings.Join(exts, ", ")))
	}
	if maxSize > 0 && u.Size() > maxSize {
		return NewFieldError(field, fmt.Sprintf("file is too large; max size is %s", HumanSize(maxSize)))
	}
	return nil
}

// SecureFilename keeps ASCII letters, digits, dots, hyphens & underscores of a client supplied filename.
func SecureFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Join(strings.Fields(name), "_")
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	name = strings.Trim(name, "._")
	if name == "" {
		return "file"
	}
	return name
}

// HumanSize formats a number of bytes, e.g. 300KB or 1MB.
func HumanSize(n int64) string {
	switch {
	case n >= 1<<20 && n%(1<<20) == 0:
		return fmt.Sprintf("%dMB", n>>20)
	case n >= 1<<10 && n%(1<<10) == 0:
		return fmt.Sprintf("%dKB", n>>10)
	}
	return fmt.Sprintf("%dB", n)
}

// Checksum is the hex encoded BLAKE3 digest of data; it is used as the ETag of downloads.
func Checksum(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
