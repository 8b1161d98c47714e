// Package storage implements the file content store for uploaded icons.
//
// The store is a directory on disk with two non-overlapping namespaces:
//
//	icons/           icon files (svg, icns)
//	icons/previews/  preview images (png, jpg, jpeg)
//
// Stored filenames are uniquified with a time prefix plus an xid, so no two
// writers ever target the same path. Database rows keep the returned
// relative path; the original filename only survives as a sanitized suffix.
package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/xid"
)

const (
	iconDir    = "icons"
	previewDir = "icons/previews"
)

// Store is a disk-backed content store rooted at a single directory.
type Store struct {
	root string
}

// New creates a Store rooted at root, creating the namespace directories
// if they don't exist yet.
func New(root string) (*Store, error) {
	for _, dir := range []string{iconDir, previewDir} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return nil, fmt.Errorf("storage: creating %s: %w", dir, err)
		}
	}
	return &Store{root: root}, nil
}

// SaveIcon writes an icon file into the icons/ namespace and returns its
// store-relative path.
func (s *Store) SaveIcon(originalName string, r io.Reader) (string, error) {
	return s.save(iconDir, originalName, r)
}

// SavePreview writes a preview image into the icons/previews/ namespace
// and returns its store-relative path.
func (s *Store) SavePreview(originalName string, r io.Reader) (string, error) {
	return s.save(previewDir, originalName, r)
}

func (s *Store) save(dir, originalName string, r io.Reader) (string, error) {
	name := fmt.Sprintf("%d_%s_%s", time.Now().Unix(), xid.New().String(), sanitizeName(originalName))
	relPath := filepath.ToSlash(filepath.Join(dir, name))
	absPath := filepath.Join(s.root, dir, name)

	f, err := os.OpenFile(absPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("storage: creating %s: %w", relPath, err)
	}

	if _, err := io.Copy(f, r); err != nil {
		// No partial writes: a failed copy removes the half-written file.
		f.Close()
		os.Remove(absPath)
		return "", fmt.Errorf("storage: writing %s: %w", relPath, err)
	}

	if err := f.Close(); err != nil {
		os.Remove(absPath)
		return "", fmt.Errorf("storage: closing %s: %w", relPath, err)
	}

	return relPath, nil
}

// Open opens a stored file for reading and returns its size. The caller
// must close the reader. A missing file surfaces as fs.ErrNotExist in the
// error chain, so callers can distinguish "file was removed externally"
// from real I/O failures.
func (s *Store) Open(relPath string) (io.ReadCloser, int64, error) {
	absPath, err := s.safePath(relPath)
	if err != nil {
		return nil, 0, err
	}

	f, err := os.Open(absPath)
	if err != nil {
		return nil, 0, fmt.Errorf("storage: opening %s: %w", relPath, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("storage: stat %s: %w", relPath, err)
	}

	return f, info.Size(), nil
}

// Exists reports whether a stored file is present.
func (s *Store) Exists(relPath string) bool {
	absPath, err := s.safePath(relPath)
	if err != nil {
		return false
	}
	_, err = os.Stat(absPath)
	return err == nil
}

// Remove deletes a stored file. Removing a file that is already gone is
// not an error — deletes must be idempotent so a failed request can be
// retried safely.
func (s *Store) Remove(relPath string) error {
	if relPath == "" {
		return nil
	}
	absPath, err := s.safePath(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(absPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("storage: removing %s: %w", relPath, err)
	}
	return nil
}

// safePath resolves a store-relative path and refuses anything that would
// escape the root. Paths come from our own database rows, but the check is
// cheap and the consequence of a traversal is severe.
func (s *Store) safePath(relPath string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(relPath))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("storage: invalid path %q", relPath)
	}
	return filepath.Join(s.root, cleaned), nil
}

// sanitizeName strips directory components and replaces characters that are
// awkward in filenames, keeping the original name recognisable.
func sanitizeName(name string) string {
	name = filepath.Base(filepath.Clean(name))
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r == ' ':
			b.WriteByte('_')
		case r == '/' || r == '\\' || r == 0:
			// dropped
		default:
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "file"
	}
	return b.String()
}
