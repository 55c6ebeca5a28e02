// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package corpus reads and writes the persisted article store: a flat
// directory of Markdown files, each a metadata block followed by a body.
// Files are written once and never overwritten.
package corpus

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Ext is the extension of persisted articles.
const Ext = ".md"

// ErrExists is returned by Save when the target file is already present.
var ErrExists = errors.New("article already exists")

// ListTitles returns the title of every article in dir, in directory order.
// Files without a recognizable title are skipped. A missing directory is an
// empty corpus.
func ListTitles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading posts directory %s: %w", dir, err)
	}

	var titles []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), Ext) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		if title, ok := TitleOf(string(data)); ok {
			titles = append(titles, title)
		}
	}
	return titles, nil
}

// Store persists rendered articles into a directory.
type Store struct {
	Dir string
}

// NewStore ensures dir exists and returns a Store rooted there.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating posts directory: %w", err)
	}
	return &Store{Dir: dir}, nil
}

// Path returns the file path for fileID.
func (s *Store) Path(fileID string) string {
	return filepath.Join(s.Dir, fileID+Ext)
}

// Titles lists the titles currently in the store.
func (s *Store) Titles() ([]string, error) {
	return ListTitles(s.Dir)
}

// Save writes content under fileID and returns the file path. The content is
// written to a temporary file, synced, then hard-linked into place so the
// target either appears complete or not at all; an existing target is never
// replaced.
func (s *Store) Save(fileID string, content []byte) (string, error) {
	if fileID == "" || strings.ContainsAny(fileID, `/\`) {
		return "", fmt.Errorf("invalid file id %q", fileID)
	}
	path := s.Path(fileID)

	tmp, err := os.CreateTemp(s.Dir, "."+fileID+"-*.tmp")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing %s: %w", fileID, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("syncing %s: %w", fileID, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", fileID, err)
	}

	if err := os.Link(tmpPath, path); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("%s: %w", path, ErrExists)
		}
		return "", fmt.Errorf("linking %s: %w", path, err)
	}
	return path, nil
}
