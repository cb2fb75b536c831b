// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package jsonfile persists the station catalogue as a single, human-readable JSON document.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/wneessen/stationgrid/internal/catalogue"
)

// FormatVersion is the version of the document layout written by Store.
const FormatVersion = 1

type document struct {
	Version int `json:"version"`
	catalogue.Snapshot
}

// Store reads and writes the catalogue document at a fixed path.
type Store struct {
	path string
}

// New returns a Store for the document at path. The parent directory is created on first Save.
func New(path string) *Store {
	return &Store{path: path}
}

// Location returns the path of the document.
func (s *Store) Location() string {
	return s.path
}

// Load reads the catalogue document. It returns catalogue.ErrNoArtifact if the document does not
// exist yet.
func (s *Store) Load(ctx context.Context) (*catalogue.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, catalogue.ErrNoArtifact
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read catalogue file %q: %w", catalogue.ErrPersistence, s.path, err)
	}

	doc := new(document)
	if err = json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("%w: failed to decode catalogue file %q: %w", catalogue.ErrPersistence, s.path, err)
	}
	if doc.Version != FormatVersion {
		return nil, fmt.Errorf("%w: unsupported catalogue file version %d in %q", catalogue.ErrPersistence,
			doc.Version, s.path)
	}
	return &doc.Snapshot, nil
}

// Save writes the snapshot to a temporary file next to the document and renames it into place,
// so readers either see the previous or the new document.
func (s *Store) Save(ctx context.Context, snapshot *catalogue.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("%w: failed to create catalogue directory %q: %w", catalogue.ErrPersistence, dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: failed to create temporary catalogue file: %w", catalogue.ErrPersistence, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	encoder := json.NewEncoder(tmp)
	encoder.SetIndent("", "  ")
	if err = encoder.Encode(document{Version: FormatVersion, Snapshot: *snapshot}); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: failed to encode catalogue: %w", catalogue.ErrPersistence, err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("%w: failed to sync temporary catalogue file: %w", catalogue.ErrPersistence, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("%w: failed to close temporary catalogue file: %w", catalogue.ErrPersistence, err)
	}
	if err = os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("%w: failed to replace catalogue file %q: %w", catalogue.ErrPersistence, s.path, err)
	}
	return nil
}
