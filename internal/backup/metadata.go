package backup

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"time"
)

// Metadata describes one package snapshot.
type Metadata struct {
	ID          string    `json:"id"`          // timestamp plus short hash
	SourcePath  string    `json:"source_path"` // package directory that was archived
	BackupPath  string    `json:"backup_path"` // the tar.gz archive
	CreatedAt   time.Time `json:"created_at"`
	Hash        string    `json:"hash"` // SHA-256 of the archive, hex
	Size        int64     `json:"size"`
	FileCount   int       `json:"file_count"`
	Version     string    `json:"version,omitempty"` // package version the sync was moving to
	Ref         string    `json:"ref,omitempty"`     // upstream ref the sync was moving to
	Description string    `json:"description,omitempty"`
}

// Index is the on-disk catalogue of a Store, keyed by backup ID.
type Index struct {
	Version string              `json:"version"`
	Updated time.Time           `json:"updated"`
	Backups map[string]Metadata `json:"backups"`
}

const (
	// IndexVersion is written to every index this package saves.
	IndexVersion = "1.0"
	// IndexFilename lives directly under Store.Dir.
	IndexFilename = "index.json"
)

func (s *Store) indexPath() string {
	return filepath.Join(s.Dir, IndexFilename)
}

// LoadIndex reads the index. A store that was never written to has an
// empty index.
func (s *Store) LoadIndex() (*Index, error) {
	// #nosec G304 - the path is built from the store directory
	data, err := os.ReadFile(s.indexPath())
	if errors.Is(err, fs.ErrNotExist) {
		return &Index{Version: IndexVersion, Updated: time.Now(), Backups: map[string]Metadata{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup index: %w", err)
	}

	var index Index
	if err := json.Unmarshal(data, &index); err != nil {
		return nil, fmt.Errorf("failed to parse backup index %s: %w", s.indexPath(), err)
	}
	if index.Backups == nil {
		index.Backups = map[string]Metadata{}
	}
	return &index, nil
}

// SaveIndex writes index next to the archives. The file is replaced by a
// rename, so an interrupted save leaves the previous index intact.
func (s *Store) SaveIndex(index *Index) error {
	if err := os.MkdirAll(s.Dir, BackupDirPerm); err != nil {
		return fmt.Errorf("failed to create backups directory: %w", err)
	}

	index.Version = IndexVersion
	index.Updated = time.Now()
	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal backup index: %w", err)
	}

	tmp, err := os.CreateTemp(s.Dir, IndexFilename+".*")
	if err != nil {
		return fmt.Errorf("failed to write backup index: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write backup index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write backup index: %w", err)
	}
	if err := os.Chmod(tmp.Name(), BackupFilePerm); err != nil {
		return fmt.Errorf("failed to write backup index: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.indexPath()); err != nil {
		return fmt.Errorf("failed to replace backup index: %w", err)
	}
	return nil
}

// Sorted returns every backup, newest first. Backups created in the same
// instant are ordered by descending ID.
func (idx *Index) Sorted() []Metadata {
	backups := slices.Collect(maps.Values(idx.Backups))
	slices.SortFunc(backups, func(a, b Metadata) int {
		return cmp.Or(b.CreatedAt.Compare(a.CreatedAt), cmp.Compare(b.ID, a.ID))
	})
	return backups
}
