// Package backup snapshots the destination package before it is rewritten
// and restores those snapshots on request.
package backup

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauern/typesync/internal/archive"
	"github.com/klauern/typesync/internal/logging"
	"github.com/klauern/typesync/internal/util"
)

const (
	// BackupDirPerm is the permission for backup directories (rwxr-x---)
	BackupDirPerm = 0o750
	// BackupFilePerm is the permission for backup files (rw-r-----)
	BackupFilePerm = 0o640
	// DefaultMaxBackups is the number of snapshots retained by default.
	DefaultMaxBackups = 5
	// archiveExt is the file extension of snapshot archives.
	archiveExt = ".tar.gz"
)

var (
	// ErrNotFound is returned for an unknown backup ID.
	ErrNotFound = errors.New("backup not found")
	// ErrCorrupted is returned when an archive no longer matches its hash.
	ErrCorrupted = errors.New("backup file corrupted")
)

// Options describes a snapshot being created.
type Options struct {
	Description string // Human-readable description
	Version     string // Upstream version about to be synced
	Ref         string // Upstream ref about to be synced
}

// Store keeps snapshots in a single directory with a JSON index.
type Store struct {
	// Dir holds the archives and index.json.
	Dir string
	// MaxBackups is the retention applied after each Create (0 = unlimited).
	MaxBackups int
}

// NewStore returns the store for a project root.
func NewStore(projectDir string, maxBackups int) *Store {
	return &Store{Dir: util.BackupsPath(projectDir), MaxBackups: maxBackups}
}

// Create archives sourceDir into the store and records it in the index.
func (s *Store) Create(sourceDir string, opts Options) (*Metadata, error) {
	info, err := os.Stat(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("failed to stat source path %q: %w", sourceDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source path %q is not a directory", sourceDir)
	}

	if err := os.MkdirAll(s.Dir, BackupDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create backups directory: %w", err)
	}

	tmp, err := os.CreateTemp(s.Dir, ".backup-*"+archiveExt)
	if err != nil {
		return nil, fmt.Errorf("failed to create backup file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	hash := sha256.New()
	counter := &countingWriter{}
	manifest, err := archive.Create(sourceDir, io.MultiWriter(tmp, hash, counter), archive.CreateOptions{
		Label: opts.Description,
	})
	if err != nil {
		_ = tmp.Close()
		return nil, err
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close backup file: %w", err)
	}

	createdAt := time.Now()
	hashStr := hex.EncodeToString(hash.Sum(nil))
	id := createdAt.Format("20060102-150405-") + hashStr[:8]
	backupPath := filepath.Join(s.Dir, id+archiveExt)
	if err := os.Rename(tmpPath, backupPath); err != nil {
		return nil, fmt.Errorf("failed to store backup file: %w", err)
	}
	// #nosec G302 - backups share the index permission
	if err := os.Chmod(backupPath, BackupFilePerm); err != nil {
		return nil, fmt.Errorf("failed to set backup permissions: %w", err)
	}

	metadata := &Metadata{
		ID:          id,
		SourcePath:  sourceDir,
		BackupPath:  backupPath,
		CreatedAt:   createdAt,
		Hash:        hashStr,
		Size:        counter.n,
		FileCount:   manifest.FileCount,
		Version:     opts.Version,
		Ref:         opts.Ref,
		Description: opts.Description,
	}

	index, err := s.LoadIndex()
	if err != nil {
		return nil, fmt.Errorf("failed to load backup index: %w", err)
	}
	index.Backups[metadata.ID] = *metadata
	if err := s.SaveIndex(index); err != nil {
		return nil, fmt.Errorf("failed to add backup to index: %w", err)
	}

	logging.Info("created backup",
		logging.Path(backupPath),
		logging.Count(metadata.FileCount),
	)

	if s.MaxBackups > 0 {
		retention := CleanupOptions{MaxBackups: s.MaxBackups, KeepAtLeastOne: true}
		if _, err := s.Cleanup(retention); err != nil {
			logging.Warn("backup retention failed", logging.Err(err))
		}
	}

	return metadata, nil
}

// Snapshot creates a backup and returns its ID.
func (s *Store) Snapshot(sourceDir string, opts Options) (string, error) {
	metadata, err := s.Create(sourceDir, opts)
	if err != nil {
		return "", err
	}
	return metadata.ID, nil
}

// Get returns the metadata of one backup.
func (s *Store) Get(id string) (*Metadata, error) {
	index, err := s.LoadIndex()
	if err != nil {
		return nil, fmt.Errorf("failed to load backup index: %w", err)
	}
	metadata, ok := index.Backups[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return &metadata, nil
}

// Restore replaces targetDir with the content of a backup. An empty
// targetDir restores to the original source path.
func (s *Store) Restore(id, targetDir string) (*Metadata, error) {
	metadata, err := s.Verify(id)
	if err != nil {
		return nil, err
	}
	if targetDir == "" {
		targetDir = metadata.SourcePath
	}

	// #nosec G304 - BackupPath comes from the store index
	f, err := os.Open(metadata.BackupPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open backup file: %w", err)
	}
	defer func() { _ = f.Close() }()

	staging := targetDir + ".restore"
	if err := os.RemoveAll(staging); err != nil {
		return nil, fmt.Errorf("failed to clear staging directory: %w", err)
	}
	if _, err := archive.Extract(f, archive.ExtractOptions{TargetDir: staging}); err != nil {
		_ = os.RemoveAll(staging)
		return nil, fmt.Errorf("failed to extract backup %q: %w", id, err)
	}
	if err := os.MkdirAll(staging, BackupDirPerm); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}

	if err := os.RemoveAll(targetDir); err != nil {
		_ = os.RemoveAll(staging)
		return nil, fmt.Errorf("failed to clear target directory %q: %w", targetDir, err)
	}
	if err := os.Rename(staging, targetDir); err != nil {
		return nil, fmt.Errorf("failed to move restored files into %q: %w", targetDir, err)
	}

	logging.Info("restored backup", logging.Path(targetDir), logging.Count(metadata.FileCount))
	return metadata, nil
}

// List returns all backups, newest first.
func (s *Store) List() ([]Metadata, error) {
	index, err := s.LoadIndex()
	if err != nil {
		return nil, fmt.Errorf("failed to load backup index: %w", err)
	}
	return index.Sorted(), nil
}

// Delete deletes a backup and removes it from the index
func (s *Store) Delete(id string) error {
	index, err := s.LoadIndex()
	if err != nil {
		return fmt.Errorf("failed to load backup index: %w", err)
	}

	metadata, exists := index.Backups[id]
	if !exists {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}

	if err := os.Remove(metadata.BackupPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete backup file: %w", err)
	}

	delete(index.Backups, id)
	if err := s.SaveIndex(index); err != nil {
		return fmt.Errorf("failed to remove backup from index: %w", err)
	}
	return nil
}

// Verify checks that a backup archive is intact and matches its hash
func (s *Store) Verify(id string) (*Metadata, error) {
	metadata, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	// #nosec G304 - BackupPath comes from the store index
	file, err := os.Open(metadata.BackupPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: file missing: %s", ErrCorrupted, metadata.BackupPath)
		}
		return nil, fmt.Errorf("failed to open backup file: %w", err)
	}
	defer func() { _ = file.Close() }()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return nil, fmt.Errorf("failed to read backup file: %w", err)
	}

	hashStr := hex.EncodeToString(hash.Sum(nil))
	if hashStr != metadata.Hash {
		return nil, fmt.Errorf("%w: hash mismatch (expected %s, got %s)", ErrCorrupted, metadata.Hash, hashStr)
	}
	return metadata, nil
}

type countingWriter struct {
	n int64
}

func (w *countingWriter) Write(p []byte) (int, error) {
	w.n += int64(len(p))
	return len(p), nil
}
