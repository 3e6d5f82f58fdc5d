package backup

import (
	"fmt"
	"time"
)

// CleanupOptions configures backup cleanup behavior
type CleanupOptions struct {
	// MaxBackups limits the number of backups to keep per source directory (0 = unlimited)
	MaxBackups int

	// MaxAge is the maximum age of backups to keep (0 = unlimited)
	MaxAge time.Duration

	// KeepAtLeastOne ensures at least one backup is kept per source directory
	KeepAtLeastOne bool

	// DryRun previews what would be deleted without actually deleting
	DryRun bool
}

// DefaultCleanupOptions returns sensible defaults for cleanup
func DefaultCleanupOptions() CleanupOptions {
	return CleanupOptions{
		MaxBackups:     DefaultMaxBackups,
		MaxAge:         30 * 24 * time.Hour,
		KeepAtLeastOne: true,
	}
}

// Cleanup removes old backups based on the specified options and returns
// the removed IDs.
func (s *Store) Cleanup(opts CleanupOptions) ([]string, error) {
	index, err := s.LoadIndex()
	if err != nil {
		return nil, fmt.Errorf("failed to load backup index: %w", err)
	}

	groups := make(map[string][]Metadata)
	var order []string
	for _, backup := range index.Sorted() {
		if _, ok := groups[backup.SourcePath]; !ok {
			order = append(order, backup.SourcePath)
		}
		groups[backup.SourcePath] = append(groups[backup.SourcePath], backup)
	}

	var toDelete []string
	now := time.Now()
	for _, source := range order {
		var doomed []string
		for idx, backup := range groups[source] {
			tooOld := opts.MaxAge > 0 && now.Sub(backup.CreatedAt) > opts.MaxAge
			tooMany := opts.MaxBackups > 0 && idx >= opts.MaxBackups
			if tooOld || tooMany {
				doomed = append(doomed, backup.ID)
			}
		}
		// Groups are newest first, so the newest backup is doomed[0].
		if opts.KeepAtLeastOne && len(doomed) == len(groups[source]) && len(doomed) > 0 {
			doomed = doomed[1:]
		}
		toDelete = append(toDelete, doomed...)
	}

	if opts.DryRun {
		return toDelete, nil
	}

	var deleted []string
	for _, id := range toDelete {
		if err := s.Delete(id); err != nil {
			return deleted, fmt.Errorf("failed to delete backup %q: %w", id, err)
		}
		deleted = append(deleted, id)
	}
	return deleted, nil
}

// Stats contains statistics about backups
type Stats struct {
	TotalBackups int
	TotalSize    int64
	OldestBackup time.Time
	NewestBackup time.Time
}

// Stats returns statistics about the store.
func (s *Store) Stats() (*Stats, error) {
	backups, err := s.List()
	if err != nil {
		return nil, err
	}

	stats := &Stats{TotalBackups: len(backups)}
	for _, backup := range backups {
		stats.TotalSize += backup.Size
	}
	if len(backups) > 0 {
		stats.NewestBackup = backups[0].CreatedAt
		stats.OldestBackup = backups[len(backups)-1].CreatedAt
	}
	return stats, nil
}
