package sync

import (
	"fmt"
	"strings"
)

// Result contains the outcome of a sync run.
type Result struct {
	// Repository is the upstream location that was synced.
	Repository string
	// Ref is the resolved upstream ref.
	Ref string
	// Commit is the fetched commit hash.
	Commit string
	// Version is the upstream version written to the metadata file.
	Version string
	// VersionSource tells how Version was determined (ref, file, describe).
	VersionSource string
	// PreviousVersion is the version in the metadata file before the run.
	PreviousVersion string
	// Removed lists top-level package entries deleted by the mirror.
	Removed []string
	// Copied is the number of mirrored files.
	Copied int
	// Generated lists the proxy files written.
	Generated []string
	// VersionUpdated reports whether the metadata file was rewritten.
	VersionUpdated bool
	// Backup is the ID of the pre-mirror snapshot, if one was taken.
	Backup string
	// DryRun indicates if this was a dry run (no changes made).
	DryRun bool
}

// Changed reports whether the version moved.
func (r *Result) Changed() bool {
	return r.PreviousVersion != r.Version
}

// Summary returns a human-readable summary of the sync result.
func (r *Result) Summary() string {
	var sb strings.Builder

	if r.DryRun {
		sb.WriteString("Dry run - no changes made\n")
	}

	fmt.Fprintf(&sb, "Synced %s at %s", r.Repository, r.Ref)
	if r.Commit != "" {
		fmt.Fprintf(&sb, " (%s)", shortHash(r.Commit))
	}
	sb.WriteString("\n")

	version := r.Version
	if r.VersionSource != "" {
		version += " (from " + r.VersionSource + ")"
	}
	fmt.Fprintf(&sb, "  Version:   %s\n", version)
	if r.PreviousVersion != "" {
		fmt.Fprintf(&sb, "  Previous:  %s\n", r.PreviousVersion)
	}
	fmt.Fprintf(&sb, "  Copied:    %d\n", r.Copied)
	fmt.Fprintf(&sb, "  Removed:   %d\n", len(r.Removed))
	if !r.DryRun {
		fmt.Fprintf(&sb, "  Proxies:   %d\n", len(r.Generated))
		fmt.Fprintf(&sb, "  Metadata:  %s\n", updatedLabel(r.VersionUpdated))
	}
	if r.Backup != "" {
		fmt.Fprintf(&sb, "  Backup:    %s\n", r.Backup)
	}

	return sb.String()
}

func updatedLabel(updated bool) string {
	if updated {
		return "updated"
	}
	return "unchanged (no version line)"
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
