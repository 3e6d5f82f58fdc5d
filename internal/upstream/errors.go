package upstream

import (
	"errors"
	"fmt"
)

var (
	// ErrNoVersionTags is returned when the remote has no strict MAJOR.MINOR.PATCH tag.
	ErrNoVersionTags = errors.New("no version tags found in upstream repo")

	// ErrFetch is returned when listing or fetching from the remote fails.
	ErrFetch = errors.New("upstream fetch failed")

	// ErrNoVersion is returned when none of the version detection methods
	// yields a value for the fetched snapshot.
	ErrNoVersion = errors.New("could not determine upstream version")

	// ErrInvalidRef is returned for empty or malformed references.
	ErrInvalidRef = errors.New("invalid reference")
)

// wrapFetch tags err as a fetch failure while keeping the underlying error
// reachable with errors.Is/As.
func wrapFetch(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrFetch, fmt.Sprintf(format, args...), err)
}
