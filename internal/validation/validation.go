// Package validation provides preflight checks run before any network
// activity.
package validation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/klauern/typesync/internal/metadata"
	"github.com/klauern/typesync/internal/mirror"
	"github.com/klauern/typesync/internal/proxy"
)

// Field names carried by Error.
const (
	FieldRepository = "repository"
	FieldPath       = "path"
	FieldMetadata   = "metadata file"
	FieldWrite      = "write permission"
	FieldLayout     = "layout"
	FieldTypesDir   = "types directory"
)

// Error is a single failed check. Err, when set, is the cause.
type Error struct {
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("validation failed for %q: %s", e.Field, e.Message)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func invalid(field, msg string, cause error) *Error {
	return &Error{Field: field, Message: msg, Err: cause}
}

// Errors collects every failed check of one preflight run.
type Errors []error

func (errs Errors) Error() string {
	switch len(errs) {
	case 0:
		return "no validation errors"
	case 1:
		return errs[0].Error()
	}
	return fmt.Sprintf("%d validation errors:\n- %s", len(errs), errors.Join(errs...))
}

// Unwrap exposes the collected errors to errors.Is/As.
func (errs Errors) Unwrap() []error { return errs }

// Options configures validation behavior.
type Options struct {
	// RequireWritePermission probes the package directory with a temp file.
	RequireWritePermission bool
}

// DefaultOptions is what the sync command uses.
func DefaultOptions() Options {
	return Options{RequireWritePermission: true}
}

// Result is the outcome of Preflight. Warnings do not stop a sync.
type Result struct {
	Warnings []string
	Errors   []error
}

// HasErrors reports whether any check failed.
func (r *Result) HasErrors() bool { return len(r.Errors) > 0 }

// Error returns nil, the single failure, or an Errors of all failures.
func (r *Result) Error() error {
	switch len(r.Errors) {
	case 0:
		return nil
	case 1:
		return r.Errors[0]
	}
	return Errors(r.Errors)
}

func (r *Result) fail(err error) {
	if err != nil {
		r.Errors = append(r.Errors, err)
	}
}

// Target describes the destination a sync will write to.
type Target struct {
	Repository   string
	PackageDir   string
	MetadataFile string
	Layout       string
	TypesDir     string
}

// Preflight checks the destination before a sync starts. Every check runs,
// so one Result reports all problems at once.
func Preflight(target Target, opts Options) *Result {
	result := &Result{}

	if target.Repository == "" {
		result.fail(invalid(FieldRepository, "repository cannot be empty", nil))
	}

	if err := ValidatePath(target.PackageDir); err != nil {
		result.fail(err)
	} else if opts.RequireWritePermission {
		result.fail(probeWritable(target.PackageDir))
	}

	if err := validateFile(target.MetadataFile); err != nil {
		result.fail(err)
	} else if _, err := metadata.CurrentVersion(target.MetadataFile); err != nil {
		result.Warnings = append(result.Warnings, fmt.Sprintf("%s: %v; the version will not be rewritten", target.MetadataFile, err))
	}

	if err := mirror.ValidateTypesDir(target.TypesDir); err != nil {
		result.fail(invalid(FieldTypesDir, fmt.Sprintf("%q must be a single directory name", target.TypesDir), mirror.ErrTypesDir))
	}

	if target.Layout != "" && !slices.Contains(proxy.Layouts(), target.Layout) {
		result.fail(invalid(FieldLayout, fmt.Sprintf("unsupported layout %q", target.Layout), proxy.ErrUnknownLayout))
	}

	return result
}

// ValidatePath checks that path names an existing directory.
func ValidatePath(path string) error {
	if path == "" {
		return invalid(FieldPath, "path cannot be empty", nil)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return invalid(FieldPath, "cannot convert to absolute path", err)
	}

	info, err := os.Stat(abs)
	switch {
	case os.IsNotExist(err):
		return invalid(FieldPath, "path does not exist: "+abs, err)
	case err != nil:
		return invalid(FieldPath, "cannot access path: "+abs, err)
	case !info.IsDir():
		return invalid(FieldPath, "path is not a directory: "+abs, nil)
	}
	return nil
}

func validateFile(path string) error {
	if path == "" {
		return invalid(FieldMetadata, "path cannot be empty", nil)
	}
	info, err := os.Stat(path)
	if err != nil {
		return invalid(FieldMetadata, "cannot access "+path, err)
	}
	if !info.Mode().IsRegular() {
		return invalid(FieldMetadata, "not a regular file: "+path, nil)
	}
	return nil
}

func probeWritable(dir string) error {
	f, err := os.CreateTemp(dir, ".typesync-write-test-*")
	if err != nil {
		return invalid(FieldWrite, "package directory is not writable: "+dir, err)
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return nil
}
