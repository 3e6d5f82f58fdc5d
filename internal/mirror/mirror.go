// Package mirror resets the generated surface of the destination package and
// copies the upstream type tree into it.
package mirror

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/klauern/typesync/internal/logging"
	"github.com/klauern/typesync/internal/progress"
)

// ErrLayout is returned when the upstream snapshot does not contain the
// expected type tree, which signals an incompatible upstream release.
var ErrLayout = errors.New("upstream layout not supported")

// ErrTypesDir is returned when the mirrored subtree name would place the
// mirror somewhere other than a direct child of the package directory.
var ErrTypesDir = errors.New("invalid types directory")

// DefaultKeep is the allow-list of hand-maintained entries at the top level
// of the destination package that are never removed.
var DefaultKeep = []string{"__init__.py", "_models.py", "types", "__pycache__"}

// Options configures a mirror pass.
type Options struct {
	// PackageDir is the destination package directory.
	PackageDir string
	// TypesDir is the name of the mirrored subtree inside PackageDir.
	TypesDir string
	// UpstreamTypes is the slash-separated location of the type tree
	// inside the upstream snapshot.
	UpstreamTypes string
	// Keep lists top-level entries of PackageDir that survive cleaning.
	// TypesDir is always kept at the top level; its contents are replaced.
	Keep []string
	// ShowProgress enables the copy progress bar.
	ShowProgress bool
}

// Result describes what a mirror pass changed.
type Result struct {
	// Removed lists the top-level PackageDir entries that were deleted,
	// sorted by name. The previous mirrored subtree is not listed.
	Removed []string
	// Copied is the number of files copied from upstream.
	Copied int
	// Source is the absolute upstream type tree that was copied.
	Source string
	// Destination is the mirrored subtree that was written.
	Destination string
}

// Mirror copies an upstream type tree into a destination package.
type Mirror struct {
	opts Options
}

// New returns a Mirror for opts.
func New(opts Options) *Mirror {
	if opts.Keep == nil {
		opts.Keep = DefaultKeep
	}
	return &Mirror{opts: opts}
}

// Source returns the upstream type tree location inside upstreamRoot.
func (m *Mirror) Source(upstreamRoot string) string {
	return filepath.Join(upstreamRoot, filepath.FromSlash(m.opts.UpstreamTypes))
}

// Destination returns the mirrored subtree location.
func (m *Mirror) Destination() string {
	return filepath.Join(m.opts.PackageDir, m.opts.TypesDir)
}

// ValidateTypesDir checks that name is a single path element. An empty name
// would make the mirrored subtree the package directory itself.
func ValidateTypesDir(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q must be a single directory name", ErrTypesDir, name)
	}
	return nil
}

// Check verifies the types directory name and that upstreamRoot has the
// expected type tree.
func (m *Mirror) Check(upstreamRoot string) error {
	if err := ValidateTypesDir(m.opts.TypesDir); err != nil {
		return err
	}
	src := m.Source(upstreamRoot)
	info, err := os.Stat(src)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: upstream types dir not found at %s", ErrLayout, src)
		}
		return fmt.Errorf("failed to stat upstream types dir %q: %w", src, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: upstream types path %s is not a directory", ErrLayout, src)
	}
	return nil
}

// Run checks the upstream layout, cleans the destination and copies the
// upstream type tree into it. Nothing is deleted when the layout check fails.
func (m *Mirror) Run(upstreamRoot string) (*Result, error) {
	if err := m.Check(upstreamRoot); err != nil {
		return nil, err
	}

	removed, err := m.Clean()
	if err != nil {
		return nil, err
	}

	src := m.Source(upstreamRoot)
	dst := m.Destination()
	copied, err := m.copyTree(src, dst)
	if err != nil {
		return nil, err
	}

	logging.Info("mirrored upstream types",
		logging.Path(dst),
		logging.Count(copied),
	)

	return &Result{
		Removed:     removed,
		Copied:      copied,
		Source:      src,
		Destination: dst,
	}, nil
}

// Plan reports what Run would remove and copy without touching anything.
func (m *Mirror) Plan(upstreamRoot string) (*Result, error) {
	if err := m.Check(upstreamRoot); err != nil {
		return nil, err
	}

	src := m.Source(upstreamRoot)
	copied, err := countFiles(src)
	if err != nil {
		return nil, err
	}

	var removed []string
	entries, err := os.ReadDir(m.opts.PackageDir)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read package directory %q: %w", m.opts.PackageDir, err)
	}
	for _, entry := range entries {
		if !m.keep(entry.Name()) {
			removed = append(removed, entry.Name())
		}
	}
	slices.Sort(removed)

	return &Result{
		Removed:     removed,
		Copied:      copied,
		Source:      src,
		Destination: m.Destination(),
	}, nil
}

// Clean removes the previous mirrored subtree and every top-level entry of
// the package that is not in the keep list. It returns the removed
// top-level names in sorted order.
func (m *Mirror) Clean() ([]string, error) {
	if err := ValidateTypesDir(m.opts.TypesDir); err != nil {
		return nil, err
	}
	if err := removeExisting(m.Destination()); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(m.opts.PackageDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read package directory %q: %w", m.opts.PackageDir, err)
	}

	var removed []string
	for _, entry := range entries {
		name := entry.Name()
		if m.keep(name) {
			continue
		}
		if err := removeExisting(filepath.Join(m.opts.PackageDir, name)); err != nil {
			return removed, err
		}
		removed = append(removed, name)
	}
	slices.Sort(removed)

	logging.Debug("cleaned destination package",
		logging.Path(m.opts.PackageDir),
		logging.Count(len(removed)),
	)
	return removed, nil
}

func (m *Mirror) keep(name string) bool {
	return name == m.opts.TypesDir || slices.Contains(m.opts.Keep, name)
}

func (m *Mirror) copyTree(src, dst string) (int, error) {
	bar := progress.Disabled()
	if m.opts.ShowProgress {
		total, err := countFiles(src)
		if err != nil {
			return 0, err
		}
		bar = progress.Simple(int64(total), "Copying types")
	}

	copied, err := copyDir(src, dst, func() { _ = bar.Add(1) })
	if err != nil {
		_ = bar.Clear()
		return copied, err
	}
	return copied, bar.Finish()
}
