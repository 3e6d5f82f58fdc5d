// Package proxy generates the forwarding surface that exposes the mirrored
// type tree at the top level of the destination package.
package proxy

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Supported layouts.
const (
	LayoutPython = "python"
	LayoutGo     = "go"
)

// ErrUnknownLayout is returned by New for an unsupported layout name.
var ErrUnknownLayout = errors.New("unknown proxy layout")

// Options configures a generation pass.
type Options struct {
	// PackageDir is the destination package directory.
	PackageDir string
	// TypesDir is the mirrored subtree inside PackageDir.
	TypesDir string
	// ImportPath is the import path of PackageDir. Only used by the go
	// layout; resolved from the nearest go.mod when empty.
	ImportPath string
	// PackageName overrides the package clause of generated top-level Go
	// files. Defaults to the sanitized base name of PackageDir.
	PackageName string
}

// Result lists generated files relative to PackageDir, slash-separated and
// sorted.
type Result struct {
	// Packages are generated package entry points (directory proxies).
	Packages []string
	// Modules are generated single-module forwarders.
	Modules []string
}

// Files returns every generated path.
func (r *Result) Files() []string {
	all := append(slices.Clone(r.Packages), r.Modules...)
	slices.Sort(all)
	return all
}

// Count returns the number of generated files.
func (r *Result) Count() int {
	return len(r.Packages) + len(r.Modules)
}

func (r *Result) sort() {
	slices.Sort(r.Packages)
	slices.Sort(r.Modules)
}

// Generator writes forwarding files for a mirrored type tree.
type Generator interface {
	Generate(opts Options) (*Result, error)
}

// Layouts returns the supported layout names.
func Layouts() []string {
	return []string{LayoutPython, LayoutGo}
}

// New returns the Generator for layout. An empty layout selects python.
func New(layout string) (Generator, error) {
	switch strings.ToLower(strings.TrimSpace(layout)) {
	case "", LayoutPython:
		return pythonGenerator{}, nil
	case LayoutGo:
		return goGenerator{}, nil
	default:
		return nil, fmt.Errorf("%w: %q (supported: %s)", ErrUnknownLayout, layout, strings.Join(Layouts(), ", "))
	}
}

// children returns the direct entries of the mirrored subtree sorted by
// name, without __pycache__.
func children(dir string) ([]os.DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read mirrored types %q: %w", dir, err)
	}
	out := entries[:0]
	for _, entry := range entries {
		name := entry.Name()
		if name == "__pycache__" {
			continue
		}
		out = append(out, entry)
	}
	return out, nil
}

func writeGenerated(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("failed to create directory for %q: %w", path, err)
	}
	// #nosec G306 - generated sources are meant to be world readable
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %q: %w", path, err)
	}
	return nil
}
