// Package metadata reads and rewrites the version recorded in the
// destination project's build metadata file.
package metadata

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/BurntSushi/toml"
)

// DefaultFile is the metadata file name in the project root.
const DefaultFile = "pyproject.toml"

// ErrNoVersion is returned by CurrentVersion when the file declares none.
var ErrNoVersion = errors.New("no version declared")

var versionLine = regexp.MustCompile(`(?m)^version\s*=\s*['"]([^'"]+)['"]`)

// WriteVersion replaces every line-anchored version assignment in path with
// version = "<version>". The file is left untouched when no line matches,
// in which case the returned bool is false.
func WriteVersion(path, version string) (bool, error) {
	// #nosec G304 - path is the configured metadata file
	data, err := os.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("failed to read metadata file %q: %w", path, err)
	}

	if !versionLine.Match(data) {
		return false, nil
	}

	replacement := []byte(`version = "` + version + `"`)
	updated := versionLine.ReplaceAllLiteral(data, replacement)

	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("failed to stat metadata file %q: %w", path, err)
	}
	if err := os.WriteFile(path, updated, info.Mode().Perm()); err != nil {
		return false, fmt.Errorf("failed to write metadata file %q: %w", path, err)
	}
	return true, nil
}

type document struct {
	Version string `toml:"version"`
	Project struct {
		Version string `toml:"version"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Version string `toml:"version"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

// CurrentVersion returns the version declared in path, looking at
// project.version, then tool.poetry.version, then a top-level version key.
func CurrentVersion(path string) (string, error) {
	var doc document
	if _, err := toml.DecodeFile(path, &doc); err != nil {
		return "", fmt.Errorf("failed to decode metadata file %q: %w", path, err)
	}

	for _, v := range []string{doc.Project.Version, doc.Tool.Poetry.Version, doc.Version} {
		if v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w in %s", ErrNoVersion, path)
}
