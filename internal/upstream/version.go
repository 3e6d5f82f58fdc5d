package upstream

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/klauern/typesync/internal/logging"
	"github.com/klauern/typesync/internal/semver"
)

// VersionSource records which detection method produced a version.
type VersionSource string

const (
	// SourceRef means the reference itself was a strict version tag.
	SourceRef VersionSource = "ref"
	// SourceFile means the version was read from a source file.
	SourceFile VersionSource = "file"
	// SourceDescribe means a version tag pointing at the fetched commit was used.
	SourceDescribe VersionSource = "describe"
)

// DefaultVersionPattern matches a Python module-level __version__ assignment.
var DefaultVersionPattern = regexp.MustCompile(`__version__\s*=\s*['"]([^'"]+)['"]`)

// VersionFromRef returns the version named by a strict version ref, without
// its leading marker.
func VersionFromRef(ref string) (string, bool) {
	if !semver.IsStrict(ref) {
		return "", false
	}
	return semver.Strip(ref), true
}

// VersionFromFile extracts the first capture group of pattern from the file
// at rel inside root. A missing file is not an error.
func VersionFromFile(root, rel string, pattern *regexp.Regexp) (string, bool, error) {
	if rel == "" {
		return "", false, nil
	}
	if pattern == nil {
		pattern = DefaultVersionPattern
	}
	if pattern.NumSubexp() < 1 {
		return "", false, fmt.Errorf("version pattern %q has no capture group", pattern)
	}

	// #nosec G304 - rel is configured by the operator and joined to the snapshot root
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, err
	}

	m := pattern.FindSubmatch(data)
	if m == nil || len(m[1]) == 0 {
		return "", false, nil
	}
	return string(m[1]), true, nil
}

// VersionFromTags plays the role of "git describe --tags --abbrev=0" for a
// single-revision snapshot: only tags on the fetched commit itself are
// reachable, so the greatest strict one is chosen.
func VersionFromTags(refs []*plumbing.Reference, commit plumbing.Hash) (string, bool) {
	best, err := semver.Max(TagsAt(refs, commit))
	if err != nil {
		return "", false
	}
	return semver.Strip(best), true
}

// DetectVersion applies the three detection methods in priority order and
// returns the first that succeeds.
func DetectVersion(ref, root, versionFile string, pattern *regexp.Regexp, refs []*plumbing.Reference, commit plumbing.Hash) (string, VersionSource, error) {
	if v, ok := VersionFromRef(ref); ok {
		return v, SourceRef, nil
	}

	v, ok, err := VersionFromFile(root, versionFile, pattern)
	if err != nil {
		logging.Debug("version file unreadable, falling back to tags",
			logging.Path(versionFile), logging.Err(err))
	}
	if ok {
		return v, SourceFile, nil
	}

	if v, ok := VersionFromTags(refs, commit); ok {
		return v, SourceDescribe, nil
	}
	return "", "", ErrNoVersion
}
