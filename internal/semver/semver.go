// Package semver handles the strict MAJOR.MINOR.PATCH version strings used
// for upstream release tags.
package semver

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	modsemver "golang.org/x/mod/semver"
)

var (
	// ErrInvalid is returned when a string is not a strict version.
	ErrInvalid = errors.New("invalid version")
	// ErrNoVersions is returned when no candidate matches the strict pattern.
	ErrNoVersions = errors.New("no version tags found")
)

// Pattern matches an optional "v" marker followed by exactly three numeric
// components. Pre-release and build suffixes are rejected.
var Pattern = regexp.MustCompile(`^v?\d+\.\d+\.\d+$`)

// Version is a parsed strict version.
type Version struct {
	Major int
	Minor int
	Patch int
	// Raw is the string the version was parsed from.
	Raw string
}

// String returns the canonical form without the leading marker.
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// IsStrict reports whether s matches Pattern.
func IsStrict(s string) bool {
	return Pattern.MatchString(s)
}

// Strip removes a single leading "v" marker.
func Strip(s string) string {
	return strings.TrimPrefix(s, "v")
}

// Parse parses a strict version string.
func Parse(s string) (Version, error) {
	if !IsStrict(s) {
		return Version{}, fmt.Errorf("%w: %q", ErrInvalid, s)
	}
	parts := strings.Split(Strip(s), ".")
	nums := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return Version{}, fmt.Errorf("%w: %q: %v", ErrInvalid, s, err)
		}
		nums[i] = n
	}
	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2], Raw: s}, nil
}

// Compare orders two strict versions numerically. It returns -1, 0 or +1.
// Non-strict inputs sort before every strict version.
func Compare(a, b string) int {
	return modsemver.Compare(canonical(a), canonical(b))
}

// Max returns the numerically greatest strict version among tags.
// Tags that do not match Pattern are ignored. When two tags are equal
// numerically (e.g. "v1.2.3" and "1.2.3") the first one seen wins.
func Max(tags []string) (string, error) {
	best := ""
	for _, tag := range tags {
		if !IsStrict(tag) {
			continue
		}
		if best == "" || Compare(tag, best) > 0 {
			best = tag
		}
	}
	if best == "" {
		return "", ErrNoVersions
	}
	return best, nil
}

// Filter returns the strict tags in their original order.
func Filter(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if IsStrict(tag) {
			out = append(out, tag)
		}
	}
	return out
}

// canonical converts a strict version into the "vX.Y.Z" form x/mod expects,
// dropping leading zeros so "03.0.0" ranks as 3.0.0. Anything else becomes
// the empty string, which x/mod treats as invalid.
func canonical(s string) string {
	if !IsStrict(s) {
		return ""
	}
	parts := strings.Split(Strip(s), ".")
	for i, p := range parts {
		if p = strings.TrimLeft(p, "0"); p == "" {
			p = "0"
		}
		parts[i] = p
	}
	return "v" + strings.Join(parts, ".")
}
