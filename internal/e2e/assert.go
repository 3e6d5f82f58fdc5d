package e2e

import (
	"os"
	"slices"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klauern/typesync/internal/util"
)

// AssertSuccess stops the test unless the command returned no error.
func AssertSuccess(t *testing.T, r *Result) {
	t.Helper()
	require.NoError(t, r.Err, "stdout:\n%s", r.Stdout)
}

// AssertError stops the test if the command succeeded.
func AssertError(t *testing.T, r *Result) {
	t.Helper()
	require.Error(t, r.Err, "command succeeded, stdout:\n%s", r.Stdout)
}

// AssertErrorIs requires a failure with target in its chain.
func AssertErrorIs(t *testing.T, r *Result, target error) {
	t.Helper()
	AssertError(t, r)
	assert.ErrorIs(t, r.Err, target)
}

func AssertErrorContains(t *testing.T, r *Result, substr string) {
	t.Helper()
	AssertError(t, r)
	assert.ErrorContains(t, r.Err, substr)
}

func AssertExitCode(t *testing.T, r *Result, expected int) {
	t.Helper()
	assert.Equal(t, expected, r.ExitCode, "error: %v\nstdout:\n%s", r.Err, r.Stdout)
}

func AssertOutputContains(t *testing.T, r *Result, substr string) {
	t.Helper()
	assert.Contains(t, r.Stdout, substr)
}

func AssertOutputNotContains(t *testing.T, r *Result, substr string) {
	t.Helper()
	assert.NotContains(t, r.Stdout, substr)
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	assert.FileExists(t, path)
}

func AssertFileNotExists(t *testing.T, path string) {
	t.Helper()
	assert.NoFileExists(t, path)
}

// AssertFileContains reads path and checks it contains substr.
func AssertFileContains(t *testing.T, path, substr string) {
	t.Helper()
	// #nosec G304 - path is provided by test code
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), substr, "in %s", path)
}

// AssertTreeEquals fails unless root holds exactly the files in want. The
// failure lists each missing, changed and unexpected path.
func AssertTreeEquals(t *testing.T, root string, want map[string]string) {
	t.Helper()
	got := util.ReadTree(t, root)

	var diffs []string
	for rel, content := range want {
		if actual, ok := got[rel]; !ok {
			diffs = append(diffs, "missing "+rel)
		} else if actual != content {
			diffs = append(diffs, "changed "+rel)
		}
	}
	for rel := range got {
		if _, ok := want[rel]; !ok {
			diffs = append(diffs, "unexpected "+rel)
		}
	}
	if len(diffs) > 0 {
		slices.Sort(diffs)
		t.Errorf("tree %s differs:\n  %s", root, strings.Join(diffs, "\n  "))
	}
}
