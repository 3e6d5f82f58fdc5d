package upstream

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotCleanup(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "snap")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "src"), 0o750))

	snap := &Snapshot{Dir: dir}
	require.NoError(t, snap.Cleanup())
	_, err := os.Stat(dir)
	assert.True(t, os.IsNotExist(err), "snapshot dir should be removed")

	var nilSnap *Snapshot
	assert.NoError(t, nilSnap.Cleanup())
}

func TestFetch_ListingFailureCreatesNoWorkspace(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	f := &Fetcher{Lister: &fakeLister{err: wrapFetch(errors.New("boom"), "list")}}
	_, err := f.Fetch(context.Background(), "repo", "v1.0.0")
	require.ErrorIs(t, err, ErrFetch)

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestFetch_FailedFetchRemovesWorkspace(t *testing.T) {
	tmp := t.TempDir()
	t.Setenv("TMPDIR", tmp)

	missing := filepath.Join(t.TempDir(), "does-not-exist")
	f := &Fetcher{Lister: &fakeLister{refs: tagRefs("v1.0.0")}}

	_, err := f.Fetch(context.Background(), missing, "v1.0.0")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetch)

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	assert.Empty(t, entries, "workspace should be cleaned up after a failed fetch")
}

// TestFetch_LocalRepository exercises a real shallow fetch. Local shallow
// fetches go through git-upload-pack, so it only runs when asked for.
func TestFetch_LocalRepository(t *testing.T) {
	if os.Getenv("TYPESYNC_INTEGRATION") == "" {
		t.Skip("set TYPESYNC_INTEGRATION=1 to run git integration tests")
	}

	src := t.TempDir()
	repo, err := git.PlainInit(src, false)
	require.NoError(t, err)

	writeSnapshotFile(t, src, "src/openai/types/foo.py", "class Foo: ...\n")
	writeSnapshotFile(t, src, initFile, "__version__ = \"4.5.6\"\n")

	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(".")
	require.NoError(t, err)
	commit, err := wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	_, err = repo.CreateTag("v4.5.6", commit, nil)
	require.NoError(t, err)

	f := NewFetcher(initFile, nil)
	snap, err := f.Fetch(context.Background(), src, "v4.5.6")
	require.NoError(t, err)
	t.Cleanup(func() { _ = snap.Cleanup() })

	assert.Equal(t, "4.5.6", snap.Version)
	assert.Equal(t, SourceRef, snap.VersionSource)
	assert.Equal(t, RefTag, snap.Kind)
	assert.Equal(t, commit.String(), snap.Commit)
	assert.FileExists(t, filepath.Join(snap.Dir, "src", "openai", "types", "foo.py"))

	head, err := git.PlainOpen(snap.Dir)
	require.NoError(t, err)
	ref, err := head.Head()
	require.NoError(t, err)
	assert.Equal(t, plumbing.HEAD, ref.Name())
}
