package e2e

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/klauern/typesync/internal/util"
)

// PackageDir is where the project fixture keeps its destination package.
const PackageDir = "src/openai_types"

// Fixture provides helpers for creating test fixtures in E2E tests.
type Fixture struct {
	t       *testing.T
	baseDir string
}

// NewFixture creates a new fixture helper rooted at the given directory.
func NewFixture(t *testing.T, baseDir string) *Fixture {
	t.Helper()
	return &Fixture{
		t:       t,
		baseDir: baseDir,
	}
}

// Root returns the fixture base directory.
func (f *Fixture) Root() string {
	return f.baseDir
}

// Path returns the full path for a relative path within the fixture.
func (f *Fixture) Path(relPath string) string {
	return filepath.Join(f.baseDir, filepath.FromSlash(relPath))
}

// WriteFile writes content to a file relative to the fixture base directory.
// It creates parent directories as needed.
func (f *Fixture) WriteFile(relPath, content string) string {
	f.t.Helper()
	fullPath := f.Path(relPath)
	util.WriteFile(f.t, fullPath, content)
	return fullPath
}

// WriteTree writes every relative path/content pair under the base directory.
func (f *Fixture) WriteTree(files map[string]string) {
	f.t.Helper()
	util.WriteTree(f.t, f.baseDir, files)
}

// Tree returns every file under relPath keyed by path relative to it.
func (f *Fixture) Tree(relPath string) map[string]string {
	f.t.Helper()
	return util.ReadTree(f.t, f.Path(relPath))
}

// ReadFile reads a file relative to the fixture base directory.
func (f *Fixture) ReadFile(relPath string) string {
	f.t.Helper()
	// #nosec G304 - path is built from the fixture root
	data, err := os.ReadFile(f.Path(relPath))
	if err != nil {
		f.t.Fatalf("failed to read file %s: %v", relPath, err)
	}
	return string(data)
}

// Exists checks if a file or directory exists relative to the base.
func (f *Fixture) Exists(relPath string) bool {
	return util.Exists(f.Path(relPath))
}

// Remove deletes a file or directory relative to the base.
func (f *Fixture) Remove(relPath string) {
	f.t.Helper()
	if err := os.RemoveAll(f.Path(relPath)); err != nil {
		f.t.Fatalf("failed to remove %s: %v", relPath, err)
	}
}

// WritePackage lays out a destination package at PackageDir that has been
// synced before: a pyproject at version, hand-written modules, an old
// mirrored tree and a stale proxy.
func (f *Fixture) WritePackage(version string) {
	f.t.Helper()
	f.WriteTree(map[string]string{
		"pyproject.toml":                  "[project]\nname = \"openai-types\"\nversion = \"" + version + "\"\n",
		PackageDir + "/__init__.py":       "from ._models import BaseModel\n",
		PackageDir + "/_models.py":        "class BaseModel: ...\n",
		PackageDir + "/types/__init__.py": "",
		PackageDir + "/types/legacy.py":   "class Legacy: ...\n",
		PackageDir + "/legacy.py":         "from .types.legacy import *  # noqa\n",
		PackageDir + "/stale/__init__.py": "",
	})
}

// Upstream is a local git repository shaped like the upstream SDK.
type Upstream struct {
	t    *testing.T
	dir  string
	repo *git.Repository
}

// NewUpstream initializes an empty repository in a temporary directory.
func NewUpstream(t *testing.T) *Upstream {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("failed to init upstream repo: %v", err)
	}
	return &Upstream{t: t, dir: dir, repo: repo}
}

// Dir returns the repository location, usable as a clone URL.
func (u *Upstream) Dir() string {
	return u.dir
}

// Commit writes files into the worktree and commits everything.
func (u *Upstream) Commit(message string, files map[string]string) plumbing.Hash {
	u.t.Helper()
	util.WriteTree(u.t, u.dir, files)

	wt, err := u.repo.Worktree()
	if err != nil {
		u.t.Fatalf("failed to open worktree: %v", err)
	}
	if err := wt.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		u.t.Fatalf("failed to stage files: %v", err)
	}
	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	if err != nil {
		u.t.Fatalf("failed to commit: %v", err)
	}
	return hash
}

// Release commits a types tree with __version__ set to version and tags it
// "v" + version.
func (u *Upstream) Release(version string, types map[string]string) plumbing.Hash {
	u.t.Helper()
	files := map[string]string{
		"src/openai/__init__.py": "__version__ = \"" + version + "\"\n",
	}
	for rel, content := range types {
		files["src/openai/types/"+rel] = content
	}
	hash := u.Commit("release "+version, files)
	u.Tag("v"+version, hash)
	return hash
}

// Tag creates a lightweight tag at hash.
func (u *Upstream) Tag(name string, hash plumbing.Hash) {
	u.t.Helper()
	if _, err := u.repo.CreateTag(name, hash, nil); err != nil {
		u.t.Fatalf("failed to create tag %s: %v", name, err)
	}
}

// Branch returns the name of the checked out branch.
func (u *Upstream) Branch() string {
	u.t.Helper()
	head, err := u.repo.Head()
	if err != nil {
		u.t.Fatalf("failed to read HEAD: %v", err)
	}
	return head.Name().Short()
}

// requireIntegration skips tests that need a real shallow fetch. Local
// shallow fetches go through git-upload-pack.
func requireIntegration(t *testing.T) {
	t.Helper()
	if os.Getenv("TYPESYNC_INTEGRATION") == "" {
		t.Skip("set TYPESYNC_INTEGRATION=1 to run git integration tests")
	}
}
