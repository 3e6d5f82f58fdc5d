package e2e

import (
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/klauern/typesync/internal/backup"
	"github.com/klauern/typesync/internal/mirror"
	"github.com/klauern/typesync/internal/proxy"
)

func treeKeys(tree map[string]string) []string {
	keys := make([]string, 0, len(tree))
	for k := range tree {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func TestProxies_RegenerateFromMirroredTree(t *testing.T) {
	h := NewHarness(t)
	p := h.Project()
	p.WritePackage("0.1.0")

	r := h.Run("proxies")
	AssertSuccess(t, r)
	AssertOutputContains(t, r, "Generated 1 proxies")
	AssertFileContains(t, p.Path(PackageDir+"/legacy.py"), "from .types.legacy import *")

	p.WriteFile(PackageDir+"/types/chat/__init__.py", "")
	r = h.Run("--verbose", "proxies")
	AssertSuccess(t, r)
	AssertOutputContains(t, r, "Generated 2 proxies")
	AssertOutputContains(t, r, "chat/__init__.py")
	AssertFileContains(t, p.Path(PackageDir+"/chat/__init__.py"), "__path__")
}

func TestProxies_GoLayout(t *testing.T) {
	h := NewHarness(t)
	p := h.Project()
	p.WriteTree(map[string]string{
		"go.mod":                          "module example.com/openaitypes\n",
		"openaitypes/types/completion.go": "package types\n\n// Completion is a model response.\ntype Completion struct{ ID string }\n",
	})
	h.SetEnv("TYPESYNC_PACKAGE_DIR", "openaitypes")

	r := h.Run("--layout", proxy.LayoutGo, "proxies")
	AssertSuccess(t, r)
	AssertFileContains(t, p.Path("openaitypes/completion.go"), proxy.GeneratedHeader)
	AssertFileContains(t, p.Path("openaitypes/completion.go"), `"example.com/openaitypes/openaitypes/types"`)
	AssertFileContains(t, p.Path("openaitypes/completion.go"), "Completion = types.Completion")
}

func TestSync_PreflightFailures(t *testing.T) {
	tests := map[string]struct {
		setup   func(f *Fixture)
		args    []string
		wantErr string
	}{
		"missing package directory": {
			setup:   func(f *Fixture) { f.WriteFile("pyproject.toml", "[project]\nversion = \"0.1.0\"\n") },
			args:    []string{"--repo", "https://example.invalid/openai-python.git"},
			wantErr: "preflight failed",
		},
		"missing metadata file": {
			setup: func(f *Fixture) {
				f.WritePackage("0.1.0")
				f.Remove("pyproject.toml")
			},
			args:    []string{"--repo", "https://example.invalid/openai-python.git"},
			wantErr: "pyproject.toml",
		},
		"no repository": {
			setup:   func(f *Fixture) { f.WritePackage("0.1.0") },
			args:    []string{"--repo", ""},
			wantErr: "preflight failed",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			h := NewHarness(t)
			tt.setup(h.Project())
			before := readProject(h)

			r := h.Run(tt.args...)
			AssertErrorContains(t, r, tt.wantErr)
			AssertExitCode(t, r, 1)
			AssertOutputNotContains(t, r, "Sync complete.")
			assert.Equal(t, before, readProject(h), "preflight failure must not touch the project")
		})
	}
}

func TestBackup_RestoreRoundTrip(t *testing.T) {
	h := NewHarness(t)
	p := h.Project()
	p.WritePackage("0.1.0")
	original := p.Tree(PackageDir)

	id, err := backup.NewStore(p.Root(), 0).Snapshot(p.Path(PackageDir), backup.Options{Description: "manual"})
	require.NoError(t, err)

	p.Remove(PackageDir + "/types")
	p.WriteFile(PackageDir+"/extra.py", "x = 1\n")

	r := h.Run("backup", "list")
	AssertSuccess(t, r)
	AssertOutputContains(t, r, id)
	AssertOutputContains(t, r, "manual")

	r = h.Run("backup", "verify", id)
	AssertSuccess(t, r)
	AssertOutputContains(t, r, id+" is intact")

	r = h.Run("backup", "restore", id)
	AssertSuccess(t, r)
	AssertTreeEquals(t, p.Path(PackageDir), original)
}

func TestBackup_UnknownID(t *testing.T) {
	h := NewHarness(t)
	h.Project().WritePackage("0.1.0")

	r := h.Run("backup", "restore", "missing")
	AssertErrorIs(t, r, backup.ErrNotFound)
}

// readProject snapshots the whole project, including any backup store.
func readProject(h *Harness) map[string]string {
	return h.Project().Tree(".")
}

// releases builds an upstream whose newest tag by version is not the newest
// commit.
func releases(t *testing.T) *Upstream {
	t.Helper()
	up := NewUpstream(t)
	up.Release("1.2.0", map[string]string{
		"__init__.py":   "",
		"completion.py": "class Completion: ...\n",
	})
	up.Release("1.10.0", map[string]string{
		"chat/__init__.py": "",
		"chat/message.py":  "class Message: ...\n",
	})
	up.Release("1.9.0", map[string]string{
		"embedding.py": "class Embedding: ...\n",
	})
	return up
}

func TestSync_LatestRelease(t *testing.T) {
	requireIntegration(t)

	up := releases(t)
	h := NewHarness(t)
	p := h.Project()
	p.WritePackage("0.1.0")
	before := p.Tree(PackageDir)

	r := h.Run("--repo", up.Dir())
	AssertSuccess(t, r)
	AssertOutputContains(t, r, "Sync complete.")
	AssertOutputContains(t, r, "v1.10.0")
	AssertOutputContains(t, r, "0.1.0 -> 1.10.0")
	AssertFileContains(t, p.Path("pyproject.toml"), `version = "1.10.0"`)

	tree := p.Tree(PackageDir)
	assert.Equal(t, []string{
		"__init__.py",
		"_models.py",
		"chat/__init__.py",
		"completion.py",
		"types/__init__.py",
		"types/chat/__init__.py",
		"types/chat/message.py",
		"types/completion.py",
	}, treeKeys(tree))
	assert.Equal(t, before["__init__.py"], tree["__init__.py"], "hand-written init is kept")
	assert.Equal(t, "class Message: ...\n", tree["types/chat/message.py"])
	assert.Equal(t, "from .types.completion import *  # noqa\n", tree["completion.py"])

	backups, err := backup.NewStore(p.Root(), 0).List()
	require.NoError(t, err)
	require.Len(t, backups, 1)
	assert.Equal(t, "v1.10.0", backups[0].Ref)

	r = h.Run("backup", "restore", backups[0].ID)
	AssertSuccess(t, r)
	AssertTreeEquals(t, p.Path(PackageDir), before)
}

func TestSync_ExplicitBranchReadsVersionFile(t *testing.T) {
	requireIntegration(t)

	up := releases(t)
	up.Commit("bump", map[string]string{
		"src/openai/__init__.py": "__version__ = \"1.11.0\"\n",
	})
	h := NewHarness(t)
	h.Project().WritePackage("1.10.0")

	r := h.Run("--repo", up.Dir(), "--ref", up.Branch(), "--no-backup")
	AssertSuccess(t, r)
	AssertFileContains(t, h.Project().Path("pyproject.toml"), `version = "1.11.0"`)
	assert.True(t, h.Project().Exists(PackageDir+"/types/embedding.py"))
	assert.False(t, h.Project().Exists(".typesync/backups"), "--no-backup must not create a store")
}

func TestSync_KeepListFromEnvironment(t *testing.T) {
	requireIntegration(t)

	up := releases(t)
	h := NewHarness(t)
	h.SetEnv("TYPESYNC_PACKAGE_KEEP", "__init__.py,_models.py,stale")
	p := h.Project()
	p.WritePackage("0.1.0")

	r := h.Run("--repo", up.Dir(), "--verbose")
	AssertSuccess(t, r)
	assert.True(t, p.Exists(PackageDir+"/stale/__init__.py"), "allow-listed entry survives")
	assert.False(t, p.Exists(PackageDir+"/legacy.py"))
	AssertOutputContains(t, r, "legacy.py")
}

func TestSync_DryRunChangesNothing(t *testing.T) {
	requireIntegration(t)

	up := releases(t)
	h := NewHarness(t)
	h.Project().WritePackage("0.1.0")
	before := readProject(h)

	r := h.Run("--repo", up.Dir(), "--dry-run")
	AssertSuccess(t, r)
	AssertOutputContains(t, r, "Dry Run")
	AssertOutputNotContains(t, r, "Sync complete.")
	assert.Equal(t, before, readProject(h))
}

func TestSync_MissingTypesTreeDeletesNothing(t *testing.T) {
	requireIntegration(t)

	up := NewUpstream(t)
	hash := up.Commit("no types", map[string]string{
		"src/openai/__init__.py": "__version__ = \"2.0.0\"\n",
		"README.md":              "moved\n",
	})
	up.Tag("v2.0.0", hash)

	h := NewHarness(t)
	h.Project().WritePackage("1.0.0")
	before := readProject(h)

	r := h.Run("--repo", up.Dir())
	AssertErrorIs(t, r, mirror.ErrLayout)
	assert.Equal(t, before, readProject(h), "no backup, deletion or version change on a bad layout")
}

func TestResolve_LatestTag(t *testing.T) {
	requireIntegration(t)

	up := releases(t)
	h := NewHarness(t)

	r := h.Run("--repo", up.Dir(), "resolve")
	AssertSuccess(t, r)
	assert.Equal(t, "v1.10.0", strings.TrimSpace(r.Stdout))
}
