package mirror

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauern/typesync/internal/util"
)

func newTestMirror(pkg string) *Mirror {
	return New(Options{
		PackageDir:    pkg,
		TypesDir:      "types",
		UpstreamTypes: "src/openai/types",
	})
}

func TestRun_ReplacesStaleContent(t *testing.T) {
	upstream := t.TempDir()
	pkg := t.TempDir()

	util.WriteTree(t, upstream, map[string]string{
		"src/openai/types/foo.py":               "class Foo: ...\n",
		"src/openai/types/realtime/__init__.py": "",
		"src/openai/types/realtime/event.py":    "class Event: ...\n",
	})
	util.WriteTree(t, pkg, map[string]string{
		"__init__.py":          "# hand written\n",
		"_models.py":           "# shim\n",
		"types/stale.py":       "old\n",
		"foo.py":               "from .types.foo import *  # noqa\n",
		"realtime/__init__.py": "proxy\n",
	})

	result, err := newTestMirror(pkg).Run(upstream)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	want := map[string]string{
		"__init__.py":                "# hand written\n",
		"_models.py":                 "# shim\n",
		"types/foo.py":               "class Foo: ...\n",
		"types/realtime/__init__.py": "",
		"types/realtime/event.py":    "class Event: ...\n",
	}
	got := util.ReadTree(t, pkg)
	if len(got) != len(want) {
		t.Fatalf("tree = %v, want %v", got, want)
	}
	for name, content := range want {
		if got[name] != content {
			t.Errorf("%s = %q, want %q", name, got[name], content)
		}
	}

	if result.Copied != 3 {
		t.Errorf("Copied = %d, want 3", result.Copied)
	}
	wantRemoved := []string{"foo.py", "realtime"}
	if len(result.Removed) != len(wantRemoved) {
		t.Fatalf("Removed = %v, want %v", result.Removed, wantRemoved)
	}
	for i := range wantRemoved {
		if result.Removed[i] != wantRemoved[i] {
			t.Errorf("Removed[%d] = %q, want %q", i, result.Removed[i], wantRemoved[i])
		}
	}
}

func TestRun_LayoutFailureLeavesDestinationIntact(t *testing.T) {
	tests := map[string]struct {
		upstream map[string]string
	}{
		"missing types dir": {
			upstream: map[string]string{"README.md": "hello\n"},
		},
		"types path is a file": {
			upstream: map[string]string{"src/openai/types": "not a dir\n"},
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			upstream := t.TempDir()
			pkg := t.TempDir()
			util.WriteTree(t, upstream, tt.upstream)
			before := map[string]string{
				"__init__.py":  "# hand written\n",
				"types/a.py":   "a\n",
				"generated.py": "gen\n",
			}
			util.WriteTree(t, pkg, before)

			_, err := newTestMirror(pkg).Run(upstream)
			if err == nil {
				t.Fatal("Run() expected layout error")
			}
			if !errors.Is(err, ErrLayout) {
				t.Fatalf("Run() error = %v, want ErrLayout", err)
			}

			got := util.ReadTree(t, pkg)
			for name, content := range before {
				if got[name] != content {
					t.Errorf("%s = %q after failed run, want %q", name, got[name], content)
				}
			}
		})
	}
}

func TestRun_CreatesMissingPackageDir(t *testing.T) {
	upstream := t.TempDir()
	pkg := filepath.Join(t.TempDir(), "src", "openai_types")
	util.WriteTree(t, upstream, map[string]string{"src/openai/types/a.py": "a\n"})

	result, err := newTestMirror(pkg).Run(upstream)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(result.Removed) != 0 {
		t.Errorf("Removed = %v, want none", result.Removed)
	}
	if _, err := os.Stat(filepath.Join(pkg, "types", "a.py")); err != nil {
		t.Errorf("mirrored file missing: %v", err)
	}
}

func TestClean_KeepList(t *testing.T) {
	pkg := t.TempDir()
	util.WriteTree(t, pkg, map[string]string{
		"__init__.py":        "",
		"_models.py":         "",
		"__pycache__/x.pyc":  "",
		"types/a.py":         "",
		"beta/__init__.py":   "",
		"chat_completion.py": "",
	})

	m := New(Options{PackageDir: pkg, TypesDir: "types", Keep: []string{"__init__.py", "_models.py", "__pycache__"}})
	removed, err := m.Clean()
	if err != nil {
		t.Fatalf("Clean() error = %v", err)
	}

	want := map[string]bool{"__init__.py": true, "_models.py": true, "__pycache__/x.pyc": true}
	got := util.ReadTree(t, pkg)
	if len(got) != len(want) {
		t.Errorf("tree after Clean = %v", got)
	}
	for name := range want {
		if _, ok := got[name]; !ok {
			t.Errorf("%s should survive Clean", name)
		}
	}
	if len(removed) != 2 || removed[0] != "beta" || removed[1] != "chat_completion.py" {
		t.Errorf("removed = %v, want [beta chat_completion.py]", removed)
	}
	if util.IsDir(filepath.Join(pkg, "types")) {
		t.Error("previous mirrored subtree should be removed")
	}
}

func TestClean_RemovesSymlinkWithoutFollowing(t *testing.T) {
	pkg := t.TempDir()
	outside := t.TempDir()
	util.WriteFile(t, filepath.Join(outside, "keep.txt"), "outside\n")

	if err := os.Symlink(outside, filepath.Join(pkg, "linked")); err != nil {
		t.Skipf("symlinks not supported: %v", err)
	}

	if _, err := newTestMirror(pkg).Clean(); err != nil {
		t.Fatalf("Clean() error = %v", err)
	}

	if util.Exists(filepath.Join(pkg, "linked")) {
		t.Error("symlink should be removed")
	}
	if !util.Exists(filepath.Join(outside, "keep.txt")) {
		t.Error("symlink target contents must not be removed")
	}
}

func TestRun_RejectsUnsafeTypesDir(t *testing.T) {
	for _, name := range []string{"", ".", "..", "nested/types"} {
		t.Run(name, func(t *testing.T) {
			upstream := t.TempDir()
			pkg := t.TempDir()
			util.WriteTree(t, upstream, map[string]string{"src/openai/types/foo.py": "class Foo: ...\n"})
			before := map[string]string{
				"__init__.py": "# hand written\n",
				"_models.py":  "# shim\n",
				"stale.py":    "old\n",
			}
			util.WriteTree(t, pkg, before)

			m := New(Options{PackageDir: pkg, TypesDir: name, UpstreamTypes: "src/openai/types"})
			if _, err := m.Run(upstream); !errors.Is(err, ErrTypesDir) {
				t.Fatalf("Run() error = %v, want ErrTypesDir", err)
			}
			if _, err := m.Clean(); !errors.Is(err, ErrTypesDir) {
				t.Fatalf("Clean() error = %v, want ErrTypesDir", err)
			}

			got := util.ReadTree(t, pkg)
			for rel, content := range before {
				if got[rel] != content {
					t.Errorf("%s was modified", rel)
				}
			}
		})
	}
}

func TestDefaultKeep(t *testing.T) {
	m := New(Options{PackageDir: "pkg", TypesDir: "types"})
	for _, name := range []string{"__init__.py", "_models.py", "types", "__pycache__"} {
		if !m.keep(name) {
			t.Errorf("keep(%q) = false, want true", name)
		}
	}
	if m.keep("chat") {
		t.Error("keep(\"chat\") = true, want false")
	}
}

func TestPlan_TouchesNothing(t *testing.T) {
	upstream := t.TempDir()
	pkg := t.TempDir()
	util.WriteTree(t, upstream, map[string]string{
		"src/openai/types/a.py":   "a\n",
		"src/openai/types/b/c.py": "c\n",
	})
	before := map[string]string{
		"__init__.py": "",
		"stale.py":    "old\n",
		"types/x.py":  "x\n",
	}
	util.WriteTree(t, pkg, before)

	plan, err := newTestMirror(pkg).Plan(upstream)
	if err != nil {
		t.Fatalf("Plan() error = %v", err)
	}
	if plan.Copied != 2 {
		t.Errorf("Copied = %d, want 2", plan.Copied)
	}
	if len(plan.Removed) != 1 || plan.Removed[0] != "stale.py" {
		t.Errorf("Removed = %v, want [stale.py]", plan.Removed)
	}

	got := util.ReadTree(t, pkg)
	for name, content := range before {
		if got[name] != content {
			t.Errorf("%s changed during Plan", name)
		}
	}
	if _, err := newTestMirror(pkg).Plan(t.TempDir()); !errors.Is(err, ErrLayout) {
		t.Errorf("Plan() without types error = %v, want ErrLayout", err)
	}
}
