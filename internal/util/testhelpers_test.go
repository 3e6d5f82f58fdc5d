//nolint:revive // var-naming - package name is meaningful
package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFile_CreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "src", "openai_types", "types", "completion.py")

	WriteFile(t, path, "class Completion: ...\n")

	got, err := os.ReadFile(path) //nolint:gosec // G304 - temp directory
	AssertNoError(t, err)
	AssertEqual(t, string(got), "class Completion: ...\n")
}

func TestWriteTree_ReadTree(t *testing.T) {
	root := t.TempDir()
	files := map[string]string{
		"__init__.py":              "",
		"types/__init__.py":        "",
		"types/chat/message.py":    "class Message: ...\n",
		"types/chat/__init__.py":   "from .message import Message\n",
		"types/shared/metadata.py": "Metadata = dict\n",
	}

	WriteTree(t, root, files)
	got := ReadTree(t, root)

	AssertEqual(t, len(got), len(files))
	for rel, want := range files {
		AssertEqual(t, got[rel], want)
	}
}

func TestReadTree_SkipsDirectoriesAndSymlinks(t *testing.T) {
	root := t.TempDir()
	WriteTree(t, root, map[string]string{"types/foo.py": "x\n"})
	AssertNoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o750))
	if err := os.Symlink(filepath.Join(root, "types", "foo.py"), filepath.Join(root, "link.py")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	got := ReadTree(t, root)

	AssertEqual(t, len(got), 1)
	AssertEqual(t, got["types/foo.py"], "x\n")
}

func TestReadTree_MissingRoot(t *testing.T) {
	got := ReadTree(t, filepath.Join(t.TempDir(), "absent"))
	AssertEqual(t, len(got), 0)
}

func TestAssertHelpers_Pass(t *testing.T) {
	AssertNoError(t, nil)
	AssertEqual(t, "v1.40.0", "v1.40.0")
	AssertEqual(t, 3, 3)
}
