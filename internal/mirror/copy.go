package mirror

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/klauern/typesync/internal/logging"
)

// removeExisting deletes path whatever it is. Symlinks are removed, never
// followed. A missing path is not an error.
func removeExisting(path string) error {
	info, err := os.Lstat(path)
	switch {
	case os.IsNotExist(err):
		return nil
	case err != nil:
		return fmt.Errorf("failed to stat %q: %w", path, err)
	case info.IsDir():
		err = os.RemoveAll(path)
	default:
		err = os.Remove(path)
	}
	if err != nil {
		return fmt.Errorf("failed to remove %q: %w", path, err)
	}
	logging.Debug("removed existing entry", logging.Path(path), "dir", info.IsDir())
	return nil
}

// copyDir replicates the tree at src under dst. Directories keep their
// permission bits, regular files their mode, and symlinks are recreated
// with the same target. onFile runs after each file or link; the count of
// those is returned.
func copyDir(src, dst string, onFile func()) (int, error) {
	info, err := os.Stat(src)
	if err != nil {
		return 0, fmt.Errorf("failed to stat source %q: %w", src, err)
	}
	if !info.IsDir() {
		return 0, fmt.Errorf("source %q is not a directory", src)
	}

	copied := 0
	err = filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch mode := d.Type(); {
		case mode.IsDir():
			fi, err := d.Info()
			if err != nil {
				return err
			}
			return os.MkdirAll(target, fi.Mode().Perm())
		case mode&fs.ModeSymlink != 0:
			link, err := os.Readlink(path)
			if err != nil {
				return err
			}
			if err := os.Symlink(link, target); err != nil {
				return err
			}
		default:
			fi, err := d.Info()
			if err != nil {
				return err
			}
			if err := copyFile(path, target, fi.Mode()); err != nil {
				return err
			}
		}

		copied++
		if onFile != nil {
			onFile()
		}
		return nil
	})
	if err != nil {
		return copied, fmt.Errorf("failed to copy %q to %q: %w", src, dst, err)
	}
	return copied, nil
}

func copyFile(src, dst string, mode fs.FileMode) error {
	// #nosec G304 - src is inside the fetched snapshot
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	// #nosec G302 G304 - keeps the upstream mode, dst is inside the package
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode.Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// countFiles counts the non-directory entries below root.
func countFiles(root string) (int, error) {
	n := 0
	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err == nil && !d.IsDir() {
			n++
		}
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to scan %q: %w", root, err)
	}
	return n, nil
}
