package proxy

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauern/typesync/internal/logging"
)

// packageProxy redirects a package's search path into the mirrored subtree
// typesDir so submodule imports resolve there.
func packageProxy(typesDir string) string {
	return "from __future__ import annotations\n" +
		"from pathlib import Path\n" +
		"\n" +
		"_here = Path(__file__)\n" +
		"__path__ = [str(_here.parent.parent.joinpath('" + typesDir + "', _here.parent.name))]\n"
}

func moduleProxy(typesDir, stem string) string {
	return "from ." + typesDir + "." + stem + " import *  # noqa\n"
}

// isDir follows symlinks, so a linked directory is proxied like a real one.
func isDir(dir string, entry os.DirEntry) bool {
	if entry.Type()&fs.ModeSymlink == 0 {
		return entry.IsDir()
	}
	info, err := os.Stat(filepath.Join(dir, entry.Name()))
	return err == nil && info.IsDir()
}

type pythonGenerator struct{}

func (pythonGenerator) Generate(opts Options) (*Result, error) {
	src := filepath.Join(opts.PackageDir, opts.TypesDir)
	entries, err := children(src)
	if err != nil {
		return nil, err
	}

	result := &Result{}
	for _, entry := range entries {
		name := entry.Name()
		switch {
		case isDir(src, entry):
			rel := path.Join(name, "__init__.py")
			if err := writeGenerated(filepath.Join(opts.PackageDir, filepath.FromSlash(rel)), []byte(packageProxy(opts.TypesDir))); err != nil {
				return nil, err
			}
			result.Packages = append(result.Packages, rel)
		case strings.HasSuffix(name, ".py") && name != "__init__.py":
			stem := strings.TrimSuffix(name, ".py")
			if err := writeGenerated(filepath.Join(opts.PackageDir, name), []byte(moduleProxy(opts.TypesDir, stem))); err != nil {
				return nil, err
			}
			result.Modules = append(result.Modules, name)
		}
	}

	result.sort()
	logging.Debug("generated python proxies",
		logging.Path(opts.PackageDir),
		logging.Count(result.Count()),
	)
	return result, nil
}
