package proxy

import (
	"bytes"
	"errors"
	"fmt"
	"go/ast"
	"go/format"
	"go/parser"
	"go/printer"
	"go/token"
	"go/types"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauern/typesync/internal/logging"
	"golang.org/x/mod/modfile"
)

// GeneratedHeader marks every file written by the go layout.
const GeneratedHeader = "// Code generated by typesync. DO NOT EDIT."

// upstreamAlias is the import name used for the mirrored package.
const upstreamAlias = "types"

var errUnsupportedParams = errors.New("type parameters reference symbols outside the package")

type goGenerator struct{}

func (goGenerator) Generate(opts Options) (*Result, error) {
	importPath := opts.ImportPath
	if importPath == "" {
		resolved, err := resolveImportPath(opts.PackageDir)
		if err != nil {
			return nil, err
		}
		importPath = resolved
	}

	g := &goForwarder{
		root:       opts.PackageDir,
		typesDir:   opts.TypesDir,
		importPath: strings.TrimRight(importPath, "/"),
		fset:       token.NewFileSet(),
		result:     &Result{},
	}

	entries, err := children(filepath.Join(opts.PackageDir, opts.TypesDir))
	if err != nil {
		return nil, err
	}
	if err := g.forwardDir("", resolvePackageName(opts.PackageName, opts.PackageDir), entries); err != nil {
		return nil, err
	}

	g.result.sort()
	logging.Debug("generated go forwarders",
		logging.Path(opts.PackageDir),
		logging.Count(g.result.Count()),
	)
	return g.result, nil
}

type goForwarder struct {
	root       string
	typesDir   string
	importPath string
	fset       *token.FileSet
	result     *Result
}

// forwardDir writes forwarders for the files of the mirrored directory rel
// and recurses into its subdirectories. pkgName is the package clause for
// the generated files; empty means "use the mirrored package's name".
func (g *goForwarder) forwardDir(rel, pkgName string, entries []os.DirEntry) error {
	srcDir := filepath.Join(g.root, g.typesDir, filepath.FromSlash(rel))
	importPath := g.importPath + "/" + g.typesDir
	if rel != "" {
		importPath += "/" + rel
	}

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() {
			// the go tool ignores these directories
			if name == "testdata" || strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") {
				continue
			}
			sub, err := children(filepath.Join(srcDir, name))
			if err != nil {
				return err
			}
			if err := g.forwardDir(path.Join(rel, name), "", sub); err != nil {
				return err
			}
			continue
		}
		if !strings.HasSuffix(name, ".go") || strings.HasSuffix(name, "_test.go") ||
			strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".") {
			continue
		}

		file, err := parser.ParseFile(g.fset, filepath.Join(srcDir, name), nil, parser.SkipObjectResolution)
		if err != nil {
			return fmt.Errorf("failed to parse %s: %w", path.Join(rel, name), err)
		}
		clause := pkgName
		if clause == "" {
			clause = file.Name.Name
		}

		src, ok, err := g.render(file, clause, importPath)
		if err != nil {
			return fmt.Errorf("failed to render forwarder for %s: %w", path.Join(rel, name), err)
		}
		if !ok {
			continue
		}

		out := path.Join(rel, name)
		if err := writeGenerated(filepath.Join(g.root, filepath.FromSlash(out)), src); err != nil {
			return err
		}
		if rel == "" {
			g.result.Modules = append(g.result.Modules, out)
		} else {
			g.result.Packages = append(g.result.Packages, out)
		}
	}
	return nil
}

// render builds the forwarding source for file. ok is false when the file
// declares no exported top-level symbols.
func (g *goForwarder) render(file *ast.File, pkgName, importPath string) ([]byte, bool, error) {
	var typeSpecs, consts, vars []string

	for _, decl := range file.Decls {
		switch d := decl.(type) {
		case *ast.GenDecl:
			for _, spec := range d.Specs {
				switch s := spec.(type) {
				case *ast.TypeSpec:
					if !ast.IsExported(s.Name.Name) {
						continue
					}
					line, err := g.typeAlias(s)
					if err != nil {
						logging.Debug("skipping generic type",
							logging.Operation("proxy"),
							slog.String("symbol", s.Name.Name),
							logging.Err(err),
						)
						continue
					}
					typeSpecs = append(typeSpecs, line)
				case *ast.ValueSpec:
					for _, ident := range s.Names {
						if ident.Name == "_" || !ast.IsExported(ident.Name) {
							continue
						}
						line := ident.Name + " = " + upstreamAlias + "." + ident.Name
						if d.Tok == token.CONST {
							consts = append(consts, line)
						} else {
							vars = append(vars, line)
						}
					}
				}
			}
		case *ast.FuncDecl:
			if d.Recv != nil || d.Type.TypeParams != nil || !ast.IsExported(d.Name.Name) {
				continue
			}
			vars = append(vars, d.Name.Name+" = "+upstreamAlias+"."+d.Name.Name)
		}
	}

	if len(typeSpecs)+len(consts)+len(vars) == 0 {
		return nil, false, nil
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s\n\npackage %s\n\nimport %s %q\n", GeneratedHeader, pkgName, upstreamAlias, importPath)
	writeGroup(&buf, "type", typeSpecs)
	writeGroup(&buf, "const", consts)
	writeGroup(&buf, "var", vars)

	formatted, err := format.Source(buf.Bytes())
	if err != nil {
		return nil, false, err
	}
	return formatted, true, nil
}

func writeGroup(buf *bytes.Buffer, keyword string, lines []string) {
	if len(lines) == 0 {
		return
	}
	fmt.Fprintf(buf, "\n%s (\n", keyword)
	for _, line := range lines {
		buf.WriteString("\t" + line + "\n")
	}
	buf.WriteString(")\n")
}

// typeAlias renders "T = types.T", or the generic alias form
// "T[K comparable, V any] = types.T[K, V]".
func (g *goForwarder) typeAlias(spec *ast.TypeSpec) (string, error) {
	name := spec.Name.Name
	if spec.TypeParams == nil || len(spec.TypeParams.List) == 0 {
		return name + " = " + upstreamAlias + "." + name, nil
	}

	params := make(map[string]bool)
	for _, field := range spec.TypeParams.List {
		for _, ident := range field.Names {
			params[ident.Name] = true
		}
	}

	var decl, args []string
	for _, field := range spec.TypeParams.List {
		if err := qualify(field.Type, params); err != nil {
			return "", err
		}
		var constraint bytes.Buffer
		if err := printer.Fprint(&constraint, g.fset, field.Type); err != nil {
			return "", err
		}
		names := make([]string, 0, len(field.Names))
		for _, ident := range field.Names {
			names = append(names, ident.Name)
			args = append(args, ident.Name)
		}
		decl = append(decl, strings.Join(names, ", ")+" "+constraint.String())
	}

	return fmt.Sprintf("%s[%s] = %s.%s[%s]", name, strings.Join(decl, ", "), upstreamAlias, name, strings.Join(args, ", ")), nil
}

// qualify rewrites exported package-level identifiers in a constraint so
// they resolve through the upstream import. Constraints that name other
// packages, unexported symbols or interface methods cannot be forwarded.
func qualify(expr ast.Expr, params map[string]bool) error {
	var err error
	ast.Inspect(expr, func(n ast.Node) bool {
		if err != nil {
			return false
		}
		switch x := n.(type) {
		case *ast.SelectorExpr:
			err = errUnsupportedParams
		case *ast.Field:
			if len(x.Names) > 0 {
				err = errUnsupportedParams
			}
		case *ast.Ident:
			switch {
			case params[x.Name], types.Universe.Lookup(x.Name) != nil:
			case ast.IsExported(x.Name):
				x.Name = upstreamAlias + "." + x.Name
			default:
				err = errUnsupportedParams
			}
		}
		return err == nil
	})
	return err
}

// resolveImportPath derives the import path of dir from the nearest go.mod.
func resolveImportPath(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve %q: %w", dir, err)
	}
	for cur := abs; ; {
		// #nosec G304 - go.mod lookup walks parents of the package directory
		data, err := os.ReadFile(filepath.Join(cur, "go.mod"))
		if err == nil {
			modPath := modfile.ModulePath(data)
			if modPath == "" {
				return "", fmt.Errorf("module path not found in %s", filepath.Join(cur, "go.mod"))
			}
			rel, err := filepath.Rel(cur, abs)
			if err != nil {
				return "", err
			}
			if rel == "." {
				return modPath, nil
			}
			return modPath + "/" + filepath.ToSlash(rel), nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", fmt.Errorf("no go.mod found above %s; set the import path explicitly", abs)
		}
		cur = parent
	}
}

func resolvePackageName(name, packageDir string) string {
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	base := filepath.Base(packageDir)
	if base == "." || base == string(filepath.Separator) || base == "" {
		return "generated"
	}
	return sanitizePkg(base)
}

func sanitizePkg(name string) string {
	var out strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			out.WriteRune(r)
		}
	}
	if out.Len() == 0 {
		return "generated"
	}
	result := out.String()
	if result[0] >= '0' && result[0] <= '9' {
		return "p" + result
	}
	return result
}
