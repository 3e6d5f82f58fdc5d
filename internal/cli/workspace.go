package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/klauern/typesync/internal/backup"
	"github.com/klauern/typesync/internal/config"
	"github.com/klauern/typesync/internal/logging"
	"github.com/klauern/typesync/internal/mirror"
	"github.com/klauern/typesync/internal/proxy"
	"github.com/klauern/typesync/internal/ui"
	"github.com/klauern/typesync/internal/util"
)

// workspace is the effective configuration of one invocation.
type workspace struct {
	Dir    string
	Config *config.Config
}

// loadWorkspace resolves the project root, loads its configuration and
// applies command-line overrides. Flags win over the environment, which
// wins over the config file.
func loadWorkspace(cmd *cli.Command) (*workspace, error) {
	dir := util.ResolveDir(cmd.String("dir"))

	var (
		cfg *config.Config
		err error
	)
	if path := cmd.String("config"); path != "" {
		cfg, err = config.LoadFromPath(path)
	} else {
		cfg, err = config.Load(dir)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if cmd.IsSet("repo") {
		cfg.Upstream.Repository = cmd.String("repo")
	}
	if cmd.IsSet("ref") {
		cfg.Upstream.Ref = cmd.String("ref")
	}
	if cmd.IsSet("layout") {
		cfg.Package.Layout = cmd.String("layout")
	}
	if cmd.Bool("verbose") || cmd.Bool("debug") {
		cfg.Output.Verbose = true
	}

	if !cmd.Bool("no-color") {
		if err := ui.SetColorMode(cfg.Output.Color); err != nil {
			return nil, err
		}
	}

	logging.Debug("loaded configuration",
		logging.Path(dir),
		logging.Repo(cfg.Upstream.Repository),
	)
	return &workspace{Dir: dir, Config: cfg}, nil
}

// PackageDir is the absolute destination package directory.
func (w *workspace) PackageDir() string {
	return w.Config.PackagePath(w.Dir)
}

// MetadataFile is the absolute build metadata file.
func (w *workspace) MetadataFile() string {
	return w.Config.MetadataPath(w.Dir)
}

func (w *workspace) mirror(showProgress bool) *mirror.Mirror {
	return mirror.New(mirror.Options{
		PackageDir:    w.PackageDir(),
		TypesDir:      w.Config.Package.TypesDir,
		UpstreamTypes: w.Config.Upstream.TypesPath,
		Keep:          w.Config.Package.Keep,
		ShowProgress:  showProgress,
	})
}

func (w *workspace) proxyOptions() proxy.Options {
	return proxy.Options{
		PackageDir: w.PackageDir(),
		TypesDir:   w.Config.Package.TypesDir,
		ImportPath: w.Config.Package.ImportPath,
	}
}

func (w *workspace) backups() *backup.Store {
	return backup.NewStore(w.Dir, w.Config.Backup.MaxBackups)
}

// output is where commands print their results.
func output(cmd *cli.Command) io.Writer {
	if root := cmd.Root(); root != nil && root.Writer != nil {
		return root.Writer
	}
	return os.Stdout
}
