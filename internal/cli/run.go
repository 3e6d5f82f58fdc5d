package cli

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/klauern/typesync/internal/logging"
	"github.com/klauern/typesync/internal/progress"
	"github.com/klauern/typesync/internal/proxy"
	"github.com/klauern/typesync/internal/sync"
	"github.com/klauern/typesync/internal/ui"
	"github.com/klauern/typesync/internal/ui/report"
	"github.com/klauern/typesync/internal/upstream"
	"github.com/klauern/typesync/internal/validation"
)

func syncFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "ref",
			Usage: "Upstream tag, branch or commit (default: newest vX.Y.Z tag)",
		},
		&cli.StringFlag{
			Name:  "layout",
			Usage: "Proxy layout: " + fmt.Sprint(proxy.Layouts()),
		},
		&cli.BoolFlag{
			Name:    "dry-run",
			Aliases: []string{"n"},
			Usage:   "Resolve and fetch, but do not modify the package",
		},
		&cli.BoolFlag{
			Name:  "no-backup",
			Usage: "Skip the snapshot taken before the package is rewritten",
		},
	}
}

func syncAction(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Present() {
		return fmt.Errorf("unexpected argument %q", cmd.Args().First())
	}

	ws, err := loadWorkspace(cmd)
	if err != nil {
		return err
	}

	preflight := validation.Preflight(validation.Target{
		Repository:   ws.Config.Upstream.Repository,
		PackageDir:   ws.PackageDir(),
		MetadataFile: ws.MetadataFile(),
		Layout:       ws.Config.Package.Layout,
		TypesDir:     ws.Config.Package.TypesDir,
	}, validation.DefaultOptions())
	out := output(cmd)
	for _, warning := range preflight.Warnings {
		fmt.Fprintln(out, ui.StatusWarning(warning))
	}
	if err := preflight.Error(); err != nil {
		return fmt.Errorf("preflight failed: %w", err)
	}

	syncer, err := newSyncer(ws, cmd)
	if err != nil {
		return err
	}
	ctx = logging.NewContext(ctx, logging.Default().With(logging.Project(ws.Dir)))

	result, err := syncer.Run(ctx, sync.Options{
		Repository: ws.Config.Upstream.Repository,
		Ref:        ws.Config.Upstream.Ref,
		DryRun:     cmd.Bool("dry-run"),
	})
	if err != nil {
		return err
	}

	if !result.DryRun {
		fmt.Fprintln(out, "Sync complete.")
	}
	return report.Write(out, result, report.Options{Verbose: ws.Config.Output.Verbose})
}

// newSyncer wires the pipeline from the effective configuration.
func newSyncer(ws *workspace, cmd *cli.Command) (*sync.Syncer, error) {
	pattern, err := ws.Config.VersionRegexp()
	if err != nil {
		return nil, err
	}
	fetcher := upstream.NewFetcher(ws.Config.Upstream.VersionFile, pattern)
	if ws.Config.Upstream.TempPrefix != "" {
		fetcher.TempPrefix = ws.Config.Upstream.TempPrefix
	}

	generator, err := proxy.New(ws.Config.Package.Layout)
	if err != nil {
		return nil, err
	}

	cfg := sync.Config{
		Resolver:     upstream.NewResolver(),
		Fetcher:      fetcher,
		Mirror:       ws.mirror(true),
		Proxies:      generator,
		ProxyOptions: ws.proxyOptions(),
		MetadataFile: ws.MetadataFile(),
		Progress:     stepPrinter(cmd),
	}
	if ws.Config.Backup.Enabled && !cmd.Bool("no-backup") {
		cfg.Backup = ws.backups()
	}
	return sync.New(cfg)
}

// stepPrinter reports pipeline steps on interactive terminals only, where
// they accompany the copy progress bar.
func stepPrinter(cmd *cli.Command) sync.ProgressCallback {
	out := output(cmd)
	interactive := progress.IsTerminal(out)
	return func(event sync.ProgressEvent) error {
		if interactive {
			fmt.Fprintln(out, ui.Dim(event.Message+"..."))
		}
		logging.Debug("sync step", logging.Operation(event.Step))
		return nil
	}
}
