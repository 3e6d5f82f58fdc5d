// Package cli provides the command-line interface for typesync.
package cli

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/klauern/typesync/internal/logging"
	"github.com/klauern/typesync/internal/ui"
)

var (
	// Version is the current version of the application.
	Version = "dev"
	// Commit is the git commit hash.
	Commit = "unknown"
	// BuildDate is the date and time of the build.
	BuildDate = "unknown"
)

// Run executes the CLI application with the given context and arguments.
func Run(ctx context.Context, args []string) error {
	app := &cli.Command{
		Name:      "typesync",
		Usage:     "Mirror the openai-python types tree into a standalone package",
		UsageText: "typesync [--ref REF] [--repo URL] [--dry-run]",
		Description: `Fetches the upstream SDK at REF (default: the newest vX.Y.Z tag), replaces
   the package's mirrored types tree, regenerates the forwarding proxies and
   rewrites the package version to match.

   Examples:
     typesync
     typesync --ref v1.40.0
     typesync --dry-run --repo /srv/git/openai-python.git`,
		Version: buildVersion(),
		Flags:   append(globalFlags(), syncFlags()...),
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			configureColors(cmd)
			return ctx, configureLogging(cmd)
		},
		Commands: []*cli.Command{
			versionCommand(),
			configCommand(),
			resolveCommand(),
			proxiesCommand(),
			backupCommand(),
		},
	}
	app.Action = syncAction
	return app.Run(ctx, args)
}

// globalFlags are inherited by every subcommand.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "verbose",
			Usage: "Enable verbose output (info level logging)",
		},
		&cli.BoolFlag{
			Name:  "debug",
			Usage: "Enable debug output (debug level logging, implies verbose)",
		},
		&cli.StringFlag{
			Name:  "log-format",
			Usage: "Log record format: text or json (falls back to TYPESYNC_LOG_FORMAT)",
		},
		&cli.BoolFlag{
			Name:  "no-color",
			Usage: "Disable colored output",
		},
		&cli.StringFlag{
			Name:  "config",
			Usage: "Path to the config file (default: <dir>/typesync.yaml)",
		},
		&cli.StringFlag{
			Name:  "dir",
			Usage: "Project root containing the destination package",
			Value: ".",
		},
		&cli.StringFlag{
			Name:  "repo",
			Usage: "Upstream git repository (falls back to OPENAI_PYTHON_REPO)",
		},
	}
}

// configureColors sets up color output based on CLI flags.
func configureColors(cmd *cli.Command) {
	if cmd.Bool("no-color") {
		ui.DisableColors()
	}
}

// configureLogging sets up the logging level and format based on CLI flags.
func configureLogging(cmd *cli.Command) error {
	opts := logging.DefaultOptions()

	name := cmd.String("log-format")
	if !cmd.IsSet("log-format") {
		name = os.Getenv("TYPESYNC_LOG_FORMAT")
	}
	format, err := logging.ParseFormat(name)
	if err != nil {
		return err
	}
	opts.Format = format

	if cmd.Bool("debug") {
		opts.Level = slog.LevelDebug
		opts.AddSource = true
	} else if cmd.Bool("verbose") {
		opts.Level = slog.LevelInfo
	}

	logger := logging.New(opts)
	logging.SetDefault(logger)

	logging.Debug("logging configured",
		slog.String("level", opts.Level.String()),
		slog.String("format", string(opts.Format)),
	)

	return nil
}
