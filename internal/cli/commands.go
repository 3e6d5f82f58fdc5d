package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/urfave/cli/v3"

	"github.com/klauern/typesync/internal/backup"
	"github.com/klauern/typesync/internal/config"
	"github.com/klauern/typesync/internal/logging"
	"github.com/klauern/typesync/internal/progress"
	"github.com/klauern/typesync/internal/proxy"
	"github.com/klauern/typesync/internal/ui"
	"github.com/klauern/typesync/internal/ui/report"
	"github.com/klauern/typesync/internal/ui/tui"
	"github.com/klauern/typesync/internal/upstream"
	"github.com/klauern/typesync/internal/validation"
)

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Display the effective configuration",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "write",
				Usage: "Write the effective configuration to the config file",
			},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			ws, err := loadWorkspace(cmd)
			if err != nil {
				return err
			}

			if cmd.Bool("write") {
				path := cmd.String("config")
				if path == "" {
					path = config.FilePath(ws.Dir)
				}
				if err := ws.Config.SaveToPath(path); err != nil {
					return fmt.Errorf("failed to write config: %w", err)
				}
				fmt.Fprintln(output(cmd), ui.StatusSuccess("Wrote "+path))
				return nil
			}

			data, err := ws.Config.Marshal()
			if err != nil {
				return err
			}
			_, err = output(cmd).Write(data)
			return err
		},
	}
}

func resolveCommand() *cli.Command {
	return &cli.Command{
		Name:  "resolve",
		Usage: "Print the upstream ref a sync would use",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			ws, err := loadWorkspace(cmd)
			if err != nil {
				return err
			}
			ref, err := upstream.NewResolver().Resolve(ctx, ws.Config.Upstream.Repository, ws.Config.Upstream.Ref)
			if err != nil {
				return err
			}
			fmt.Fprintln(output(cmd), ref)
			return nil
		},
	}
}

func proxiesCommand() *cli.Command {
	return &cli.Command{
		Name:  "proxies",
		Usage: "Regenerate forwarding proxies from the mirrored types tree",
		Action: func(_ context.Context, cmd *cli.Command) error {
			ws, err := loadWorkspace(cmd)
			if err != nil {
				return err
			}
			if err := validation.ValidatePath(ws.PackageDir()); err != nil {
				return err
			}

			generator, err := proxy.New(ws.Config.Package.Layout)
			if err != nil {
				return err
			}
			result, err := generator.Generate(ws.proxyOptions())
			if err != nil {
				return err
			}

			out := output(cmd)
			if ws.Config.Output.Verbose {
				for _, f := range result.Files() {
					fmt.Fprintln(out, "  "+f)
				}
			}
			fmt.Fprintln(out, ui.StatusSuccess(fmt.Sprintf("Generated %d proxies in %s", result.Count(), ws.PackageDir())))
			return nil
		},
	}
}

func backupCommand() *cli.Command {
	list := func(_ context.Context, cmd *cli.Command) error {
		ws, err := loadWorkspace(cmd)
		if err != nil {
			return err
		}
		store := ws.backups()
		backups, err := store.List()
		if err != nil {
			return err
		}
		out := output(cmd)
		if cmd.Bool("interactive") && len(backups) > 0 && progress.IsTerminal(out) {
			return browseBackups(cmd, store, backups)
		}
		_, err = fmt.Fprint(out, report.Backups(lipgloss.NewRenderer(out), backups))
		return err
	}

	return &cli.Command{
		Name:  "backup",
		Usage: "Manage snapshots taken before the package is rewritten",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "interactive",
				Aliases: []string{"i"},
				Usage:   "Browse backups in a table (terminal only)",
			},
		},
		Action: list,
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List backups, newest first",
				Action:  list,
			},
			{
				Name:      "restore",
				Usage:     "Replace the package directory with a backup",
				ArgsUsage: "<id>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "to",
						Usage: "Restore into this directory instead of the original location",
					},
				},
				Action: func(_ context.Context, cmd *cli.Command) error {
					id, err := backupID(cmd)
					if err != nil {
						return err
					}
					ws, err := loadWorkspace(cmd)
					if err != nil {
						return err
					}
					metadata, err := ws.backups().Restore(id, cmd.String("to"))
					if err != nil {
						return err
					}
					target := cmd.String("to")
					if target == "" {
						target = metadata.SourcePath
					}
					fmt.Fprintln(output(cmd), ui.StatusSuccess(fmt.Sprintf("Restored %s (%d files) to %s", metadata.ID, metadata.FileCount, target)))
					return nil
				},
			},
			{
				Name:      "verify",
				Usage:     "Check a backup archive against its recorded hash",
				ArgsUsage: "<id>",
				Action: func(_ context.Context, cmd *cli.Command) error {
					id, err := backupID(cmd)
					if err != nil {
						return err
					}
					ws, err := loadWorkspace(cmd)
					if err != nil {
						return err
					}
					if _, err := ws.backups().Verify(id); err != nil {
						return err
					}
					fmt.Fprintln(output(cmd), ui.StatusSuccess(id+" is intact"))
					return nil
				},
			},
			{
				Name:  "prune",
				Usage: "Delete backups beyond the retention limits",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "max-age",
						Usage: "Also delete backups older than this",
						Value: 30 * 24 * time.Hour,
					},
				},
				Action: func(_ context.Context, cmd *cli.Command) error {
					ws, err := loadWorkspace(cmd)
					if err != nil {
						return err
					}
					opts := backup.DefaultCleanupOptions()
					opts.MaxBackups = ws.Config.Backup.MaxBackups
					opts.MaxAge = cmd.Duration("max-age")
					opts.DryRun = cmd.Bool("dry-run")

					removed, err := ws.backups().Cleanup(opts)
					if err != nil {
						return err
					}

					out := output(cmd)
					verb := "Deleted"
					if opts.DryRun {
						verb = "Would delete"
					}
					for _, id := range removed {
						fmt.Fprintln(out, "  "+id)
					}
					fmt.Fprintln(out, ui.StatusSuccess(fmt.Sprintf("%s %d backup(s)", verb, len(removed))))
					logging.Debug("pruned backups", logging.Count(len(removed)))
					return nil
				},
			},
		},
	}
}

// browseBackups runs the backup table and applies the chosen action.
func browseBackups(cmd *cli.Command, store *backup.Store, backups []backup.Metadata) error {
	choice, err := tui.RunBackupList(backups)
	if err != nil {
		return err
	}

	out := output(cmd)
	id := choice.Backup.ID
	switch choice.Action {
	case tui.ActionRestore:
		metadata, err := store.Restore(id, "")
		if err != nil {
			return err
		}
		fmt.Fprintln(out, ui.StatusSuccess(fmt.Sprintf("Restored %s (%d files) to %s", id, metadata.FileCount, metadata.SourcePath)))
	case tui.ActionDelete:
		if err := store.Delete(id); err != nil {
			return err
		}
		fmt.Fprintln(out, ui.StatusSuccess("Deleted "+id))
	case tui.ActionVerify:
		if _, err := store.Verify(id); err != nil {
			return err
		}
		fmt.Fprintln(out, ui.StatusSuccess(id+" is intact"))
	}
	return nil
}

func backupID(cmd *cli.Command) (string, error) {
	if cmd.Args().Len() != 1 {
		return "", errors.New("expected exactly one backup id")
	}
	return cmd.Args().First(), nil
}
