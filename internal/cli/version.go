package cli

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/urfave/cli/v3"
)

// buildVersion is Version, or the module version recorded by go install
// when the binary was built without ldflags.
func buildVersion() string {
	if Version != "dev" {
		return Version
	}
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
		return info.Main.Version
	}
	return Version
}

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Display version and build information",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "short", Usage: "Print only the version number"},
		},
		Action: func(_ context.Context, cmd *cli.Command) error {
			out := output(cmd)
			if cmd.Bool("short") {
				_, err := fmt.Fprintln(out, buildVersion())
				return err
			}
			_, err := fmt.Fprintf(out, "typesync version %s\n  commit: %s\n  built: %s\n  go: %s %s/%s\n",
				buildVersion(), Commit, BuildDate, runtime.Version(), runtime.GOOS, runtime.GOARCH)
			return err
		},
	}
}
