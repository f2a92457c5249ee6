package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var (
	projectDir string
	outputJSON bool
	logLevel   string
	noProgress bool
	cacheDir   string
)

// Execute runs the root cobra command. Interrupts cancel the command context
// so in-flight downloads stop.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "lbt",
		Short:         "Package LÖVE and LÖVR games for distribution",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&projectDir, "project", "", "Path to project directory")
	cmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output machine-readable JSON")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level for the project log file (debug, info, warn, error)")
	cmd.PersistentFlags().BoolVar(&noProgress, "no-progress", false, "Disable interactive progress output")
	cmd.PersistentFlags().StringVar(&cacheDir, "cache-dir", "", "Framework install cache (default $LBT_CACHE_DIR or the user data dir)")

	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newBuildCmd())
	cmd.AddCommand(newReleasesCmd())
	cmd.AddCommand(newInstallCmd())
	cmd.AddCommand(newCacheCmd())
	cmd.AddCommand(newValidateCmd())

	inspectCmd := newInspectCmd()
	cmd.AddCommand(inspectCmd)
	// inspect operates on a standalone archive; project flags don't apply.
	for _, name := range []string{"project", "cache-dir", "log-level"} {
		if f := inspectCmd.InheritedFlags().Lookup(name); f != nil {
			f.Hidden = true
		}
	}

	return cmd
}
