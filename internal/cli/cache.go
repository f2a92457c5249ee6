package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"lbt/internal/framework"
	"lbt/internal/install"
	"lbt/internal/tui"
)

func newCacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect or clear the framework install cache",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List installed framework versions",
		Args:  cobra.NoArgs,
		RunE:  runCacheList,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "clean [target]",
		Short: "Remove cached installs for one target or all of them",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runCacheClean,
	})
	return cmd
}

type cacheListJSON struct {
	Root     string          `json:"root"`
	Installs []install.State `json:"installs"`
}

func runCacheList(cmd *cobra.Command, args []string) error {
	s, err := openSession(false)
	if err != nil {
		return err
	}
	defer s.Close()

	states, err := s.cache.List()
	if err != nil {
		return err
	}
	if outputJSON {
		if states == nil {
			states = []install.State{}
		}
		return writeJSON(cmd, cacheListJSON{Root: s.cache.Root(), Installs: states})
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Cache: %s\n", s.cache.Root())
	if len(states) == 0 {
		fmt.Fprintln(out, "No frameworks installed.")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FRAMEWORK\tTARGET\tVERSION\tDIR")
	for _, st := range states {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", st.Framework, st.Target, st.Version, tui.NonEmptyOrDash(st.Dir))
	}
	return tw.Flush()
}

func runCacheClean(cmd *cobra.Command, args []string) error {
	var target framework.Target
	if len(args) == 1 {
		t, err := framework.ParseTarget(args[0])
		if err != nil {
			return err
		}
		target = t
	}

	s, err := openSession(false)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.cache.Clean(target); err != nil {
		return err
	}
	scope := "all targets"
	if target != "" {
		scope = string(target)
	}
	if outputJSON {
		return writeJSON(cmd, map[string]string{"cleaned": scope, "root": s.cache.Root()})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Cleaned install cache for %s.\n", scope)
	return nil
}
