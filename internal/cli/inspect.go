package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"lbt/internal/archive"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <archive>",
		Short: "List the entries of a game archive or fused executable",
		Args:  cobra.ExactArgs(1),
		RunE:  runInspect,
	}
}

type entryJSON struct {
	Name string `json:"name"`
	Dir  bool   `json:"dir"`
	Size uint64 `json:"size"`
	Mode string `json:"mode"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	entries, err := archive.Entries(args[0])
	if err != nil {
		return err
	}

	if outputJSON {
		out := make([]entryJSON, 0, len(entries))
		for _, e := range entries {
			out = append(out, entryJSON{Name: e.Name, Dir: e.Dir, Size: e.Size, Mode: e.Mode.String()})
		}
		return writeJSON(cmd, out)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSIZE\tMODE")
	for _, e := range entries {
		size := fmt.Sprintf("%d", e.Size)
		if e.Dir {
			size = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Name, size, e.Mode)
	}
	return tw.Flush()
}
