package cli

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"lbt/internal/framework"
	"lbt/internal/release"
)

var (
	releasesAll     bool
	releasesRefresh bool
)

func newReleasesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "releases <framework>",
		Short: "List published framework releases, newest first",
		Args:  cobra.ExactArgs(1),
		RunE:  runReleases,
	}
	cmd.Flags().BoolVar(&releasesAll, "all", false, "Include drafts and prereleases")
	cmd.Flags().BoolVar(&releasesRefresh, "refresh", false, "Ignore the cached release listing")
	return cmd
}

type releaseJSON struct {
	Tag         string    `json:"tag"`
	Name        string    `json:"name,omitempty"`
	Prerelease  bool      `json:"prerelease"`
	PublishedAt time.Time `json:"published_at"`
	Targets     []string  `json:"targets"`
	Note        string    `json:"note,omitempty"`
}

func runReleases(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	fw, err := framework.Parse(args[0])
	if err != nil {
		return err
	}

	s, err := openSession(false)
	if err != nil {
		return err
	}
	defer s.Close()

	s.listings.Refresh = releasesRefresh
	def := fw.Def()
	releases, err := s.listings.Releases(ctx, def.Owner, def.Repo)
	if err != nil {
		return err
	}
	release.Sort(releases)

	rows := make([]releaseJSON, 0, len(releases))
	for _, r := range releases {
		if !releasesAll && (r.Draft || r.Prerelease) {
			continue
		}
		rows = append(rows, releaseJSON{
			Tag:         r.Tag,
			Name:        r.Name,
			Prerelease:  r.Prerelease,
			PublishedAt: r.PublishedAt,
			Targets:     releaseTargets(r),
			Note:        releaseNote(fw, r),
		})
	}

	if outputJSON {
		return writeJSON(cmd, rows)
	}
	if len(rows) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "(no releases)")
		return nil
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TAG\tPUBLISHED\tTARGETS\tNOTE")
	for _, row := range rows {
		published := "-"
		if !row.PublishedAt.IsZero() {
			published = row.PublishedAt.Format("2006-01-02")
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", row.Tag, published, strings.Join(row.Targets, ","), row.Note)
	}
	return tw.Flush()
}

func releaseTargets(r release.Release) []string {
	seen := map[string]bool{}
	for _, a := range r.Assets {
		if t, ok := a.Type.Target(); ok {
			seen[string(t)] = true
		}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

func releaseNote(fw framework.Framework, r release.Release) string {
	v, err := r.Version()
	if err != nil {
		return "unparseable tag"
	}
	def := fw.Def()
	var notes []string
	switch {
	case v.Equal(def.Latest):
		notes = append(notes, "latest known")
	case v.Equal(def.Minimum):
		notes = append(notes, "minimum")
	case v.Less(def.Minimum):
		notes = append(notes, "unsupported")
	}
	if r.Prerelease {
		notes = append(notes, "prerelease")
	}
	if r.Draft {
		notes = append(notes, "draft")
	}
	return strings.Join(notes, ", ")
}
