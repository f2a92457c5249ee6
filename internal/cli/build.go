package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"lbt/internal/build"
	"lbt/internal/config"
	"lbt/internal/framework"
	"lbt/internal/tui"
)

var buildTargets []string

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build [framework...]",
		Short: "Package the project for every configured target",
		Long: "Build downloads the configured framework release, fuses the project sources\n" +
			"onto the interpreter where supported, and zips each target's output under build/.",
		RunE: runBuild,
	}
	cmd.Flags().StringSliceVar(&buildTargets, "target", nil, "Override the configured targets (repeat or comma separate)")
	return cmd
}

type buildResultJSON struct {
	Framework  string `json:"framework"`
	Target     string `json:"target"`
	Status     string `json:"status"`
	Dir        string `json:"dir,omitempty"`
	Executable string `json:"executable,omitempty"`
	Archive    string `json:"archive,omitempty"`
	Error      string `json:"error,omitempty"`
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := openSession(true)
	if err != nil {
		return err
	}
	defer s.Close()

	findings := s.cfg.Validate(s.paths.Root)
	for _, f := range findings {
		if f.Level == "warning" {
			cmd.PrintErrf("warning: %s\n", f.Message)
		}
	}
	if err := config.Err(findings); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	builds, err := selectBuilds(s.cfg, args, buildTargets)
	if err != nil {
		return err
	}
	s.logger.Info("build started", "project", s.cfg.Project.Name, "config", s.configPath, "cache", s.cache.Root())

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	newBuilder := func(b config.Build, reporter build.Reporter) *build.Builder {
		icons := make(map[framework.Target]string)
		for _, t := range framework.Targets() {
			if icon := s.cfg.IconFor(t); icon != "" {
				icons[t] = config.ResolvePath(s.paths.Root, icon)
			}
		}
		return build.New(build.Options{
			Root:      s.paths.Root,
			Name:      s.cfg.Project.Name,
			Framework: b.Framework,
			Version:   b.Version,
			Targets:   b.Targets,
			Icons:     icons,
			Catalog:   s.client,
			Cache:     s.cache,
			Reporter:  reporter,
			Logger:    s.logger,
		})
	}

	var results []build.Result
	out := cmd.OutOrStdout()

	switch tui.DetectMode(out, noProgress, outputJSON) {
	case tui.ModeTUI:
		model := tui.NewProgressModel(fmt.Sprintf("Building %s", s.cfg.Project.Name), tui.BuildColumns)
		for _, b := range builds {
			tui.AddBuildRows(&model, b.Framework, newBuilder(b, nil).Targets())
		}
		model.OnInterrupt(cancel)
		workDone := make(chan struct{})
		err := tui.RunWithWork(out, model, func(send func(tea.Msg)) error {
			defer close(workDone)
			for _, b := range builds {
				results = append(results, newBuilder(b, tui.NewBuildReporter(b.Framework, send)).Bundle(ctx)...)
			}
			return nil
		})
		cancel()
		<-workDone
		if err != nil {
			return err
		}
	case tui.ModePlain:
		for _, b := range builds {
			results = append(results, newBuilder(b, tui.NewPlainReporter(out, b.Framework)).Bundle(ctx)...)
		}
		writeBuildTable(out, results)
	case tui.ModeJSON:
		for _, b := range builds {
			results = append(results, newBuilder(b, nil).Bundle(ctx)...)
		}
		payload := make([]buildResultJSON, 0, len(results))
		for _, r := range results {
			payload = append(payload, buildResultJSON{
				Framework:  string(r.Framework),
				Target:     string(r.Target),
				Status:     tui.ResultStatus(r),
				Dir:        r.Dir,
				Executable: r.Executable,
				Archive:    r.Archive,
				Error:      errString(r.Err),
			})
		}
		if err := writeJSON(cmd, payload); err != nil {
			return err
		}
	}

	return buildFailures(results)
}

// selectBuilds picks the configured builds named in args (all when empty) and
// applies a --target override.
func selectBuilds(cfg config.Config, args, targets []string) ([]config.Build, error) {
	var builds []config.Build
	if len(args) == 0 {
		all, err := cfg.Builds()
		if err != nil {
			return nil, err
		}
		builds = all
	} else {
		for _, name := range args {
			b, err := cfg.BuildFor(name)
			if err != nil {
				return nil, err
			}
			builds = append(builds, b)
		}
	}

	if len(targets) > 0 {
		override, err := parseTargets(targets)
		if err != nil {
			return nil, err
		}
		for i := range builds {
			builds[i].Targets = override
		}
	}
	return builds, nil
}

func buildFailures(results []build.Result) error {
	var errs []error
	for _, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("%s/%s: %w", r.Framework, r.Target, r.Err))
		}
	}
	return errors.Join(errs...)
}

func writeBuildTable(out io.Writer, results []build.Result) {
	fmt.Fprintln(out)
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FRAMEWORK\tTARGET\tSTATUS\tOUTPUT")
	for _, r := range results {
		detail := tui.ResultDetail(r)
		if r.Err != nil && r.Archive != "" {
			detail = r.Archive
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.Framework, r.Target, tui.ResultStatus(r), strings.TrimSpace(tui.NonEmptyOrDash(detail)))
	}
	_ = tw.Flush()
}
