package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"lbt/internal/config"
	"lbt/internal/framework"
	"lbt/internal/install"
	"lbt/internal/paths"
	"lbt/internal/release"
	"lbt/internal/tui"
	"lbt/internal/version"
)

var (
	installVersion string
	installTargets []string
)

func newInstallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "install <framework>",
		Short: "Download and extract a framework release into the install cache",
		Args:  cobra.ExactArgs(1),
		RunE:  runInstall,
	}
	cmd.Flags().StringVar(&installVersion, "version", "", `Version to install, or "latest" for the newest stable release (default: project config, else latest known)`)
	cmd.Flags().StringSliceVar(&installTargets, "target", nil, "Targets to install (default: host)")
	return cmd
}

type installJSON struct {
	install.State
	Error string `json:"error,omitempty"`
}

func runInstall(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	fw, err := framework.Parse(args[0])
	if err != nil {
		return err
	}
	targets, err := parseTargets(installTargets)
	if err != nil {
		return err
	}

	s, err := openSession(false)
	if err != nil {
		return err
	}
	defer s.Close()

	var status *tui.StatusWriter
	if tui.DetectMode(cmd.ErrOrStderr(), noProgress, outputJSON) == tui.ModeTUI {
		status = tui.NewStatusWriter(cmd.ErrOrStderr())
		defer status.Stop()
		status.Update(fmt.Sprintf("Fetching %s releases", fw))
	}

	def := fw.Def()
	releases, err := s.client.Releases(ctx, def.Owner, def.Repo)
	if err != nil {
		return err
	}
	rel, err := pickRelease(fw, releases, installVersion)
	if err != nil {
		return err
	}

	var (
		states []installJSON
		errs   []error
	)
	for _, t := range targets {
		if status != nil {
			status.Update(fmt.Sprintf("Installing %s %s for %s", fw, rel.Tag, t))
		}
		state, err := s.cache.Ensure(ctx, fw, rel, t)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t, err))
		}
		if state.Target == "" {
			state = install.State{Framework: fw, Target: t, Version: rel.Tag}
		}
		states = append(states, installJSON{State: state, Error: errString(err)})
	}
	if status != nil {
		if len(errs) > 0 {
			status.Done(fmt.Sprintf("%s %s: %d of %d targets failed", fw, rel.Tag, len(errs), len(targets)))
		} else {
			status.Done(fmt.Sprintf("%s %s ready", fw, rel.Tag))
		}
	}

	if outputJSON {
		if err := writeJSON(cmd, states); err != nil {
			return err
		}
	} else {
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "TARGET\tVERSION\tSTATUS\tDIR")
		for _, st := range states {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", st.Target, st.Version, installStatus(st), tui.NonEmptyOrDash(st.Dir))
		}
		_ = tw.Flush()
	}
	return errors.Join(errs...)
}

// pickRelease resolves the --version flag, falling back to the project config
// when run inside a project and to the latest known version otherwise.
func pickRelease(fw framework.Framework, releases []release.Release, requested string) (*release.Release, error) {
	if requested == "latest" {
		rel, ok := release.Latest(releases, false)
		if !ok {
			return nil, fmt.Errorf("%s: %w", fw, release.ErrReleaseNotFound)
		}
		return rel, nil
	}

	v := fw.Def().Latest
	switch {
	case requested != "":
		parsed, err := version.Parse(requested)
		if err != nil {
			return nil, err
		}
		v = parsed
	default:
		if configured, ok := configuredVersion(fw); ok {
			v = configured
		}
	}
	if err := version.CheckMinimum(v, fw.Def().Minimum); err != nil {
		return nil, err
	}
	return release.Find(releases, v)
}

func configuredVersion(fw framework.Framework) (version.Version, bool) {
	pp, err := paths.Resolve(projectDir)
	if err != nil {
		return version.Version{}, false
	}
	cfg, path, err := config.LoadProject(pp.Root)
	if err != nil || path == "" {
		return version.Version{}, false
	}
	b, err := cfg.BuildFor(string(fw))
	if err != nil {
		return version.Version{}, false
	}
	return b.Version, true
}

func parseTargets(raw []string) ([]framework.Target, error) {
	if len(raw) == 0 {
		return []framework.Target{framework.HostTarget()}, nil
	}
	targets := make([]framework.Target, 0, len(raw))
	for _, r := range raw {
		t, err := framework.ParseTarget(r)
		if err != nil {
			return nil, err
		}
		targets = append(targets, t)
	}
	return targets, nil
}

func installStatus(st installJSON) string {
	switch {
	case st.Error != "":
		return tui.StatusFailed
	case st.Downloaded || st.Extracted:
		return tui.StatusInstalled
	default:
		return tui.StatusCached
	}
}
