package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"lbt/internal/config"
	"lbt/internal/framework"
	"lbt/internal/logx"
	"lbt/internal/paths"
	"lbt/internal/tui"
	"lbt/internal/version"
)

var (
	initFramework string
	initVersion   string
	initTargets   []string
	initFormat    string
)

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Create a new game project",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runInit,
	}
	cmd.Flags().StringVar(&initFramework, "framework", string(framework.Love), "Framework to build against (love, lovr)")
	cmd.Flags().StringVar(&initVersion, "version", "", "Framework version (default: latest known)")
	cmd.Flags().StringSliceVar(&initTargets, "target", nil, "Targets to build (default: host)")
	cmd.Flags().StringVar(&initFormat, "format", string(config.FormatTOML), "Config format (toml, yaml)")
	return cmd
}

func resolveInitDir(projectFlag string, args []string) (string, error) {
	if projectFlag != "" {
		return projectFlag, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}

	if len(args) > 0 {
		if args[0] == "." {
			return cwd, nil
		}
		return filepath.Join(cwd, args[0]), nil
	}

	return nextAvailableDir(cwd)
}

func nextAvailableDir(base string) (string, error) {
	for i := 1; ; i++ {
		candidate := filepath.Join(base, fmt.Sprintf("game-%d", i))
		exists, err := paths.DirExists(candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
}

type initChoices struct {
	Framework framework.Framework
	Version   string
	Targets   []framework.Target
	Format    config.Format
}

func choicesFromFlags() (initChoices, error) {
	fw, err := framework.Parse(initFramework)
	if err != nil {
		return initChoices{}, err
	}
	v := fw.Def().Latest
	if initVersion != "" {
		if v, err = version.Parse(initVersion); err != nil {
			return initChoices{}, err
		}
	}
	if err := version.CheckMinimum(v, fw.Def().Minimum); err != nil {
		return initChoices{}, err
	}
	targets := make([]framework.Target, 0, len(initTargets))
	for _, raw := range initTargets {
		t, err := framework.ParseTarget(raw)
		if err != nil {
			return initChoices{}, err
		}
		targets = append(targets, t)
	}
	format := config.Format(initFormat)
	if format != config.FormatTOML && format != config.FormatYAML {
		return initChoices{}, fmt.Errorf("unsupported config format: %s", initFormat)
	}
	return initChoices{Framework: fw, Version: v.String(), Targets: targets, Format: format}, nil
}

func runInit(cmd *cobra.Command, args []string) error {
	dir, err := resolveInitDir(projectDir, args)
	if err != nil {
		return err
	}

	pp, err := paths.Resolve(dir)
	if err != nil {
		return err
	}

	choices, err := choicesFromFlags()
	if err != nil {
		return err
	}
	interactive := !cmd.Flags().Changed("framework") && !cmd.Flags().Changed("version") &&
		!cmd.Flags().Changed("target") && !cmd.Flags().Changed("format")
	if interactive && tui.DetectMode(cmd.OutOrStdout(), noProgress, outputJSON) == tui.ModeTUI {
		res, err := tui.RunInitSetup(cmd.OutOrStdout(), choices.Framework)
		if err != nil {
			return err
		}
		if res.Cancelled {
			cmd.Println("Init cancelled")
			return nil
		}
		choices = initChoices{Framework: res.Framework, Version: res.Version, Targets: res.Targets, Format: config.Format(res.Format)}
	}

	if err := pp.EnsureRoot(); err != nil {
		return err
	}
	if err := pp.EnsureSourceDir(); err != nil {
		return err
	}

	logger, closer, err := logx.New(pp, logLevel)
	if err != nil {
		return err
	}
	defer closer.Close()
	logger.Info("lbt init", "project", pp.Root, "framework", choices.Framework)

	created := make([]string, 0, 2)
	if err := ensureConfig(pp, choices, &created, logger); err != nil {
		return err
	}
	if err := ensureSample(pp, choices.Framework, &created, logger); err != nil {
		return err
	}

	if outputJSON {
		return writeJSON(cmd, map[string]any{"root": pp.Root, "created": created})
	}
	if len(created) == 0 {
		cmd.Printf("Project already initialized at %s\n", pp.Root)
		return nil
	}
	cmd.Printf("Initialized project at %s\n", pp.Root)
	for _, entry := range created {
		cmd.Printf("  created %s\n", entry)
	}
	return nil
}

func ensureConfig(pp paths.ProjectPaths, choices initChoices, created *[]string, logger *slog.Logger) error {
	if existing, ok := config.Locate(pp.Root); ok {
		logger.Info("config exists", "path", existing)
		return nil
	}

	cfg := config.Default(pp.Name())
	section := config.BuildConfig{Version: choices.Version}
	for _, t := range choices.Targets {
		section.Targets = append(section.Targets, string(t))
	}
	cfg.Build = map[string]config.BuildConfig{string(choices.Framework): section}

	name := "lbt." + string(choices.Format)
	if err := cfg.Save(filepath.Join(pp.Root, name)); err != nil {
		return err
	}
	logger.Info("created config", "file", name)
	*created = append(*created, name)
	return nil
}

func ensureSample(pp paths.ProjectPaths, fw framework.Framework, created *[]string, logger *slog.Logger) error {
	mainPath := filepath.Join(pp.SourceDir, "main.lua")
	exists, err := paths.FileExists(mainPath)
	if err != nil {
		return fmt.Errorf("check main.lua: %w", err)
	}
	if exists {
		logger.Info("main.lua exists", "path", mainPath)
		return nil
	}
	if err := os.WriteFile(mainPath, []byte(fw.Def().Sample), 0o644); err != nil {
		return fmt.Errorf("write main.lua: %w", err)
	}
	logger.Info("created sample", "path", mainPath)
	*created = append(*created, filepath.Join("src", "main.lua"))
	return nil
}
