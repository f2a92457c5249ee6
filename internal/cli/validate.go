package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"lbt/internal/config"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the project config for errors",
		Args:  cobra.NoArgs,
		RunE:  runValidate,
	}
}

type validateJSON struct {
	Config  string                    `json:"config"`
	Valid   bool                      `json:"valid"`
	Results []config.ValidationResult `json:"results"`
}

func runValidate(cmd *cobra.Command, args []string) error {
	s, err := openSession(true)
	if err != nil {
		return err
	}
	defer s.Close()

	results := s.cfg.Validate(s.paths.Root)
	verr := config.Err(results)

	if outputJSON {
		if results == nil {
			results = []config.ValidationResult{}
		}
		if err := writeJSON(cmd, validateJSON{Config: s.configPath, Valid: verr == nil, Results: results}); err != nil {
			return err
		}
		return verr
	}

	out := cmd.OutOrStdout()
	name := s.configPath
	if name == "" {
		name = "(defaults)"
	}
	for _, r := range results {
		fmt.Fprintf(out, "%s: %s\n", r.Level, r.Message)
	}
	if verr == nil {
		fmt.Fprintf(out, "%s is valid.\n", name)
	}
	return verr
}
