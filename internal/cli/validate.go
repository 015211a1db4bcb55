package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/macropower/conductor/pkg/env"
	"github.com/macropower/conductor/pkg/track"
)

const validateExamples = `  # Check the user tracks file:
  conductor validate

  # Check a project tracks file:
  conductor validate --config ./.conductor.yaml`

func NewValidateCmd(ra *RootArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "validate",
		Short:   "Check the tracks file, its conditions and that every action resolves",
		Example: validateExamples,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd, ra)
		},
	}

	bindEnvVars(cmd)

	return cmd
}

func runValidate(cmd *cobra.Command, ra *RootArgs) error {
	ec := env.FromEnviron()
	configPath := ra.configPath(ec.Origin)

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	runner := newRunner(configPath, 0)

	var (
		errs  []error
		count int
	)

	err = track.Walk(cfg.Tracks, func(path string, t *track.Track) error {
		count++

		for _, a := range t.Actions() {
			err := runner.Check(a, ec)
			if err != nil {
				errs = append(errs, &track.Error{Err: fmt.Errorf("%s: %w", a, err), Path: path})
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("walk tracks: %w", err)
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config %q: %w", configPath, errors.Join(errs...))
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s: %d tracks OK\n", configPath, count)
	if err != nil {
		return fmt.Errorf("write to stdout: %w", err)
	}

	return nil
}
