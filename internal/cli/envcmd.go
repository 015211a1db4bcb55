package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/macropower/conductor/api"
	"github.com/macropower/conductor/pkg/env"
)

const (
	OutputEnv  = "env"
	OutputYAML = "yaml"
)

type EnvArgs struct {
	*RootArgs

	Output string
	Phase  string
}

func NewEnvCmd(ra *RootArgs) *cobra.Command {
	ea := &EnvArgs{RootArgs: ra}

	cmd := &cobra.Command{
		Use:   "env [file]",
		Short: "Print the environment conditions are evaluated against",
		Long: `Print the environment conditions are evaluated against.

Without a file, the context is read from the MARKED_* variables of the
current environment. With a file, the context is built the way Marked would
describe that document.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnv(cmd, ea, args)
		},
	}

	cmd.Flags().StringVarP(&ea.Output, "output", "o", OutputEnv,
		fmt.Sprintf("Output format, one of: %s, %s", OutputEnv, OutputYAML))
	cmd.Flags().StringVar(&ea.Phase, "phase", PhaseProcess, "Processing phase to use with a file")

	must(cmd.RegisterFlagCompletionFunc("output",
		cobra.FixedCompletions([]string{OutputEnv, OutputYAML}, cobra.ShellCompDirectiveNoFileComp),
	))

	bindEnvVars(cmd)

	return cmd
}

func runEnv(cmd *cobra.Command, ea *EnvArgs, args []string) error {
	ec := env.FromEnviron()
	if len(args) > 0 {
		var err error

		ec, err = env.ForFile(args[0], ea.Phase, os.LookupEnv)
		if err != nil {
			return fmt.Errorf("resolve document path: %w", err)
		}
	}

	switch ea.Output {
	case OutputEnv:
		_, err := fmt.Fprintln(cmd.OutOrStdout(), strings.Join(ec.Environ(), "\n"))
		if err != nil {
			return fmt.Errorf("write to stdout: %w", err)
		}

		return nil

	case OutputYAML:
		b, err := api.MarshalYAML(ec.Vars())
		if err != nil {
			return err //nolint:wrapcheck // Already wrapped.
		}

		return writeHighlighted(cmd.OutOrStdout(), "YAML", string(b))
	}

	return fmt.Errorf("invalid argument: unknown output format %q", ea.Output)
}
