package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/macropower/conductor/api"
	"github.com/macropower/conductor/pkg/conductor"
	"github.com/macropower/conductor/pkg/config"
	"github.com/macropower/conductor/pkg/env"
	"github.com/macropower/conductor/pkg/log"
)

// NoCustom tells Marked to fall back to its default processor.
const NoCustom = "NOCUSTOM"

const (
	cmdExamples = `  # Set as the custom processor in Marked:
  conductor

  # Process a document from the command line:
  MARKED_PATH=$PWD/README.md MARKED_PHASE=PROCESS conductor < README.md

  # Use a specific tracks file:
  conductor --config ~/notes/tracks.yaml < README.md

  # Write the sample tracks file and exit:
  conductor --write-config

  # Print the active configuration:
  conductor --show-config`
)

var errNoStdin = errors.New("input on stdin required")

type RunArgs struct {
	*RootArgs

	Timeout     time.Duration
	WriteConfig bool
	ShowConfig  bool
}

func NewRunArgs(rootArgs *RootArgs) *RunArgs {
	return &RunArgs{
		RootArgs: rootArgs,
	}
}

func (ra *RunArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&ra.Timeout, "timeout", 0, "Maximum run time for each script or command, 0 to disable")
	cmd.Flags().BoolVar(&ra.WriteConfig, "write-config", false, "Write the default configuration files and exit")
	cmd.Flags().BoolVar(&ra.ShowConfig, "show-config", false, "Print the active configuration and exit")
}

func NewRunCmd(ra *RunArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "run",
		Short:   "Process the document on stdin, this is the default command",
		Example: cmdExamples,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd, ra)
		},
	}
	ra.AddFlags(cmd)

	bindEnvVars(cmd)

	return cmd
}

func run(cmd *cobra.Command, ra *RunArgs) error {
	ctx := cmd.Context()
	ec := env.FromEnviron()

	configPath := ra.configPath(ec.Origin)
	if ra.WriteConfig {
		// Exit early after writing the default config.
		// Also, if there was an error, it should be fatal.
		return config.WriteDefaultConfig(configPath, false) //nolint:wrapcheck // Already wrapped.
	}

	ensureConfig(configPath)

	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	if ra.ShowConfig {
		return showConfig(cmd, configPath, cfg)
	}

	if isTerminal(cmd.InOrStdin()) {
		return errNoStdin
	}

	b, err := io.ReadAll(cmd.InOrStdin())
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}

	res, err := conduct(ctx, cfg, newRunner(configPath, ra.Timeout), ec, string(b))
	if err != nil {
		return err
	}

	out := NoCustom
	if res.Changed {
		out = res.Text
	}

	_, err = io.WriteString(cmd.OutOrStdout(), out)
	if err != nil {
		return fmt.Errorf("write to stdout: %w", err)
	}

	return nil
}

// conduct runs the configured tracks against input and logs the trail.
func conduct(
	ctx context.Context,
	cfg *config.Config,
	exec conductor.Executor,
	ec *env.Context,
	input string,
) (*conductor.Result, error) {
	logger := log.WithContext(ctx)
	logger.DebugContext(ctx, "conduct",
		slog.String("path", ec.FilePath),
		slog.String("phase", ec.Phase),
		slog.String("size", humanize.Bytes(uint64(len(input)))),
	)

	c := conductor.New(exec, ec, conductor.WithLogger(logger))

	res, err := c.Conduct(ctx, cfg.Tracks, input)
	if err != nil {
		return nil, fmt.Errorf("conduct: %w", err)
	}

	logger.InfoContext(ctx, res.Message(),
		slog.Bool("changed", res.Changed),
		slog.String("size", humanize.Bytes(uint64(len(res.Text)))),
	)

	return res, nil
}

func showConfig(cmd *cobra.Command, path string, cfg *config.Config) error {
	// Print the active configuration and exit.
	slog.Info("active configuration", slog.String("path", path))

	b, err := api.MarshalYAML(cfg)
	if err != nil {
		return err //nolint:wrapcheck // Already wrapped.
	}

	return writeHighlighted(cmd.OutOrStdout(), "YAML", string(b))
}
