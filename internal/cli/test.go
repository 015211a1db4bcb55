package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/aymanbagabas/go-udiff"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/macropower/conductor/api"
	"github.com/macropower/conductor/pkg/env"
	"github.com/macropower/conductor/pkg/watch"
)

const (
	PhasePreprocess = "PREPROCESS"
	PhaseProcess    = "PROCESS"
)

const testExamples = `  # Show what the tracks do to a document:
  conductor test README.md

  # Run the preprocessor phase and show a diff:
  conductor test README.md --phase PREPROCESS --diff

  # Rerun whenever the document or the tracks file changes:
  conductor test README.md --diff --watch`

type TestArgs struct {
	*RootArgs

	Path    string
	Phase   string
	Timeout time.Duration
	Diff    bool
	Watch   bool
}

func NewTestArgs(rootArgs *RootArgs) *TestArgs {
	return &TestArgs{
		RootArgs: rootArgs,
	}
}

func (ta *TestArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&ta.Phase, "phase", PhaseProcess,
		fmt.Sprintf("Processing phase to simulate, one of: %s, %s", PhasePreprocess, PhaseProcess))
	cmd.Flags().DurationVar(&ta.Timeout, "timeout", 0, "Maximum run time for each script or command, 0 to disable")
	cmd.Flags().BoolVarP(&ta.Diff, "diff", "d", false, "Print a unified diff instead of the processed document")
	cmd.Flags().BoolVarP(&ta.Watch, "watch", "w", false, "Watch the document and tracks file and rerun on changes")

	err := cmd.RegisterFlagCompletionFunc("phase",
		cobra.FixedCompletions([]string{PhasePreprocess, PhaseProcess}, cobra.ShellCompDirectiveNoFileComp),
	)
	if err != nil {
		panic(err)
	}
}

func NewTestCmd(ta *TestArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "test <file>",
		Short:   "Run the tracks against a document on disk, the way Marked would",
		Example: testExamples,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ta.Path = args[0]

			return runTest(cmd, ta)
		},
	}
	ta.AddFlags(cmd)

	bindEnvVars(cmd)

	return cmd
}

func runTest(cmd *cobra.Command, ta *TestArgs) error {
	ctx := cmd.Context()

	ec, err := env.ForFile(ta.Path, ta.Phase, os.LookupEnv)
	if err != nil {
		return fmt.Errorf("resolve document path: %w", err)
	}

	configPath := ta.configPath(ec.Origin)
	ensureConfig(configPath)

	err = testOnce(ctx, cmd, ta, ec, configPath)
	if !ta.Watch {
		return err
	}
	if err != nil {
		slog.ErrorContext(ctx, "test document", slog.Any("err", err))
	}

	w, err := watch.New([]string{ec.FilePath, configPath})
	if err != nil {
		return fmt.Errorf("watch files: %w", err)
	}

	err = w.Run(ctx, func(ctx context.Context, evt fsnotify.Event) error {
		slog.InfoContext(ctx, "file changed, rerunning", slog.String("path", evt.Name))

		err := testOnce(ctx, cmd, ta, ec, configPath)
		if err != nil {
			slog.ErrorContext(ctx, "test document", slog.Any("err", err))
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("watch files: %w", err)
	}

	return nil
}

// testOnce loads the config and document from disk, conducts the document
// and writes the result.
func testOnce(ctx context.Context, cmd *cobra.Command, ta *TestArgs, ec *env.Context, configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	b, err := api.ReadFile(ec.FilePath)
	if err != nil {
		return fmt.Errorf("read document: %w", err)
	}

	input := string(b)

	res, err := conduct(ctx, cfg, newRunner(configPath, ta.Timeout), ec, input)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintln(cmd.ErrOrStderr(), res.Message())
	if err != nil {
		return fmt.Errorf("write to stderr: %w", err)
	}

	out := input
	if res.Changed {
		out = res.Text
	}

	if ta.Diff {
		diff := udiff.Unified(ec.FileName, ec.FileName+" (processed)", input, out)

		return writeHighlighted(cmd.OutOrStdout(), "diff", diff)
	}

	_, err = io.WriteString(cmd.OutOrStdout(), out)
	if err != nil {
		return fmt.Errorf("write to stdout: %w", err)
	}

	return nil
}
