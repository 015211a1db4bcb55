package action

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/mattn/go-shellwords"

	"github.com/macropower/conductor/api"
	"github.com/macropower/conductor/pkg/env"
	"github.com/macropower/conductor/pkg/execs"
	"github.com/macropower/conductor/pkg/filter"
	"github.com/macropower/conductor/pkg/log"
)

var (
	reFileArg      = regexp.MustCompile(`\$\{?file\}?`)
	reExplicitPath = regexp.MustCompile(`^[~/.]`)
)

// Filterer applies a filter specification to text.
type Filterer interface {
	Apply(spec, input string, ec *env.Context) (string, error)
}

// Runner runs actions. It implements the executor used by the conductor.
type Runner struct {
	filters   Filterer
	exec      *execs.Executor
	lookPath  func(file string) (string, error)
	configDir string
	baseEnv   []string
	timeout   time.Duration
}

// RunnerOpt configures a [Runner].
type RunnerOpt func(*Runner)

// WithConfigDir sets the directory whose scripts/ subdirectory is searched
// for scripts.
func WithConfigDir(dir string) RunnerOpt {
	return func(r *Runner) {
		r.configDir = dir
	}
}

// WithTimeout limits how long a single script or command may run. Zero
// disables the limit.
func WithTimeout(d time.Duration) RunnerOpt {
	return func(r *Runner) {
		r.timeout = d
	}
}

// WithBaseEnv sets the caller environment that child processes inherit
// from. Defaults to [os.Environ].
func WithBaseEnv(environ []string) RunnerOpt {
	return func(r *Runner) {
		r.baseEnv = environ
	}
}

// WithFilterer sets the filter implementation.
func WithFilterer(f Filterer) RunnerOpt {
	return func(r *Runner) {
		r.filters = f
	}
}

// NewRunner creates a new [Runner].
func NewRunner(opts ...RunnerOpt) *Runner {
	r := &Runner{
		exec:     execs.NewExecutor(),
		lookPath: exec.LookPath,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.configDir == "" {
		r.configDir = api.ConfigDir()
	}
	if r.baseEnv == nil {
		r.baseEnv = os.Environ()
	}
	if r.filters == nil {
		r.filters = filter.New(filter.WithConfigDir(r.configDir))
	}

	return r
}

// Run runs a against input and returns the new text.
func (r *Runner) Run(ctx context.Context, a Action, input string, ec *env.Context) (string, error) {
	err := a.Validate()
	if err != nil {
		return "", err
	}

	if ec == nil {
		ec = &env.Context{}
	}

	if a.Type == TypeFilter {
		out, err := r.filters.Apply(a.Spec, input, ec)
		if err != nil {
			return "", fmt.Errorf("apply filter: %w", err)
		}

		return out, nil
	}

	cmd, usesFile, err := r.command(a, ec)
	if err != nil {
		return "", err
	}

	var stdin []byte
	if !usesFile {
		if input == "" {
			return "", ErrNoInput
		}

		stdin = []byte(input)
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	res, err := r.exec.Run(ctx, cmd, stdin)
	if err != nil {
		if res != nil && res.Stderr != "" {
			log.WithContext(ctx).WarnContext(ctx, "action failed",
				slog.String("action", a.String()),
				slog.String("stderr", strings.TrimSpace(ansi.Strip(res.Stderr))),
			)
		}

		return "", fmt.Errorf("%s: %w", a.Type, err)
	}

	return res.Stdout, nil
}

// Check reports whether a can be resolved without running it: scripts must
// exist and be executable, and filters must parse to a known filter.
func (r *Runner) Check(a Action, ec *env.Context) error {
	err := a.Validate()
	if err != nil {
		return err
	}

	if ec == nil {
		ec = &env.Context{}
	}

	if a.Type == TypeFilter {
		f, err := filter.Parse(a.Spec)
		if err != nil {
			return fmt.Errorf("parse filter: %w", err)
		}
		if f.Kind == filter.KindUnknown {
			return fmt.Errorf("%w: unknown filter %q", ErrInvalidAction, f.Name)
		}

		return nil
	}

	_, _, err = r.command(a, ec)

	return err
}

// command builds the process for a script or command action. It reports
// whether any argument referenced the document path.
func (r *Runner) command(a Action, ec *env.Context) (*execs.Command, bool, error) {
	words, err := shellwords.Parse(a.Spec)
	if err != nil {
		return nil, false, fmt.Errorf("%w: parse %s: %w", ErrInvalidAction, a.Type, err)
	}
	if len(words) == 0 {
		return nil, false, fmt.Errorf("%w: %s", ErrInvalidAction, a)
	}

	var path string

	if a.Type == TypeScript {
		path, err = r.resolveScript(words[0], ec.Home)
		if err != nil {
			return nil, false, err
		}
	} else {
		path = r.resolveCommand(words[0], ec.Home)
	}

	usesFile := false
	args := words[1:]

	for i, arg := range args {
		if reFileArg.MatchString(arg) {
			usesFile = true
			args[i] = reFileArg.ReplaceAllLiteralString(arg, ec.FilePath)
		}
	}

	cmd := execs.NewCommand(path, args, r.baseEnv)

	err = cmd.AddInherit(execs.DefaultInherit()...)
	if err != nil {
		return nil, false, fmt.Errorf("inherit environment: %w", err)
	}

	// Unset context values would otherwise clobber inherited ones like PATH.
	for _, pair := range ec.Environ() {
		if !strings.HasSuffix(pair, "=") {
			cmd.SetEnv(pair)
		}
	}

	return cmd, usesFile, nil
}

func (r *Runner) resolveScript(name, home string) (string, error) {
	var path string

	switch {
	case reExplicitPath.MatchString(name):
		path = api.ExpandPath(name, home)
	default:
		candidate := filepath.Join(r.configDir, "scripts", name)
		if _, err := os.Stat(candidate); err == nil {
			path = candidate

			break
		}

		found, err := r.lookPath(name)
		if err != nil {
			return "", fmt.Errorf("path to %q %w", name, ErrNotFound)
		}

		path = found
	}

	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("path to %q %w", name, ErrNotFound)
	}
	if info.IsDir() || info.Mode().Perm()&0o111 == 0 {
		return "", fmt.Errorf("%s: %w", path, ErrNotExecutable)
	}

	return path, nil
}

func (r *Runner) resolveCommand(name, home string) string {
	if reExplicitPath.MatchString(name) {
		return api.ExpandPath(name, home)
	}

	if found, err := r.lookPath(name); err == nil {
		return found
	}

	return name
}
