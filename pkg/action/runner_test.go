package action_test

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/conductor/pkg/action"
	"github.com/macropower/conductor/pkg/env"
	"github.com/macropower/conductor/pkg/execs"
	"github.com/macropower/conductor/pkg/filter"
	"github.com/macropower/conductor/pkg/log"
)

func writeScript(t *testing.T, path, body string, mode os.FileMode) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), mode))
}

func newRunner(t *testing.T, opts ...action.RunnerOpt) (*action.Runner, *env.Context) {
	t.Helper()

	dir := t.TempDir()
	writeScript(t, filepath.Join(dir, "scripts", "upper"), "tr a-z A-Z", 0o755)
	writeScript(t, filepath.Join(dir, "scripts", "args"), `printf '%s|' "$@"`, 0o755)
	writeScript(t, filepath.Join(dir, "scripts", "noexec"), "cat", 0o644)
	writeScript(t, filepath.Join(dir, "scripts", "ext"), `printf "$MARKED_EXT:$MARKED_PHASE"`, 0o755)

	home := t.TempDir()
	writeScript(t, filepath.Join(home, "bin", "home-script"), "tr a-z A-Z", 0o755)

	doc := filepath.Join(home, "doc.md")
	require.NoError(t, os.WriteFile(doc, []byte("from file"), 0o600))

	ec := &env.Context{
		Home:     home,
		Ext:      "md",
		FilePath: doc,
		Phase:    "PROCESS",
	}

	opts = append([]action.RunnerOpt{
		action.WithConfigDir(dir),
		action.WithBaseEnv([]string{"PATH=" + os.Getenv("PATH")}),
	}, opts...)

	return action.NewRunner(opts...), ec
}

func TestRunner_Run(t *testing.T) {
	t.Parallel()

	r, ec := newRunner(t)

	tcs := map[string]struct {
		err    error
		action action.Action
		input  string
		want   string
	}{
		"command echo": {
			action: action.Command("echo NOCUSTOM"),
			input:  "# Doc",
			want:   "NOCUSTOM\n",
		},
		"script from config dir": {
			action: action.Script("upper"),
			input:  "hello",
			want:   "HELLO",
		},
		"script args": {
			action: action.Script(`args one "two words"`),
			input:  "x",
			want:   "one|two words|",
		},
		"script environment": {
			action: action.Script("ext"),
			input:  "x",
			want:   "md:PROCESS",
		},
		"script home path": {
			action: action.Script("~/bin/home-script"),
			input:  "abc",
			want:   "ABC",
		},
		"command file argument": {
			action: action.Command("cat $file"),
			want:   "from file",
		},
		"command braced file argument": {
			action: action.Command("cat ${file}"),
			want:   "from file",
		},
		"script on path": {
			action: action.Script("cat"),
			input:  "passthrough",
			want:   "passthrough",
		},
		"filter": {
			action: action.Filter("replace(foo, bar)"),
			input:  "foo",
			want:   "bar",
		},
		"missing script": {
			action: action.Script("does-not-exist-anywhere"),
			input:  "x",
			err:    action.ErrNotFound,
		},
		"script not executable": {
			action: action.Script("noexec"),
			input:  "x",
			err:    action.ErrNotExecutable,
		},
		"no input": {
			action: action.Command("cat"),
			err:    action.ErrNoInput,
		},
		"failing command": {
			action: action.Command("sh -c 'echo nope >&2; exit 2'"),
			input:  "x",
			err:    execs.ErrCommandExecution,
		},
		"missing command": {
			action: action.Command("does-not-exist-anywhere"),
			input:  "x",
			err:    execs.ErrCommandExecution,
		},
		"invalid filter": {
			action: action.Filter("()"),
			input:  "x",
			err:    filter.ErrInvalidFilter,
		},
		"empty action": {
			action: action.Action{},
			input:  "x",
			err:    action.ErrInvalidAction,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := r.Run(t.Context(), tc.action, tc.input, ec)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRunner_Run_NotFoundMessage(t *testing.T) {
	t.Parallel()

	r, ec := newRunner(t)

	_, err := r.Run(t.Context(), action.Script("nowhere-script"), "x", ec)
	require.EqualError(t, err, `path to "nowhere-script" not found`)
}

func TestRunner_Run_LogsStderr(t *testing.T) {
	t.Parallel()

	r, ec := newRunner(t)

	script := filepath.Join(t.TempDir(), "fail")
	writeScript(t, script, `printf '\033[31mbad input\033[0m' >&2; exit 1`, 0o755)

	var buf bytes.Buffer

	ctx := log.IntoContext(t.Context(), slog.New(slog.NewTextHandler(&buf, nil)))

	_, err := r.Run(ctx, action.Script(script), "x", ec)
	require.ErrorIs(t, err, execs.ErrCommandExecution)
	assert.Contains(t, buf.String(), `stderr="bad input"`)
	assert.NotContains(t, buf.String(), "\x1b")
}

func TestRunner_Run_Timeout(t *testing.T) {
	t.Parallel()

	r, ec := newRunner(t, action.WithTimeout(50*time.Millisecond))

	start := time.Now()
	_, err := r.Run(t.Context(), action.Command("sleep 5"), "x", ec)
	require.ErrorIs(t, err, execs.ErrCommandExecution)
	assert.Less(t, time.Since(start), 4*time.Second)
}

func TestRunner_Check(t *testing.T) {
	t.Parallel()

	r, ec := newRunner(t)

	require.NoError(t, r.Check(action.Script("upper"), ec))
	require.NoError(t, r.Check(action.Command("anything-at-all"), ec))
	require.NoError(t, r.Check(action.Filter("insertTOC(2, h2)"), ec))

	require.ErrorIs(t, r.Check(action.Script("missing"), ec), action.ErrNotFound)
	require.ErrorIs(t, r.Check(action.Script("noexec"), ec), action.ErrNotExecutable)
	require.ErrorIs(t, r.Check(action.Filter("frobnicate"), ec), action.ErrInvalidAction)
	require.ErrorIs(t, r.Check(action.Command(`"unterminated`), ec), action.ErrInvalidAction)
}

func TestAction_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "script: upper", action.Script("upper").String())
	assert.Equal(t, "command: echo", action.Command("echo").String())
	assert.Equal(t, "filter: autoLink", action.Filter("autoLink").String())
	assert.Equal(t, "invalid", action.Type(0).String())
}
