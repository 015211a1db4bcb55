package cli_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/conductor/internal/cli"
	"github.com/macropower/conductor/pkg/action"
	"github.com/macropower/conductor/pkg/config"
)

const upperTracks = `tracks:
  - condition: extension is md
    tracks:
      - condition: text contains hello
        command: tr a-z A-Z
  - condition: extension is txt
    filter: setStyle(Amblin)
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

type result struct {
	stdout string
	stderr string
	err    error
}

func execute(t *testing.T, stdin string, args ...string) result {
	t.Helper()

	var stdout, stderr bytes.Buffer

	cmd := cli.NewRootCmd()
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	err := cmd.Execute()

	return result{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func TestRun(t *testing.T) {
	tcs := map[string]struct {
		path  string
		stdin string
		want  string
	}{
		"matching track": {
			path:  "/notes/doc.md",
			stdin: "hello\n",
			want:  "HELLO\n",
		},
		"no matching child": {
			path:  "/notes/doc.md",
			stdin: "goodbye\n",
			want:  cli.NoCustom,
		},
		"no matching track": {
			path:  "/notes/doc.html",
			stdin: "hello\n",
			want:  cli.NoCustom,
		},
		"filter": {
			path:  "/notes/doc.txt",
			stdin: "# Title\n\nbody",
			want:  "# Title\n\n<!--\nmarked style: Amblin\n-->\n\nbody",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Setenv("MARKED_PATH", tc.path)
			t.Setenv("MARKED_ORIGIN", "")
			t.Setenv("MARKED_EXT", "")
			t.Setenv("MARKED_PHASE", "PROCESS")

			cfgPath := writeFile(t, t.TempDir(), "tracks.yaml", upperTracks)

			res := execute(t, tc.stdin, "--config", cfgPath)
			require.NoError(t, res.err)
			assert.Equal(t, tc.want, res.stdout)
		})
	}
}

func TestRun_WriteConfig(t *testing.T) {
	t.Parallel()

	cfgPath := filepath.Join(t.TempDir(), "conductor", "tracks.yaml")

	res := execute(t, "", "--config", cfgPath, "--write-config")
	require.NoError(t, res.err)

	got, err := os.ReadFile(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultYAML(), got)
	assert.FileExists(t, filepath.Join(filepath.Dir(cfgPath), config.SchemaFileName))
}

func TestRun_ShowConfig(t *testing.T) {
	t.Parallel()

	cfgPath := writeFile(t, t.TempDir(), "tracks.yaml", upperTracks)

	res := execute(t, "", "--config", cfgPath, "--show-config")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "condition: text contains hello")
	assert.Contains(t, res.stdout, "command: tr a-z A-Z")
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Parallel()

	cfgPath := writeFile(t, t.TempDir(), "tracks.yaml", "tracks:\n  - condition: (any\n    command: cat\n")

	res := execute(t, "hello\n", "--config", cfgPath)
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "invalid config")
}

func TestTest(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		args       []string
		doc        string
		wantStdout []string
		wantStderr string
	}{
		"processed document": {
			doc:        "hello\n",
			wantStdout: []string{"HELLO\n"},
			wantStderr: "extension is md, text contains hello",
		},
		"diff": {
			args:       []string{"--diff"},
			doc:        "hello\n",
			wantStdout: []string{"-hello", "+HELLO", "doc.md (processed)"},
		},
		"unchanged document is printed as is": {
			doc:        "goodbye\n",
			wantStdout: []string{"goodbye\n"},
			wantStderr: "No change in output",
		},
		"preprocess phase": {
			args:       []string{"--phase", cli.PhasePreprocess},
			doc:        "hello\n",
			wantStdout: []string{"HELLO\n"},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			cfgPath := writeFile(t, dir, "tracks.yaml", upperTracks)
			docPath := writeFile(t, dir, "doc.md", tc.doc)

			args := append([]string{"test", docPath, "--config", cfgPath}, tc.args...)

			res := execute(t, "", args...)
			require.NoError(t, res.err)

			for _, want := range tc.wantStdout {
				assert.Contains(t, res.stdout, want)
			}

			assert.Contains(t, res.stderr, tc.wantStderr)
		})
	}
}

func TestTest_MissingFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "tracks.yaml", upperTracks)

	res := execute(t, "", "test", filepath.Join(dir, "missing.md"), "--config", cfgPath)
	require.Error(t, res.err)
	assert.Contains(t, res.err.Error(), "read document")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		err    error
		tracks string
		want   string
		errMsg string
	}{
		"valid": {
			tracks: upperTracks,
			want:   "3 tracks OK",
		},
		"missing script": {
			tracks: `tracks:
  - condition: any
    tracks:
      - condition: any
        script: does-not-exist
`,
			err:    action.ErrNotFound,
			errMsg: "tracks[0].tracks[0]",
		},
		"unknown filter": {
			tracks: `tracks:
  - condition: any
    filter: frobnicate
`,
			err:    action.ErrInvalidAction,
			errMsg: "frobnicate",
		},
		"unbalanced condition": {
			tracks: `tracks:
  - condition: (any
    command: cat
`,
			errMsg: "tracks[0].condition",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			cfgPath := writeFile(t, t.TempDir(), "tracks.yaml", tc.tracks)

			res := execute(t, "", "validate", "--config", cfgPath)
			if tc.want != "" {
				require.NoError(t, res.err)
				assert.Contains(t, res.stdout, tc.want)

				return
			}

			require.Error(t, res.err)
			if tc.err != nil {
				require.ErrorIs(t, res.err, tc.err)
			}

			assert.Contains(t, res.err.Error(), tc.errMsg)
		})
	}
}

func TestEnv(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	docPath := writeFile(t, dir, "doc.md", "hello\n")

	tcs := map[string]struct {
		args []string
		want []string
		err  bool
	}{
		"environ": {
			args: []string{"env", docPath},
			want: []string{"MARKED_EXT=md", "MARKED_PHASE=PROCESS", "MARKED_PATH=" + docPath},
		},
		"yaml": {
			args: []string{"env", docPath, "-o", "yaml", "--phase", "PREPROCESS"},
			want: []string{"ext: md", "filename: doc.md", "phase: PREPROCESS"},
		},
		"bad output": {
			args: []string{"env", "-o", "xml"},
			err:  true,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			res := execute(t, "", tc.args...)
			if tc.err {
				require.Error(t, res.err)

				return
			}

			require.NoError(t, res.err)

			for _, want := range tc.want {
				assert.Contains(t, res.stdout, want)
			}
		})
	}
}
