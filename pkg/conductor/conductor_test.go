package conductor_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/conductor/pkg/action"
	"github.com/macropower/conductor/pkg/conductor"
	"github.com/macropower/conductor/pkg/env"
	"github.com/macropower/conductor/pkg/expr"
	"github.com/macropower/conductor/pkg/track"
)

const yamlDoc = `---
title: Post
comments: true
---
# Post

Body.
`

var errBoom = errors.New("boom")

// fakeExecutor appends "[Spec]" to the input. "noop" returns the input,
// "fail" returns errBoom and "reset" replaces the text.
type fakeExecutor struct {
	calls []string
}

func (f *fakeExecutor) Run(_ context.Context, a action.Action, input string, _ *env.Context) (string, error) {
	f.calls = append(f.calls, a.Spec)

	switch a.Spec {
	case "noop":
		return input, nil
	case "fail":
		return "", errBoom
	case "reset":
		return "plain\n", nil
	}

	return input + "[" + a.Spec + "]", nil
}

func TestConductor_Conduct(t *testing.T) {
	t.Parallel()

	ec := &env.Context{Ext: "md", Phase: "PROCESS", FileName: "post.md"}

	tcs := map[string]struct {
		input   string
		want    string
		message string
		tracks  []*track.Track
		calls   []string
		changed bool
	}{
		"first match wins": {
			input: "x",
			tracks: []*track.Track{
				{Condition: "extension is md", Command: "a"},
				{Condition: "any", Command: "b"},
			},
			want:    "x[a]",
			message: "extension is md",
			calls:   []string{"a"},
			changed: true,
		},
		"continue": {
			input: "x",
			tracks: []*track.Track{
				{Condition: "extension is md", Title: "Markdown", Command: "a", Continue: true},
				{Condition: "any", Command: "b"},
				{Condition: "any", Command: "c"},
			},
			want:    "x[a][b]",
			message: "Markdown -> any",
			calls:   []string{"a", "b"},
			changed: true,
		},
		"no match": {
			input: "x",
			tracks: []*track.Track{
				{Condition: "extension is txt", Command: "a"},
				{Condition: "phase is pre", Command: "b"},
			},
			message: conductor.NoChange,
		},
		"action returns input": {
			input: "x",
			tracks: []*track.Track{
				{Condition: "any", Command: "noop"},
			},
			message: conductor.NoChange,
			calls:   []string{"noop"},
		},
		"sequence threads text": {
			input: "x",
			tracks: []*track.Track{
				{Condition: "any", Sequence: []track.Step{
					{Filter: "a"},
					{Script: "b"},
					{Command: "c"},
				}},
			},
			want:    "x[a][b][c]",
			message: "any",
			calls:   []string{"a", "b", "c"},
			changed: true,
		},
		"children": {
			input: "x",
			tracks: []*track.Track{
				{Condition: "phase is process", Command: "a", Tracks: []*track.Track{
					{Condition: "extension is txt", Command: "b"},
					{Condition: "filename starts with post", Title: "Post", Command: "c"},
				}},
			},
			want:    "x[a][c]",
			message: "phase is process, Post",
			calls:   []string{"a", "c"},
			changed: true,
		},
		"grouping track without actions": {
			input: "x",
			tracks: []*track.Track{
				{Condition: "phase is process", Tracks: []*track.Track{
					{Condition: "any", Command: "a"},
				}},
			},
			want:    "x[a]",
			message: "phase is process, any",
			calls:   []string{"a"},
			changed: true,
		},
		"unchanged children stop the walk": {
			input: "x",
			tracks: []*track.Track{
				{Condition: "any", Continue: true, Tracks: []*track.Track{
					{Condition: "extension is txt", Command: "a"},
				}},
				{Condition: "any", Command: "b"},
			},
			message: conductor.NoChange,
		},
		"changed then restored": {
			input: "plain\n",
			tracks: []*track.Track{
				{Condition: "any", Command: "a", Tracks: []*track.Track{
					{Condition: "any", Command: "reset"},
				}},
			},
			message: conductor.NoChange,
			calls:   []string{"a", "reset"},
		},
		"unbalanced condition is false": {
			input: "x",
			tracks: []*track.Track{
				{Condition: "(extension is md", Command: "a"},
				{Condition: "any", Command: "b"},
			},
			want:    "x[b]",
			message: "any",
			calls:   []string{"b"},
			changed: true,
		},
		"match expression": {
			input: "x",
			tracks: []*track.Track{
				{Match: `ext == "txt"`, Command: "a"},
				{Condition: "any", Match: `phase == "PROCESS" && filename.endsWith(".md")`, Title: "cel", Command: "b"},
			},
			want:    "x[b]",
			message: "cel",
			calls:   []string{"b"},
			changed: true,
		},
		"invalid match expression is false": {
			input: "x",
			tracks: []*track.Track{
				{Condition: "any", Match: `ext ==`, Command: "a"},
			},
			message: conductor.NoChange,
		},
		"yaml boolean": {
			input: yamlDoc,
			tracks: []*track.Track{
				{Condition: "yaml includes comments", Command: "a"},
			},
			want:    yamlDoc + "[a]",
			message: "yaml includes comments",
			calls:   []string{"a"},
			changed: true,
		},
		"nil tracks are skipped": {
			input: "x",
			tracks: []*track.Track{
				nil,
				{Condition: "any", Command: "a"},
			},
			want:    "x[a]",
			message: "any",
			calls:   []string{"a"},
			changed: true,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			exec := &fakeExecutor{}
			c := conductor.New(exec, ec, conductor.WithEnvironment(expr.DefaultEnvironment()))

			res, err := c.Conduct(t.Context(), tc.tracks, tc.input)
			require.NoError(t, err)

			assert.Equal(t, tc.changed, res.Changed)
			assert.Equal(t, tc.want, res.Text)
			assert.Equal(t, tc.message, res.Message())
			assert.Equal(t, tc.calls, exec.calls)
		})
	}
}

func TestConductor_Conduct_Error(t *testing.T) {
	t.Parallel()

	exec := &fakeExecutor{}
	c := conductor.New(exec, &env.Context{})

	_, err := c.Conduct(t.Context(), []*track.Track{
		{Condition: "any", Title: "Broken", Sequence: []track.Step{
			{Command: "a"},
			{Command: "fail"},
			{Command: "b"},
		}},
	}, "x")
	require.ErrorIs(t, err, errBoom)
	assert.Contains(t, err.Error(), `run track "Broken"`)
	assert.Equal(t, []string{"a", "fail"}, exec.calls)
}

func TestConductor_Conduct_Logs(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c := conductor.New(&fakeExecutor{}, &env.Context{}, conductor.WithLogger(logger))

	res, err := c.Conduct(t.Context(), []*track.Track{
		{Condition: "(any", Command: "a"},
	}, "x")
	require.NoError(t, err)
	assert.False(t, res.Changed)
	assert.Contains(t, buf.String(), "invalid condition")
}

func TestConductor_EndToEnd(t *testing.T) {
	t.Parallel()

	runner := action.NewRunner(action.WithConfigDir(t.TempDir()))

	tcs := map[string]struct {
		ec      *env.Context
		input   string
		want    string
		message string
		tracks  []*track.Track
	}{
		"echo command": {
			ec:      &env.Context{Ext: "md"},
			input:   "# Title\n\nSome text.\n",
			tracks:  []*track.Track{{Condition: "extension is md", Command: "echo NOCUSTOM"}},
			want:    "NOCUSTOM\n",
			message: "extension is md",
		},
		"yaml comments filter": {
			ec:    &env.Context{Ext: "md"},
			input: yamlDoc,
			tracks: []*track.Track{
				{Condition: "yaml includes comments", Title: "Comments", Filter: "setStyle(Amblin)"},
			},
			message: "Comments",
		},
		"nested pipeline": {
			ec:    &env.Context{Ext: "md", Phase: "PROCESS"},
			input: "hello\n",
			tracks: []*track.Track{
				{Condition: "phase is process AND NOT extension is txt", Tracks: []*track.Track{
					{Condition: "text contains hello", Command: "tr a-z A-Z", Continue: true},
					{Condition: "text contains HELLO", Command: "sed s/HELLO/BYE/"},
				}},
			},
			want:    "BYE\n",
			message: "phase is process AND NOT extension is txt, text contains hello -> text contains HELLO",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			res, err := conductor.New(runner, tc.ec).Conduct(t.Context(), tc.tracks, tc.input)
			require.NoError(t, err)
			require.True(t, res.Changed)

			if tc.want != "" {
				assert.Equal(t, tc.want, res.Text)
			} else {
				assert.True(t, strings.Contains(res.Text, "<!--"), res.Text)
			}

			assert.Equal(t, tc.message, res.Message())
		})
	}
}

func TestConductor_EndToEnd_MissingScript(t *testing.T) {
	t.Parallel()

	runner := action.NewRunner(action.WithConfigDir(t.TempDir()))

	_, err := conductor.New(runner, &env.Context{Ext: "md"}).Conduct(t.Context(), []*track.Track{
		{Condition: "any", Script: "does-not-exist-anywhere"},
	}, "x")
	require.ErrorIs(t, err, action.ErrNotFound)
}

func TestFormatTrail(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		want  string
		trail []string
	}{
		"empty":    {want: ""},
		"single":   {trail: []string{"a, "}, want: "a"},
		"continue": {trail: []string{"a -> ", "b -> "}, want: "a -> b"},
		"mixed":    {trail: []string{"a, ", "b -> ", "c, "}, want: "a, b -> c"},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, conductor.FormatTrail(tc.trail))
		})
	}
}
