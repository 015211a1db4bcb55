// Package track defines the tree of conditions and actions that the
// conductor walks.
package track

import (
	"errors"
	"fmt"

	"github.com/invopop/jsonschema"

	"github.com/macropower/conductor/pkg/action"
	"github.com/macropower/conductor/pkg/condition"
	"github.com/macropower/conductor/pkg/expr"
)

var (
	// ErrMultipleActions is returned when a track or step defines more than
	// one of script, command, filter and sequence.
	ErrMultipleActions = errors.New("only one of script, command, filter or sequence may be set")
	// ErrEmptyTrack is returned when a track has neither a condition nor a
	// match expression.
	ErrEmptyTrack = errors.New("condition or match is required")
)

// Error is returned by [CompileAll] and [Track.Compile]. Path locates the
// offending field, such as "tracks[1].tracks[0].condition".
type Error struct {
	Err  error
	Path string
}

func (e *Error) Error() string {
	return e.Path + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Step is one entry of a sequence. Exactly one field is set.
type Step struct {
	// Script runs an executable from the scripts directory or PATH.
	Script string `json:"script,omitempty" jsonschema:"title=Script" mapstructure:"script" yaml:"script,omitempty"`
	// Command runs an executable from PATH.
	Command string `json:"command,omitempty" jsonschema:"title=Command" mapstructure:"command" yaml:"command,omitempty"`
	// Filter applies a built-in filter.
	Filter string `json:"filter,omitempty" jsonschema:"title=Filter" mapstructure:"filter" yaml:"filter,omitempty"`
}

func (Step) JSONSchemaExtend(jss *jsonschema.Schema) {
	jss.OneOf = []*jsonschema.Schema{
		{Required: []string{"script"}},
		{Required: []string{"command"}},
		{Required: []string{"filter"}},
	}
}

// Action returns the step's action.
func (s Step) Action() (action.Action, error) {
	var out []action.Action

	if s.Script != "" {
		out = append(out, action.Script(s.Script))
	}
	if s.Command != "" {
		out = append(out, action.Command(s.Command))
	}
	if s.Filter != "" {
		out = append(out, action.Filter(s.Filter))
	}

	switch len(out) {
	case 0:
		return action.Action{}, fmt.Errorf("%w: empty step", action.ErrInvalidAction)
	case 1:
		return out[0], nil
	}

	return action.Action{}, ErrMultipleActions
}

// Track is a node in the track tree.
//
//nolint:recvcheck // Must satisfy the jsonschema interface.
type Track struct {
	match *expr.Match

	// Condition is a natural language condition, e.g. "extension is md AND
	// yaml includes comments".
	Condition string `json:"condition,omitempty" jsonschema:"title=Condition" mapstructure:"condition" yaml:"condition,omitempty"`
	// Title names the track in the trail. Defaults to the condition.
	Title string `json:"title,omitempty" jsonschema:"title=Title" mapstructure:"title" yaml:"title,omitempty"`
	// Match is an optional CEL expression, ANDed with the condition.
	Match string `json:"match,omitempty" jsonschema:"title=Match" mapstructure:"match" yaml:"match,omitempty"`
	// Script runs an executable from the scripts directory or PATH.
	Script string `json:"script,omitempty" jsonschema:"title=Script" mapstructure:"script" yaml:"script,omitempty"`
	// Command runs an executable from PATH.
	Command string `json:"command,omitempty" jsonschema:"title=Command" mapstructure:"command" yaml:"command,omitempty"`
	// Filter applies a built-in filter.
	Filter string `json:"filter,omitempty" jsonschema:"title=Filter" mapstructure:"filter" yaml:"filter,omitempty"`
	// Sequence runs several actions in order, each receiving the output of
	// the one before.
	Sequence []Step `json:"sequence,omitempty" jsonschema:"title=Sequence" mapstructure:"sequence" yaml:"sequence,omitempty"`
	// Tracks are evaluated after this track's actions when it matches.
	Tracks []*Track `json:"tracks,omitempty" jsonschema:"title=Tracks" mapstructure:"tracks" yaml:"tracks,omitempty"`
	// Continue keeps evaluating sibling tracks after this one matches.
	Continue bool `json:"continue,omitempty" jsonschema:"title=Continue" mapstructure:"continue" yaml:"continue,omitempty"`
}

func (Track) JSONSchemaExtend(jss *jsonschema.Schema) {
	jss.AnyOf = []*jsonschema.Schema{
		{Required: []string{"condition"}},
		{Required: []string{"match"}},
	}
}

// Name returns the title, or the condition when no title is set.
func (t *Track) Name() string {
	switch {
	case t.Title != "":
		return t.Title
	case t.Condition != "":
		return t.Condition
	}

	return t.Match
}

// Actions returns the track's actions in order. Steps that define no action
// are skipped.
func (t *Track) Actions() []action.Action {
	var out []action.Action

	switch {
	case t.Script != "":
		out = append(out, action.Script(t.Script))
	case t.Command != "":
		out = append(out, action.Command(t.Command))
	case t.Filter != "":
		out = append(out, action.Filter(t.Filter))
	}

	for _, s := range t.Sequence {
		a, err := s.Action()
		if err == nil {
			out = append(out, a)
		}
	}

	return out
}

// MatchExpr returns the compiled match expression, or nil when the track
// has none or has not been compiled.
func (t *Track) MatchExpr() *expr.Match {
	return t.match
}

// Compile checks the track and its children, and compiles match
// expressions. Errors name the offending track by its path, such as
// "tracks[1].tracks[0]".
func (t *Track) Compile(env *expr.Environment) error {
	return t.compile(env, "")
}

func (t *Track) compile(env *expr.Environment, path string) error {
	if t.Condition == "" && t.Match == "" {
		return &Error{Path: pathOrRoot(path), Err: ErrEmptyTrack}
	}

	if t.Condition != "" {
		err := condition.Validate(t.Condition)
		if err != nil {
			return &Error{Path: pathOrRoot(path) + ".condition", Err: err}
		}
	}

	set := 0
	for _, s := range []string{t.Script, t.Command, t.Filter} {
		if s != "" {
			set++
		}
	}
	if len(t.Sequence) > 0 {
		set++
	}
	if set > 1 {
		return &Error{Path: pathOrRoot(path), Err: ErrMultipleActions}
	}

	for i, s := range t.Sequence {
		_, err := s.Action()
		if err != nil {
			return &Error{Path: fmt.Sprintf("%s.sequence[%d]", pathOrRoot(path), i), Err: err}
		}
	}

	if t.Match != "" {
		m, err := env.Compile(t.Match)
		if err != nil {
			return &Error{Path: pathOrRoot(path) + ".match", Err: err}
		}

		t.match = m
	}

	return CompileAll(env, t.Tracks, pathOrRoot(path)+".tracks")
}

// CompileAll compiles every track in tracks.
func CompileAll(env *expr.Environment, tracks []*Track, prefix string) error {
	if prefix == "" {
		prefix = "tracks"
	}

	for i, t := range tracks {
		if t == nil {
			return &Error{Path: fmt.Sprintf("%s[%d]", prefix, i), Err: ErrEmptyTrack}
		}

		err := t.compile(env, fmt.Sprintf("%s[%d]", prefix, i))
		if err != nil {
			return err
		}
	}

	return nil
}

// Walk calls fn for every track in depth-first order, stopping at the first
// error.
func Walk(tracks []*Track, fn func(path string, t *Track) error) error {
	return walk(tracks, "tracks", fn)
}

func walk(tracks []*Track, prefix string, fn func(path string, t *Track) error) error {
	for i, t := range tracks {
		path := fmt.Sprintf("%s[%d]", prefix, i)

		err := fn(path, t)
		if err != nil {
			return err
		}

		err = walk(t.Tracks, path+".tracks", fn)
		if err != nil {
			return err
		}
	}

	return nil
}

func pathOrRoot(path string) string {
	if path == "" {
		return "track"
	}

	return path
}
