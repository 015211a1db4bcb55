// Package action defines the units of work a track runs when its condition
// matches, and a [Runner] that executes them.
//
// There are three kinds of action:
//
//   - Script: an executable looked up in the scripts directory, then on PATH.
//   - Command: any executable on PATH, or an explicit path.
//   - Filter: a built-in text transformation from package filter.
//
// Scripts and commands receive the current text on stdin and return the new
// text on stdout. When an argument contains $file or ${file}, it is replaced
// with the document path and nothing is written to stdin.
package action

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a script cannot be located.
	ErrNotFound = errors.New("not found")
	// ErrNotExecutable is returned when a script exists but cannot be run.
	ErrNotExecutable = errors.New("script not executable")
	// ErrNoInput is returned when an action that reads stdin has no input.
	ErrNoInput = errors.New("no input")
	// ErrInvalidAction is returned for actions with no type or no spec.
	ErrInvalidAction = errors.New("invalid action")
)

// Type is the kind of an [Action].
type Type int

const (
	TypeInvalid Type = iota
	TypeScript
	TypeCommand
	TypeFilter
)

func (t Type) String() string {
	switch t {
	case TypeScript:
		return "script"
	case TypeCommand:
		return "command"
	case TypeFilter:
		return "filter"
	case TypeInvalid:
	}

	return "invalid"
}

// Action is a single script, command or filter invocation.
type Action struct {
	// Spec is the invocation, e.g. "obsidian-md-filter --strip" or
	// "insertTOC(3, h2)".
	Spec string
	Type Type
}

// Script returns a script action.
func Script(spec string) Action {
	return Action{Type: TypeScript, Spec: spec}
}

// Command returns a command action.
func Command(spec string) Action {
	return Action{Type: TypeCommand, Spec: spec}
}

// Filter returns a filter action.
func Filter(spec string) Action {
	return Action{Type: TypeFilter, Spec: spec}
}

// Validate reports whether the action is well formed. It does not check that
// the referenced executable exists.
func (a Action) Validate() error {
	if a.Type == TypeInvalid || a.Spec == "" {
		return fmt.Errorf("%w: %s", ErrInvalidAction, a)
	}

	return nil
}

func (a Action) String() string {
	return fmt.Sprintf("%s: %s", a.Type, a.Spec)
}
