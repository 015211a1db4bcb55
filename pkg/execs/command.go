package execs

import (
	"errors"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
)

var (
	// ErrCommandExecution is returned when command execution fails.
	ErrCommandExecution = errors.New("run")

	// ErrEmptyCommand is returned when a command is empty.
	ErrEmptyCommand = errors.New("empty command")
)

// Variables always passed through from the caller.
var essentialVars = []string{"PATH", "HOME", "USER", "TERM", "COLORTERM", "SHELL", "TMPDIR"}

// Result represents the result of a command execution.
type Result struct {
	Stdout string
	Stderr string
}

// CallerRef selects environment variables to inherit from the caller
// process, by exact name or by a pattern matched against variable names.
type CallerRef struct {
	compiledPattern *regexp.Regexp

	// Pattern is a regex pattern for matching environment variable names.
	Pattern string `json:"pattern,omitempty" jsonschema:"title=Pattern,format=regex"`
	// Name is the specific environment variable name to inherit.
	Name string `json:"name,omitempty" jsonschema:"title=Name"`
}

// Compile compiles the caller reference pattern, if one is set.
func (c *CallerRef) Compile() error {
	if c.compiledPattern == nil && c.Pattern != "" {
		pattern, err := regexp.Compile(c.Pattern)
		if err != nil {
			return fmt.Errorf("compile pattern %q: %w", c.Pattern, err)
		}

		c.compiledPattern = pattern
	}

	return nil
}

// Matches reports whether key is selected by the reference. Patterns must be
// compiled with [CallerRef.Compile] first.
func (c *CallerRef) Matches(key string) bool {
	if c.Name != "" && c.Name == key {
		return true
	}

	return c.compiledPattern != nil && c.compiledPattern.MatchString(key)
}

// DefaultInherit returns the references inherited by every script and
// command: locale settings and the host application's variables.
func DefaultInherit() []*CallerRef {
	return []*CallerRef{
		{Name: "LANG"},
		{Pattern: `^LC_`},
		{Pattern: `^MARKED_`},
		{Pattern: `^CONDUCTOR_`},
	}
}

// Command describes an external process.
type Command struct {
	baseEnv map[string]string
	env     map[string]string

	// Name is the executable, either a path or a name looked up on PATH.
	Name string
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Args contains the command line arguments.
	Args []string
	// Inherit selects variables to copy from the base environment.
	Inherit []*CallerRef
}

// NewCommand creates a new [Command].
// It accepts a base environment, which usually will be from [os.Environ].
func NewCommand(name string, args []string, baseEnv []string) *Command {
	c := &Command{
		Name: name,
		Args: args,
		env:  map[string]string{},
	}
	c.SetBaseEnv(baseEnv)

	return c
}

// SetBaseEnv replaces the environment inherited variables are read from.
func (c *Command) SetBaseEnv(baseEnv []string) {
	c.baseEnv = parseEnv(baseEnv)
}

// AddInherit compiles and adds caller references.
func (c *Command) AddInherit(refs ...*CallerRef) error {
	for i, ref := range refs {
		err := ref.Compile()
		if err != nil {
			return fmt.Errorf("inherit[%d]: %w", i, err)
		}
	}

	c.Inherit = append(c.Inherit, refs...)

	return nil
}

// SetEnv sets variables from NAME=value pairs. They take precedence over
// anything inherited.
func (c *Command) SetEnv(pairs ...string) {
	if c.env == nil {
		c.env = map[string]string{}
	}

	maps.Copy(c.env, parseEnv(pairs))
}

// Environ constructs the sorted environment for the child process.
func (c *Command) Environ() []string {
	envMap := make(map[string]string)

	for key, value := range c.baseEnv {
		if slices.Contains(essentialVars, key) {
			envMap[key] = value

			continue
		}

		for _, ref := range c.Inherit {
			if ref != nil && ref.Matches(key) {
				envMap[key] = value

				break
			}
		}
	}

	// Explicit values are applied last, including empty ones.
	maps.Copy(envMap, c.env)

	env := make([]string, 0, len(envMap))
	for _, key := range slices.Sorted(maps.Keys(envMap)) {
		env = append(env, key+"="+envMap[key])
	}

	return env
}

func (c *Command) String() string {
	if len(c.Args) == 0 {
		return c.Name
	}

	return fmt.Sprintf("%s %s", c.Name, strings.Join(c.Args, " "))
}

func parseEnv(pairs []string) map[string]string {
	m := make(map[string]string, len(pairs))

	for _, pair := range pairs {
		if key, value, ok := strings.Cut(pair, "="); ok && key != "" {
			m[key] = value
		}
	}

	return m
}
