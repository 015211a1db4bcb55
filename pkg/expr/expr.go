package expr

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/macropower/conductor/pkg/document"
	"github.com/macropower/conductor/pkg/env"
)

// ErrNotBool is returned when a match expression does not produce a bool.
var ErrNotBool = errors.New("expression must return a bool")

// Protect CEL environment creation and compilation from concurrent access.
var celMutex sync.Mutex

// Environment provides a thread-safe wrapper around a [*cel.Env].
type Environment struct {
	env *cel.Env
}

// NewEnvironment creates a new [Environment] declaring the document
// variables, plus any extra options.
func NewEnvironment(opts ...cel.EnvOption) (*Environment, error) {
	celMutex.Lock()
	defer celMutex.Unlock()

	opts = append([]cel.EnvOption{
		cel.Variable("home", cel.StringType),
		cel.Variable("css_path", cel.StringType),
		cel.Variable("ext", cel.StringType),
		cel.Variable("filename", cel.StringType),
		cel.Variable("filepath", cel.StringType),
		cel.Variable("origin", cel.StringType),
		cel.Variable("phase", cel.StringType),
		cel.Variable("outline", cel.StringType),
		cel.Variable("includes", cel.ListType(cel.StringType)),
		cel.Variable("text", cel.StringType),
		cel.Variable("meta", cel.MapType(cel.StringType, cel.DynType)),
		cel.Lib(&lib{}),
	}, opts...)

	celEnv, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, fmt.Errorf("create CEL environment: %w", err)
	}

	return &Environment{env: celEnv}, nil
}

// MustNewEnvironment creates a new [Environment] and panics on error.
func MustNewEnvironment(opts ...cel.EnvOption) *Environment {
	env, err := NewEnvironment(opts...)
	if err != nil {
		panic(err)
	}

	return env
}

var (
	defaultEnv     *Environment
	defaultEnvOnce sync.Once
)

// DefaultEnvironment returns a shared [Environment] with no extra options.
func DefaultEnvironment() *Environment {
	defaultEnvOnce.Do(func() {
		defaultEnv = MustNewEnvironment()
	})

	return defaultEnv
}

// Match is a compiled match expression.
type Match struct {
	program cel.Program
	source  string
}

// Compile compiles a match expression. It fails unless the expression's
// output type is bool.
func (e *Environment) Compile(expression string) (*Match, error) {
	celMutex.Lock()
	defer celMutex.Unlock()

	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile expression: %w", issues.Err())
	}

	if !ast.OutputType().IsExactType(cel.BoolType) && !ast.OutputType().IsExactType(cel.DynType) {
		return nil, fmt.Errorf("%w, got %s", ErrNotBool, ast.OutputType())
	}

	program, err := e.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("create program: %w", err)
	}

	return &Match{program: program, source: expression}, nil
}

// Eval evaluates the expression against vars, as returned by [Vars].
func (m *Match) Eval(vars map[string]any) (bool, error) {
	out, _, err := m.program.Eval(vars)
	if err != nil {
		return false, fmt.Errorf("evaluate expression: %w", err)
	}

	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("%w, got %T", ErrNotBool, out.Value())
	}

	return b, nil
}

func (m *Match) String() string {
	return m.source
}

// Vars builds the variables for a match expression from the processing
// environment and the current text.
func Vars(ec *env.Context, text string) map[string]any {
	if ec == nil {
		ec = &env.Context{}
	}

	vars := ec.Vars()
	vars["text"] = text
	vars["meta"] = meta(text)

	return vars
}

func meta(text string) map[string]any {
	if m, ok := document.ParseYAML(text); ok {
		return m
	}

	out := map[string]any{}
	for k, v := range document.Headers(text) {
		out[k] = v
	}

	return out
}
