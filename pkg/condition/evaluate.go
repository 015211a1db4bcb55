package condition

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/macropower/conductor/pkg/document"
	"github.com/macropower/conductor/pkg/env"
	"github.com/macropower/conductor/pkg/operator"
)

// Evaluator evaluates conditions against an [env.Context] and the current
// document text.
type Evaluator struct {
	ec     *env.Context
	logger *slog.Logger
}

// EvaluatorOpt configures an [Evaluator].
type EvaluatorOpt func(*Evaluator)

// WithLogger sets the logger used for parse warnings and debug output.
func WithLogger(logger *slog.Logger) EvaluatorOpt {
	return func(e *Evaluator) {
		e.logger = logger
	}
}

// NewEvaluator creates a new [Evaluator]. A nil context is treated as empty.
func NewEvaluator(ec *env.Context, opts ...EvaluatorOpt) *Evaluator {
	if ec == nil {
		ec = &env.Context{}
	}

	e := &Evaluator{
		ec:     ec,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// EvaluateTerm tests a single term against text and the environment.
// It never fails: unknown fields or operators evaluate to false.
func (e *Evaluator) EvaluateTerm(t Term, text string) bool {
	if !t.HasOp {
		return IsCatchAll(t.Field)
	}

	kind, key := ParseField(t.Field)

	var res bool

	switch kind {
	case FieldExtension:
		res = Compare(optional(e.ec.Ext), t.Value, t.HasValue, t.Op)
	case FieldTree:
		res = e.evaluateTree(t)
	case FieldPath:
		res = Compare(optional(e.ec.FilePath), t.Value, t.HasValue, t.Op)
	case FieldFilename:
		res = Compare(optional(e.ec.FileName), t.Value, t.HasValue, t.Op)
	case FieldPhase:
		res = Compare(optional(e.ec.Phase), t.Value, t.HasValue, operator.StartsWith)
	case FieldText:
		res = Compare(text, t.Value, t.HasValue, t.Op)
	case FieldYAML:
		res = evaluateYAML(text, key, t)
	case FieldMeta:
		res = evaluateMeta(text, key, t)
	case FieldPandoc:
		res = document.HasPandocTitle(text)
		if negatesPresence(t.Op) {
			res = !res
		}
	case FieldIncludes:
		res = evaluateIncludes(e.ec.Includes, t)
	case FieldUnknown:
	}

	e.logger.Debug("evaluated term",
		slog.String("field", kind.String()),
		slog.String("op", t.Op.String()),
		slog.String("value", t.Value),
		slog.Bool("result", res),
	)

	return res
}

func optional(s string) any {
	if s == "" {
		return nil
	}

	return s
}

func negatesPresence(op operator.Kind) bool {
	return op == operator.NotEqual || op == operator.NotContains
}

func (e *Evaluator) evaluateTree(t Term) bool {
	if !t.HasValue {
		return false
	}

	home := e.ec.Home
	if home == "" {
		home, _ = os.UserHomeDir()
	}

	res := SearchTree(e.ec.Origin, t.Value, home)
	if t.Op.Negated() {
		return !res
	}

	return res
}

// lookupFunc finds a metadata key. Missing and null keys report false.
type lookupFunc func(key string) (any, bool)

// evaluateKeyed applies the shared metadata semantics of the YAML and meta
// fields.
func evaluateKeyed(present bool, lookup lookupFunc, key string, t Term) bool {
	negate := negatesPresence(t.Op)

	if !present {
		if key != "" && t.HasValue {
			return Compare(nil, t.Value, true, t.Op)
		}

		return negate
	}

	if key != "" {
		v, found := lookup(key)
		if !t.HasValue {
			return found != negate
		}
		if !found {
			return Compare(nil, t.Value, true, t.Op)
		}

		return Compare(v, t.Value, true, t.Op)
	}

	if !t.HasValue {
		return !negate
	}

	v, found := lookup(t.Value)
	res := found
	if found {
		if b, ok := toBool(v); ok {
			res = compareBool(b, "true", operator.Equal)
		}
	}

	return res != negate
}

func evaluateYAML(text, key string, t Term) bool {
	_, ok := document.ParseYAML(text)

	return evaluateKeyed(ok, func(k string) (any, bool) {
		return document.YAMLValue(text, k)
	}, key, t)
}

func evaluateMeta(text, key string, t Term) bool {
	headers := document.Headers(text)

	return evaluateKeyed(len(headers) > 0, func(k string) (any, bool) {
		v, ok := headers[document.NormalizeKey(k)]
		if !ok {
			return nil, false
		}

		return v, true
	}, key, t)
}

func evaluateIncludes(includes []string, t Term) bool {
	if !t.HasValue {
		res := len(includes) > 0
		if negatesPresence(t.Op) {
			return !res
		}

		return res
	}

	want := strings.ToLower(t.Value)

	var match func(path string) bool

	switch t.Op {
	case operator.Contains, operator.NotContains:
		match = func(path string) bool {
			return strings.Contains(strings.ToLower(path), want)
		}
	case operator.EndsWith, operator.NotEndsWith:
		match = func(path string) bool {
			return strings.HasSuffix(strings.ToLower(filepath.Base(path)), want)
		}
	case operator.StartsWith, operator.NotStartsWith:
		match = func(path string) bool {
			return strings.HasPrefix(strings.ToLower(filepath.Base(path)), want)
		}
	case operator.Equal, operator.NotEqual:
		match = func(path string) bool {
			return strings.EqualFold(filepath.Base(path), want) || strings.EqualFold(path, want)
		}
	default:
		return false
	}

	res := false
	for _, inc := range includes {
		if match(inc) {
			res = true
			break
		}
	}

	if t.Op.Negated() {
		return !res
	}

	return res
}
