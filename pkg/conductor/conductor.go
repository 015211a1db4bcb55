// Package conductor walks a tree of tracks, running the actions of every
// track whose condition matches the current document text.
//
// Tracks are evaluated in order and the first match wins, unless the
// matching track sets continue. A matching track's actions run in order,
// each receiving the previous action's output, and its child tracks are then
// evaluated against the result.
package conductor

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/macropower/conductor/pkg/action"
	"github.com/macropower/conductor/pkg/condition"
	"github.com/macropower/conductor/pkg/env"
	"github.com/macropower/conductor/pkg/expr"
	"github.com/macropower/conductor/pkg/log"
	"github.com/macropower/conductor/pkg/track"
)

// NoChange is the message reported when the output equals the input.
const NoChange = "No change in output"

const (
	sepContinue = " -> "
	sepStop     = ", "
)

// Executor runs a single action against the current text.
type Executor interface {
	Run(ctx context.Context, a action.Action, input string, ec *env.Context) (string, error)
}

// Result is the outcome of [Conductor.Conduct].
type Result struct {
	// Text is the transformed document. Empty when Changed is false.
	Text string
	// Trail lists the matched tracks in order, each with its separator.
	Trail []string
	// Changed reports whether Text differs from the input.
	Changed bool
}

// Message returns [NoChange] when the output is unchanged, and the formatted
// trail otherwise.
func (r *Result) Message() string {
	if !r.Changed {
		return NoChange
	}

	return FormatTrail(r.Trail)
}

// FormatTrail joins trail entries and trims the trailing separator.
func FormatTrail(trail []string) string {
	s := strings.Join(trail, "")
	s = strings.TrimSuffix(s, sepContinue)
	s = strings.TrimSuffix(s, sepStop)

	return s
}

// Conductor evaluates tracks for one document.
type Conductor struct {
	exec   Executor
	ec     *env.Context
	eval   *condition.Evaluator
	env    *expr.Environment
	logger *slog.Logger
	tracer trace.Tracer
}

// Opt configures a [Conductor].
type Opt func(*Conductor)

// WithLogger sets the logger. Defaults to [slog.Default].
func WithLogger(logger *slog.Logger) Opt {
	return func(c *Conductor) {
		c.logger = logger
	}
}

// WithTracer sets the tracer used for per-run and per-track spans.
func WithTracer(tracer trace.Tracer) Opt {
	return func(c *Conductor) {
		c.tracer = tracer
	}
}

// WithEnvironment sets the CEL environment used for match expressions that
// were not compiled ahead of time.
func WithEnvironment(e *expr.Environment) Opt {
	return func(c *Conductor) {
		c.env = e
	}
}

// New creates a new [Conductor]. A nil context is treated as empty.
func New(exec Executor, ec *env.Context, opts ...Opt) *Conductor {
	if ec == nil {
		ec = &env.Context{}
	}

	c := &Conductor{
		exec:   exec,
		ec:     ec,
		logger: slog.Default(),
		tracer: otel.Tracer("conductor"),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.eval = condition.NewEvaluator(ec, condition.WithLogger(c.logger))

	return c
}

// walk holds the state of one [Conductor.Conduct] call.
type walk struct {
	original string
	trail    []string
}

// Conduct walks tracks against input. Executor errors abort the walk.
func (c *Conductor) Conduct(ctx context.Context, tracks []*track.Track, input string) (*Result, error) {
	ctx, span := c.tracer.Start(ctx, "conduct", trace.WithAttributes(
		attribute.Int("tracks", len(tracks)),
		attribute.Int("input.bytes", len(input)),
	))
	defer span.End()

	w := &walk{original: input}

	out, unchanged, err := c.conduct(ctx, w, tracks, input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "conduct failed")

		return nil, err
	}

	logger := log.WithContext(ctx)

	if unchanged || out == input {
		logger.DebugContext(ctx, "no change",
			slog.String("trail", FormatTrail(w.trail)),
		)

		return &Result{Trail: w.trail}, nil
	}

	logger.DebugContext(ctx, "conducted",
		slog.String("trail", FormatTrail(w.trail)),
		slog.String("in", humanize.Bytes(uint64(len(input)))),
		slog.String("out", humanize.Bytes(uint64(len(out)))),
	)

	return &Result{Text: out, Trail: w.trail, Changed: true}, nil
}

// conduct walks one level of the tree. It reports unchanged when a child
// walk produced the original input, which ends the whole walk.
func (c *Conductor) conduct(ctx context.Context, w *walk, tracks []*track.Track, text string) (string, bool, error) {
	for _, t := range tracks {
		if t == nil {
			continue
		}

		if !c.matches(ctx, t, text) {
			continue
		}

		if t.Continue {
			w.trail = append(w.trail, t.Name()+sepContinue)
		} else {
			w.trail = append(w.trail, t.Name()+sepStop)
		}

		out, err := c.run(ctx, t, text)
		if err != nil {
			return "", false, fmt.Errorf("run track %q: %w", t.Name(), err)
		}

		text = out

		if len(t.Tracks) > 0 {
			out, unchanged, err := c.conduct(ctx, w, t.Tracks, text)
			if err != nil {
				return "", false, err
			}
			if unchanged || out == w.original {
				return w.original, true, nil
			}

			text = out
		}

		if !t.Continue {
			break
		}
	}

	return text, false, nil
}

// run executes the actions of t in order, threading text through them.
func (c *Conductor) run(ctx context.Context, t *track.Track, text string) (string, error) {
	actions := t.Actions()

	ctx, span := c.tracer.Start(ctx, "track", trace.WithAttributes(
		attribute.String("track", t.Name()),
		attribute.Int("actions", len(actions)),
	))
	defer span.End()

	for _, a := range actions {
		log.WithContext(ctx).DebugContext(ctx, "run action",
			slog.String("track", t.Name()),
			slog.String("action", a.String()),
		)

		out, err := c.exec.Run(ctx, a, text, c.ec)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "action failed")

			return "", err
		}

		text = out
	}

	return text, nil
}

// matches reports whether t's condition and match expression both hold.
// Malformed conditions and failing expressions are logged and treated as
// false.
func (c *Conductor) matches(ctx context.Context, t *track.Track, text string) bool {
	if t.Condition != "" {
		ok, err := c.eval.Evaluate(t.Condition, text)
		if err != nil {
			c.logger.WarnContext(ctx, "invalid condition",
				slog.String("track", t.Name()),
				slog.Any("err", err),
			)

			return false
		}
		if !ok {
			return false
		}
	}

	if t.Match == "" {
		return t.Condition != ""
	}

	m := t.MatchExpr()
	if m == nil {
		e := c.env
		if e == nil {
			e = expr.DefaultEnvironment()
		}

		var err error

		m, err = e.Compile(t.Match)
		if err != nil {
			c.logger.WarnContext(ctx, "invalid match expression",
				slog.String("track", t.Name()),
				slog.Any("err", err),
			)

			return false
		}
	}

	ok, err := m.Eval(expr.Vars(c.ec, text))
	if err != nil {
		c.logger.WarnContext(ctx, "evaluate match expression",
			slog.String("track", t.Name()),
			slog.Any("err", err),
		)

		return false
	}

	return ok
}
