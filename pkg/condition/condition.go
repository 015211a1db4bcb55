// Package condition parses and evaluates natural-language conditions such as
// "extension is md AND yaml includes draft".
//
// A condition is a chain of terms joined by the connectives AND, OR, NOT and
// AND NOT (or &&, ||, !! and && !!). Parenthesized groups are evaluated first,
// innermost to outermost. The chain is then folded left to right without
// operator precedence:
//
//   - AND: true only if both the running result and the term are true.
//   - OR: true immediately if either the running result or the term is true.
//   - NOT: always false. Use AND NOT to negate a term.
//   - AND NOT: true if the running result is true and the term is false.
//
// "A AND B OR C" is therefore folded as ((A AND B) OR C).
package condition

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// ErrUnbalancedParens is returned when a condition has a parenthesis without
// a partner.
var ErrUnbalancedParens = errors.New("unbalanced parentheses")

// Connective joins two terms of a condition.
type Connective int

const (
	connectiveNone Connective = iota
	And
	Or
	Not
	AndNot
)

func (c Connective) String() string {
	switch c {
	case And:
		return "and"
	case Or:
		return "or"
	case Not:
		return "not"
	case AndNot:
		return "and_not"
	case connectiveNone:
	}

	return "none"
}

var (
	reGroup = regexp.MustCompile(`\(([^()]*)\)`)
	reSplit = regexp.MustCompile(` (AND NOT|AND !!|&& NOT|&& !!|AND|OR|NOT|&&|\|\||!!) `)
)

// ParseConnective maps a connective keyword or symbol to a [Connective].
func ParseConnective(s string) (Connective, bool) {
	switch s {
	case "AND NOT", "AND !!", "&& NOT", "&& !!":
		return AndNot, true
	case "AND", "&&":
		return And, true
	case "OR", "||":
		return Or, true
	case "NOT", "!!":
		return Not, true
	}

	return connectiveNone, false
}

// Evaluate evaluates cond against text and the evaluator's environment.
func (e *Evaluator) Evaluate(cond, text string) (bool, error) {
	resolved, err := e.resolveGroups(cond, text)
	if err != nil {
		return false, fmt.Errorf("%q: %w", cond, err)
	}

	return e.fold(resolved, text), nil
}

// IsTrue evaluates cond, treating malformed conditions as false.
func (e *Evaluator) IsTrue(cond, text string) bool {
	res, err := e.Evaluate(cond, text)
	if err != nil {
		e.logger.Warn("invalid condition", slog.Any("err", err))
		return false
	}

	return res
}

// Validate reports syntax errors in cond without evaluating any terms.
func Validate(cond string) error {
	s := cond
	for reGroup.MatchString(s) {
		s = reGroup.ReplaceAllLiteralString(s, "true")
	}

	if strings.ContainsAny(s, "()") {
		return fmt.Errorf("%q: %w", cond, ErrUnbalancedParens)
	}

	return nil
}

// resolveGroups replaces each parenthesized group, innermost first, with the
// literal result of evaluating it.
func (e *Evaluator) resolveGroups(cond, text string) (string, error) {
	for {
		loc := reGroup.FindStringSubmatchIndex(cond)
		if loc == nil {
			break
		}

		inner := cond[loc[2]:loc[3]]
		res := "false"
		if e.fold(inner, text) {
			res = "true"
		}

		cond = cond[:loc[0]] + res + cond[loc[1]:]
	}

	if strings.ContainsAny(cond, "()") {
		return "", ErrUnbalancedParens
	}

	return cond, nil
}

type segment struct {
	term string
	conn Connective
}

// split breaks cond into terms, each paired with the connective that
// precedes it.
func split(cond string) []segment {
	var segs []segment

	conn := connectiveNone
	last := 0

	for _, loc := range reSplit.FindAllStringSubmatchIndex(cond, -1) {
		segs = append(segs, segment{term: cond[last:loc[0]], conn: conn})
		conn, _ = ParseConnective(cond[loc[2]:loc[3]])
		last = loc[1]
	}

	return append(segs, segment{term: cond[last:], conn: conn})
}

func (e *Evaluator) fold(cond, text string) bool {
	segs := split(cond)
	if len(segs) == 1 {
		return e.EvaluateTerm(ParseTerm(segs[0].term), text)
	}

	prev := false
	res := false

	for _, seg := range segs {
		r := e.EvaluateTerm(ParseTerm(seg.term), text)

		switch seg.conn {
		case And:
			res = r && prev
		case Or:
			if r || prev {
				return true
			}

			res = r
		case Not:
			// Never true: a false term after a false result stays false.
			res = false
		case AndNot:
			res = prev && !r
		case connectiveNone:
			res = r
		}

		prev = res
	}

	return res
}
