// Package operator classifies natural-language comparison phrases into a
// closed set of operator kinds.
package operator

import (
	"regexp"
	"strings"
)

// Kind is a comparison operator used by condition terms.
//
// The zero value is not a valid operator. Values are only produced by
// [Classify].
type Kind int

const (
	GreaterThan Kind = iota + 1
	LessThan
	Contains
	NotContains
	StartsWith
	NotStartsWith
	EndsWith
	NotEndsWith
	TypeOf
	NotTypeOf
	Equal
	NotEqual
)

var names = map[Kind]string{
	GreaterThan:   "gt",
	LessThan:      "lt",
	Contains:      "contains",
	NotContains:   "not_contains",
	StartsWith:    "starts_with",
	NotStartsWith: "not_starts_with",
	EndsWith:      "ends_with",
	NotEndsWith:   "not_ends_with",
	TypeOf:        "type_of",
	NotTypeOf:     "not_type_of",
	Equal:         "equal",
	NotEqual:      "not_equal",
}

// All lists every operator kind in classification priority order.
var All = []Kind{
	GreaterThan,
	LessThan,
	NotEndsWith,
	NotStartsWith,
	EndsWith,
	StartsWith,
	NotContains,
	Contains,
	NotTypeOf,
	TypeOf,
	NotEqual,
	Equal,
}

type rule struct {
	re   *regexp.Regexp
	kind Kind
}

// Phrases overlap, so the most specific phrasing must come first:
// "is not a" before "is", "not ends with" before "ends with".
var rules = []rule{
	{regexp.MustCompile(`(?i)(gt|greater( than)?|>|(is )?after)`), GreaterThan},
	{regexp.MustCompile(`(?i)(lt|less( than)?|<|(is )?before)`), LessThan},
	{regexp.MustCompile(`(?i)not (ha(s|ve) )?(suffix|ends? with)`), NotEndsWith},
	{regexp.MustCompile(`(?i)not (ha(s|ve) )?(prefix|(starts?|begins?) with)`), NotStartsWith},
	{regexp.MustCompile(`(?i)(suffix|ends? with|\$=)`), EndsWith},
	{regexp.MustCompile(`(?i)(prefix|(starts?|begins?) with|\^=)`), StartsWith},
	{regexp.MustCompile(`(?i)not (ha(s|ve)|contains?|includes?|match(es)?)`), NotContains},
	{regexp.MustCompile(`(?i)(ha(s|ve)|contains?|includes?|match(es)?|\*=)`), Contains},
	{regexp.MustCompile(`(?i)is not (an?|type( of)?)`), NotTypeOf},
	{regexp.MustCompile(`(?i)is (an?|type( of)?)`), TypeOf},
	{regexp.MustCompile(`(?i)(((is|does) )?not( equals?)?|!==?)`), NotEqual},
	{regexp.MustCompile(`(?i)(is|==?|equals?)`), Equal},
}

// Classify maps a comparison phrase such as "is not", "greater than" or
// "starts with" to its [Kind]. It returns false when the phrase is not
// recognized.
func Classify(phrase string) (Kind, bool) {
	phrase = strings.Join(strings.Fields(phrase), " ")
	if phrase == "" {
		return 0, false
	}

	for _, r := range rules {
		if r.re.MatchString(phrase) {
			return r.kind, true
		}
	}

	return 0, false
}

// Negated reports whether k is the negated form of another kind.
func (k Kind) Negated() bool {
	switch k {
	case NotContains, NotStartsWith, NotEndsWith, NotTypeOf, NotEqual:
		return true
	case GreaterThan, LessThan, Contains, StartsWith, EndsWith, TypeOf, Equal:
		return false
	}

	return false
}

func (k Kind) String() string {
	if s, ok := names[k]; ok {
		return s
	}

	return "unknown"
}
