package condition

import (
	"regexp"
	"strings"

	"github.com/macropower/conductor/pkg/operator"
)

// Term is a single (field, operator, comparand) test within a condition.
type Term struct {
	Field    string
	Value    string
	Op       operator.Kind
	HasValue bool
	HasOp    bool
}

// FieldKind identifies the attribute a [Term] tests.
type FieldKind int

const (
	FieldUnknown FieldKind = iota
	FieldExtension
	FieldTree
	FieldPath
	FieldFilename
	FieldPhase
	FieldText
	FieldYAML
	FieldMeta
	FieldPandoc
	FieldIncludes
)

var fieldNames = map[FieldKind]string{
	FieldUnknown:   "unknown",
	FieldExtension: "extension",
	FieldTree:      "tree",
	FieldPath:      "path",
	FieldFilename:  "filename",
	FieldPhase:     "phase",
	FieldText:      "text",
	FieldYAML:      "yaml",
	FieldMeta:      "meta",
	FieldPandoc:    "pandoc",
	FieldIncludes:  "includes",
}

func (f FieldKind) String() string {
	if s, ok := fieldNames[f]; ok {
		return s
	}

	return "unknown"
}

const opPattern = `(?:does )?not (?:ha(?:s|ve)|contains?|includes?|match(?:es)?|ends? with|(?:starts?|begins?) with|suffix|prefix)` +
	`|(?:is )?(?:greater|less)(?: than)?` +
	`|(?:is )?(?:before|after)` +
	`|(?:is|does)(?: not)?(?: an?| type(?: of)?| equals?(?: to)?)?` +
	`|!==?|==?|[gl]t|<|>|\*=|\^=|\$=` +
	`|(?:starts?|begins?|ends?) with` +
	`|(?:ha(?:s|ve) )?(?:prefix|suffix)` +
	`|ha(?:s|ve)|contains?|includes?|match(?:es)?|equals?`

var (
	rePresence = regexp.MustCompile(`(?i)^(?:((?:does )?not) +)?(?:(?:ha(?:s|ve)|contains?|includes?) +)?` +
		`(yaml|headers|frontmatter|mmd|meta(?:data)?|pandoc)(:\S+)?$`)
	reTerm     = regexp.MustCompile(`(?i)^(.*?)(?: +(` + opPattern + `) +(.*?))?$`)
	reCatchAll = regexp.MustCompile(`(?i)^(true|any|all|else|\*+|catch(all)?)$`)

	fieldPatterns = []struct {
		re   *regexp.Regexp
		kind FieldKind
	}{
		{re: regexp.MustCompile(`(?i)^ext`), kind: FieldExtension},
		{re: regexp.MustCompile(`(?i)^(tree|parent)`), kind: FieldTree},
		{re: regexp.MustCompile(`(?i)^(path|dir)`), kind: FieldPath},
		{re: regexp.MustCompile(`(?i)^(file)?name`), kind: FieldFilename},
		{re: regexp.MustCompile(`(?i)^phase`), kind: FieldPhase},
		{re: regexp.MustCompile(`(?i)^text`), kind: FieldText},
		{re: regexp.MustCompile(`(?i)^(?:yaml|headers|frontmatter)(?::(.*))?$`), kind: FieldYAML},
		{re: regexp.MustCompile(`(?i)^(?:mmd|meta(?:data)?)(?::(.*))?$`), kind: FieldMeta},
		{re: regexp.MustCompile(`(?i)^pandoc`), kind: FieldPandoc},
		{re: regexp.MustCompile(`(?i)^includes?$`), kind: FieldIncludes},
	}
)

// ParseTerm splits s into its field, operator and comparand.
func ParseTerm(s string) Term {
	s = strings.TrimSpace(s)

	if m := rePresence.FindStringSubmatch(s); m != nil {
		op := operator.Contains
		if m[1] != "" {
			op = operator.NotContains
		}

		return Term{
			Field: presenceField(m[2]) + m[3],
			Op:    op,
			HasOp: true,
		}
	}

	m := reTerm.FindStringSubmatch(s)
	if m == nil || m[2] == "" {
		return Term{Field: s}
	}

	t := Term{Field: m[1], Value: unquote(m[3]), HasValue: true}
	t.Op, t.HasOp = operator.Classify(m[2])

	return t
}

func presenceField(s string) string {
	switch strings.ToLower(s[:1]) {
	case "m":
		return "mmd"
	case "p":
		return "pandoc"
	}

	return "yaml"
}

func unquote(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && (s[0] == '"' || s[0] == '\'') && s[len(s)-1] == s[0] {
		return s[1 : len(s)-1]
	}

	return s
}

// ParseField resolves the field of a term. For YAML and meta fields, key is
// the text following the colon, if any.
func ParseField(field string) (kind FieldKind, key string) {
	field = strings.TrimSpace(field)

	for _, p := range fieldPatterns {
		m := p.re.FindStringSubmatch(field)
		if m == nil {
			continue
		}

		if (p.kind == FieldYAML || p.kind == FieldMeta) && len(m) > 1 {
			key = m[1]
		}

		return p.kind, key
	}

	return FieldUnknown, ""
}

// IsCatchAll reports whether field is one of the keywords that match
// unconditionally.
func IsCatchAll(field string) bool {
	return reCatchAll.MatchString(strings.TrimSpace(field))
}
