// Package filter implements the built-in text filters that a track can run
// in-process instead of calling out to a script or command.
//
// A filter is written as a name with an optional parenthesised parameter
// list, for example:
//
//	insertCSS(github, custom)
//	setMeta(author, Me)
//	insert_toc(3, h2)
//
// Names are case-insensitive and underscores are ignored.
package filter

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrInvalidFilter is returned when a filter specification cannot be parsed.
var ErrInvalidFilter = errors.New("invalid filter")

var (
	reSpec       = regexp.MustCompile(`(?i)([\w_]+)(?:\((.*?)\))?$`)
	reParamSplit = regexp.MustCompile(` *, *`)
)

// Kind identifies a built-in filter.
type Kind int

const (
	KindUnknown Kind = iota
	KindInsertStylesheet
	KindInsertCSS
	KindInsertTitle
	KindInsertScript
	KindInsertFile
	KindInsertTOC
	KindSetMeta
	KindStripMeta
	KindSetStyle
	KindReplaceAll
	KindReplace
	KindAutoLink
	KindFixHierarchy
)

var kindNames = map[Kind]string{
	KindUnknown:          "unknown",
	KindInsertStylesheet: "insertstylesheet",
	KindInsertCSS:        "insertcss",
	KindInsertTitle:      "inserttitle",
	KindInsertScript:     "insertscript",
	KindInsertFile:       "insertfile",
	KindInsertTOC:        "inserttoc",
	KindSetMeta:          "setmeta",
	KindStripMeta:        "stripmeta",
	KindSetStyle:         "setstyle",
	KindReplaceAll:       "replaceall",
	KindReplace:          "replace",
	KindAutoLink:         "autolink",
	KindFixHierarchy:     "fixhierarchy",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}

	return fmt.Sprintf("Kind(%d)", int(k))
}

// Matched in order against the normalized name. Patterns are unanchored.
var kindPatterns = []struct {
	re   *regexp.Regexp
	kind Kind
}{
	{regexp.MustCompile(`(insert|add|inject)stylesheet`), KindInsertStylesheet},
	{regexp.MustCompile(`(insert|add|inject)(css|style)`), KindInsertCSS},
	{regexp.MustCompile(`(insert|add|inject)title`), KindInsertTitle},
	{regexp.MustCompile(`(insert|add|inject)script`), KindInsertScript},
	{reInsertFile, KindInsertFile},
	{regexp.MustCompile(`inserttoc`), KindInsertTOC},
	{regexp.MustCompile(`(add|set)meta`), KindSetMeta},
	{regexp.MustCompile(`(strip|remove|delete)meta`), KindStripMeta},
	{regexp.MustCompile(`setstyle`), KindSetStyle},
	{regexp.MustCompile(`replaceall`), KindReplaceAll},
	{regexp.MustCompile(`replace$`), KindReplace},
	{regexp.MustCompile(`(auto|self)link`), KindAutoLink},
	{regexp.MustCompile(`fix(head(lines|ers)|hierarchy)`), KindFixHierarchy},
}

var reInsertFile = regexp.MustCompile(`(prepend|append|insert|inject)(raw|file|code)`)

// Names lists the canonical filter names, used for suggestions.
var Names = []string{
	"insertstylesheet",
	"insertcss",
	"inserttitle",
	"insertscript",
	"insertfile",
	"appendfile",
	"prependfile",
	"insertraw",
	"insertcode",
	"inserttoc",
	"setmeta",
	"stripmeta",
	"deletemeta",
	"setstyle",
	"replaceall",
	"replace",
	"autolink",
	"fixheaders",
	"fixhierarchy",
}

// Filter is a parsed filter specification.
type Filter struct {
	// Name is the normalized filter name.
	Name string
	// Params holds the comma separated parameters. It is nil when the
	// specification has no parentheses.
	Params []string
	Kind   Kind
}

// Parse parses a filter specification such as "insertTOC(3, h2)".
func Parse(spec string) (*Filter, error) {
	m := reSpec.FindStringSubmatch(strings.TrimSpace(spec))
	if m == nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFilter, spec)
	}

	f := &Filter{
		Name: strings.ReplaceAll(strings.ToLower(m[1]), "_", ""),
	}

	// A missing group and an empty one are indistinguishable in m.
	if strings.HasSuffix(strings.TrimSpace(spec), ")") {
		f.Params = reParamSplit.Split(strings.TrimSpace(m[2]), -1)
		if len(f.Params) == 1 && f.Params[0] == "" {
			f.Params = []string{}
		}
	}

	for _, p := range kindPatterns {
		if p.re.MatchString(f.Name) {
			f.Kind = p.kind
			break
		}
	}

	return f, nil
}

// String returns the filter in its normalized form.
func (f *Filter) String() string {
	if f.Params == nil {
		return f.Name
	}

	return f.Name + "(" + strings.Join(f.Params, ", ") + ")"
}
