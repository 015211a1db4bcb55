package document

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	reH1        = regexp.MustCompile(`^(# *[^#]|={2,} *$)`)
	reH2        = regexp.MustCompile(`^(## *[^#]|-{2,} *$)`)
	reATX       = regexp.MustCompile(`^(#{1,6})([^#].*)$`)
	reSetext    = regexp.MustCompile(`^[=-]{2,} *$`)
	reParagraph = regexp.MustCompile(`^\S.+$`)
	reHashes    = regexp.MustCompile(`(?m)^(#{1,6})`)
	reTooDeep   = regexp.MustCompile(`(?m)^#{7,}`)
)

// Position names a place in a document to insert content.
type Position int

const (
	PositionStart Position = iota
	PositionH1
	PositionH2
	PositionEnd
)

// ParsePosition maps "h1", "h2", "end" (or "bottom") and "start" (or
// "top") to a [Position].
func ParsePosition(s string) (Position, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "start", "top", "beginning":
		return PositionStart, true
	case "h1":
		return PositionH1, true
	case "h2":
		return PositionH2, true
	case "end", "bottom":
		return PositionEnd, true
	}

	return PositionStart, false
}

// FirstH1 returns the line index of the first level one header.
func FirstH1(text string) (int, bool) {
	for i, line := range Lines(text) {
		if reH1.MatchString(line) {
			return i, true
		}
	}

	return 0, false
}

// FirstH2 returns the line index of the first level two header following
// any metadata block.
func FirstH2(text string) (int, bool) {
	metaEnd := MetaInsertPoint(text)

	for i, line := range Lines(text) {
		if i <= metaEnd {
			continue
		}

		if reH2.MatchString(line) {
			return i, true
		}
	}

	return 0, false
}

// insertIndex returns the line index that content placed at pos is inserted
// before.
func insertIndex(text string, pos Position) int {
	switch pos {
	case PositionH1:
		if i, ok := FirstH1(text); ok {
			return i + 1
		}

		return 0
	case PositionH2:
		if i, ok := FirstH2(text); ok {
			return i + 1
		}

		return 0
	case PositionEnd:
		return len(Lines(text))
	case PositionStart:
	}

	if ip := MetaInsertPoint(text); ip > 0 {
		return ip + 1
	}

	return 0
}

// InsertAt inserts content as its own block at pos.
func InsertAt(text, content string, pos Position) string {
	switch pos {
	case PositionStart:
		return InjectAfterMeta(text, content)
	case PositionEnd:
		return text + "\n\n" + content + "\n"
	case PositionH1, PositionH2:
	}

	return InsertLine(text, insertIndex(text, pos), "\n"+content+"\n")
}

// InsertTOC inserts a table of contents marker. Depths below one leave the
// depth unset.
func InsertTOC(text string, depth int, pos Position) string {
	marker := "<!--toc-->"
	if depth > 0 {
		marker = fmt.Sprintf("<!--toc max%d-->", depth)
	}

	return InsertLine(text, insertIndex(text, pos), "\n"+marker+"\n")
}

// DecreaseHeaders promotes every header by amount levels, stopping at level
// one.
func DecreaseHeaders(text string, amount int) string {
	return reHashes.ReplaceAllStringFunc(text, func(m string) string {
		return strings.Repeat("#", max(1, len(m)-amount))
	})
}

// IncreaseHeaders demotes every header by amount levels, stopping at level
// six.
func IncreaseHeaders(text string, amount int) string {
	out := reHashes.ReplaceAllStringFunc(text, func(m string) string {
		return strings.Repeat("#", len(m)+amount)
	})

	return reTooDeep.ReplaceAllString(out, "######")
}

// NormalizeHeaders converts Setext headers to ATX headers. Headers inside
// front matter are left alone.
func NormalizeHeaders(text string) string {
	lines := Lines(text)
	start := 0

	if DetectMeta(text) == MetaYAML {
		start = MetaInsertPoint(text) + 1
	}

	for i := start; i+1 < len(lines); i++ {
		if !reParagraph.MatchString(lines[i]) || !reSetext.MatchString(lines[i+1]) {
			continue
		}
		if i > start && strings.TrimSpace(lines[i-1]) != "" {
			continue
		}

		prefix := "## "
		if lines[i+1][0] == '=' {
			prefix = "# "
		}

		lines[i] = prefix + strings.TrimSpace(lines[i])
		lines[i+1] = ""
	}

	return strings.Join(lines, "\n")
}

type header struct {
	line  int
	level int
	title string
}

func headers(lines []string) []header {
	var hs []header

	for i, line := range lines {
		m := reATX.FindStringSubmatch(line)
		if m == nil {
			continue
		}

		hs = append(hs, header{line: i, level: len(m[1]), title: strings.TrimSpace(m[2])})
	}

	return hs
}

func (h header) String() string {
	return strings.Repeat("#", h.level) + " " + h.title
}

// EnsureH1 promotes headers so that the document has a level one header,
// when it has no level one header already.
func EnsureH1(text string) string {
	lines := Lines(text)
	hs := headers(lines)

	if len(hs) == 0 {
		return text
	}

	top := hs[0]
	for _, h := range hs {
		if h.level == 1 {
			return text
		}
		if h.level < top.level {
			top = h
		}
	}

	return DecreaseHeaders(strings.Join(lines, "\n"), top.level-1)
}

// FixHeaders keeps the first level one header and demotes every other
// header by one level, unless the document has exactly one level one header.
func FixHeaders(text string) string {
	lines := Lines(text)
	hs := headers(lines)

	h1s := 0
	for _, h := range hs {
		if h.level == 1 {
			h1s++
		}
	}

	if h1s == 1 {
		return text
	}

	first := true
	for _, h := range hs {
		if h.level == 1 && first {
			first = false
			continue
		}

		h.level = min(h.level+1, 6)
		lines[h.line] = h.String()
	}

	return strings.Join(lines, "\n")
}

// FixHierarchy normalizes headers to ATX style, ensures a single level one
// header, and closes gaps so no header is more than one level below the
// header before it.
func FixHierarchy(text string) string {
	text = FixHeaders(EnsureH1(NormalizeHeaders(text)))
	lines := Lines(text)
	last := 0

	for _, h := range headers(lines) {
		if h.level > last+1 {
			h.level = last + 1
		}

		lines[h.line] = h.String()
		last = h.level
	}

	return strings.Join(lines, "\n")
}
