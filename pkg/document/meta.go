// Package document provides accessors for Markdown document text: front
// matter detection, extraction and mutation, title discovery and header
// manipulation.
//
// All functions are pure: they take the current text and return a new one.
package document

import (
	"regexp"
	"strings"

	goyaml "github.com/goccy/go-yaml"

	"github.com/macropower/conductor/pkg/yaml"
)

// MetaType is the style of metadata found at the top of a document.
type MetaType int

const (
	MetaNone MetaType = iota
	MetaYAML
	MetaMMD
	MetaPandoc
)

func (m MetaType) String() string {
	switch m {
	case MetaYAML:
		return "yaml"
	case MetaMMD:
		return "mmd"
	case MetaPandoc:
		return "pandoc"
	case MetaNone:
		return "none"
	}

	return "none"
}

var (
	reYAMLOpen   = regexp.MustCompile(`^--- *$`)
	reYAMLClose  = regexp.MustCompile(`^(\.\.\.|---) *$`)
	reMMDLine    = regexp.MustCompile(`^ *[ \w]+: +\S+`)
	rePandocLine = regexp.MustCompile(`^% +\S`)
	reHeaderLine = regexp.MustCompile(`^ *([\w ]+?): *(\S.*)$`)
)

// Lines splits text on newlines.
func Lines(text string) []string {
	return strings.Split(text, "\n")
}

// DetectMeta reports the metadata style used by the first line of text.
func DetectMeta(text string) MetaType {
	first, _, _ := strings.Cut(text, "\n")

	switch {
	case reYAMLOpen.MatchString(first):
		return MetaYAML
	case reMMDLine.MatchString(first):
		return MetaMMD
	case rePandocLine.MatchString(first):
		return MetaPandoc
	}

	return MetaNone
}

// MetaInsertPoint returns the line index that ends the metadata block: the
// closing delimiter for YAML, or the first non-metadata line for MMD and
// Pandoc blocks. It returns 0 when there is no metadata.
func MetaInsertPoint(text string) int {
	lines := Lines(text)

	switch DetectMeta(text) {
	case MetaYAML:
		for i := 1; i < len(lines); i++ {
			if reYAMLClose.MatchString(lines[i]) {
				return i
			}
		}

	case MetaMMD:
		for i, line := range lines {
			if !reMMDLine.MatchString(line) {
				return i
			}
		}

		return len(lines)

	case MetaPandoc:
		for i, line := range lines {
			if !rePandocLine.MatchString(line) {
				return i
			}
		}

		return len(lines)

	case MetaNone:
	}

	return 0
}

// FrontMatter returns the body of a YAML front matter block, without its
// delimiters.
func FrontMatter(text string) (string, bool) {
	if DetectMeta(text) != MetaYAML {
		return "", false
	}

	end := MetaInsertPoint(text)
	if end == 0 {
		return "", false
	}

	lines := Lines(text)

	return strings.Join(lines[1:end], "\n"), true
}

// ParseYAML decodes the YAML front matter of text. It returns false when
// there is no front matter, or when it is malformed or not a mapping.
func ParseYAML(text string) (map[string]any, bool) {
	fm, ok := FrontMatter(text)
	if !ok {
		return nil, false
	}

	var m map[string]any

	err := yaml.Unmarshal([]byte(fm), &m)
	if err != nil || m == nil {
		return nil, false
	}

	return m, true
}

// YAMLValue looks up key in the YAML front matter of text. Keys are matched
// exactly first, then case-insensitively; dotted keys such as "author.name"
// are resolved as a YAML path. Null values are reported as missing.
func YAMLValue(text, key string) (any, bool) {
	m, ok := ParseYAML(text)
	if !ok {
		return nil, false
	}

	if v, ok := m[key]; ok {
		return v, v != nil
	}

	for k, v := range m {
		if strings.EqualFold(k, key) {
			return v, v != nil
		}
	}

	if !strings.Contains(key, ".") {
		return nil, false
	}

	path, err := goyaml.PathString("$." + key)
	if err != nil {
		return nil, false
	}

	fm, _ := FrontMatter(text)

	var v any

	err = path.Read(strings.NewReader(fm), &v)
	if err != nil || v == nil {
		return nil, false
	}

	return v, true
}

// Headers returns the simple "key: value" metadata block at the top of
// text. Keys are lowercased with spaces removed.
func Headers(text string) map[string]string {
	headers := map[string]string{}

	for _, line := range Lines(text) {
		m := reHeaderLine.FindStringSubmatch(line)
		if m == nil {
			break
		}

		headers[NormalizeKey(m[1])] = strings.TrimSpace(m[2])
	}

	return headers
}

// NormalizeKey lowercases key and removes spaces.
func NormalizeKey(key string) string {
	return strings.ToLower(strings.ReplaceAll(key, " ", ""))
}

// HasPandocTitle reports whether text starts with a Pandoc title block.
func HasPandocTitle(text string) bool {
	return DetectMeta(text) == MetaPandoc
}

// InjectAfterMeta inserts content, followed by a blank line, after any
// metadata block at the top of text.
func InjectAfterMeta(text, content string) string {
	at := 0
	if ip := MetaInsertPoint(text); ip > 0 {
		at = ip + 1
	}

	return InsertLine(text, at, content+"\n")
}

// InsertLine inserts line before the line at index at. Indexes past the end
// append.
func InsertLine(text string, at int, line string) string {
	lines := Lines(text)
	at = max(0, min(at, len(lines)))

	out := make([]string, 0, len(lines)+1)
	out = append(out, lines[:at]...)
	out = append(out, line)
	out = append(out, lines[at:]...)

	return strings.Join(out, "\n")
}
