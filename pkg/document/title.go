package document

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	reSlugExt    = regexp.MustCompile(`(?i)\.[a-z]+$`)
	reSlugDate   = regexp.MustCompile(`-?\d{4}-\d{2}-\d{2}-?`)
	reSlugDot    = regexp.MustCompile(`\bdot\b`)
	reMMDTitle   = regexp.MustCompile(`(?im)^ *title: *(\S.*?) *$`)
	rePandocHead = regexp.MustCompile(`^% +(.*?) *$`)
	reAnyTitle   = regexp.MustCompile(`(?im)title: *(\S.*?) *$`)
)

// TitleFromSlug derives a title from a file name such as
// "2024-04-01-hello-world.md".
func TitleFromSlug(path string) string {
	s := reSlugExt.ReplaceAllString(filepath.Base(path), "")
	s = reSlugDate.ReplaceAllString(s, "")
	s = reSlugDot.ReplaceAllString(s, ".")
	s = strings.ReplaceAll(s, " dash ", "-")
	s = strings.ReplaceAll(s, "-", " ")

	return cases.Title(language.English).String(strings.TrimSpace(s))
}

// ReadTitle finds the title of a document from its metadata, falling back
// to the file name.
func ReadTitle(text, path string) string {
	switch DetectMeta(text) {
	case MetaYAML:
		if v, ok := YAMLValue(text, "title"); ok {
			return fmt.Sprint(v)
		}

	case MetaMMD:
		if m := reMMDTitle.FindStringSubmatch(text); m != nil {
			return m[1]
		}

	case MetaPandoc:
		first, _, _ := strings.Cut(text, "\n")
		if m := rePandocHead.FindStringSubmatch(first); m != nil {
			return m[1]
		}

	case MetaNone:
		if m := reAnyTitle.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}

	return TitleFromSlug(path)
}

// InsertTitle adds a level one header with the document title below any
// metadata, first demoting existing headers by shift levels.
func InsertTitle(text, path string, shift int) string {
	title := ReadTitle(text, path)
	if shift > 0 {
		text = IncreaseHeaders(text, shift)
	}

	return InjectAfterMeta(text, "# "+title)
}
