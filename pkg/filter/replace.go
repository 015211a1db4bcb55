package filter

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	reSlashed  = regexp.MustCompile(`^/(.*)/([a-z]*)$`)
	reTemplate = regexp.MustCompile(`\\(\d+)|\$(\d+)|\$`)
	reURL      = regexp.MustCompile(`(?i)\b((?:[\w-]+?://)[-a-zA-Z0-9@:%._+~#=]{2,256}\b(?:[-a-zA-Z0-9@:%_+.~#?&/=]*))`)
)

// compilePattern compiles "/re/flags" as a regular expression and anything
// else as a literal. "^" and "$" always match at line boundaries. The "m" and
// "s" flags let "." match newlines.
func compilePattern(s string) (*regexp.Regexp, error) {
	m := reSlashed.FindStringSubmatch(s)
	if m == nil {
		return regexp.MustCompile("(?m)" + regexp.QuoteMeta(s)), nil
	}

	flags := "m"
	if strings.Contains(m[2], "i") {
		flags += "i"
	}
	if strings.ContainsAny(m[2], "ms") {
		flags += "s"
	}

	re, err := regexp.Compile("(?" + flags + ")" + m[1])
	if err != nil {
		return nil, fmt.Errorf("compile pattern %q: %w", s, err)
	}

	return re, nil
}

// expandTemplate converts "\1" and "$1" references to the "${1}" form used by
// [regexp.Regexp.Expand]. Any other "$" is literal.
func expandTemplate(s string) string {
	return reTemplate.ReplaceAllStringFunc(s, func(m string) string {
		if m == "$" {
			return "$$"
		}

		return "${" + m[1:] + "}"
	})
}

func replaceFirst(re *regexp.Regexp, text, template string) string {
	loc := re.FindStringSubmatchIndex(text)
	if loc == nil {
		return text
	}

	out := re.ExpandString(nil, template, text, loc)

	return text[:loc[0]] + string(out) + text[loc[1]:]
}

// autoLink wraps bare URLs in angle brackets. URLs that are already part of a
// Markdown link, a reference definition, a quoted attribute or an autolink
// are left alone.
func autoLink(text string) string {
	var b strings.Builder

	last := 0

	for _, loc := range reURL.FindAllStringIndex(text, -1) {
		before := text[:loc[0]]
		if strings.HasSuffix(before, "(") ||
			strings.HasSuffix(before, "]: ") ||
			strings.HasSuffix(before, `"`) ||
			strings.HasSuffix(before, "'") ||
			strings.HasSuffix(before, "<") {
			continue
		}

		b.WriteString(text[last:loc[0]])
		b.WriteString("<" + text[loc[0]:loc[1]] + ">")
		last = loc[1]
	}

	b.WriteString(text[last:])

	return b.String()
}
