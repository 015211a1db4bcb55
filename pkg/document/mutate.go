package document

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/macropower/conductor/pkg/yaml"
)

var (
	reCommentBlock = regexp.MustCompile(`(?s)<!--\n.*?-->`)
	reCommentMeta  = regexp.MustCompile(`(?m)(?:\n|^)<!--\n(?:[\w ]+: [^\n]*\n)+-->`)
)

// SetMeta sets key to value using the given metadata style. MetaNone and
// MetaPandoc write an HTML comment block after any existing metadata.
func SetMeta(text, key, value string, style MetaType) (string, error) {
	switch style {
	case MetaYAML:
		return setYAML(text, key, value)
	case MetaMMD:
		return setMMD(text, key, value), nil
	case MetaNone, MetaPandoc:
	}

	return setComment(text, key, value), nil
}

func setYAML(text, key, value string) (string, error) {
	key = strings.ReplaceAll(key, " ", "_")

	fm, ok := FrontMatter(text)
	if !ok {
		out, err := yaml.Marshal(map[string]string{key: value})
		if err != nil {
			return "", fmt.Errorf("encode front matter: %w", err)
		}

		return "---\n" + strings.TrimRight(string(out), "\n") + "\n---\n" + text, nil
	}

	merged, err := yaml.MergeRootFromValue([]byte(fm), map[string]string{key: value})
	if err != nil {
		return "", fmt.Errorf("merge front matter: %w", err)
	}

	return replaceFrontMatter(text, string(merged)), nil
}

func replaceFrontMatter(text, body string) string {
	lines := Lines(text)
	end := MetaInsertPoint(text)

	out := []string{lines[0]}
	if body = strings.TrimRight(body, "\n"); body != "" {
		out = append(out, body)
	}

	out = append(out, lines[end:]...)

	return strings.Join(out, "\n")
}

func setMMD(text, key, value string) string {
	lines := Lines(text)
	end := 0

	if DetectMeta(text) == MetaMMD {
		end = MetaInsertPoint(text)
	}

	want := NormalizeKey(key)
	for i := range end {
		m := reHeaderLine.FindStringSubmatch(lines[i])
		if m != nil && NormalizeKey(m[1]) == want {
			lines[i] = key + ": " + value
			return strings.Join(lines, "\n")
		}
	}

	out := InsertLine(text, end, key+": "+value)
	if end == 0 {
		out = InsertLine(out, 1, "")
	}

	return out
}

func setComment(text, key, value string) string {
	line := regexp.MustCompile(`(?m)^ *` + regexp.QuoteMeta(key) + `: .*$`)

	for _, loc := range reCommentBlock.FindAllStringIndex(text, -1) {
		block := text[loc[0]:loc[1]]
		if !line.MatchString(block) {
			continue
		}

		block = line.ReplaceAllLiteralString(block, key+": "+value)

		return text[:loc[0]] + block + text[loc[1]:]
	}

	return InsertLine(text, MetaInsertPoint(text)+1, "\n<!--\n"+key+": "+value+"\n-->")
}

// DeleteMeta removes key from the YAML or MMD metadata block of text.
// Documents without such a block are returned unchanged.
func DeleteMeta(text, key string) (string, error) {
	switch DetectMeta(text) {
	case MetaYAML:
		fm, _ := FrontMatter(text)

		out, err := yaml.DeleteRootKey([]byte(fm), key)
		if err != nil {
			return "", fmt.Errorf("delete front matter key: %w", err)
		}

		return replaceFrontMatter(text, string(out)), nil

	case MetaMMD:
		lines := Lines(text)
		end := MetaInsertPoint(text)
		want := NormalizeKey(key)

		for i := range end {
			m := reHeaderLine.FindStringSubmatch(lines[i])
			if m != nil && NormalizeKey(m[1]) == want {
				return strings.Join(append(lines[:i:i], lines[i+1:]...), "\n"), nil
			}
		}

	case MetaNone, MetaPandoc:
	}

	return text, nil
}

// StripMeta removes the metadata block from the top of text, or any comment
// metadata blocks when there is none.
func StripMeta(text string) string {
	switch DetectMeta(text) {
	case MetaYAML:
		end := MetaInsertPoint(text)
		if end == 0 {
			return text
		}

		return strings.TrimLeft(strings.Join(Lines(text)[end+1:], "\n"), "\n")

	case MetaMMD, MetaPandoc:
		return strings.TrimLeft(strings.Join(Lines(text)[MetaInsertPoint(text):], "\n"), "\n")

	case MetaNone:
	}

	return reCommentMeta.ReplaceAllString(text, "")
}
