package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

const highlightStyle = "monokai"

// isTerminal reports whether w is a terminal.
func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}

	return term.IsTerminal(int(f.Fd())) //nolint:gosec // G115: file descriptors fit in an int.
}

// formatterFor picks a chroma formatter for the colors w supports.
func formatterFor(w io.Writer) chroma.Formatter {
	formatterName := "noop"
	switch termenv.NewOutput(w).EnvColorProfile() {
	case termenv.TrueColor:
		formatterName = "terminal16m"

	case termenv.ANSI256:
		formatterName = "terminal256"

	case termenv.ANSI:
		formatterName = "terminal8"

	case termenv.Ascii:
	}

	return formatters.Get(formatterName)
}

// writeHighlighted writes content to w, highlighted with the named lexer
// when w is a terminal.
func writeHighlighted(w io.Writer, lexerName, content string) error {
	if !isTerminal(w) {
		_, err := io.WriteString(w, content)
		if err != nil {
			return fmt.Errorf("write output: %w", err)
		}

		return nil
	}

	lexer := lexers.Get(lexerName)
	if lexer == nil {
		lexer = lexers.Fallback
	}

	iterator, err := chroma.Coalesce(lexer).Tokenise(nil, content)
	if err != nil {
		return fmt.Errorf("lexer tokenize: %w", err)
	}

	buf := &bytes.Buffer{}

	err = formatterFor(w).Format(buf, styles.Get(highlightStyle), iterator)
	if err != nil {
		return fmt.Errorf("format: %w", err)
	}

	_, err = buf.WriteTo(w)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}

	return nil
}
