package filter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/sahilm/fuzzy"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"

	"github.com/macropower/conductor/api"
	"github.com/macropower/conductor/pkg/document"
	"github.com/macropower/conductor/pkg/env"
)

var (
	reShiftYes  = regexp.MustCompile(`(?i)^[yts]`)
	reStyleTag  = regexp.MustCompile(`(?s)<style>.*?</style>`)
	reRawScript = regexp.MustCompile(`\(.*?\)`)
	reCSSExt    = regexp.MustCompile(`(\.css)?$`)
	reJSExt     = regexp.MustCompile(`(\.js)?$`)
)

// Runner applies filters.
type Runner struct {
	logger    *slog.Logger
	minifier  *minify.M
	configDir string
}

// RunnerOpt configures a [Runner].
type RunnerOpt func(*Runner)

// WithConfigDir sets the directory searched for stylesheets, scripts and
// include files.
func WithConfigDir(dir string) RunnerOpt {
	return func(r *Runner) {
		r.configDir = dir
	}
}

// WithLogger sets the logger used for warnings about missing files and
// invalid parameters.
func WithLogger(logger *slog.Logger) RunnerOpt {
	return func(r *Runner) {
		r.logger = logger
	}
}

// New creates a new [Runner]. By default files are looked up in
// [api.ConfigDir].
func New(opts ...RunnerOpt) *Runner {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)

	r := &Runner{
		logger:   slog.Default(),
		minifier: m,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.configDir == "" {
		r.configDir = api.ConfigDir()
	}

	return r
}

// Apply runs the filter described by spec on input. Problems with the
// filter's parameters or referenced files are logged and leave the input
// unchanged; only a specification that cannot be parsed returns an error.
func (r *Runner) Apply(spec, input string, ec *env.Context) (string, error) {
	f, err := Parse(spec)
	if err != nil {
		return "", err
	}

	if ec == nil {
		ec = &env.Context{}
	}

	out := r.apply(f, input, ec)

	r.logger.Debug("applied filter",
		slog.String("filter", f.String()),
		slog.String("in", humanize.Bytes(uint64(len(input)))),
		slog.String("out", humanize.Bytes(uint64(len(out)))),
	)

	return out, nil
}

func (r *Runner) apply(f *Filter, text string, ec *env.Context) string {
	switch f.Kind {
	case KindInsertStylesheet:
		for _, p := range f.Params {
			text = r.insertStylesheet(text, p)
		}

		return text

	case KindInsertCSS:
		for _, p := range f.Params {
			text = r.insertCSS(text, p, ec.Home)
		}

		return text

	case KindInsertTitle:
		shift := 0
		if len(f.Params) > 0 {
			if reShiftYes.MatchString(f.Params[0]) {
				shift = 1
			} else {
				shift, _ = strconv.Atoi(f.Params[0])
			}
		}

		return document.InsertTitle(text, ec.FilePath, shift)

	case KindInsertScript:
		text += "\n\n\n<div>"
		for _, p := range f.Params {
			text = r.insertScript(text, p, ec.Home)
		}

		return text + "</div>"

	case KindInsertFile:
		if len(f.Params) == 0 {
			return r.invalid(f, text)
		}

		return r.insertFile(f, text, ec.Home)

	case KindInsertTOC:
		depth := 0
		if len(f.Params) > 0 {
			depth, _ = strconv.Atoi(f.Params[0])
		}

		pos := document.PositionStart
		if len(f.Params) == 2 {
			pos = document.PositionH1
			if strings.Contains(f.Params[1], "2") {
				pos = document.PositionH2
			}
		}

		return document.InsertTOC(text, depth, pos)

	case KindSetMeta:
		if len(f.Params) != 2 {
			return r.invalid(f, text)
		}

		return r.setMeta(text, f.Params[0], f.Params[1], document.DetectMeta(text))

	case KindStripMeta:
		if len(f.Params) == 0 {
			return document.StripMeta(text)
		}

		out, err := document.DeleteMeta(text, f.Params[0])
		if err != nil {
			r.logger.Warn("delete metadata", slog.String("key", f.Params[0]), slog.Any("err", err))
			return text
		}

		return out

	case KindSetStyle:
		if len(f.Params) != 1 {
			return r.invalid(f, text)
		}

		return r.setMeta(text, "marked style", f.Params[0], document.MetaNone)

	case KindReplaceAll, KindReplace:
		if len(f.Params) != 2 {
			return r.invalid(f, text)
		}

		re, err := compilePattern(f.Params[0])
		if err != nil {
			r.logger.Warn("invalid filter parameters", slog.String("filter", f.String()), slog.Any("err", err))
			return text
		}

		tmpl := expandTemplate(f.Params[1])
		if f.Kind == KindReplace {
			return replaceFirst(re, text, tmpl)
		}

		return re.ReplaceAllString(text, tmpl)

	case KindAutoLink:
		return autoLink(text)

	case KindFixHierarchy:
		return document.FixHierarchy(text)

	case KindUnknown:
	}

	attrs := []any{slog.String("filter", f.Name)}
	if matches := fuzzy.Find(f.Name, Names); len(matches) > 0 {
		attrs = append(attrs, slog.String("suggestion", matches[0].Str))
	}

	r.logger.Warn("unknown filter", attrs...)

	return text
}

func (r *Runner) invalid(f *Filter, text string) string {
	r.logger.Warn("invalid filter parameters", slog.String("filter", f.String()))
	return text
}

func (r *Runner) setMeta(text, key, value string, style document.MetaType) string {
	out, err := document.SetMeta(text, key, value, style)
	if err != nil {
		r.logger.Warn("set metadata", slog.String("key", key), slog.Any("err", err))
		return text
	}

	return out
}

func (r *Runner) insertStylesheet(text, path string) string {
	path = strings.TrimSpace(path)
	if !reRemote.MatchString(path) {
		path = r.findFile(dirsStylesheet, path, "css")
	}

	return document.InjectAfterMeta(text, fmt.Sprintf(`<link rel="stylesheet" href="%s">`, path))
}

func (r *Runner) insertCSS(text, path, home string) string {
	path = strings.TrimSpace(path)
	if reRemote.MatchString(path) {
		return r.insertStylesheet(text, path)
	}

	path = r.resolve(reCSSExt.ReplaceAllString(path, ".css"), home, dirsCSS, "css")

	data, err := os.ReadFile(path) //nolint:gosec // G304: Potential file inclusion via variable.
	if err != nil {
		r.logger.Warn("file not found", slog.String("path", path), slog.Any("err", err))
		return text
	}

	content, err := r.minifier.String("text/css", string(data))
	if err != nil {
		r.logger.Warn("minify css", slog.String("path", path), slog.Any("err", err))
		content = string(data)
	}

	r.logger.Debug("minified css",
		slog.String("path", path),
		slog.String("from", humanize.Bytes(uint64(len(data)))),
		slog.String("to", humanize.Bytes(uint64(len(content)))),
	)

	if !reStyleTag.MatchString(content) {
		content = "<style>" + content + "</style>"
	}

	return document.InjectAfterMeta(text, content)
}

func (r *Runner) insertScript(text, path, home string) string {
	path = strings.TrimSpace(path)

	switch {
	case reRemote.MatchString(path):
		return text + scriptTag(path)
	case reRawScript.MatchString(path):
		return text + "\n<script>" + path + "</script>\n"
	}

	resolved := r.resolve(reJSExt.ReplaceAllString(path, ".js"), home, dirsScript, "js")
	if !exists(resolved) {
		r.logger.Warn("javascript not found", slog.String("path", resolved))
		return text + scriptTag(path)
	}

	return text + scriptTag(resolved)
}

func scriptTag(src string) string {
	return fmt.Sprintf("\n<script type=\"javascript\" src=\"%s\"></script>\n", src)
}

func (r *Runner) insertFile(f *Filter, text, home string) string {
	m := reInsertFile.FindStringSubmatch(f.Name)
	verb, kind := m[1], m[2]

	pos := document.PositionStart
	if verb == "append" {
		pos = document.PositionEnd
	}

	if len(f.Params) == 2 {
		p, ok := document.ParsePosition(f.Params[1])
		if !ok {
			return r.invalid(f, text)
		}

		pos = p
	}

	path := strings.TrimSpace(f.Params[0])
	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	path = r.resolve(path, home, dirsFile, ext)

	if !exists(path) {
		r.logger.Warn("file not found", slog.String("path", path))
	}

	var include string

	switch kind {
	case "code":
		include = "<<(" + path + ")"
	case "raw":
		include = "<<{" + path + "}"
	default:
		include = "<<[" + path + "]"
	}

	return document.InsertAt(text, include, pos)
}
