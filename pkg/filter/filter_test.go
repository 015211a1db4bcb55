package filter_test

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/macropower/conductor/pkg/env"
	"github.com/macropower/conductor/pkg/filter"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		params []string
		name   string
		kind   filter.Kind
	}{
		"insertCSS(a, b)":       {name: "insertcss", params: []string{"a", "b"}, kind: filter.KindInsertCSS},
		"insert_toc":            {name: "inserttoc", kind: filter.KindInsertTOC},
		"autoLink()":            {name: "autolink", params: []string{}, kind: filter.KindAutoLink},
		"Fix_Headers":           {name: "fixheaders", kind: filter.KindFixHierarchy},
		"fixHeadlines":          {name: "fixheadlines", kind: filter.KindFixHierarchy},
		"add_stylesheet(x)":     {name: "addstylesheet", params: []string{"x"}, kind: filter.KindInsertStylesheet},
		"injectStyle(x)":        {name: "injectstyle", params: []string{"x"}, kind: filter.KindInsertCSS},
		"replace_all(a,b)":      {name: "replaceall", params: []string{"a", "b"}, kind: filter.KindReplaceAll},
		"replace(a ,  b)":       {name: "replace", params: []string{"a", "b"}, kind: filter.KindReplace},
		"appendCode(x.rb)":      {name: "appendcode", params: []string{"x.rb"}, kind: filter.KindInsertFile},
		"removeMeta":            {name: "removemeta", kind: filter.KindStripMeta},
		"selfLink":              {name: "selflink", kind: filter.KindAutoLink},
		"setStyle(Swiss)":       {name: "setstyle", params: []string{"Swiss"}, kind: filter.KindSetStyle},
		"addTitle(y)":           {name: "addtitle", params: []string{"y"}, kind: filter.KindInsertTitle},
		"somethingElse(1, 2)":   {name: "somethingelse", params: []string{"1", "2"}, kind: filter.KindUnknown},
		" setMeta(key, value) ": {name: "setmeta", params: []string{"key", "value"}, kind: filter.KindSetMeta},
	}

	for spec, tc := range tcs {
		t.Run(spec, func(t *testing.T) {
			t.Parallel()

			f, err := filter.Parse(spec)
			require.NoError(t, err)
			assert.Equal(t, tc.name, f.Name)
			assert.Equal(t, tc.params, f.Params)
			assert.Equal(t, tc.kind, f.Kind)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	t.Parallel()

	for _, spec := range []string{"", "  ", "()", "(x)"} {
		_, err := filter.Parse(spec)
		require.ErrorIs(t, err, filter.ErrInvalidFilter, spec)
	}
}

func TestKind_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "insertcss", filter.KindInsertCSS.String())
	assert.Equal(t, "fixhierarchy", filter.KindFixHierarchy.String())
	assert.Equal(t, "Kind(99)", filter.Kind(99).String())
}

func newRunner(t *testing.T) (*filter.Runner, string, *bytes.Buffer) {
	t.Helper()

	dir := t.TempDir()
	for path, content := range map[string]string{
		"css/base.css":   "body {\n  color: red;\n}\n",
		"js/app.js":      "console.log('hi');\n",
		"files/inc.md":   "included\n",
		"styles/alt.css": "p { margin: 0; }\n",
	} {
		full := filepath.Join(dir, path)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o600))
	}

	buf := &bytes.Buffer{}
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	return filter.New(filter.WithConfigDir(dir), filter.WithLogger(logger)), dir, buf
}

func TestRunner_Apply(t *testing.T) {
	t.Parallel()

	r, dir, _ := newRunner(t)
	ec := &env.Context{FilePath: "/notes/2024-01-02-my-post.md"}

	tcs := map[string]struct {
		spec  string
		input string
		want  string
	}{
		"remote stylesheet": {
			spec:  "insertStylesheet(https://x.com/a.css)",
			input: "body",
			want:  `<link rel="stylesheet" href="https://x.com/a.css">` + "\n\nbody",
		},
		"local stylesheet": {
			spec:  "insertStylesheet(base)",
			input: "body",
			want:  `<link rel="stylesheet" href="` + filepath.Join(dir, "css", "base.css") + `">` + "\n\nbody",
		},
		"stylesheet in styles dir": {
			spec:  "addStylesheet(alt.css)",
			input: "body",
			want:  `<link rel="stylesheet" href="` + filepath.Join(dir, "styles", "alt.css") + `">` + "\n\nbody",
		},
		"stylesheet after yaml": {
			spec:  "insertStylesheet(https://x.com/a.css)",
			input: "---\ntitle: x\n---\nbody",
			want:  "---\ntitle: x\n---\n" + `<link rel="stylesheet" href="https://x.com/a.css">` + "\n\nbody",
		},
		"missing css": {
			spec:  "insertCSS(missing)",
			input: "body",
			want:  "body",
		},
		"title with shift": {
			spec:  "insertTitle(yes)",
			input: "# Intro\n\nbody",
			want:  "# My Post\n\n## Intro\n\nbody",
		},
		"title": {
			spec:  "insert_title",
			input: "body",
			want:  "# My Post\n\nbody",
		},
		"remote script": {
			spec:  "insertScript(https://x.com/y.js)",
			input: "body",
			want:  "body\n\n\n<div>\n<script type=\"javascript\" src=\"https://x.com/y.js\"></script>\n</div>",
		},
		"local script": {
			spec:  "insertScript(app)",
			input: "body",
			want:  "body\n\n\n<div>\n<script type=\"javascript\" src=\"" + filepath.Join(dir, "js", "app.js") + "\"></script>\n</div>",
		},
		"raw script": {
			spec:  "insertScript(init())",
			input: "body",
			want:  "body\n\n\n<div>\n<script>init()</script>\n</div>",
		},
		"missing script keeps path": {
			spec:  "insertScript(nope)",
			input: "body",
			want:  "body\n\n\n<div>\n<script type=\"javascript\" src=\"nope\"></script>\n</div>",
		},
		"append file": {
			spec:  "appendFile(inc.md)",
			input: "body",
			want:  "body\n\n<<[" + filepath.Join(dir, "files", "inc.md") + "]\n",
		},
		"insert code after h1": {
			spec:  "insertCode(inc.md, h1)",
			input: "# T\n\nbody",
			want:  "# T\n\n<<(" + filepath.Join(dir, "files", "inc.md") + ")\n\n\nbody",
		},
		"prepend raw": {
			spec:  "prependRaw(inc.md)",
			input: "body",
			want:  "<<{" + filepath.Join(dir, "files", "inc.md") + "}\n\nbody",
		},
		"insert file bad position": {
			spec:  "insertFile(inc.md, middle)",
			input: "body",
			want:  "body",
		},
		"toc at start": {
			spec:  "insertTOC",
			input: "# T\n\nbody",
			want:  "\n<!--toc-->\n\n# T\n\nbody",
		},
		"toc after h2": {
			spec:  "insertTOC(3, h2)",
			input: "# T\n\n## S\n\nbody",
			want:  "# T\n\n## S\n\n<!--toc max3-->\n\n\nbody",
		},
		"set meta wrong params": {
			spec:  "setMeta(author)",
			input: "body",
			want:  "body",
		},
		"set meta mmd": {
			spec:  "setMeta(Author, Me)",
			input: "Title: x\n\nbody",
			want:  "Title: x\nAuthor: Me\n\nbody",
		},
		"set style": {
			spec:  "setStyle(Amblin)",
			input: "# Title\n\nbody",
			want:  "# Title\n\n<!--\nmarked style: Amblin\n-->\n\nbody",
		},
		"strip meta": {
			spec:  "stripMeta",
			input: "Title: x\n\nbody",
			want:  "body",
		},
		"delete meta key": {
			spec:  "deleteMeta(draft)",
			input: "---\ntitle: x\ndraft: true\n---\nbody",
			want:  "---\ntitle: x\n---\nbody",
		},
		"replace first": {
			spec:  "replace(foo, bar)",
			input: "foo foo",
			want:  "bar foo",
		},
		"replace literal": {
			spec:  "replace(a.b, x)",
			input: "aab a.b",
			want:  "aab x",
		},
		"replace all regex": {
			spec:  `replaceAll(/(\w+)@x\.com/, \1 at x)`,
			input: "a@x.com b@X.com c@x.com",
			want:  "a at x b@X.com c at x",
		},
		"replace all case insensitive": {
			spec:  `replaceAll(/(\w+)@x\.com/i, $1 at x)`,
			input: "a@x.com b@X.com",
			want:  "a at x b at x",
		},
		"replace line anchors": {
			spec:  "replaceAll(/^- /, * )",
			input: "- a\n- b",
			want:  "*a\n*b",
		},
		"literal dollar": {
			spec:  "replaceAll(USD, $)",
			input: "5 USD",
			want:  "5 $",
		},
		"replace wrong params": {
			spec:  "replace(a)",
			input: "a",
			want:  "a",
		},
		"autolink": {
			spec:  "autoLink",
			input: "see https://example.com/a and [x](https://b.com) or <https://c.com>",
			want:  "see <https://example.com/a> and [x](https://b.com) or <https://c.com>",
		},
		"autolink reference": {
			spec:  "auto_link",
			input: "[x]: https://b.com",
			want:  "[x]: https://b.com",
		},
		"fix hierarchy": {
			spec:  "fixHierarchy",
			input: "## A\n#### B",
			want:  "# A\n## B",
		},
		"unknown": {
			spec:  "frobnicate(x)",
			input: "body",
			want:  "body",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			got, err := r.Apply(tc.spec, tc.input, ec)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRunner_InsertCSS(t *testing.T) {
	t.Parallel()

	r, _, _ := newRunner(t)

	got, err := r.Apply("insertCSS(base)", "---\ntitle: x\n---\nbody", nil)
	require.NoError(t, err)
	assert.Regexp(t, `^---\ntitle: x\n---\n<style>[^\n]*color:red[^\n]*</style>\n\nbody$`, got)

	got, err = r.Apply("insertCSS(https://x.com/a.css)", "body", nil)
	require.NoError(t, err)
	assert.Equal(t, `<link rel="stylesheet" href="https://x.com/a.css">`+"\n\nbody", got)
}

func TestRunner_ExplicitPath(t *testing.T) {
	t.Parallel()

	r, _, _ := newRunner(t)

	home := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(home, "mine.css"), []byte("h1 { font-weight: bold; }"), 0o600))

	got, err := r.Apply("insertCSS(~/mine)", "body", &env.Context{Home: home})
	require.NoError(t, err)
	assert.Contains(t, got, "<style>h1{")
	assert.Contains(t, got, "</style>\n\nbody")
}

func TestRunner_Warnings(t *testing.T) {
	t.Parallel()

	r, _, buf := newRunner(t)

	_, err := r.Apply("fixheder", "body", nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "unknown filter")
	assert.Contains(t, buf.String(), "suggestion=fixheaders")

	buf.Reset()

	_, err = r.Apply("setMeta(a, b, c)", "body", nil)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "invalid filter parameters")
}

func TestRunner_InvalidSpec(t *testing.T) {
	t.Parallel()

	r, _, _ := newRunner(t)

	_, err := r.Apply("()", "body", nil)
	require.ErrorIs(t, err, filter.ErrInvalidFilter)
}
