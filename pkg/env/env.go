// Package env describes the environment a document is being processed in,
// as exported by the host application to a custom processor.
package env

import (
	"os"
	"path/filepath"
	"strings"
)

// Environment variables read by [FromLookup].
const (
	VarHome     = "HOME"
	VarCSSPath  = "MARKED_CSS_PATH"
	VarExt      = "MARKED_EXT"
	VarIncludes = "MARKED_INCLUDES"
	VarOrigin   = "MARKED_ORIGIN"
	VarPath     = "MARKED_PATH"
	VarPhase    = "MARKED_PHASE"
	VarOutline  = "OUTLINE"
	VarSearch   = "PATH"
)

// Context is a read-only snapshot of the processing environment.
type Context struct {
	Home     string
	CSSPath  string
	Ext      string
	Origin   string
	FilePath string
	FileName string
	Phase    string
	Outline  string
	Path     string
	Includes []string
}

// LookupFunc looks up an environment variable, like [os.LookupEnv].
type LookupFunc func(key string) (string, bool)

// FromEnviron builds a [Context] from the current process environment.
func FromEnviron() *Context {
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a [Context] using the given lookup function.
func FromLookup(lookup LookupFunc) *Context {
	get := func(key string) string {
		v, _ := lookup(key)
		return v
	}

	c := &Context{
		Home:     get(VarHome),
		CSSPath:  get(VarCSSPath),
		Ext:      get(VarExt),
		Origin:   get(VarOrigin),
		FilePath: get(VarPath),
		Phase:    get(VarPhase),
		Outline:  get(VarOutline),
		Path:     get(VarSearch),
		Includes: ParseIncludes(get(VarIncludes)),
	}
	c.fill()

	return c
}

// ForFile builds a [Context] for a document on disk, the way the host
// application would describe it. Values not derived from path are read from
// lookup.
func ForFile(path, phase string, lookup LookupFunc) (*Context, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err //nolint:wrapcheck // Return the original error.
	}

	c := FromLookup(lookup)
	c.FilePath = abs
	c.FileName = ""
	c.Origin = filepath.Dir(abs)
	c.Ext = ""
	c.Phase = phase
	c.fill()

	return c, nil
}

func (c *Context) fill() {
	if c.FilePath == "" {
		return
	}

	if c.FileName == "" {
		c.FileName = filepath.Base(c.FilePath)
	}
	if c.Ext == "" {
		c.Ext = strings.TrimPrefix(filepath.Ext(c.FilePath), ".")
	}
	if c.Origin == "" {
		c.Origin = filepath.Dir(c.FilePath)
	}
}

// ParseIncludes splits the quoted, comma-separated include list.
func ParseIncludes(s string) []string {
	var out []string

	for part := range strings.SplitSeq(s, ",") {
		part = strings.Trim(strings.TrimSpace(part), `"'`)
		if part != "" {
			out = append(out, part)
		}
	}

	return out
}

// Environ returns the context as NAME=value pairs, suitable for the
// environment of a child process.
func (c *Context) Environ() []string {
	includes := make([]string, 0, len(c.Includes))
	for _, inc := range c.Includes {
		includes = append(includes, `"`+inc+`"`)
	}

	return []string{
		VarHome + "=" + c.Home,
		VarCSSPath + "=" + c.CSSPath,
		VarExt + "=" + c.Ext,
		VarIncludes + "=" + strings.Join(includes, ","),
		VarOrigin + "=" + c.Origin,
		VarPath + "=" + c.FilePath,
		VarPhase + "=" + c.Phase,
		VarOutline + "=" + c.Outline,
		VarSearch + "=" + c.Path,
	}
}

// Vars returns the context as a map of CEL-friendly variables.
func (c *Context) Vars() map[string]any {
	includes := c.Includes
	if includes == nil {
		includes = []string{}
	}

	return map[string]any{
		"home":     c.Home,
		"css_path": c.CSSPath,
		"ext":      c.Ext,
		"filename": c.FileName,
		"filepath": c.FilePath,
		"origin":   c.Origin,
		"phase":    c.Phase,
		"outline":  c.Outline,
		"includes": includes,
	}
}
