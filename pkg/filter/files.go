package filter

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/macropower/conductor/api"
)

var (
	reExplicitPath = regexp.MustCompile(`^[~/.]`)
	reRemote       = regexp.MustCompile(`^http`)
)

// Config subdirectories searched for each kind of resource.
var (
	dirsStylesheet = []string{"css", "styles"}
	dirsCSS        = []string{"css", "styles", "files"}
	dirsScript     = []string{"javascript", "javascripts", "js", "scripts"}
	dirsFile       = []string{"files"}
)

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// findFile returns name when it exists, then the first match for
// "<base>.<ext>" in subdirs of the config directory. When nothing exists it
// returns "<base>.<ext>".
func (r *Runner) findFile(subdirs []string, name, ext string) string {
	if exists(name) {
		return name
	}

	base := filepath.Base(name)
	if ext != "" {
		base = strings.TrimSuffix(base, "."+ext) + "." + ext
	}

	for _, sub := range subdirs {
		candidate := filepath.Join(r.configDir, sub, base)
		if exists(candidate) {
			return candidate
		}
	}

	return base
}

// resolve expands explicit paths and looks everything else up in subdirs.
func (r *Runner) resolve(path, home string, subdirs []string, ext string) string {
	if reExplicitPath.MatchString(path) {
		return api.ExpandPath(path, home)
	}

	return r.findFile(subdirs, path, ext)
}
