package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/macropower/conductor/api"
	"github.com/macropower/conductor/pkg/action"
	"github.com/macropower/conductor/pkg/config"
)

// DefaultConfigFile is the name of the user-level tracks file.
const DefaultConfigFile = "tracks.yaml"

// configPath returns the tracks file to use for a document in dir. An
// explicit --config wins, then a project file next to the document or in one
// of its parents, then the user-level file.
func (ra *RootArgs) configPath(dir string) string {
	if ra.ConfigPath != "" {
		return api.ExpandPath(ra.ConfigPath, "")
	}

	if dir != "" {
		found, err := api.FindProjectFile(dir, api.ProjectFileNames)
		if err != nil {
			slog.Debug("search for project config",
				slog.String("dir", dir),
				slog.Any("err", err),
			)
		}
		if found != "" {
			return found
		}
	}

	return api.GetConfigPath(DefaultConfigFile)
}

// loadConfig validates and loads the tracks file at path.
func loadConfig(path string) (*config.Config, error) {
	cl, err := config.NewLoaderFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	err = cl.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid config %q: %w", path, err)
	}

	cfg, err := cl.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid config %q: %w", path, err)
	}

	return cfg, nil
}

// ensureConfig writes the sample configuration when nothing exists at path.
func ensureConfig(path string) {
	if _, err := os.Stat(path); err == nil {
		return
	}

	err := config.WriteDefaultConfig(path, false)
	if err != nil {
		slog.Error("write default config", slog.Any("err", err))
	}
}

// newRunner creates the action runner for a tracks file. Scripts and filter
// includes are looked up next to the config.
func newRunner(path string, timeout time.Duration) *action.Runner {
	return action.NewRunner(
		action.WithConfigDir(filepath.Dir(path)),
		action.WithTimeout(timeout),
	)
}
