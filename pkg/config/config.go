package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	_ "embed"

	"github.com/macropower/conductor/api"
	"github.com/macropower/conductor/pkg/track"
	"github.com/macropower/conductor/pkg/yaml"
)

//go:generate go run ../../internal/schemagen/main.go -o tracks.v1.json

const (
	// SchemaFileName is the name of the schema written next to the config.
	SchemaFileName = "tracks.v1.json"
	// SchemaID is the $id of the embedded schema.
	SchemaID = "https://raw.githubusercontent.com/macropower/conductor/refs/heads/main/pkg/config/tracks.v1.json"
)

var (
	//go:embed tracks.yaml
	defaultConfigYAML []byte

	//go:embed tracks.v1.json
	schemaJSON []byte

	// DefaultValidator validates configuration against the embedded schema.
	DefaultValidator = yaml.MustNewValidator("/"+SchemaFileName, schemaJSON)

	// Subdirs are created next to the config file by [WriteDefaultConfig].
	// Scripts and filter includes are looked up in them.
	Subdirs = []string{"scripts", "css", "js", "files"}
)

// Config is the root of a tracks file.
type Config struct {
	// Tracks are evaluated in order against each document.
	Tracks []*track.Track `json:"tracks" jsonschema:"title=Tracks" mapstructure:"tracks" yaml:"tracks"`
}

// New creates an empty [Config].
func New() *Config {
	return &Config{}
}

// DefaultYAML returns the sample configuration.
func DefaultYAML() []byte {
	return defaultConfigYAML
}

// Schema returns the embedded JSON schema.
func Schema() []byte {
	return schemaJSON
}

func (c Config) JSONSchemaExtend(jss *jsonschema.Schema) {
	jss.Title = "Conductor Tracks"
	jss.Description = "Tracks evaluated by conductor, a custom processor for Marked."
}

// Write writes the config to path unless a file already exists there.
func (c Config) Write(path string) error {
	info, err := os.Stat(path)
	if err == nil {
		if info.IsDir() {
			return fmt.Errorf("%s: path is a directory", path)
		}

		return nil
	}

	err = os.MkdirAll(filepath.Dir(path), 0o700)
	if err != nil {
		return fmt.Errorf("create directories: %w", err)
	}

	b, err := api.MarshalYAML(c)
	if err != nil {
		return err //nolint:wrapcheck // Already wrapped.
	}

	err = os.WriteFile(path, b, 0o600)
	if err != nil {
		return fmt.Errorf("write file: %w", err)
	}

	return nil
}

// WriteDefaultConfig writes the sample tracks.yaml and its JSON schema to
// path's directory, and creates the lookup directories next to it. An
// existing config is only replaced when force is set, and is backed up
// first.
func WriteDefaultConfig(path string, force bool) error {
	err := api.WriteDefaultFile(path, defaultConfigYAML, force, "config")
	if err != nil {
		return err //nolint:wrapcheck // Already wrapped.
	}

	dir := filepath.Dir(path)

	schemaPath := filepath.Join(dir, SchemaFileName)
	slog.Debug("write JSON schema",
		slog.String("path", schemaPath),
	)

	err = os.WriteFile(schemaPath, schemaJSON, 0o600)
	if err != nil {
		return fmt.Errorf("write schema file: %w", err)
	}

	for _, sub := range Subdirs {
		err = os.MkdirAll(filepath.Join(dir, sub), 0o700)
		if err != nil {
			return fmt.Errorf("create %s directory: %w", sub, err)
		}
	}

	return nil
}
