package config

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/mitchellh/mapstructure"

	goyaml "github.com/goccy/go-yaml"

	"github.com/macropower/conductor/api"
	"github.com/macropower/conductor/pkg/expr"
	"github.com/macropower/conductor/pkg/track"
	"github.com/macropower/conductor/pkg/yaml"
)

// Format is a configuration file format.
type Format int

const (
	FormatYAML Format = iota
	FormatTOML
)

func (f Format) String() string {
	if f == FormatTOML {
		return "toml"
	}

	return "yaml"
}

// FormatForPath returns the format implied by path's extension.
func FormatForPath(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return FormatTOML
	}

	return FormatYAML
}

// Validator validates configuration data against a schema.
type Validator interface {
	Validate(data any) error
}

// LoaderOpt configures a [Loader].
type LoaderOpt func(*Loader)

// WithValidator sets a custom validator. A nil validator disables schema
// validation.
func WithValidator(v Validator) LoaderOpt {
	return func(l *Loader) {
		l.validator = v
	}
}

// WithFormat overrides the format of the data.
func WithFormat(f Format) LoaderOpt {
	return func(l *Loader) {
		l.format = f
	}
}

// WithEnvironment sets the CEL environment match expressions are compiled
// with.
func WithEnvironment(e *expr.Environment) LoaderOpt {
	return func(l *Loader) {
		l.env = e
	}
}

// WithColor enables ANSI colors in annotated YAML errors.
func WithColor(colored bool) LoaderOpt {
	return func(l *Loader) {
		l.colored = colored
	}
}

// Loader validates and decodes configuration data.
type Loader struct {
	validator Validator
	env       *expr.Environment
	yamlError *yaml.ErrorWrapper
	data      []byte
	format    Format
	colored   bool
}

// NewLoaderFromBytes creates a [Loader] from YAML data, or from data in the
// format set by [WithFormat].
func NewLoaderFromBytes(data []byte, opts ...LoaderOpt) *Loader {
	l := &Loader{
		data:      data,
		validator: DefaultValidator,
	}
	for _, opt := range opts {
		opt(l)
	}

	if l.env == nil {
		l.env = expr.DefaultEnvironment()
	}

	errOpts := []yaml.ErrorOpt{yaml.WithColor(l.colored)}

	// Source excerpts are rendered by the YAML printer, so TOML errors only
	// carry the path.
	if l.format == FormatYAML {
		errOpts = append(errOpts, yaml.WithSource(data))
	}

	l.yamlError = yaml.NewErrorWrapper(errOpts...)

	return l
}

// NewLoaderFromFile creates a [Loader] from a file path. The format is taken
// from the file extension unless set by [WithFormat].
func NewLoaderFromFile(path string, opts ...LoaderOpt) (*Loader, error) {
	data, err := api.ReadFile(path)
	if err != nil {
		return nil, err //nolint:wrapcheck // Return the original error.
	}

	opts = append([]LoaderOpt{WithFormat(FormatForPath(path))}, opts...)

	return NewLoaderFromBytes(data, opts...), nil
}

// Validate validates the configuration data against the schema without
// decoding it into a [Config].
func (l *Loader) Validate() error {
	raw, err := l.decodeAny()
	if err != nil {
		return err
	}

	if l.validator != nil {
		err = l.validator.Validate(raw)
		if err != nil {
			return l.yamlError.Wrap(err)
		}
	}

	return nil
}

// Load validates, decodes and compiles the configuration.
func (l *Loader) Load() (*Config, error) {
	err := l.Validate()
	if err != nil {
		return nil, err
	}

	cfg := New()

	switch l.format {
	case FormatTOML:
		err = l.decodeTOML(cfg)
	default:
		err = yaml.Unmarshal(l.data, cfg)
		if errors.Is(err, io.EOF) {
			err = nil
		}
	}
	if err != nil {
		return nil, l.yamlError.Wrap(err)
	}

	err = track.CompileAll(l.env, cfg.Tracks, "tracks")
	if err != nil {
		return nil, l.wrapTrackError(err)
	}

	return cfg, nil
}

func (l *Loader) decodeAny() (any, error) {
	var raw any

	switch l.format {
	case FormatTOML:
		m := map[string]any{}

		err := toml.Unmarshal(l.data, &m)
		if err != nil {
			return nil, fmt.Errorf("decode toml: %w", err)
		}

		raw = m
	default:
		err := yaml.Unmarshal(l.data, &raw)
		if errors.Is(err, io.EOF) {
			return map[string]any{}, nil
		}
		if err != nil {
			return nil, l.yamlError.Wrap(err)
		}
	}

	if raw == nil {
		raw = map[string]any{}
	}

	return raw, nil
}

func (l *Loader) decodeTOML(cfg *Config) error {
	m := map[string]any{}

	err := toml.Unmarshal(l.data, &m)
	if err != nil {
		return fmt.Errorf("decode toml: %w", err)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           cfg,
	})
	if err != nil {
		return fmt.Errorf("create decoder: %w", err)
	}

	err = dec.Decode(m)
	if err != nil {
		return fmt.Errorf("decode config: %w", err)
	}

	return nil
}

// wrapTrackError points track compile errors at their YAML source.
func (l *Loader) wrapTrackError(err error) error {
	var trackErr *track.Error
	if !errors.As(err, &trackErr) {
		return fmt.Errorf("compile tracks: %w", err)
	}

	path, pathErr := goyaml.PathString("$." + trackErr.Path)
	if pathErr != nil {
		return fmt.Errorf("compile tracks: %w", err)
	}

	return l.yamlError.Wrap(yaml.NewError(trackErr, yaml.WithPath(path)))
}
