// Package config loads the batch run configuration from YAML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/dlclark/regexp2"
	"gopkg.in/yaml.v3"

	"debundle/pkg/reconstruct"
)

// Config is the full run configuration. Zero-valued fields in a loaded file
// keep their defaults.
type Config struct {
	InputDir        string `yaml:"input_dir"`
	OutputDir       string `yaml:"output_dir"`
	OutputExtension string `yaml:"output_extension"`

	// Include is a regular expression matched against each candidate's
	// path relative to InputDir. Empty means every .js file.
	Include string `yaml:"include"`

	Workers     int    `yaml:"workers"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	MetricsFile string `yaml:"metrics_file"`

	Reconstruct Reconstruct `yaml:"reconstruct"`
}

// Reconstruct mirrors reconstruct.Options in file form.
type Reconstruct struct {
	AliasExceptions     map[string]string `yaml:"alias_exceptions"`
	HostObjects         []string          `yaml:"host_objects"`
	UnwrapIndirectCalls *bool             `yaml:"unwrap_indirect_calls"`
	RestoreBooleans     *bool             `yaml:"restore_booleans"`
}

const (
	DefaultInputDir        = "input"
	DefaultOutputDir       = "output"
	DefaultOutputExtension = ".jsx"
	DefaultWorkers         = 4
)

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		InputDir:        DefaultInputDir,
		OutputDir:       DefaultOutputDir,
		OutputExtension: DefaultOutputExtension,
		Workers:         DefaultWorkers,
		LogLevel:        "info",
		LogFormat:       "text",
	}
}

// Load reads the YAML file at path over the defaults. A missing file is an
// error; use Default when no file is configured.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and compiles the include filter.
func (c *Config) Validate() error {
	var errs []error
	if c.InputDir == "" {
		errs = append(errs, errors.New("input_dir must not be empty"))
	}
	if c.OutputDir == "" {
		errs = append(errs, errors.New("output_dir must not be empty"))
	}
	if c.InputDir != "" && c.OutputDir != "" && filepath.Clean(c.InputDir) == filepath.Clean(c.OutputDir) {
		errs = append(errs, errors.New("output_dir must differ from input_dir"))
	}
	if !strings.HasPrefix(c.OutputExtension, ".") {
		errs = append(errs, fmt.Errorf("output_extension %q must start with a dot", c.OutputExtension))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format %q must be text or json", c.LogFormat))
	}
	if _, err := c.IncludeFilter(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// IncludeFilter compiles Include. It returns nil when no filter is set.
func (c *Config) IncludeFilter() (*regexp2.Regexp, error) {
	if c.Include == "" {
		return nil, nil
	}
	re, err := regexp2.Compile(c.Include, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("include %q: %w", c.Include, err)
	}
	return re, nil
}

// ReconstructOptions turns the reconstruct section into pass options.
func (c *Config) ReconstructOptions(logger *slog.Logger) []reconstruct.Option {
	opts := []reconstruct.Option{reconstruct.WithLogger(logger)}
	r := c.Reconstruct
	if len(r.AliasExceptions) > 0 {
		exceptions := reconstruct.DefaultAliasExceptions()
		for k, v := range r.AliasExceptions {
			exceptions[k] = v
		}
		opts = append(opts, reconstruct.WithAliasExceptions(exceptions))
	}
	if len(r.HostObjects) > 0 {
		opts = append(opts, reconstruct.WithHostObjects(append(reconstruct.DefaultHostObjects(), r.HostObjects...)))
	}
	if r.UnwrapIndirectCalls != nil {
		opts = append(opts, reconstruct.WithIndirectCallUnwrapping(*r.UnwrapIndirectCalls))
	}
	if r.RestoreBooleans != nil {
		opts = append(opts, reconstruct.WithBooleanRestoration(*r.RestoreBooleans))
	}
	return opts
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("log_level %q: %w", name, err)
	}
	return level, nil
}
