package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"
)

// Output formats for the feedback summary.
const (
	FormatText = "text"
	FormatYAML = "yaml"
)

// Config holds all the necessary configuration for an App instance to run.
// Fields with a toml tag can be set in a configuration file; the rest only
// come from the command line.
type Config struct {
	ProgramPath string `toml:"-"`
	LibraryPath string `toml:"library"`

	// Inputs are raw values, parsed with program.ParseInputValue.
	Inputs   map[string]string `toml:"inputs"`
	Feedback string            `toml:"-"`
	// FeedbackOutput names the output that receives the feedback; the first
	// declared output by default.
	FeedbackOutput string `toml:"feedback_output"`
	Format         string `toml:"format"`

	LoadParams string `toml:"load_params"`
	SaveParams string `toml:"save_params"`

	LogFormat       string `toml:"log_format"`
	LogLevel        string `toml:"log_level"`
	HealthcheckPort int    `toml:"healthcheck_port"`
	HTTPTimeout     string `toml:"http_timeout"`
}

// DefaultConfig returns the configuration used when nothing is overridden.
func DefaultConfig() Config {
	return Config{
		Format:      FormatText,
		LogFormat:   "text",
		LogLevel:    "info",
		HTTPTimeout: "30s",
	}
}

// LoadConfigFile decodes the TOML file at path over cfg. Keys that do not
// map to a setting are rejected so that typos do not go unnoticed.
func LoadConfigFile(path string, cfg *Config) error {
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("config file %s: unknown setting %q", path, undecoded[0].String())
	}
	return nil
}

// NewConfig validates cfg and returns a copy of it.
func NewConfig(cfg Config) (*Config, error) {
	var result *multierror.Error
	if cfg.ProgramPath == "" {
		result = multierror.Append(result, errors.New("ProgramPath is a required configuration field and cannot be empty"))
	}
	switch cfg.Format {
	case FormatText, FormatYAML:
	default:
		result = multierror.Append(result, fmt.Errorf("invalid format %q: must be 'text' or 'yaml'", cfg.Format))
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		result = multierror.Append(result, fmt.Errorf("invalid log-format %q: must be 'text' or 'json'", cfg.LogFormat))
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		result = multierror.Append(result, fmt.Errorf("invalid log-level %q: must be 'debug', 'info', 'warn', or 'error'", cfg.LogLevel))
	}
	if cfg.HealthcheckPort < 0 || cfg.HealthcheckPort > 65535 {
		result = multierror.Append(result, fmt.Errorf("invalid healthcheck-port %d", cfg.HealthcheckPort))
	}
	if cfg.HTTPTimeout != "" {
		if _, err := time.ParseDuration(cfg.HTTPTimeout); err != nil {
			result = multierror.Append(result, fmt.Errorf("invalid http-timeout: %w", err))
		}
	}
	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
