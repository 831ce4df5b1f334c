// Package config loads iter2tail configuration from defaults, an optional
// YAML file and ITER2TAIL_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/viper"

	"github.com/Sumatoshi-tech/iter2tail/pkg/observability"
	"github.com/Sumatoshi-tech/iter2tail/pkg/tailrec"
)

// Sentinel validation errors.
var (
	ErrInvalidTransform   = errors.New("invalid transform setting")
	ErrInvalidFileSize    = errors.New("invalid max file size")
	ErrInvalidLogLevel    = errors.New("invalid log level")
	ErrInvalidLogFormat   = errors.New("invalid log format")
	ErrInvalidSampleRatio = errors.New("sample ratio must be within [0, 1]")
)

const (
	configName = ".iter2tail"
	envPrefix  = "ITER2TAIL"

	defaultMaxFileSize = "1MB"
	defaultLogLevel    = "info"

	// FormatText selects human-readable log lines.
	FormatText = "text"
	// FormatJSON selects one JSON object per log line.
	FormatJSON = "json"
)

// Config holds all configuration for iter2tail.
type Config struct {
	Transform     TransformConfig     `mapstructure:"transform"`
	Input         InputConfig         `mapstructure:"input"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// TransformConfig controls the shape of generated functions.
type TransformConfig struct {
	HelperName     string `mapstructure:"helper_name"`
	Suffix         string `mapstructure:"suffix"`
	StateOrder     string `mapstructure:"state_order"`
	DefaultInitial string `mapstructure:"default_initial"`
	KeepPrelude    bool   `mapstructure:"keep_prelude"`
}

// InputConfig bounds what the CLI is willing to read.
type InputConfig struct {
	// MaxFileSize uses humanize syntax ("1MB", "512KiB").
	MaxFileSize string `mapstructure:"max_file_size"`

	maxBytes uint64
}

// MaxBytes returns MaxFileSize in bytes. Valid after LoadConfig.
func (c InputConfig) MaxBytes() uint64 {
	return c.maxBytes
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// ObservabilityConfig holds OpenTelemetry export settings.
type ObservabilityConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool    `mapstructure:"otlp_insecure"`
	OTLPHeaders  string  `mapstructure:"otlp_headers"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

// LoadConfig reads configuration. An empty configPath searches for
// .iter2tail.yaml in the working directory and then $HOME; a missing file
// is not an error in that case.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	return decode(v)
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	cfg, err := decode(v)
	if err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}

	return cfg
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config

	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	opts := tailrec.DefaultOptions()

	v.SetDefault("transform.helper_name", opts.HelperName)
	v.SetDefault("transform.suffix", opts.Suffix)
	v.SetDefault("transform.state_order", string(opts.StateOrder))
	v.SetDefault("transform.default_initial", opts.DefaultInitial)
	v.SetDefault("transform.keep_prelude", opts.KeepPrelude)

	v.SetDefault("input.max_file_size", defaultMaxFileSize)

	v.SetDefault("logging.level", defaultLogLevel)
	v.SetDefault("logging.format", FormatText)

	v.SetDefault("observability.otlp_endpoint", "")
	v.SetDefault("observability.otlp_insecure", false)
	v.SetDefault("observability.otlp_headers", "")
	v.SetDefault("observability.sample_ratio", 0.0)
}

func (c *Config) validate() error {
	if err := c.Options().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTransform, err)
	}

	size, err := humanize.ParseBytes(c.Input.MaxFileSize)
	if err != nil || size == 0 {
		return fmt.Errorf("%w: %q", ErrInvalidFileSize, c.Input.MaxFileSize)
	}

	c.Input.maxBytes = size

	if _, err := c.Logging.SlogLevel(); err != nil {
		return err
	}

	if c.Logging.Format != FormatText && c.Logging.Format != FormatJSON {
		return fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.Logging.Format)
	}

	if c.Observability.SampleRatio < 0 || c.Observability.SampleRatio > 1 {
		return fmt.Errorf("%w: %v", ErrInvalidSampleRatio, c.Observability.SampleRatio)
	}

	return nil
}

// Options converts the transform section into conversion options.
func (c *Config) Options() tailrec.Options {
	opts := tailrec.DefaultOptions()

	opts.HelperName = c.Transform.HelperName
	opts.Suffix = c.Transform.Suffix
	opts.StateOrder = tailrec.StateOrder(c.Transform.StateOrder)
	opts.DefaultInitial = c.Transform.DefaultInitial
	opts.KeepPrelude = c.Transform.KeepPrelude

	return opts
}

// SlogLevel parses Level.
func (c LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level

	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.Level)
	}

	return level, nil
}

// Apply copies logging and export settings into an observability config.
func (c *Config) Apply(obs *observability.Config) {
	if level, err := c.Logging.SlogLevel(); err == nil {
		obs.LogLevel = level
	}

	obs.LogJSON = c.Logging.Format == FormatJSON
	obs.OTLPEndpoint = c.Observability.OTLPEndpoint
	obs.OTLPInsecure = c.Observability.OTLPInsecure
	obs.OTLPHeaders = observability.ParseOTLPHeaders(c.Observability.OTLPHeaders)
	obs.SampleRatio = c.Observability.SampleRatio
}
