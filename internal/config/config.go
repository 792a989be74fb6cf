// Package config loads embroider settings from .embroider.yaml and
// EMBROIDER_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// FileName is the config file looked up in the working directory.
const FileName = ".embroider.yaml"

// EnvPrefix prefixes environment overrides, e.g. EMBROIDER_OUTPUT_DIR.
const EnvPrefix = "EMBROIDER"

// Config holds the complete tool configuration.
type Config struct {
	OutputDir string   `mapstructure:"output_dir"`
	Format    string   `mapstructure:"format"` // textile, markdown
	Database  string   `mapstructure:"database"`
	Filter    string   `mapstructure:"filter"`
	Ignore    []string `mapstructure:"ignore"`
	Parallel  bool     `mapstructure:"parallel"`
	Force     bool     `mapstructure:"force"`
	Strict    bool     `mapstructure:"strict"`
	LogLevel  string   `mapstructure:"log_level"`
	Headings  Headings `mapstructure:"headings"`

	// File is the config file that was read, or "" if none was found.
	File string `mapstructure:"-"`
}

// Headings overrides the section labels chosen by the grammar.
type Headings struct {
	Constants  string `mapstructure:"constants"`
	Structs    string `mapstructure:"structs"`
	Containers string `mapstructure:"containers"`
	Procedures string `mapstructure:"procedures"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Format:   "textile",
		Parallel: true,
		LogLevel: "info",
	}
}

// Load reads configPath, or FileName from the working directory when
// configPath is empty. A missing default file is not an error; a missing
// explicit file is.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, ".yaml"))
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.File = v.ConfigFileUsed()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Format) {
	case "textile", "markdown", "md":
	default:
		return fmt.Errorf("invalid format: %s (must be textile or markdown)", c.Format)
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel)); err != nil {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}
	return nil
}

// Level returns the configured log level, defaulting to info.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil || c.LogLevel == "" {
		return zerolog.InfoLevel
	}
	return lvl
}

func setDefaults(v *viper.Viper) {
	defaults := DefaultConfig()
	v.SetDefault("output_dir", defaults.OutputDir)
	v.SetDefault("format", defaults.Format)
	v.SetDefault("database", defaults.Database)
	v.SetDefault("filter", defaults.Filter)
	v.SetDefault("ignore", []string{})
	v.SetDefault("parallel", defaults.Parallel)
	v.SetDefault("force", defaults.Force)
	v.SetDefault("strict", defaults.Strict)
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("headings.constants", "")
	v.SetDefault("headings.structs", "")
	v.SetDefault("headings.containers", "")
	v.SetDefault("headings.procedures", "")
}
