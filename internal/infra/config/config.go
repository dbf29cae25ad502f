// Package config provides configuration loading from YAML files.
package config

import (
	"os"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/Britbrat22/aidaw/internal/app/export"
)

// Config represents the application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	API     APIConfig     `yaml:"api"`
	Library LibraryConfig `yaml:"library"`
	Export  ExportConfig  `yaml:"export"`
}

// ServerConfig represents HTTP server configuration.
type ServerConfig struct {
	Addr  string      `yaml:"addr" default:":8080"`
	Hooks HooksConfig `yaml:"hooks"`
}

// HooksConfig represents lifecycle hooks configuration.
type HooksConfig struct {
	OnStarted []string `yaml:"on_started"`
	OnStopped []string `yaml:"on_stopped"`
}

// APIConfig represents API surface configuration.
type APIConfig struct {
	// Token guards mutating routes when set; empty disables auth.
	Token string `yaml:"token"`
}

// LibraryConfig represents the file-import boundary configuration.
type LibraryConfig struct {
	SpoolDir    string `yaml:"spool_dir"` // Empty = private temp directory
	MaxUploadMB int    `yaml:"max_upload_mb" default:"256" validate:"gte=1"`
}

// ExportConfig represents export boundary configuration.
type ExportConfig struct {
	DefaultFormat string       `yaml:"default_format" default:"wav" validate:"oneof=wav mp3"`
	TargetLUFS    float64      `yaml:"target_lufs" default:"-14"`
	Engine        EngineConfig `yaml:"engine"`
}

// EngineConfig represents the mastering engine configuration.
type EngineConfig struct {
	Type     string         `yaml:"type" validate:"required"`
	Settings map[string]any `yaml:"settings"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	// Override with environment variables
	cfg.overrideFromEnv()

	// Set defaults using creasty/defaults
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("AIDAW_API_TOKEN"); v != "" {
		c.API.Token = v
	}
	if v := os.Getenv("MASTER_BASE_URL"); v != "" {
		if c.Export.Engine.Settings == nil {
			c.Export.Engine.Settings = make(map[string]any)
		}
		c.Export.Engine.Settings["base_url"] = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(err, "struct validation failed")
	}
	return nil
}

// ParseDefaultFormat parses the configured default export format.
func (c *Config) ParseDefaultFormat() (export.Format, error) {
	return export.ParseFormat(c.Export.DefaultFormat)
}

// MaxUploadBytes returns the upload size limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Library.MaxUploadMB) << 20
}
