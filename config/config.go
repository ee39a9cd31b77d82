// Package config provides configuration management for the granola command.
// It supports loading configuration from a YAML file, a .env file, environment
// variables and command-line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/otherjamesbrown/granola-mcp/pkg/timeutil"
)

// OutputFormat defines the supported output formats for CLI results.
type OutputFormat string

const (
	// OutputFormatText is human-readable plain text output.
	OutputFormatText OutputFormat = "text"
	// OutputFormatJSON is JSON-formatted output for machine processing.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatYAML is YAML-formatted output for machine processing.
	OutputFormatYAML OutputFormat = "yaml"
)

// Default configuration values.
const (
	DefaultArchivePath  = "~/Library/Application Support/Granola/cache-v3.json"
	DefaultTimezone     = timeutil.DefaultZone
	DefaultLookback     = timeutil.DefaultLookback
	DefaultOutputFormat = OutputFormatText
	DefaultExportDir    = "./transcripts"
	DefaultHTTPAddress  = "127.0.0.1:8765"
	DefaultConfigDir    = ".granola-mcp"
	DefaultConfigFile   = "config.yaml"
	DefaultEnvFile      = ".env"
	EnvPrefix           = "GRANOLA_"
	configDirEnv        = EnvPrefix + "CONFIG_DIR"
)

// CLIConfig holds the configuration settings.
type CLIConfig struct {
	// ArchivePath is the recorder's cache file. Supports ~ expansion.
	ArchivePath string `yaml:"archive_path"`

	// Timezone is the IANA zone used to interpret and display dates.
	Timezone string `yaml:"timezone"`

	// DefaultLookback is the relative expression used when from is omitted.
	DefaultLookback string `yaml:"default_lookback"`

	// OutputFormat specifies the default output format for commands.
	OutputFormat OutputFormat `yaml:"output_format"`

	// ExportDir is where per-day transcript files are written.
	ExportDir string `yaml:"export_dir,omitempty"`

	// MinWords drops shorter transcript entries from per-day exports.
	MinWords int `yaml:"min_words,omitempty"`

	// HTTPAddress is the listen address for serve --http.
	HTTPAddress string `yaml:"http_address,omitempty"`

	// LogJSON forces JSON logs even on a terminal.
	LogJSON bool `yaml:"log_json,omitempty"`

	// Debug enables verbose debug logging.
	Debug bool `yaml:"debug,omitempty"`
}

// DefaultConfig returns a CLIConfig with default values.
func DefaultConfig() *CLIConfig {
	return &CLIConfig{
		ArchivePath:     DefaultArchivePath,
		Timezone:        DefaultTimezone,
		DefaultLookback: DefaultLookback,
		OutputFormat:    DefaultOutputFormat,
		ExportDir:       DefaultExportDir,
		HTTPAddress:     DefaultHTTPAddress,
	}
}

// ConfigDir returns the configuration directory path.
// Uses $GRANOLA_CONFIG_DIR if set, otherwise ~/.granola-mcp
func ConfigDir() (string, error) {
	if dir := os.Getenv(configDirEnv); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	return filepath.Join(home, DefaultConfigDir), nil
}

// ConfigPath returns the full path to the configuration file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultConfigFile), nil
}

// LoadConfig loads the configuration. Later sources override earlier:
// 1. Default values
// 2. Config file ($GRANOLA_CONFIG_DIR/config.yaml or ~/.granola-mcp/config.yaml)
// 3. .env in the config directory (never overrides variables already set)
// 4. Environment variables (GRANOLA_ARCHIVE_PATH, GRANOLA_TIMEZONE, ...)
func LoadConfig() (*CLIConfig, error) {
	cfg := DefaultConfig()

	dir, err := ConfigDir()
	if err != nil {
		return nil, fmt.Errorf("getting config dir: %w", err)
	}

	configPath := filepath.Join(dir, DefaultConfigFile)
	if _, err := os.Stat(configPath); err == nil {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	envPath := filepath.Join(dir, DefaultEnvFile)
	if _, err := os.Stat(envPath); err == nil {
		if err := godotenv.Load(envPath); err != nil {
			return nil, fmt.Errorf("loading %s: %w", envPath, err)
		}
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadFromFile loads configuration from a YAML file. Keys absent from the
// file keep their current values.
func loadFromFile(cfg *CLIConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}
	return nil
}

// loadFromEnv overlays GRANOLA_* environment variables onto the configuration.
func loadFromEnv(cfg *CLIConfig) error {
	if v := os.Getenv(EnvPrefix + "ARCHIVE_PATH"); v != "" {
		cfg.ArchivePath = v
	}
	if v := os.Getenv(EnvPrefix + "TIMEZONE"); v != "" {
		cfg.Timezone = v
	}
	if v := os.Getenv(EnvPrefix + "DEFAULT_LOOKBACK"); v != "" {
		cfg.DefaultLookback = v
	}
	if v := os.Getenv(EnvPrefix + "OUTPUT_FORMAT"); v != "" {
		cfg.OutputFormat = OutputFormat(v)
	}
	if v := os.Getenv(EnvPrefix + "EXPORT_DIR"); v != "" {
		cfg.ExportDir = v
	}
	if v := os.Getenv(EnvPrefix + "MIN_WORDS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sMIN_WORDS: %w", EnvPrefix, err)
		}
		cfg.MinWords = n
	}
	if v := os.Getenv(EnvPrefix + "HTTP_ADDRESS"); v != "" {
		cfg.HTTPAddress = v
	}
	if v := os.Getenv(EnvPrefix + "LOG_JSON"); isTrue(v) {
		cfg.LogJSON = true
	}
	if v := os.Getenv(EnvPrefix + "DEBUG"); isTrue(v) {
		cfg.Debug = true
	}
	return nil
}

func isTrue(v string) bool {
	return v == "true" || v == "1"
}

// Validate checks that the configuration is valid.
func (c *CLIConfig) Validate() error {
	if strings.TrimSpace(c.ArchivePath) == "" {
		return fmt.Errorf("archive_path is required")
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}

	if !timeutil.IsRelative(c.DefaultLookback) {
		return fmt.Errorf("invalid default_lookback %q (must be relative, like 3d or 1w)", c.DefaultLookback)
	}

	if !c.OutputFormat.IsValid() {
		return fmt.Errorf("invalid output_format: %q (must be text, json, or yaml)", c.OutputFormat)
	}

	if c.MinWords < 0 {
		return fmt.Errorf("min_words must not be negative")
	}

	return nil
}

// ResolvedArchivePath returns ArchivePath with ~ expanded.
func (c *CLIConfig) ResolvedArchivePath() (string, error) {
	return ExpandPath(c.ArchivePath)
}

// IsValid checks if the output format is valid.
func (f OutputFormat) IsValid() bool {
	switch f {
	case OutputFormatText, OutputFormatJSON, OutputFormatYAML:
		return true
	default:
		return false
	}
}

// String returns the string representation of the output format.
func (f OutputFormat) String() string {
	return string(f)
}

// SaveConfig saves the configuration to the config file.
func SaveConfig(cfg *CLIConfig) error {
	configDir, err := ConfigDir()
	if err != nil {
		return fmt.Errorf("getting config directory: %w", err)
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	configPath := filepath.Join(configDir, DefaultConfigFile)
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}
