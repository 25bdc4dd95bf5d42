// Package config loads the minutes workspace configuration from a YAML file,
// environment variables and command-line flags, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default configuration values.
const (
	DefaultBaseURL    = "http://localhost:8000"
	DefaultLogLevel   = "info"
	DefaultConfigDir  = "minutes-workspace"
	DefaultConfigFile = "config.yaml"
	DefaultLogFile    = "workspace.log"
)

// AllowedExtensions is the file picker hint; content is never validated locally.
var AllowedExtensions = []string{".pdf", ".txt"}

// Config holds the effective settings.
type Config struct {
	// BaseURL is the address of the minutes service.
	BaseURL string `yaml:"base_url"`

	// RequestTimeout bounds each request. Zero keeps the HTTP client defaults.
	RequestTimeout time.Duration `yaml:"request_timeout"`

	// LogFile receives the diagnostic log. The TUI owns the terminal.
	LogFile string `yaml:"log_file"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// LogJSON switches the log file to JSON lines.
	LogJSON bool `yaml:"log_json"`

	// StartDir is where the file picker opens.
	StartDir string `yaml:"start_dir,omitempty"`
}

// Default returns a Config with defaults applied.
func Default() *Config {
	return &Config{
		BaseURL:  DefaultBaseURL,
		LogFile:  defaultLogFile(),
		LogLevel: DefaultLogLevel,
	}
}

// Load reads the config file at path, or the default location when path is
// empty, then applies environment overrides. A missing default file is not an
// error; a missing explicit file is. The result is not validated: callers
// layer flag overrides on top and then call Validate.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			if explicit || !errors.Is(err, fs.ErrNotExist) {
				return nil, err
			}
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	c.LogFile = expandPath(c.LogFile)
	c.StartDir = expandPath(c.StartDir)
	return nil
}

func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("MINUTES_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("MINUTES_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: MINUTES_TIMEOUT: %w", err)
		}
		cfg.RequestTimeout = d
	}
	if v := os.Getenv("MINUTES_LOG_FILE"); v != "" {
		cfg.LogFile = expandPath(v)
	}
	if v := os.Getenv("MINUTES_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	return nil
}

// Validate checks the fields that would otherwise fail late.
func (c *Config) Validate() error {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return fmt.Errorf("config: base_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("config: base_url %q must be an http or https URL", c.BaseURL)
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("config: request_timeout must not be negative")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: unknown log_level %q", c.LogLevel)
	}
	return nil
}

// YAML renders the config as it would appear in the config file.
func (c *Config) YAML() (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// DefaultPath returns $XDG_CONFIG_HOME/minutes-workspace/config.yaml or the
// ~/.config equivalent. Empty when no home directory is known.
func DefaultPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, DefaultConfigDir, DefaultConfigFile)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", DefaultConfigDir, DefaultConfigFile)
}

func defaultLogFile() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, DefaultConfigDir, DefaultLogFile)
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
