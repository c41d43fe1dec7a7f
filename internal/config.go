package internal

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Config holds application configuration
type Config struct {
	Concurrency int    `toml:"concurrency"`
	Timeout     int    `toml:"timeout"`
	Proxy       string `toml:"proxy,omitempty"`
	RateLimit   string `toml:"rate_limit,omitempty"`
	UserAgent   string `toml:"user_agent,omitempty"`
	HistoryDB   string `toml:"history_db,omitempty"`

	Username string `toml:"username,omitempty"`
	Password string `toml:"password,omitempty"`

	// Logging configuration
	LogLevel    string `toml:"log_level"`
	EnableDebug bool   `toml:"debug"`
	QuietMode   bool   `toml:"quiet"`
	LogFile     string `toml:"log_file,omitempty"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Concurrency: 5,
		Timeout:     60,
		UserAgent:   "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",

		LogLevel:    "info",
		EnableDebug: false,
		QuietMode:   false,
		LogFile:     "", // Empty means stderr
	}
}

// DefaultConfigPath returns $XDG_CONFIG_HOME/catbox-cli/config.toml, falling back to the OS user config dir
func DefaultConfigPath() (string, error) {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		var err error
		dir, err = os.UserConfigDir()
		if err != nil {
			return "", fmt.Errorf("failed to locate config directory: %w", err)
		}
	}
	return filepath.Join(dir, "catbox-cli", "config.toml"), nil
}

// LoadConfig reads a TOML file over the defaults. A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := toml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return config, nil
}

// SaveConfig writes the configuration as TOML, readable only by the owner
func (c *Config) SaveConfig(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	defer file.Close()

	// OpenFile keeps the mode of an existing file
	if err := file.Chmod(0600); err != nil {
		return fmt.Errorf("failed to restrict config file: %w", err)
	}

	if err := toml.NewEncoder(file).Encode(c); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	return nil
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() {
	if concurrency := os.Getenv("CATBOX_CONCURRENCY"); concurrency != "" {
		if n, err := strconv.Atoi(concurrency); err == nil && n > 0 && n <= 32 {
			c.Concurrency = n
		}
	}

	if timeout := os.Getenv("CATBOX_TIMEOUT"); timeout != "" {
		if t, err := strconv.Atoi(timeout); err == nil && t > 0 {
			c.Timeout = t
		}
	}

	c.Proxy = GetEnvWithDefault("CATBOX_PROXY", c.Proxy)
	c.RateLimit = GetEnvWithDefault("CATBOX_RATE_LIMIT", c.RateLimit)
	c.Username = GetEnvWithDefault("CATBOX_USERNAME", c.Username)
	c.Password = GetEnvWithDefault("CATBOX_PASSWORD", c.Password)
	c.HistoryDB = GetEnvWithDefault("CATBOX_HISTORY_DB", c.HistoryDB)

	if logLevel := os.Getenv("CATBOX_LOG_LEVEL"); logLevel != "" {
		c.LogLevel = logLevel
	}

	if debug := os.Getenv("CATBOX_DEBUG"); debug != "" {
		c.EnableDebug = debug == "true" || debug == "1"
	}

	if quiet := os.Getenv("CATBOX_QUIET"); quiet != "" {
		c.QuietMode = quiet == "true" || quiet == "1"
	}

	if logFile := os.Getenv("CATBOX_LOG_FILE"); logFile != "" {
		c.LogFile = logFile
	}
}

// GetEnvWithDefault returns environment variable value or default
func GetEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// ValidateConfig validates the configuration values
func (c *Config) ValidateConfig() error {
	if c.Concurrency < 1 || c.Concurrency > 32 {
		return NewValidationErrorWithValue("concurrency", "must be 1-32", c.Concurrency)
	}

	if c.Timeout < 1 {
		return NewValidationErrorWithValue("timeout", "must be > 0", c.Timeout)
	}

	return nil
}

// Credentials implements CredentialSource
func (c *Config) Credentials() (Credentials, error) {
	if c.Username == "" {
		return Credentials{}, NewCredentialMissingError("username")
	}
	if c.Password == "" {
		return Credentials{}, NewCredentialMissingError("password")
	}
	return Credentials{Username: c.Username, Password: c.Password}, nil
}
