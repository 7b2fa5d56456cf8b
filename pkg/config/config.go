package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the crawler
type Config struct {
	// Remote instance settings
	Misskey MisskeyConfig `yaml:"misskey" json:"misskey"`

	// Page fetch settings
	Fetch FetchConfig `yaml:"fetch" json:"fetch"`

	// Media download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Persistent store settings
	Database DatabaseConfig `yaml:"database" json:"database"`

	// Rate limiting for the media host
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// MisskeyConfig holds instance and credential configuration
type MisskeyConfig struct {
	Instance string `yaml:"instance" json:"instance"`
	Token    string `yaml:"token" json:"token"`
}

// FetchConfig holds reaction page fetch configuration
type FetchConfig struct {
	PageSize       int    `yaml:"page_size" json:"page_size"`
	CacheDirectory string `yaml:"cache_directory" json:"cache_directory"`
	Replay         bool   `yaml:"replay" json:"replay"`
}

// DownloadConfig holds media download configuration
type DownloadConfig struct {
	Concurrency    int           `yaml:"concurrency" json:"concurrency"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" json:"connect_timeout"`
	ReadTimeout    time.Duration `yaml:"read_timeout" json:"read_timeout"`
	SaveDirectory  string        `yaml:"save_directory" json:"save_directory"`
}

// DatabaseConfig holds SQLite store configuration
type DatabaseConfig struct {
	Path string `yaml:"path" json:"path"`
}

// RateLimitConfig holds media host rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Misskey: MisskeyConfig{
			Instance: "misskey.io",
		},
		Fetch: FetchConfig{
			PageSize:       100,
			CacheDirectory: "./cache",
			Replay:         false,
		},
		Download: DownloadConfig{
			Concurrency:    4,
			ConnectTimeout: 10 * time.Second,
			ReadTimeout:    60 * time.Second,
			SaveDirectory:  "./media",
		},
		Database: DatabaseConfig{
			Path: "./mkcrawler.db",
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 60,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	if instance := os.Getenv("MKCRAWLER_INSTANCE"); instance != "" {
		c.Misskey.Instance = instance
	}
	if token := os.Getenv("MKCRAWLER_TOKEN"); token != "" {
		c.Misskey.Token = token
	}
	if pageSize := os.Getenv("MKCRAWLER_PAGE_SIZE"); pageSize != "" {
		var val int
		fmt.Sscanf(pageSize, "%d", &val)
		if val > 0 {
			c.Fetch.PageSize = val
		}
	}
	if saveDir := os.Getenv("MKCRAWLER_SAVE_DIR"); saveDir != "" {
		c.Download.SaveDirectory = saveDir
	}
	if concurrency := os.Getenv("MKCRAWLER_CONCURRENCY"); concurrency != "" {
		var val int
		fmt.Sscanf(concurrency, "%d", &val)
		if val > 0 {
			c.Download.Concurrency = val
		}
	}
	if dbPath := os.Getenv("MKCRAWLER_DB_PATH"); dbPath != "" {
		c.Database.Path = dbPath
	}
	if logLevel := os.Getenv("MKCRAWLER_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	locations := []string{
		".mkcrawler.yaml",
		".mkcrawler.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "mkcrawler", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "mkcrawler", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".mkcrawler.yaml"),
		filepath.Join(os.Getenv("HOME"), ".mkcrawler.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Misskey.Instance == "" {
		errs = append(errs, errors.New("instance host is required"))
	}
	if c.Misskey.Token == "" {
		errs = append(errs, errors.New("API token is required"))
	}

	if c.Fetch.PageSize <= 0 {
		errs = append(errs, errors.New("page size must be positive"))
	}
	if c.Fetch.CacheDirectory == "" {
		errs = append(errs, errors.New("cache directory is required"))
	}

	if c.Download.Concurrency <= 0 {
		errs = append(errs, errors.New("download concurrency must be positive"))
	}
	if c.Download.Concurrency > 16 {
		errs = append(errs, errors.New("download concurrency should not exceed 16"))
	}
	if c.Download.ConnectTimeout <= 0 {
		errs = append(errs, errors.New("connect timeout must be positive"))
	}
	if c.Download.ReadTimeout <= 0 {
		errs = append(errs, errors.New("read timeout must be positive"))
	}
	if c.Download.SaveDirectory == "" {
		errs = append(errs, errors.New("save directory is required"))
	}

	if c.Database.Path == "" {
		errs = append(errs, errors.New("database path is required"))
	}

	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("requests per minute must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if instance, ok := flags["instance"].(string); ok && instance != "" {
		c.Misskey.Instance = instance
	}
	if token, ok := flags["token"].(string); ok && token != "" {
		c.Misskey.Token = token
	}
	if saveDir, ok := flags["save-dir"].(string); ok && saveDir != "" {
		c.Download.SaveDirectory = saveDir
	}
	if dbPath, ok := flags["db"].(string); ok && dbPath != "" {
		c.Database.Path = dbPath
	}
	if concurrency, ok := flags["concurrency"].(int); ok && concurrency > 0 {
		c.Download.Concurrency = concurrency
	}
	if pageSize, ok := flags["page-size"].(int); ok && pageSize > 0 {
		c.Fetch.PageSize = pageSize
	}
	if cacheDir, ok := flags["cache-dir"].(string); ok && cacheDir != "" {
		c.Fetch.CacheDirectory = cacheDir
	}
	if rpm, ok := flags["requests-per-minute"].(int); ok && rpm > 0 {
		c.RateLimit.RequestsPerMinute = rpm
	}
	if replay, ok := flags["replay"].(bool); ok {
		c.Fetch.Replay = replay
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// Try to load .env files (don't fail if they don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".env"))
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".mkcrawler.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	// Override with environment variables (includes values from .env)
	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
