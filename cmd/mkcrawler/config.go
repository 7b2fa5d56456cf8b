package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"mkcrawler/pkg/config"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage mkcrawler configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file will be created in the current directory as 'mkcrawler.yaml'
unless a different path is specified with the --config flag.`,
	Run: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the current configuration merged from all sources.

The API token is masked for security.`,
	Run: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate a configuration file for syntax errors and invalid values.

This command checks:
  - YAML syntax
  - Required fields
  - Value types and ranges
  - Path accessibility`,
	Run: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) {
	configPath := configFile
	if configPath == "" {
		configPath = "mkcrawler.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		fmt.Fprintln(os.Stderr, "configuration file already exists:", configPath)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		os.Exit(1)
	}

	exampleConfig := `# mkcrawler Configuration File
#
# This file contains all available configuration options.
# You can also use environment variables prefixed with MKCRAWLER_
# For example: MKCRAWLER_INSTANCE, MKCRAWLER_TOKEN

# Misskey instance settings
misskey:
  # Instance host (required)
  instance: "misskey.io"

  # API token (required)
  # Prefer 'mkcrawler auth login' over putting the token here
  token: ""

# Reaction fetch settings
fetch:
  # Maximum reactions fetched per run
  # Range: 1-100 (the API caps pages at 100)
  page_size: 100

  # Directory for fetched page caches
  cache_directory: "./cache"

  # Re-process the most recent cached page instead of calling the API
  replay: false

# Media download settings
download:
  # Number of concurrent downloads
  # Range: 1-16
  concurrency: 4

  # Connection timeout for media requests
  connect_timeout: 10s

  # Read timeout for media requests
  read_timeout: 60s

  # Directory for downloaded media
  save_directory: "./media"

# Database settings
database:
  # Path to the SQLite database
  path: "./mkcrawler.db"

# Rate limiting for the media host
rate_limit:
  # Media requests per minute
  # Range: 1-120
  requests_per_minute: 60

# Logging settings
logging:
  # Log level: debug, info, warn, error
  level: "info"

  # Log file path (optional)
  # Leave empty to log to stdout only
  file: ""
`

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0644); err != nil {
		fmt.Fprintln(os.Stderr, "failed to create configuration file:", err)
		os.Exit(1)
	}

	fmt.Println("Configuration file created:", configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Edit the configuration file and set your instance host")
	fmt.Println("2. Store your API token with 'mkcrawler auth login'")
	fmt.Println("3. Run 'mkcrawler config validate' to check the configuration")
	fmt.Println("4. Start crawling with 'mkcrawler crawl'")
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(configFile, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		os.Exit(1)
	}

	// Create a sanitized version for display
	displayCfg := *cfg
	if displayCfg.Misskey.Token != "" {
		if len(displayCfg.Misskey.Token) > 8 {
			displayCfg.Misskey.Token = displayCfg.Misskey.Token[:4] + "..." + displayCfg.Misskey.Token[len(displayCfg.Misskey.Token)-4:]
		} else {
			displayCfg.Misskey.Token = "***"
		}
	}

	data, err := yaml.Marshal(&displayCfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to format configuration:", err)
		os.Exit(1)
	}

	fmt.Println("Current configuration:")
	fmt.Println()
	fmt.Print(string(data))

	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables (MKCRAWLER_*)")
	if configFile != "" {
		fmt.Printf("3. Configuration file: %s\n", configFile)
	} else {
		fmt.Println("3. Configuration file: (not specified)")
	}
	fmt.Println("4. Default values")
}

func runConfigValidate(cmd *cobra.Command, args []string) {
	if configFile == "" {
		// Try to find config file in common locations
		possiblePaths := []string{
			"mkcrawler.yaml",
			"mkcrawler.yml",
			".mkcrawler.yaml",
			".mkcrawler.yml",
			filepath.Join(os.Getenv("HOME"), ".mkcrawler.yaml"),
			filepath.Join(os.Getenv("HOME"), ".config", "mkcrawler", "config.yaml"),
		}

		for _, path := range possiblePaths {
			if _, err := os.Stat(path); err == nil {
				configFile = path
				break
			}
		}

		if configFile == "" {
			fmt.Fprintln(os.Stderr, "no configuration file found, specify one with --config")
			os.Exit(1)
		}
	}

	fmt.Println("Validating configuration:", configFile)

	cfg, err := config.Load(configFile, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration validation failed:", err)
		os.Exit(1)
	}

	warnings := []string{}
	errors := []string{}

	if cfg.Misskey.Token == "" {
		warnings = append(warnings, "API token not configured; 'mkcrawler auth login' or MKCRAWLER_TOKEN will be needed")
	}

	if cfg.Download.SaveDirectory != "" {
		if err := os.MkdirAll(cfg.Download.SaveDirectory, 0755); err != nil {
			errors = append(errors, fmt.Sprintf("cannot create save directory: %v", err))
		}
	}
	if cfg.Fetch.CacheDirectory != "" {
		if err := os.MkdirAll(cfg.Fetch.CacheDirectory, 0755); err != nil {
			errors = append(errors, fmt.Sprintf("cannot create cache directory: %v", err))
		}
	}
	if cfg.Logging.File != "" {
		dir := filepath.Dir(cfg.Logging.File)
		if err := os.MkdirAll(dir, 0755); err != nil {
			errors = append(errors, fmt.Sprintf("cannot create log directory: %v", err))
		}
	}

	if cfg.Fetch.PageSize > 100 {
		warnings = append(warnings, "page_size above 100 will be capped by the API")
	}
	if cfg.RateLimit.RequestsPerMinute > 120 {
		errors = append(errors, "requests_per_minute must not exceed 120")
	}

	if len(errors) > 0 {
		fmt.Fprintln(os.Stderr, "configuration has errors:")
		for _, e := range errors {
			fmt.Fprintf(os.Stderr, "  - %s\n", e)
		}
		os.Exit(1)
	}

	if len(warnings) > 0 {
		fmt.Println("Configuration warnings:")
		for _, w := range warnings {
			fmt.Printf("  - %s\n", w)
		}
		fmt.Println()
	}

	fmt.Println("Configuration is valid")

	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Instance: %s\n", cfg.Misskey.Instance)
	fmt.Printf("  Save directory: %s\n", cfg.Download.SaveDirectory)
	fmt.Printf("  Concurrent downloads: %d\n", cfg.Download.Concurrency)
	fmt.Printf("  Rate limit: %d requests/minute\n", cfg.RateLimit.RequestsPerMinute)
	fmt.Printf("  Database: %s\n", cfg.Database.Path)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
}
