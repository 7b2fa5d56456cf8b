package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mkcrawler/pkg/auth"
	"mkcrawler/pkg/config"
	"mkcrawler/pkg/crawler"
	"mkcrawler/pkg/fetcher"
	"mkcrawler/pkg/logger"
	"mkcrawler/pkg/misskey"
	"mkcrawler/pkg/store"
)

var (
	// Crawl command flags
	instanceHost string
	pageSize     int
	concurrent   int
	rateLimit    int
	saveDir      string
	cacheDir     string
	dbPath       string
	replay       bool
	instanceName string
)

const apiTimeout = 30 * time.Second

// crawlCmd represents the crawl command
var crawlCmd = &cobra.Command{
	Use:   "crawl",
	Short: "Crawl new reactions and download their media",
	Long: `Fetch the reactions created since the last run, download the media
attached to the reacted notes, and upsert everything into the database.

Credentials are resolved through:
  - Stored credentials (use 'mkcrawler auth login' to store)
  - Environment variables (MKCRAWLER_INSTANCE and MKCRAWLER_TOKEN)
  - Configuration file

Media downloads happen before any database write. If a download fails,
nothing is persisted and the same page is fetched again on the next run.`,
	Example: `  # Crawl using default settings
  mkcrawler crawl

  # Crawl a specific instance with custom concurrency
  mkcrawler crawl --instance misskey.example.com --concurrent 8

  # Re-process the most recent cached page without calling the API
  mkcrawler crawl --replay`,
	Args: cobra.NoArgs,
	Run:  runCrawl,
}

func init() {
	rootCmd.AddCommand(crawlCmd)

	registerCrawlFlags(crawlCmd)
	// Also register on the root command so crawling works without the
	// "crawl" subcommand
	registerCrawlFlags(rootCmd)
}

func registerCrawlFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&instanceHost, "instance", "i", "", "Misskey instance host (e.g. misskey.io)")
	cmd.Flags().IntVar(&pageSize, "page-size", 100, "maximum reactions fetched per run")
	cmd.Flags().IntVar(&concurrent, "concurrent", 4, "number of concurrent media downloads")
	cmd.Flags().IntVar(&rateLimit, "rate-limit", 60, "media requests per minute")
	cmd.Flags().StringVarP(&saveDir, "save-dir", "o", "", "directory for downloaded media")
	cmd.Flags().StringVar(&cacheDir, "cache-dir", "", "directory for fetched page caches")
	cmd.Flags().StringVar(&dbPath, "db", "", "path to the SQLite database")
	cmd.Flags().BoolVar(&replay, "replay", false, "re-process the latest cached page instead of calling the API")
	cmd.Flags().StringVarP(&instanceName, "account", "a", "", "use stored credentials for a specific instance")
}

func runCrawl(cmd *cobra.Command, args []string) {
	// Build flags map from command line
	flags := make(map[string]interface{})
	if instanceHost != "" {
		flags["instance"] = instanceHost
	}
	if pageSize != 100 {
		flags["page-size"] = pageSize
	}
	if concurrent != 4 {
		flags["concurrency"] = concurrent
	}
	if rateLimit != 60 {
		flags["requests-per-minute"] = rateLimit
	}
	if saveDir != "" {
		flags["save-dir"] = saveDir
	}
	if cacheDir != "" {
		flags["cache-dir"] = cacheDir
	}
	if dbPath != "" {
		flags["db"] = dbPath
	}
	if replay {
		flags["replay"] = true
	}
	if logLevel != "info" {
		flags["log-level"] = logLevel
	}

	// Resolve stored credentials before validation so a config file
	// without a token still works
	if creds := resolveCredentials(); creds != nil {
		if _, ok := flags["instance"]; !ok && creds.Instance != "default" {
			flags["instance"] = creds.Instance
		}
		flags["token"] = creds.Token
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load configuration:", err)
		fmt.Fprintln(os.Stderr, "\nTo store credentials securely, run:")
		fmt.Fprintln(os.Stderr, "  mkcrawler auth login")
		os.Exit(1)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		fmt.Fprintln(os.Stderr, "failed to initialize logger:", err)
		os.Exit(1)
	}
	log := logger.GetLogger()
	log.WithField("version", version).Info("mkcrawler starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := misskey.NewClient(cfg.Misskey.Instance, cfg.Misskey.Token,
		apiTimeout, cfg.Download.ConnectTimeout, cfg.Download.ReadTimeout, log)

	pages, err := fetcher.New(client, &cfg.Fetch, log)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize fetcher")
	}

	db, err := store.Open(cfg.Database.Path)
	if err != nil {
		log.WithError(err).Fatal("Failed to open database")
	}
	defer db.Close()

	c, err := crawler.New(cfg, pages, db, client)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize crawler")
	}

	if err := c.Run(ctx); err != nil {
		log.WithError(err).Error("Crawl failed")
		os.Exit(1)
	}

	log.Info("Crawl completed successfully")
}

// resolveCredentials loads stored credentials, preferring the instance named
// with --account. A nil return means the config file or environment must
// carry the token.
func resolveCredentials() *auth.Credentials {
	manager, err := auth.NewManager()
	if err != nil {
		return nil
	}

	if instanceName != "" {
		creds, err := manager.Retrieve(instanceName)
		if err != nil {
			fmt.Fprintln(os.Stderr, "stored credentials not found for instance:", instanceName)
			fmt.Fprintln(os.Stderr, "use 'mkcrawler auth list' to see stored instances")
			os.Exit(1)
		}
		return creds
	}

	creds, err := manager.RetrieveDefault()
	if err != nil {
		return nil
	}
	return creds
}
