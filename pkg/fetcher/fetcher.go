// Package fetcher retrieves one page of raw reaction records since a
// watermark and normalizes it into aggregates, oldest-first.
package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"mkcrawler/pkg/config"
	"mkcrawler/pkg/logger"
	"mkcrawler/pkg/misskey"
	"mkcrawler/pkg/normalize"
)

const cacheSuffix = "_reactions.json"

// ReactionAPI is the slice of the Misskey client the fetcher needs
type ReactionAPI interface {
	Me(ctx context.Context) (misskey.Account, error)
	UserReactions(ctx context.Context, userID string, limit int, sinceID string) ([]map[string]any, error)
	Instance() string
}

// cacheFile is the debug/replay artifact written per non-empty fetch
type cacheFile struct {
	Result []map[string]any `json:"result"`
}

// Fetcher retrieves and normalizes reaction pages
type Fetcher struct {
	client   ReactionAPI
	pageSize int
	cacheDir string
	replay   bool
	logger   logger.Logger
}

// New creates a Fetcher. The cache directory is created up front.
func New(client ReactionAPI, cfg *config.FetchConfig, log logger.Logger) (*Fetcher, error) {
	if log == nil {
		log = logger.GetLogger()
	}
	if err := os.MkdirAll(cfg.CacheDirectory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &Fetcher{
		client:   client,
		pageSize: cfg.PageSize,
		cacheDir: cfg.CacheDirectory,
		replay:   cfg.Replay,
		logger:   log,
	}, nil
}

// Fetch retrieves one page of reactions newer than sinceID and returns the
// normalized aggregates oldest-first, so downstream consumers persist in
// chronological order and the watermark only ever advances. An empty sinceID
// fetches all history. Records that fail normalization are logged and
// skipped; they never fail the page.
func (f *Fetcher) Fetch(ctx context.Context, sinceID string) ([]normalize.Aggregate, error) {
	var records []map[string]any
	var err error

	if f.replay {
		records, err = f.loadLatestCache()
	} else {
		records, err = f.fetchLive(ctx, sinceID)
	}
	if err != nil {
		return nil, err
	}

	// The API returns newest-first; reverse to oldest-first.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}

	host := f.client.Instance()
	aggregates := make([]normalize.Aggregate, 0, len(records))
	for _, record := range records {
		aggregate, err := normalize.Normalize(record, host)
		if err != nil {
			reactionID, _ := record["id"].(string)
			logger.LogSkippedRecord(reactionID, err)
			continue
		}
		aggregates = append(aggregates, aggregate)
	}

	f.logger.InfoWithFields("page normalized", map[string]interface{}{
		"raw_count":       len(records),
		"aggregate_count": len(aggregates),
		"since_id":        sinceID,
	})
	return aggregates, nil
}

// fetchLive pulls one page from the API and writes the raw page to a
// timestamped cache file for deterministic replay
func (f *Fetcher) fetchLive(ctx context.Context, sinceID string) ([]map[string]any, error) {
	account, err := f.client.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve token owner: %w", err)
	}

	records, err := f.client.UserReactions(ctx, account.ID, f.pageSize, sinceID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reactions: %w", err)
	}

	if len(records) > 0 {
		if err := f.writeCache(records); err != nil {
			// The cache is a debug artifact; a failed write never fails the run
			f.logger.WithError(err).Warn("Failed to write fetch cache")
		}
	}

	return records, nil
}

// writeCache saves the raw page as {"result": [...]} in a timestamped file
func (f *Fetcher) writeCache(records []map[string]any) error {
	data, err := json.MarshalIndent(cacheFile{Result: records}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}

	name := time.Now().Format("20060102150405") + cacheSuffix
	path := filepath.Join(f.cacheDir, name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	f.logger.DebugWithFields("fetch cache written", map[string]interface{}{
		"path":  path,
		"count": len(records),
	})
	return nil
}

// loadLatestCache reads the most recent cache file instead of the network
func (f *Fetcher) loadLatestCache() ([]map[string]any, error) {
	matches, err := filepath.Glob(filepath.Join(f.cacheDir, "*"+cacheSuffix))
	if err != nil {
		return nil, fmt.Errorf("failed to list cache files: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no cache file exists in %s", f.cacheDir)
	}

	// Timestamped names sort chronologically
	sort.Strings(matches)
	path := matches[len(matches)-1]

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}

	var cached cacheFile
	if err := json.Unmarshal(data, &cached); err != nil {
		return nil, fmt.Errorf("failed to decode cache file %s: %w", path, err)
	}

	f.logger.InfoWithFields("replaying cached page", map[string]interface{}{
		"path":  path,
		"count": len(cached.Result),
	})
	return cached.Result, nil
}
