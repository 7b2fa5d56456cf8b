// Package crawler sequences one crawl run: read the watermark, fetch new
// reaction pages, download attached media, and upsert the normalized
// entities. Fetch and persist run on the control goroutine; only media
// downloads fan out.
package crawler

import (
	"context"
	"time"

	"mkcrawler/internal/downloader"
	"mkcrawler/pkg/config"
	"mkcrawler/pkg/logger"
	"mkcrawler/pkg/models"
	"mkcrawler/pkg/normalize"
	"mkcrawler/pkg/ratelimit"
	"mkcrawler/pkg/storage"
	"mkcrawler/pkg/store"
)

// PageFetcher retrieves one page of aggregates newer than the watermark
type PageFetcher interface {
	Fetch(ctx context.Context, sinceID string) ([]normalize.Aggregate, error)
}

// RecordStore is the slice of the store the crawler drives
type RecordStore interface {
	LatestReaction(ctx context.Context) (*models.Reaction, error)
	UpsertReactions(ctx context.Context, records []models.Reaction) ([]store.Outcome, error)
	UpsertNotes(ctx context.Context, records []models.Note) ([]store.Outcome, error)
	UpsertUsers(ctx context.Context, records []models.User) ([]store.Outcome, error)
	UpsertMedia(ctx context.Context, records []models.Media) ([]store.Outcome, error)
}

// Crawler orchestrates the crawl pipeline
type Crawler struct {
	fetcher     PageFetcher
	store       RecordStore
	media       downloader.MediaFetcher
	storage     *storage.Manager
	rateLimiter ratelimit.Limiter
	concurrency int
	logger      logger.Logger
}

// New creates a Crawler. The storage manager for the configured save root
// is created here; fetcher, record store and media fetcher are injected.
func New(cfg *config.Config, fetcher PageFetcher, recordStore RecordStore, media downloader.MediaFetcher) (*Crawler, error) {
	log := logger.GetLogger()

	storageManager, err := storage.NewManager(cfg.Download.SaveDirectory)
	if err != nil {
		return nil, err
	}

	return &Crawler{
		fetcher:     fetcher,
		store:       recordStore,
		media:       media,
		storage:     storageManager,
		rateLimiter: ratelimit.NewTokenBucket(cfg.RateLimit.RequestsPerMinute, time.Minute),
		concurrency: cfg.Download.Concurrency,
		logger:      log,
	}, nil
}

// Run executes one crawl. Media downloads happen before any upsert, so a
// download failure leaves the store and the watermark untouched and the
// whole page is retried on the next invocation.
func (c *Crawler) Run(ctx context.Context) error {
	watermark := ""
	last, err := c.store.LatestReaction(ctx)
	if err != nil {
		return err
	}
	if last != nil {
		watermark = last.ReactionID
	}
	c.logger.InfoWithFields("Crawl started", map[string]interface{}{
		"watermark": watermark,
	})

	aggregates, err := c.fetcher.Fetch(ctx, watermark)
	if err != nil {
		return err
	}
	if len(aggregates) == 0 {
		c.logger.Info("No new reactions, crawl finished")
		return nil
	}

	reactions, notes, users, media := Flatten(aggregates)
	c.logger.InfoWithFields("Page flattened", map[string]interface{}{
		"reactions": len(reactions),
		"notes":     len(notes),
		"users":     len(users),
		"media":     len(media),
	})

	if err := c.downloadAll(media); err != nil {
		return err
	}

	// Persist in a fixed order so every run produces the same sequence
	if outcomes, err := c.store.UpsertReactions(ctx, reactions); err != nil {
		return err
	} else {
		logUpsert("reaction", outcomes)
	}
	if outcomes, err := c.store.UpsertNotes(ctx, notes); err != nil {
		return err
	} else {
		logUpsert("note", outcomes)
	}
	if outcomes, err := c.store.UpsertUsers(ctx, users); err != nil {
		return err
	} else {
		logUpsert("user", outcomes)
	}
	if outcomes, err := c.store.UpsertMedia(ctx, media); err != nil {
		return err
	} else {
		logUpsert("media", outcomes)
	}

	c.logger.Info("Crawl finished")
	return nil
}

// downloadAll runs the media batch through the worker pool and waits for
// every dispatched fetch. The first failed result fails the batch.
func (c *Crawler) downloadAll(media []models.Media) error {
	if len(media) == 0 {
		return nil
	}

	pool := downloader.NewWorkerPool(c.concurrency, c.media, c.storage, c.rateLimiter, c.logger)
	pool.Start()

	done := make(chan error, 1)
	go func() {
		var firstErr error
		for result := range pool.Results() {
			logger.LogDownload(result.Job.Media.MediaID, result.Job.Filename, result.Success && !result.Skipped, result.Err)
			if result.Err != nil && firstErr == nil {
				firstErr = result.Err
			}
		}
		done <- firstErr
	}()

	for _, m := range media {
		filename, err := m.Filename()
		if err != nil {
			// Normalization validates filenames, so this cannot happen for
			// media that came through the pipeline
			pool.Stop()
			<-done
			return err
		}
		if err := pool.Submit(downloader.Job{Media: m, Filename: filename}); err != nil {
			pool.Stop()
			<-done
			return err
		}
	}

	pool.Stop()
	return <-done
}

func logUpsert(entity string, outcomes []store.Outcome) {
	inserted, updated := 0, 0
	for _, o := range outcomes {
		if o == store.Inserted {
			inserted++
		} else {
			updated++
		}
	}
	logger.LogUpsert(entity, inserted, updated)
}
