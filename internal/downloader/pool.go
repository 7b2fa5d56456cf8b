// Package downloader runs media downloads on a bounded worker pool. Each job
// is one media item; already-saved destinations are skipped without network
// I/O, which is what makes a re-run of a failed page cheap.
package downloader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"mkcrawler/pkg/logger"
	"mkcrawler/pkg/models"
	"mkcrawler/pkg/ratelimit"
)

// Job represents a single media download task
type Job struct {
	Media    models.Media
	Filename string
}

// Result represents the result of a download job
type Result struct {
	Job      Job
	Success  bool
	Skipped  bool
	Err      error
	Duration time.Duration
	Size     int
}

// MediaFetcher fetches one media payload
type MediaFetcher interface {
	FetchMedia(ctx context.Context, url string) ([]byte, error)
}

// MediaStorage persists media payloads idempotently
type MediaStorage interface {
	IsDownloaded(filename string) bool
	Save(r io.Reader, filename string) error
}

// WorkerPool manages concurrent download workers
type WorkerPool struct {
	numWorkers  int
	jobQueue    chan Job
	resultQueue chan Result
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	fetcher     MediaFetcher
	storage     MediaStorage
	rateLimiter ratelimit.Limiter
	logger      logger.Logger
}

// NewWorkerPool creates a new download worker pool
func NewWorkerPool(
	numWorkers int,
	fetcher MediaFetcher,
	storage MediaStorage,
	rateLimiter ratelimit.Limiter,
	log logger.Logger,
) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())

	if log == nil {
		log = logger.GetLogger()
	}

	return &WorkerPool{
		numWorkers:  numWorkers,
		jobQueue:    make(chan Job, numWorkers*2),
		resultQueue: make(chan Result, numWorkers),
		ctx:         ctx,
		cancel:      cancel,
		fetcher:     fetcher,
		storage:     storage,
		rateLimiter: rateLimiter,
		logger:      log,
	}
}

// Start initializes and starts all workers
func (wp *WorkerPool) Start() {
	wp.logger.DebugWithFields("Starting worker pool", map[string]interface{}{
		"num_workers": wp.numWorkers,
	})

	for i := 0; i < wp.numWorkers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// Stop closes the job queue, waits for in-flight jobs to finish, then
// closes the result queue.
func (wp *WorkerPool) Stop() {
	close(wp.jobQueue)
	wp.wg.Wait()
	close(wp.resultQueue)
	wp.cancel()

	wp.logger.Debug("Worker pool stopped")
}

// Submit adds a new download job to the queue
func (wp *WorkerPool) Submit(job Job) error {
	select {
	case wp.jobQueue <- job:
		return nil
	case <-wp.ctx.Done():
		return fmt.Errorf("worker pool is shutting down")
	}
}

// Results returns the result channel for consuming download results
func (wp *WorkerPool) Results() <-chan Result {
	return wp.resultQueue
}

// worker is the main worker routine
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for job := range wp.jobQueue {
		select {
		case <-wp.ctx.Done():
			return
		default:
		}

		result := wp.processJob(job, id)

		select {
		case wp.resultQueue <- result:
		case <-wp.ctx.Done():
			return
		}
	}
}

// processJob handles a single download job
func (wp *WorkerPool) processJob(job Job, workerID int) Result {
	start := time.Now()
	result := Result{
		Job: job,
	}

	// Idempotent skip: an already-materialized destination means no fetch
	if wp.storage.IsDownloaded(job.Filename) {
		wp.logger.DebugWithFields("Media already saved", map[string]interface{}{
			"worker_id": workerID,
			"media_id":  job.Media.MediaID,
			"filename":  job.Filename,
		})
		result.Success = true
		result.Skipped = true
		result.Duration = time.Since(start)
		return result
	}

	if wp.rateLimiter != nil && !wp.rateLimiter.Allow() {
		wp.rateLimiter.Wait()
	}

	data, err := wp.fetcher.FetchMedia(wp.ctx, job.Media.URL)
	if err != nil {
		result.Err = err
		result.Duration = time.Since(start)

		wp.logger.ErrorWithFields("Worker failed to fetch media", map[string]interface{}{
			"worker_id": workerID,
			"media_id":  job.Media.MediaID,
			"url":       job.Media.URL,
			"error":     err.Error(),
		})
		return result
	}
	result.Size = len(data)

	if err := wp.storage.Save(bytes.NewReader(data), job.Filename); err != nil {
		result.Err = fmt.Errorf("save failed: %w", err)
		result.Duration = time.Since(start)

		wp.logger.ErrorWithFields("Worker failed to save media", map[string]interface{}{
			"worker_id": workerID,
			"media_id":  job.Media.MediaID,
			"filename":  job.Filename,
			"error":     err.Error(),
		})
		return result
	}

	result.Success = true
	result.Duration = time.Since(start)

	wp.logger.DebugWithFields("Worker completed job", map[string]interface{}{
		"worker_id": workerID,
		"media_id":  job.Media.MediaID,
		"filename":  job.Filename,
		"size":      result.Size,
		"duration":  result.Duration,
	})

	return result
}

// QueueSize returns the current number of jobs in the queue
func (wp *WorkerPool) QueueSize() int {
	return len(wp.jobQueue)
}
