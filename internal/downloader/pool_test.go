package downloader

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"mkcrawler/pkg/models"
	"mkcrawler/pkg/ratelimit"
)

// MockFetcher is a mock implementation of the media fetcher
type MockFetcher struct {
	fetchDelay   time.Duration
	fetchError   error
	fetchCounter int32
}

func (m *MockFetcher) FetchMedia(ctx context.Context, url string) ([]byte, error) {
	atomic.AddInt32(&m.fetchCounter, 1)
	if m.fetchDelay > 0 {
		time.Sleep(m.fetchDelay)
	}
	if m.fetchError != nil {
		return nil, m.fetchError
	}
	return []byte("mock media data"), nil
}

func (m *MockFetcher) GetFetchCount() int {
	return int(atomic.LoadInt32(&m.fetchCounter))
}

// MockStorage is a mock implementation of the media storage
type MockStorage struct {
	savedFiles map[string]bool
	saveError  error
	mu         sync.Mutex
}

func NewMockStorage() *MockStorage {
	return &MockStorage{
		savedFiles: make(map[string]bool),
	}
}

func (m *MockStorage) IsDownloaded(filename string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.savedFiles[filename]
}

func (m *MockStorage) Save(r io.Reader, filename string) error {
	if m.saveError != nil {
		return m.saveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.savedFiles[filename] = true
	return nil
}

func (m *MockStorage) GetSavedCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.savedFiles)
}

func makeJob(i int) Job {
	return Job{
		Media: models.Media{
			NoteID:  fmt.Sprintf("note%d", i),
			MediaID: fmt.Sprintf("media%d", i),
			URL:     fmt.Sprintf("https://example.com/files/photo%d.jpg", i),
		},
		Filename: fmt.Sprintf("note%d_media%d_photo%d.jpg", i, i, i),
	}
}

func TestWorkerPoolBasicFunctionality(t *testing.T) {
	mockFetcher := &MockFetcher{fetchDelay: 10 * time.Millisecond}
	mockStorage := NewMockStorage()
	rateLimiter := ratelimit.NewTokenBucket(100, time.Second)

	pool := NewWorkerPool(3, mockFetcher, mockStorage, rateLimiter, nil)
	pool.Start()

	var results []Result
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for result := range pool.Results() {
			results = append(results, result)
		}
	}()

	numJobs := 10
	for i := 0; i < numJobs; i++ {
		if err := pool.Submit(makeJob(i)); err != nil {
			t.Errorf("Failed to submit job %d: %v", i, err)
		}
	}

	pool.Stop()
	wg.Wait()

	if len(results) != numJobs {
		t.Errorf("Expected %d results, got %d", numJobs, len(results))
	}

	successCount := 0
	for _, result := range results {
		if result.Success {
			successCount++
		}
	}

	if successCount != numJobs {
		t.Errorf("Expected %d successful downloads, got %d", numJobs, successCount)
	}

	if mockFetcher.GetFetchCount() != numJobs {
		t.Errorf("Expected %d fetch calls, got %d", numJobs, mockFetcher.GetFetchCount())
	}

	if mockStorage.GetSavedCount() != numJobs {
		t.Errorf("Expected %d saved files, got %d", numJobs, mockStorage.GetSavedCount())
	}
}

func TestWorkerPoolWithErrors(t *testing.T) {
	mockFetcher := &MockFetcher{
		fetchError: fmt.Errorf("fetch error"),
	}
	mockStorage := NewMockStorage()
	rateLimiter := ratelimit.NewTokenBucket(100, time.Second)

	pool := NewWorkerPool(2, mockFetcher, mockStorage, rateLimiter, nil)
	pool.Start()

	var results []Result
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for result := range pool.Results() {
			results = append(results, result)
		}
	}()

	numJobs := 5
	for i := 0; i < numJobs; i++ {
		if err := pool.Submit(makeJob(i)); err != nil {
			t.Errorf("Failed to submit job %d: %v", i, err)
		}
	}

	pool.Stop()
	wg.Wait()

	if len(results) != numJobs {
		t.Errorf("Expected %d results, got %d", numJobs, len(results))
	}

	for _, result := range results {
		if result.Success {
			t.Error("Expected all downloads to fail")
		}
		if result.Err == nil {
			t.Error("Expected error in result")
		}
	}

	if mockStorage.GetSavedCount() != 0 {
		t.Errorf("Expected 0 saved files, got %d", mockStorage.GetSavedCount())
	}
}

func TestWorkerPoolConcurrency(t *testing.T) {
	mockFetcher := &MockFetcher{fetchDelay: 100 * time.Millisecond}
	mockStorage := NewMockStorage()
	rateLimiter := ratelimit.NewTokenBucket(100, time.Second)

	pool := NewWorkerPool(5, mockFetcher, mockStorage, rateLimiter, nil)
	pool.Start()

	var results []Result
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for result := range pool.Results() {
			results = append(results, result)
		}
	}()

	numJobs := 10
	startTime := time.Now()

	for i := 0; i < numJobs; i++ {
		if err := pool.Submit(makeJob(i)); err != nil {
			t.Errorf("Failed to submit job %d: %v", i, err)
		}
	}

	pool.Stop()
	wg.Wait()

	elapsed := time.Since(startTime)

	// With 5 workers and 10 jobs taking 100ms each, it should take ~200ms
	// Allow some buffer for overhead
	expectedTime := 500 * time.Millisecond
	if elapsed > expectedTime {
		t.Errorf("Downloads took too long: %v (expected < %v)", elapsed, expectedTime)
	}

	if len(results) != numJobs {
		t.Errorf("Expected %d results, got %d", numJobs, len(results))
	}
}

func TestWorkerPoolSkipsExistingFiles(t *testing.T) {
	mockFetcher := &MockFetcher{}
	mockStorage := NewMockStorage()

	// Pre-populate some already-downloaded files
	existing1 := makeJob(1)
	existing2 := makeJob(3)
	mockStorage.savedFiles[existing1.Filename] = true
	mockStorage.savedFiles[existing2.Filename] = true

	rateLimiter := ratelimit.NewTokenBucket(100, time.Second)

	pool := NewWorkerPool(2, mockFetcher, mockStorage, rateLimiter, nil)
	pool.Start()

	var results []Result
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for result := range pool.Results() {
			results = append(results, result)
		}
	}()

	numJobs := 4
	for i := 0; i < numJobs; i++ {
		if err := pool.Submit(makeJob(i)); err != nil {
			t.Errorf("Failed to submit job: %v", err)
		}
	}

	pool.Stop()
	wg.Wait()

	if len(results) != numJobs {
		t.Errorf("Expected %d results, got %d", numJobs, len(results))
	}

	skipped := 0
	for _, result := range results {
		if !result.Success {
			t.Errorf("Expected job %s to succeed", result.Job.Filename)
		}
		if result.Skipped {
			skipped++
		}
	}

	if skipped != 2 {
		t.Errorf("Expected 2 skipped jobs, got %d", skipped)
	}

	// Only the new files should have been fetched
	if mockFetcher.GetFetchCount() != 2 {
		t.Errorf("Expected 2 fetches, got %d", mockFetcher.GetFetchCount())
	}

	// Total saved should be 4 (2 existing + 2 new)
	if mockStorage.GetSavedCount() != 4 {
		t.Errorf("Expected 4 saved files, got %d", mockStorage.GetSavedCount())
	}
}
