package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mkcrawler/pkg/config"
	"mkcrawler/pkg/misskey"
)

// mockAPI is a canned-response implementation of ReactionAPI
type mockAPI struct {
	account     misskey.Account
	meErr       error
	records     []map[string]any
	reactionErr error

	gotUserID  string
	gotLimit   int
	gotSinceID string
}

func (m *mockAPI) Me(ctx context.Context) (misskey.Account, error) {
	if m.meErr != nil {
		return misskey.Account{}, m.meErr
	}
	return m.account, nil
}

func (m *mockAPI) UserReactions(ctx context.Context, userID string, limit int, sinceID string) ([]map[string]any, error) {
	m.gotUserID = userID
	m.gotLimit = limit
	m.gotSinceID = sinceID
	if m.reactionErr != nil {
		return nil, m.reactionErr
	}
	return m.records, nil
}

func (m *mockAPI) Instance() string {
	return "misskey.example.com"
}

func rawReaction(reactionID, noteID string) map[string]any {
	return map[string]any{
		"id":        reactionID,
		"type":      ":star:",
		"createdAt": "2024-03-01T03:30:00.000Z",
		"note": map[string]any{
			"id":        noteID,
			"userId":    "user1",
			"text":      "hello",
			"createdAt": "2024-03-01T03:00:00.000Z",
			"user": map[string]any{
				"username": "alice",
				"name":     "Alice",
			},
			"files": []any{
				map[string]any{
					"id":        "media-" + reactionID,
					"name":      "photo.png",
					"type":      "image/png",
					"md5":       "d41d8cd98f00b204e9800998ecf8427e",
					"size":      float64(100),
					"url":       "https://files.example.com/" + reactionID + ".png",
					"createdAt": "2024-03-01T02:00:00.000Z",
				},
			},
		},
	}
}

func newTestFetcher(t *testing.T, api *mockAPI, replay bool) *Fetcher {
	t.Helper()
	cfg := &config.FetchConfig{
		PageSize:       100,
		CacheDirectory: t.TempDir(),
		Replay:         replay,
	}
	f, err := New(api, cfg, nil)
	require.NoError(t, err)
	return f
}

func TestFetchReversesToOldestFirst(t *testing.T) {
	// The API returns newest-first
	api := &mockAPI{
		account: misskey.Account{ID: "user1", Username: "alice"},
		records: []map[string]any{
			rawReaction("r3", "n3"),
			rawReaction("r2", "n2"),
			rawReaction("r1", "n1"),
		},
	}
	f := newTestFetcher(t, api, false)

	aggregates, err := f.Fetch(context.Background(), "r0")
	require.NoError(t, err)
	require.Len(t, aggregates, 3)

	assert.Equal(t, "r1", aggregates[0].Reaction.ReactionID)
	assert.Equal(t, "r2", aggregates[1].Reaction.ReactionID)
	assert.Equal(t, "r3", aggregates[2].Reaction.ReactionID)

	assert.Equal(t, "user1", api.gotUserID)
	assert.Equal(t, 100, api.gotLimit)
	assert.Equal(t, "r0", api.gotSinceID)
}

func TestFetchSkipsMalformedRecords(t *testing.T) {
	broken := rawReaction("r2", "n2")
	delete(broken["note"].(map[string]any), "files")

	api := &mockAPI{
		account: misskey.Account{ID: "user1"},
		records: []map[string]any{
			rawReaction("r3", "n3"),
			broken,
			rawReaction("r1", "n1"),
		},
	}
	f := newTestFetcher(t, api, false)

	aggregates, err := f.Fetch(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, aggregates, 2)
	assert.Equal(t, "r1", aggregates[0].Reaction.ReactionID)
	assert.Equal(t, "r3", aggregates[1].Reaction.ReactionID)
}

func TestFetchEmptyPage(t *testing.T) {
	api := &mockAPI{account: misskey.Account{ID: "user1"}}
	f := newTestFetcher(t, api, false)

	aggregates, err := f.Fetch(context.Background(), "r99")
	require.NoError(t, err)
	assert.Empty(t, aggregates)

	// An empty page writes no cache file
	matches, err := filepath.Glob(filepath.Join(f.cacheDir, "*"+cacheSuffix))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestFetchWritesCache(t *testing.T) {
	api := &mockAPI{
		account: misskey.Account{ID: "user1"},
		records: []map[string]any{rawReaction("r1", "n1")},
	}
	f := newTestFetcher(t, api, false)

	_, err := f.Fetch(context.Background(), "")
	require.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(f.cacheDir, "*"+cacheSuffix))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)

	var cached cacheFile
	require.NoError(t, json.Unmarshal(data, &cached))
	require.Len(t, cached.Result, 1)
	assert.Equal(t, "r1", cached.Result[0]["id"])
}

func TestFetchReplayUsesLatestCache(t *testing.T) {
	api := &mockAPI{reactionErr: fmt.Errorf("network must not be touched")}
	f := newTestFetcher(t, api, true)

	// Two cache files; the lexically last one wins
	older := cacheFile{Result: []map[string]any{rawReaction("r1", "n1")}}
	newer := cacheFile{Result: []map[string]any{
		rawReaction("r3", "n3"),
		rawReaction("r2", "n2"),
	}}
	writeCacheFile(t, f.cacheDir, "20240301000000"+cacheSuffix, older)
	writeCacheFile(t, f.cacheDir, "20240302000000"+cacheSuffix, newer)

	aggregates, err := f.Fetch(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, aggregates, 2)
	assert.Equal(t, "r2", aggregates[0].Reaction.ReactionID)
	assert.Equal(t, "r3", aggregates[1].Reaction.ReactionID)
}

func TestFetchReplayWithoutCacheFails(t *testing.T) {
	api := &mockAPI{}
	f := newTestFetcher(t, api, true)

	_, err := f.Fetch(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no cache file")
}

func writeCacheFile(t *testing.T, dir, name string, content cacheFile) {
	t.Helper()
	data, err := json.Marshal(content)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0644))
}
