package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "mkcrawler/pkg/errors"
	"mkcrawler/pkg/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleReaction(noteID, reactionID, reactionType string) models.Reaction {
	return models.Reaction{
		NoteID:       noteID,
		ReactionID:   reactionID,
		Type:         reactionType,
		CreatedAt:    "2024-03-01T12:30:00+09:00",
		RegisteredAt: "2024-03-01T21:30:00",
	}
}

func TestUpsertReactionsInsertThenUpdate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := sampleReaction("n1", "r1", ":star:")
	outcomes, err := s.UpsertReactions(ctx, []models.Reaction{first})
	require.NoError(t, err)
	require.Equal(t, []Outcome{Inserted}, outcomes)

	// Same identity, different payload: the row is overwritten in place
	second := first
	second.Type = ":heart:"
	outcomes, err = s.UpsertReactions(ctx, []models.Reaction{second})
	require.NoError(t, err)
	require.Equal(t, []Outcome{Updated}, outcomes)

	stored, err := s.Reactions(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, second, stored[0])
}

func TestUpsertReactionsOutcomesInInputOrder(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertReactions(ctx, []models.Reaction{sampleReaction("n1", "r1", ":star:")})
	require.NoError(t, err)

	batch := []models.Reaction{
		sampleReaction("n2", "r2", ":star:"),
		sampleReaction("n1", "r1", ":heart:"),
		sampleReaction("n3", "r3", ":star:"),
	}
	outcomes, err := s.UpsertReactions(ctx, batch)
	require.NoError(t, err)
	assert.Equal(t, []Outcome{Inserted, Updated, Inserted}, outcomes)
}

func TestUpsertReactionsDistinguishesIdentity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Same note, different reactions: two rows
	outcomes, err := s.UpsertReactions(ctx, []models.Reaction{
		sampleReaction("n1", "r1", ":star:"),
		sampleReaction("n1", "r2", ":heart:"),
	})
	require.NoError(t, err)
	assert.Equal(t, []Outcome{Inserted, Inserted}, outcomes)

	stored, err := s.Reactions(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestUpsertEmptyBatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.UpsertReactions(ctx, nil)
	require.Error(t, err)

	var storeErr *apperrors.StoreError
	require.True(t, errors.As(err, &storeErr))
	assert.True(t, errors.Is(err, errEmptyBatch))

	_, err = s.UpsertNotes(ctx, nil)
	require.Error(t, err)
	_, err = s.UpsertUsers(ctx, nil)
	require.Error(t, err)
	_, err = s.UpsertMedia(ctx, nil)
	require.Error(t, err)
}

func TestLatestReaction(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Empty table means no watermark
	latest, err := s.LatestReaction(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	_, err = s.UpsertReactions(ctx, []models.Reaction{
		sampleReaction("n1", "r1", ":star:"),
		sampleReaction("n3", "r3", ":star:"),
		sampleReaction("n2", "r2", ":star:"),
	})
	require.NoError(t, err)

	latest, err = s.LatestReaction(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "r3", latest.ReactionID)
}

func TestUpsertReactionMaps(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	outcomes, err := s.UpsertReactionMaps(ctx, []map[string]any{
		{
			"note_id":       "n1",
			"reaction_id":   "r1",
			"type":          ":star:",
			"created_at":    "2024-03-01T12:30:00+09:00",
			"registered_at": "2024-03-01T21:30:00",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, []Outcome{Inserted}, outcomes)

	// A mapping missing a field fails before any write
	_, err = s.UpsertReactionMaps(ctx, []map[string]any{
		{"note_id": "n2"},
	})
	require.Error(t, err)

	stored, err := s.Reactions(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestUpsertNotes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	note := models.Note{
		NoteID:       "n1",
		UserID:       "u1",
		URL:          "https://misskey.example.com/notes/n1",
		Text:         "hello",
		CreatedAt:    "2024-03-01T12:00:00+09:00",
		RegisteredAt: "2024-03-01T21:30:00",
	}
	outcomes, err := s.UpsertNotes(ctx, []models.Note{note})
	require.NoError(t, err)
	assert.Equal(t, []Outcome{Inserted}, outcomes)

	note.Text = "edited"
	outcomes, err = s.UpsertNotes(ctx, []models.Note{note})
	require.NoError(t, err)
	assert.Equal(t, []Outcome{Updated}, outcomes)

	stored, err := s.Notes(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "edited", stored[0].Text)
}

func TestUpsertUsers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	user := models.User{
		UserID:       "u1",
		Name:         "Alice",
		Username:     "alice",
		AvatarURL:    "https://example.com/a.png",
		IsCat:        true,
		RegisteredAt: "2024-03-01T21:30:00",
	}
	outcomes, err := s.UpsertUsers(ctx, []models.User{user})
	require.NoError(t, err)
	assert.Equal(t, []Outcome{Inserted}, outcomes)

	user.Name = "Alice Updated"
	outcomes, err = s.UpsertUsers(ctx, []models.User{user})
	require.NoError(t, err)
	assert.Equal(t, []Outcome{Updated}, outcomes)

	stored, err := s.Users(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "Alice Updated", stored[0].Name)
	assert.True(t, stored[0].IsCat)
}

func TestUpsertMedia(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	media := models.Media{
		NoteID:       "n1",
		MediaID:      "m1",
		Name:         "photo.png",
		Type:         "image/png",
		MD5:          "d41d8cd98f00b204e9800998ecf8427e",
		Size:         2048,
		URL:          "https://files.example.com/m1.png",
		CreatedAt:    "2024-03-01T11:00:00+09:00",
		RegisteredAt: "2024-03-01T21:30:00",
	}
	outcomes, err := s.UpsertMedia(ctx, []models.Media{media})
	require.NoError(t, err)
	assert.Equal(t, []Outcome{Inserted}, outcomes)

	media.Size = 4096
	outcomes, err = s.UpsertMedia(ctx, []models.Media{media})
	require.NoError(t, err)
	assert.Equal(t, []Outcome{Updated}, outcomes)

	stored, err := s.Media(ctx)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, media, stored[0])
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.UpsertReactions(context.Background(), []models.Reaction{
		sampleReaction("n1", "r1", ":star:"),
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Reopening an existing database keeps its data
	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()

	stored, err := s.Reactions(context.Background())
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "inserted", Inserted.String())
	assert.Equal(t, "updated", Updated.String())
}
