package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mkcrawler/pkg/models"
	"mkcrawler/pkg/normalize"
)

func TestFlattenDeduplicatesByIdentity(t *testing.T) {
	// Two reactions on the same note by the same author
	note := models.Note{NoteID: "n1", UserID: "u1", Text: "hello"}
	user := models.User{UserID: "u1", Username: "alice"}
	media1 := models.Media{NoteID: "n1", MediaID: "m1", URL: "https://files.example.com/m1.png"}

	aggregates := []normalize.Aggregate{
		{
			Reaction:  models.Reaction{NoteID: "n1", ReactionID: "r1", Type: ":star:"},
			Note:      note,
			User:      user,
			MediaList: []models.Media{media1},
		},
		{
			Reaction:  models.Reaction{NoteID: "n1", ReactionID: "r2", Type: ":heart:"},
			Note:      note,
			User:      user,
			MediaList: []models.Media{media1},
		},
	}

	reactions, notes, users, media := Flatten(aggregates)

	assert.Len(t, reactions, 2)
	assert.Len(t, notes, 1)
	assert.Len(t, users, 1)
	assert.Len(t, media, 1)
}

func TestFlattenFirstSeenWins(t *testing.T) {
	aggregates := []normalize.Aggregate{
		{
			Reaction: models.Reaction{NoteID: "n1", ReactionID: "r1"},
			Note:     models.Note{NoteID: "n1", Text: "first"},
			User:     models.User{UserID: "u1", Name: "First"},
		},
		{
			Reaction: models.Reaction{NoteID: "n1", ReactionID: "r2"},
			Note:     models.Note{NoteID: "n1", Text: "second"},
			User:     models.User{UserID: "u1", Name: "Second"},
		},
	}

	_, notes, users, _ := Flatten(aggregates)

	require.Len(t, notes, 1)
	assert.Equal(t, "first", notes[0].Text)
	require.Len(t, users, 1)
	assert.Equal(t, "First", users[0].Name)
}

func TestFlattenPreservesOrder(t *testing.T) {
	aggregates := []normalize.Aggregate{
		{
			Reaction: models.Reaction{NoteID: "n1", ReactionID: "r1"},
			Note:     models.Note{NoteID: "n1"},
			User:     models.User{UserID: "u1"},
			MediaList: []models.Media{
				{MediaID: "m1"},
				{MediaID: "m2"},
			},
		},
		{
			Reaction:  models.Reaction{NoteID: "n2", ReactionID: "r2"},
			Note:      models.Note{NoteID: "n2"},
			User:      models.User{UserID: "u2"},
			MediaList: []models.Media{{MediaID: "m3"}},
		},
	}

	reactions, notes, users, media := Flatten(aggregates)

	assert.Equal(t, "r1", reactions[0].ReactionID)
	assert.Equal(t, "r2", reactions[1].ReactionID)
	assert.Equal(t, []string{"n1", "n2"}, []string{notes[0].NoteID, notes[1].NoteID})
	assert.Equal(t, []string{"u1", "u2"}, []string{users[0].UserID, users[1].UserID})
	assert.Equal(t, []string{"m1", "m2", "m3"},
		[]string{media[0].MediaID, media[1].MediaID, media[2].MediaID})
}

func TestFlattenEmpty(t *testing.T) {
	reactions, notes, users, media := Flatten(nil)
	assert.Empty(t, reactions)
	assert.Empty(t, notes)
	assert.Empty(t, users)
	assert.Empty(t, media)
}
