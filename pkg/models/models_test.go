package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "mkcrawler/pkg/errors"
)

func TestMediaFilename(t *testing.T) {
	tests := []struct {
		name     string
		media    Media
		expected string
	}{
		{
			name: "extension from URL",
			media: Media{
				NoteID:  "n1",
				MediaID: "m1",
				Name:    "photo.png",
				Type:    "image/png",
				URL:     "https://files.example.com/abc/x.jpg",
			},
			expected: "n1_m1_photo.jpg",
		},
		{
			name: "extension from MIME type when URL has none",
			media: Media{
				NoteID:  "n1",
				MediaID: "m2",
				Name:    "clip",
				Type:    "video/mp4",
				URL:     "https://files.example.com/abc/clip",
			},
			expected: "n1_m2_clip.mp4",
		},
		{
			name: "x- prefix stripped from MIME minor type",
			media: Media{
				NoteID:  "n9",
				MediaID: "m3",
				Name:    "clip",
				Type:    "video/x-m4v",
				URL:     "https://files.example.com/abc/clip",
			},
			expected: "n9_m3_clip.m4v",
		},
		{
			name: "extension from display name as last resort",
			media: Media{
				NoteID:  "n2",
				MediaID: "m4",
				Name:    "a.png",
				Type:    "/",
				URL:     "https://files.example.com/abc/raw",
			},
			expected: "n2_m4_a.png",
		},
		{
			name: "name directory components are dropped",
			media: Media{
				NoteID:  "n3",
				MediaID: "m5",
				Name:    "albums/2024/photo.png",
				Type:    "image/png",
				URL:     "https://files.example.com/abc/x.webp",
			},
			expected: "n3_m5_photo.webp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.media.Filename()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestMediaFilenameUndetermined(t *testing.T) {
	media := Media{
		NoteID:  "n1",
		MediaID: "m1",
		Name:    "unnamed",
		Type:    "",
		URL:     "https://files.example.com/abc/raw",
	}

	_, err := media.Filename()
	require.Error(t, err)

	var extErr *apperrors.UndeterminedExtensionError
	require.True(t, errors.As(err, &extErr))
	assert.Equal(t, "m1", extErr.MediaID)
}

func TestEntityKeys(t *testing.T) {
	r1 := Reaction{NoteID: "n1", ReactionID: "r1"}
	r2 := Reaction{NoteID: "n1", ReactionID: "r2"}
	assert.NotEqual(t, r1.Key(), r2.Key())
	assert.Equal(t, r1.Key(), Reaction{NoteID: "n1", ReactionID: "r1", Type: "star"}.Key())

	assert.Equal(t, "n1", Note{NoteID: "n1"}.Key())
	assert.Equal(t, "u1", User{UserID: "u1"}.Key())
	assert.Equal(t, "m1", Media{MediaID: "m1"}.Key())
}

func TestReactionFromMap(t *testing.T) {
	m := map[string]any{
		"note_id":       "n1",
		"reaction_id":   "r1",
		"type":          ":star:",
		"created_at":    "2024-01-02T12:00:00.000000000+09:00",
		"registered_at": "2024-01-02T21:00:00.000000000",
	}

	r, err := ReactionFromMap(m)
	require.NoError(t, err)
	assert.Equal(t, "n1", r.NoteID)
	assert.Equal(t, "r1", r.ReactionID)
	assert.Equal(t, ":star:", r.Type)

	delete(m, "type")
	_, err = ReactionFromMap(m)
	var missing *apperrors.MissingFieldError
	require.True(t, errors.As(err, &missing))
	assert.Equal(t, "type", missing.Path)
}

func TestUserFromMap(t *testing.T) {
	m := map[string]any{
		"user_id":       "u1",
		"name":          "Alice",
		"username":      "alice",
		"avatar_url":    "https://example.com/avatar.png",
		"is_bot":        false,
		"is_cat":        true,
		"registered_at": "2024-01-02T21:00:00.000000000",
	}

	u, err := UserFromMap(m)
	require.NoError(t, err)
	assert.Equal(t, "u1", u.UserID)
	assert.True(t, u.IsCat)
	assert.False(t, u.IsBot)

	// Wrong type is rejected like a missing field
	m["is_bot"] = "false"
	_, err = UserFromMap(m)
	require.Error(t, err)
}

func TestMediaFromMap(t *testing.T) {
	m := map[string]any{
		"note_id":       "n1",
		"media_id":      "m1",
		"name":          "photo.png",
		"type":          "image/png",
		"md5":           "d41d8cd98f00b204e9800998ecf8427e",
		"size":          float64(2048), // json numbers decode as float64
		"url":           "https://files.example.com/x.png",
		"created_at":    "2024-01-02T12:00:00.000000000+09:00",
		"registered_at": "2024-01-02T21:00:00.000000000",
	}

	md, err := MediaFromMap(m)
	require.NoError(t, err)
	assert.Equal(t, int64(2048), md.Size)
	assert.Equal(t, "m1", md.MediaID)

	m["size"] = "2048"
	_, err = MediaFromMap(m)
	require.Error(t, err)
}
