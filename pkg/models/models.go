// Package models holds the four normalized entity types produced by the
// crawl pipeline. Entities are immutable value records: they are built once
// by the normalizer (or a FromMap constructor) and never mutated afterwards.
package models

import (
	"fmt"
	"path"
	"strings"

	apperrors "mkcrawler/pkg/errors"
)

// Reaction is one reaction placed on a note. Identity is (note_id, reaction_id).
type Reaction struct {
	NoteID       string
	ReactionID   string
	Type         string
	CreatedAt    string
	RegisteredAt string
}

// Key returns the identity key used for deduplication and store lookups.
func (r Reaction) Key() string {
	return r.NoteID + "\x00" + r.ReactionID
}

// Note is the note a reaction targets. Identity is note_id.
type Note struct {
	NoteID       string
	UserID       string
	URL          string
	Text         string
	CreatedAt    string
	RegisteredAt string
}

func (n Note) Key() string {
	return n.NoteID
}

// User is the author of a note. Identity is user_id.
type User struct {
	UserID       string
	Name         string
	Username     string
	AvatarURL    string
	IsBot        bool
	IsCat        bool
	RegisteredAt string
}

func (u User) Key() string {
	return u.UserID
}

// Media is one file attached to a note. Identity is media_id.
type Media struct {
	NoteID       string
	MediaID      string
	Name         string
	Type         string
	MD5          string
	Size         int64
	URL          string
	CreatedAt    string
	RegisteredAt string
}

func (m Media) Key() string {
	return m.MediaID
}

// Filename derives the on-disk name for the media payload. The extension is
// taken from the source URL first, then from the MIME minor type (with a
// leading "x-" marker stripped), then from the display name. When all three
// come up empty the media cannot be named safely and an
// UndeterminedExtensionError is returned.
func (m Media) Filename() (string, error) {
	ext := path.Ext(m.URL)
	if ext == "" {
		if _, minor, ok := strings.Cut(m.Type, "/"); ok {
			minor = strings.TrimPrefix(minor, "x-")
			if minor != "" {
				ext = "." + minor
			}
		}
	}
	if ext == "" {
		ext = path.Ext(m.Name)
	}
	if ext == "" {
		return "", &apperrors.UndeterminedExtensionError{
			MediaID: m.MediaID,
			URL:     m.URL,
			Type:    m.Type,
			Name:    m.Name,
		}
	}

	base := path.Base(m.Name)
	base = strings.TrimSuffix(base, path.Ext(base)) + ext
	return fmt.Sprintf("%s_%s_%s", m.NoteID, m.MediaID, base), nil
}
