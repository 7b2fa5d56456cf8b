// Package normalize converts raw reaction records from the remote API into
// normalized entity aggregates. All entity construction happens here.
package normalize

import (
	"fmt"
	"strings"
	"time"

	apperrors "mkcrawler/pkg/errors"
	"mkcrawler/pkg/models"
)

// Aggregate is one normalized reaction plus the note it targets, the note's
// author, and the note's attached media.
type Aggregate struct {
	Reaction  models.Reaction
	Note      models.Note
	User      models.User
	MediaList []models.Media
}

// jst is the fixed target timezone all source timestamps are rendered in.
var jst = time.FixedZone("JST", 9*60*60)

// Normalize turns one raw API record into an Aggregate. The whole aggregate
// shares a single ingestion timestamp. A record whose note carries no files
// array fails with MissingMediaError; any other absent required path fails
// with MissingFieldError. Media filenames are validated here so that an
// undeterminable extension surfaces as a normalization failure, not later
// during download.
func Normalize(raw map[string]any, host string) (Aggregate, error) {
	registeredAt := Stamp(time.Now())

	noteDict, err := lookupMap(raw, "note")
	if err != nil {
		return Aggregate{}, err
	}
	noteID, err := lookupString(noteDict, "id", "note.id")
	if err != nil {
		return Aggregate{}, err
	}

	files, ok := optSlice(noteDict, "files")
	if !ok || len(files) == 0 {
		return Aggregate{}, &apperrors.MissingMediaError{NoteID: noteID}
	}

	mediaList := make([]models.Media, 0, len(files))
	for i, f := range files {
		fileDict, ok := f.(map[string]any)
		if !ok {
			return Aggregate{}, &apperrors.MissingFieldError{Path: fmt.Sprintf("note.files[%d]", i)}
		}
		media, err := normalizeMedia(fileDict, noteID, registeredAt, i)
		if err != nil {
			return Aggregate{}, err
		}
		if _, err := media.Filename(); err != nil {
			return Aggregate{}, err
		}
		mediaList = append(mediaList, media)
	}

	reactionID, err := lookupString(raw, "id", "id")
	if err != nil {
		return Aggregate{}, err
	}
	reactionType, err := lookupString(raw, "type", "type")
	if err != nil {
		return Aggregate{}, err
	}
	reactionCreatedAt, err := normalizeDate(raw, "createdAt", "createdAt")
	if err != nil {
		return Aggregate{}, err
	}
	reaction := models.Reaction{
		NoteID:       noteID,
		ReactionID:   reactionID,
		Type:         reactionType,
		CreatedAt:    reactionCreatedAt,
		RegisteredAt: registeredAt,
	}

	userID, err := lookupString(noteDict, "userId", "note.userId")
	if err != nil {
		return Aggregate{}, err
	}
	noteCreatedAt, err := normalizeDate(noteDict, "createdAt", "note.createdAt")
	if err != nil {
		return Aggregate{}, err
	}
	note := models.Note{
		NoteID:       noteID,
		UserID:       userID,
		URL:          fmt.Sprintf("https://%s/notes/%s", host, noteID),
		Text:         optString(noteDict, "text"),
		CreatedAt:    noteCreatedAt,
		RegisteredAt: registeredAt,
	}

	userDict, err := lookupMap(noteDict, "user")
	if err != nil {
		return Aggregate{}, &apperrors.MissingFieldError{Path: "note.user"}
	}
	username, err := lookupString(userDict, "username", "note.user.username")
	if err != nil {
		return Aggregate{}, err
	}
	name := optString(userDict, "name")
	if name == "" {
		name = username
	}
	user := models.User{
		UserID:       userID,
		Name:         name,
		Username:     username,
		AvatarURL:    optString(userDict, "avatarUrl"),
		IsBot:        optBool(userDict, "isBot"),
		IsCat:        optBool(userDict, "isCat"),
		RegisteredAt: registeredAt,
	}

	return Aggregate{
		Reaction:  reaction,
		Note:      note,
		User:      user,
		MediaList: mediaList,
	}, nil
}

func normalizeMedia(fileDict map[string]any, noteID, registeredAt string, idx int) (models.Media, error) {
	prefix := fmt.Sprintf("note.files[%d].", idx)

	mediaID, err := lookupString(fileDict, "id", prefix+"id")
	if err != nil {
		return models.Media{}, err
	}
	name, err := lookupString(fileDict, "name", prefix+"name")
	if err != nil {
		return models.Media{}, err
	}
	mediaType, err := lookupString(fileDict, "type", prefix+"type")
	if err != nil {
		return models.Media{}, err
	}
	md5, err := lookupString(fileDict, "md5", prefix+"md5")
	if err != nil {
		return models.Media{}, err
	}
	size, err := lookupInt64(fileDict, "size", prefix+"size")
	if err != nil {
		return models.Media{}, err
	}
	url, err := lookupString(fileDict, "url", prefix+"url")
	if err != nil {
		return models.Media{}, err
	}
	createdAt, err := normalizeDate(fileDict, "createdAt", prefix+"createdAt")
	if err != nil {
		return models.Media{}, err
	}

	return models.Media{
		NoteID:       noteID,
		MediaID:      mediaID,
		Name:         name,
		Type:         mediaType,
		MD5:          md5,
		Size:         size,
		URL:          url,
		CreatedAt:    createdAt,
		RegisteredAt: registeredAt,
	}, nil
}

// normalizeDate parses the source timestamp at key, converts it to the fixed
// target timezone and renders it ISO-8601. A trailing zero-UTC-offset suffix
// is stripped when the converted value lands back at zero offset.
func normalizeDate(m map[string]any, key, path string) (string, error) {
	raw, err := lookupString(m, key, path)
	if err != nil {
		return "", err
	}
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return "", fmt.Errorf("parse timestamp at %s: %w", path, err)
	}
	result := t.In(jst).Format("2006-01-02T15:04:05.999999999-07:00")
	result = strings.TrimSuffix(result, "+00:00")
	return result, nil
}

// Stamp renders an ingestion timestamp: local time, no offset suffix.
func Stamp(t time.Time) string {
	return t.Format("2006-01-02T15:04:05.999999999")
}
