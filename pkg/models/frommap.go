package models

import (
	apperrors "mkcrawler/pkg/errors"
)

// FromMap constructors convert a raw field mapping into an entity. They are
// the explicit replacement for shape-matching smart constructors: any record
// missing a field, or carrying a wrong type, is rejected at the boundary.

func mapString(m map[string]any, key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", &apperrors.MissingFieldError{Path: key}
	}
	s, ok := v.(string)
	if !ok {
		return "", &apperrors.MissingFieldError{Path: key}
	}
	return s, nil
}

func mapBool(m map[string]any, key string) (bool, error) {
	v, ok := m[key]
	if !ok {
		return false, &apperrors.MissingFieldError{Path: key}
	}
	b, ok := v.(bool)
	if !ok {
		return false, &apperrors.MissingFieldError{Path: key}
	}
	return b, nil
}

func mapInt64(m map[string]any, key string) (int64, error) {
	v, ok := m[key]
	if !ok {
		return 0, &apperrors.MissingFieldError{Path: key}
	}
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		// encoding/json decodes numbers into float64
		return int64(n), nil
	default:
		return 0, &apperrors.MissingFieldError{Path: key}
	}
}

// ReactionFromMap builds a Reaction from a raw field mapping.
func ReactionFromMap(m map[string]any) (Reaction, error) {
	var r Reaction
	var err error
	if r.NoteID, err = mapString(m, "note_id"); err != nil {
		return Reaction{}, err
	}
	if r.ReactionID, err = mapString(m, "reaction_id"); err != nil {
		return Reaction{}, err
	}
	if r.Type, err = mapString(m, "type"); err != nil {
		return Reaction{}, err
	}
	if r.CreatedAt, err = mapString(m, "created_at"); err != nil {
		return Reaction{}, err
	}
	if r.RegisteredAt, err = mapString(m, "registered_at"); err != nil {
		return Reaction{}, err
	}
	return r, nil
}

// NoteFromMap builds a Note from a raw field mapping.
func NoteFromMap(m map[string]any) (Note, error) {
	var n Note
	var err error
	if n.NoteID, err = mapString(m, "note_id"); err != nil {
		return Note{}, err
	}
	if n.UserID, err = mapString(m, "user_id"); err != nil {
		return Note{}, err
	}
	if n.URL, err = mapString(m, "url"); err != nil {
		return Note{}, err
	}
	if n.Text, err = mapString(m, "text"); err != nil {
		return Note{}, err
	}
	if n.CreatedAt, err = mapString(m, "created_at"); err != nil {
		return Note{}, err
	}
	if n.RegisteredAt, err = mapString(m, "registered_at"); err != nil {
		return Note{}, err
	}
	return n, nil
}

// UserFromMap builds a User from a raw field mapping.
func UserFromMap(m map[string]any) (User, error) {
	var u User
	var err error
	if u.UserID, err = mapString(m, "user_id"); err != nil {
		return User{}, err
	}
	if u.Name, err = mapString(m, "name"); err != nil {
		return User{}, err
	}
	if u.Username, err = mapString(m, "username"); err != nil {
		return User{}, err
	}
	if u.AvatarURL, err = mapString(m, "avatar_url"); err != nil {
		return User{}, err
	}
	if u.IsBot, err = mapBool(m, "is_bot"); err != nil {
		return User{}, err
	}
	if u.IsCat, err = mapBool(m, "is_cat"); err != nil {
		return User{}, err
	}
	if u.RegisteredAt, err = mapString(m, "registered_at"); err != nil {
		return User{}, err
	}
	return u, nil
}

// MediaFromMap builds a Media from a raw field mapping.
func MediaFromMap(m map[string]any) (Media, error) {
	var md Media
	var err error
	if md.NoteID, err = mapString(m, "note_id"); err != nil {
		return Media{}, err
	}
	if md.MediaID, err = mapString(m, "media_id"); err != nil {
		return Media{}, err
	}
	if md.Name, err = mapString(m, "name"); err != nil {
		return Media{}, err
	}
	if md.Type, err = mapString(m, "type"); err != nil {
		return Media{}, err
	}
	if md.MD5, err = mapString(m, "md5"); err != nil {
		return Media{}, err
	}
	if md.Size, err = mapInt64(m, "size"); err != nil {
		return Media{}, err
	}
	if md.URL, err = mapString(m, "url"); err != nil {
		return Media{}, err
	}
	if md.CreatedAt, err = mapString(m, "created_at"); err != nil {
		return Media{}, err
	}
	if md.RegisteredAt, err = mapString(m, "registered_at"); err != nil {
		return Media{}, err
	}
	return md, nil
}
