package normalize

import (
	apperrors "mkcrawler/pkg/errors"
)

// Strict lookups return MissingFieldError with the dotted path when the key
// is absent, null, or carries the wrong type. Optional lookups (opt*) default
// to the zero value instead.

func lookupMap(m map[string]any, key string) (map[string]any, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, &apperrors.MissingFieldError{Path: key}
	}
	mm, ok := v.(map[string]any)
	if !ok {
		return nil, &apperrors.MissingFieldError{Path: key}
	}
	return mm, nil
}

func lookupString(m map[string]any, key, path string) (string, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return "", &apperrors.MissingFieldError{Path: path}
	}
	s, ok := v.(string)
	if !ok {
		return "", &apperrors.MissingFieldError{Path: path}
	}
	return s, nil
}

func lookupInt64(m map[string]any, key, path string) (int64, error) {
	v, ok := m[key]
	if !ok || v == nil {
		return 0, &apperrors.MissingFieldError{Path: path}
	}
	switch n := v.(type) {
	case float64:
		// encoding/json decodes numbers into float64
		return int64(n), nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	default:
		return 0, &apperrors.MissingFieldError{Path: path}
	}
}

func optString(m map[string]any, key string) string {
	if v, ok := m[key]; ok && v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func optBool(m map[string]any, key string) bool {
	if v, ok := m[key]; ok && v != nil {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return false
}

func optSlice(m map[string]any, key string) ([]any, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, false
	}
	s, ok := v.([]any)
	if !ok {
		return nil, false
	}
	return s, true
}
