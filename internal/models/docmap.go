package models

import (
	"time"

	"familytime/internal/utils"
)

// Helpers for decoding document field maps strictly: a present field of
// the wrong type is an error, never silently patched. Numeric and time
// values tolerate the JSON round-trip the SQL store performs.

func getString(fields map[string]any, key string) (string, error) {
	v, ok := fields[key]
	if !ok {
		return "", utils.ValidationError{Field: key, Message: "missing required field"}
	}
	s, ok := v.(string)
	if !ok {
		return "", utils.ValidationError{Field: key, Message: "expected string"}
	}
	return s, nil
}

func optString(fields map[string]any, key string) (string, error) {
	v, ok := fields[key]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", utils.ValidationError{Field: key, Message: "expected string"}
	}
	return s, nil
}

func getStringList(fields map[string]any, key string) ([]string, error) {
	v, ok := fields[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch list := v.(type) {
	case []string:
		out := make([]string, len(list))
		copy(out, list)
		return out, nil
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			s, ok := item.(string)
			if !ok {
				return nil, utils.ValidationError{Field: key, Message: "expected list of strings"}
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, utils.ValidationError{Field: key, Message: "expected list of strings"}
	}
}

func getMapList(fields map[string]any, key string) ([]map[string]any, error) {
	v, ok := fields[key]
	if !ok || v == nil {
		return nil, nil
	}
	switch list := v.(type) {
	case []map[string]any:
		return list, nil
	case []any:
		out := make([]map[string]any, 0, len(list))
		for _, item := range list {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, utils.ValidationError{Field: key, Message: "expected list of objects"}
			}
			out = append(out, m)
		}
		return out, nil
	default:
		return nil, utils.ValidationError{Field: key, Message: "expected list of objects"}
	}
}

func getMap(fields map[string]any, key string) (map[string]any, error) {
	v, ok := fields[key]
	if !ok || v == nil {
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, utils.ValidationError{Field: key, Message: "expected object"}
	}
	return m, nil
}

func getInt(fields map[string]any, key string) (int, error) {
	v, ok := fields[key]
	if !ok {
		return 0, utils.ValidationError{Field: key, Message: "missing required field"}
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	default:
		return 0, utils.ValidationError{Field: key, Message: "expected number"}
	}
}

func getTime(fields map[string]any, key string) (time.Time, error) {
	v, ok := fields[key]
	if !ok || v == nil {
		return time.Time{}, nil
	}
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		if err != nil {
			return time.Time{}, utils.ValidationError{Field: key, Message: "expected RFC3339 timestamp"}
		}
		return parsed, nil
	default:
		return time.Time{}, utils.ValidationError{Field: key, Message: "expected timestamp"}
	}
}
