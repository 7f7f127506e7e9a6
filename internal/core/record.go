package core

import (
	"fmt"
	"time"
)

// Typed accessors for raw records. Acquisition collaborators deliver JSON, so
// numbers arrive as float64 and lists as []interface{}; these helpers tolerate
// the usual variants.

// String returns a string field, or "" when absent or not a string.
func (r Record) String(key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}

// Float returns a numeric field as float64.
func (r Record) Float(key string) (float64, bool) {
	switch v := r[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// Int returns a numeric field as int.
func (r Record) Int(key string) (int, bool) {
	f, ok := r.Float(key)
	return int(f), ok
}

// Bool returns a boolean field.
func (r Record) Bool(key string) bool {
	v, _ := r[key].(bool)
	return v
}

// Strings returns a list field as []string, accepting either []string or the
// []interface{} that JSON decoding produces.
func (r Record) Strings(key string) []string {
	switch v := r[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Time parses a timestamp field using the shared report layouts.
func (r Record) Time(key string) (time.Time, error) {
	switch v := r[key].(type) {
	case time.Time:
		return v, nil
	case string:
		if t, ok := parseTimestamp(v); ok {
			return t, nil
		}
		return time.Time{}, fmt.Errorf("unparseable timestamp %q", v)
	default:
		return time.Time{}, fmt.Errorf("missing timestamp field %q", key)
	}
}
