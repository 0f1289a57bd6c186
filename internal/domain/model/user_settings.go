package model

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cast"
)

// UserSettings is one user's option values keyed by option name
// (e.g. "LEECH_PREFIX"). Values are whatever the option's parser produced:
// string, bool, int64, float64, []string or map[string]any.
type UserSettings map[string]any

// ProtectedKeys survive a full reset; they are managed by admins, not users.
var ProtectedKeys = map[string]struct{}{
	"SUDO":         {},
	"AUTH":         {},
	"VERIFY_TOKEN": {},
	"VERIFY_TIME":  {},
}

func (s UserSettings) Clone() UserSettings {
	out := make(UserSettings, len(s))
	for k, v := range s {
		switch tv := v.(type) {
		case map[string]any:
			m := make(map[string]any, len(tv))
			for mk, mv := range tv {
				m[mk] = mv
			}
			out[k] = m
		case []string:
			out[k] = append([]string(nil), tv...)
		default:
			out[k] = v
		}
	}
	return out
}

// IsSet mirrors the "truthy" check used to decide between Set and Change.
func (s UserSettings) IsSet(key string) bool {
	v, ok := s[key]
	if !ok || v == nil {
		return false
	}
	switch tv := v.(type) {
	case string:
		return tv != ""
	case bool:
		return tv
	case int:
		return tv != 0
	case int64:
		return tv != 0
	case float64:
		return tv != 0
	case json.Number:
		return tv != "0" && tv != ""
	case []string:
		return len(tv) > 0
	case []any:
		return len(tv) > 0
	case map[string]any:
		return len(tv) > 0
	}
	return true
}

func (s UserSettings) Bool(key string, def bool) bool {
	if v, ok := s[key].(bool); ok {
		return v
	}
	return def
}

func (s UserSettings) String(key string) string {
	v, ok := s[key]
	if !ok || v == nil {
		return ""
	}
	if str, ok := v.(string); ok {
		return str
	}
	return fmt.Sprint(v)
}

// Dict returns the map stored under key, or nil.
func (s UserSettings) Dict(key string) map[string]any {
	m, _ := s[key].(map[string]any)
	return m
}

// Int64 reads numeric values regardless of how they were decoded
// (json numbers come back as float64 or json.Number).
func (s UserSettings) Int64(key string, def int64) int64 {
	v, ok := s[key]
	if !ok || v == nil {
		return def
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		return def
	}
	return n
}

// Strings reads list values stored either as []string or as a decoded []any.
func (s UserSettings) Strings(key string) []string {
	v, ok := s[key]
	if !ok || v == nil {
		return nil
	}
	out, err := cast.ToStringSliceE(v)
	if err != nil {
		return nil
	}
	return out
}
