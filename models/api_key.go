package models

import (
	"encoding/json"
	"log/slog"
)

// APIKey is a decrypted third-party credential. Every rendering path
// (fmt, slog, JSON) masks it; call Reveal to get the raw value.
type APIKey string

// Reveal returns the raw credential for use in outbound requests
func (k APIKey) Reveal() string {
	return string(k)
}

// String masks all but the last four characters
func (k APIKey) String() string {
	return MaskSecret(string(k))
}

// GoString masks the key under %#v as well
func (k APIKey) GoString() string {
	return k.String()
}

// LogValue implements slog.LogValuer
func (k APIKey) LogValue() slog.Value {
	return slog.StringValue(k.String())
}

// MarshalJSON never emits the raw key
func (k APIKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(k.String())
}

// MaskSecret masks a string showing only last 4 characters
func MaskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}
