package utils

import (
	"encoding/json"
	"net/http"
	"strings"
	"unicode"
)

// RedactKey redacts an API key for logging.
func RedactKey(key string) string {
	if len(key) > 16 {
		// Display the first 4 characters, ellipses, and the last 4 characters
		return key[:4] + "..." + key[len(key)-4:]
	}
	// Replace each non-whitespace character with '*'
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return r
		}
		return '*'
	}, key)
}

// ScrubKey replaces every occurrence of key in s with its redacted form.
func ScrubKey(s, key string) string {
	if key == "" {
		return s
	}
	return strings.ReplaceAll(s, key, RedactKey(key))
}

// WriteJSON encodes v as the response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// WriteRawJSON writes an already-encoded JSON body with the given status.
func WriteRawJSON(w http.ResponseWriter, status int, body []byte) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(body)
	return err
}
