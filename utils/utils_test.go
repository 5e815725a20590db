package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRedactKey(t *testing.T) {
	if got := RedactKey("AIzaSyA-1234567890abcdef"); got != "AIza...cdef" {
		t.Errorf("Expected 'AIza...cdef', got '%s'", got)
	}
	if got := RedactKey("short key"); got != "***** ***" {
		t.Errorf("Expected '***** ***', got '%s'", got)
	}
}

func TestScrubKey(t *testing.T) {
	const key = "AIzaSyA-1234567890abcdef"
	got := ScrubKey(`Post "https://x/y?key=`+key+`": dial tcp`, key)
	want := `Post "https://x/y?key=AIza...cdef": dial tcp`
	if got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
	if got := ScrubKey("unchanged", ""); got != "unchanged" {
		t.Errorf("Expected empty key to leave input unchanged, got %q", got)
	}
}

func TestWriteRawJSON(t *testing.T) {
	w := httptest.NewRecorder()
	if err := WriteRawJSON(w, http.StatusTeapot, []byte(`{"a":1}`)); err != nil {
		t.Fatalf("WriteRawJSON: %v", err)
	}
	if w.Code != http.StatusTeapot || w.Body.String() != `{"a":1}` {
		t.Errorf("Unexpected response %d %q", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected application/json, got %q", ct)
	}
}
