package httpapi

import (
	"net/http/httptest"
	"testing"
)

func TestResolveSessionID(t *testing.T) {
	tests := []struct {
		name   string
		body   string
		header string
		want   string
	}{
		{name: "body wins", body: "alice", header: "bob", want: "alice"},
		{name: "header fallback", body: "", header: "bob", want: "bob"},
		{name: "default", body: "", header: "", want: "default"},
		{name: "whitespace body ignored", body: "   ", header: "bob", want: "bob"},
		{name: "whitespace only", body: " ", header: "\t", want: "default"},
		{name: "body trimmed", body: "  alice  ", header: "", want: "alice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveSessionID(tt.body, tt.header)
			if got != tt.want {
				t.Errorf("resolveSessionID(%q, %q) = %q, want %q", tt.body, tt.header, got, tt.want)
			}
		})
	}
}

func TestMatchAPIKey(t *testing.T) {
	keys := map[string]string{
		"secret-key-1": "alice",
		"secret-key-2": "bob",
	}

	tests := []struct {
		name      string
		presented string
		wantLabel string
		wantOK    bool
	}{
		{name: "first key", presented: "secret-key-1", wantLabel: "alice", wantOK: true},
		{name: "second key", presented: "secret-key-2", wantLabel: "bob", wantOK: true},
		{name: "unknown key", presented: "wrong", wantLabel: "", wantOK: false},
		{name: "empty key", presented: "", wantLabel: "", wantOK: false},
		{name: "prefix is not a match", presented: "secret-key", wantLabel: "", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			label, ok := matchAPIKey(keys, tt.presented)
			if ok != tt.wantOK {
				t.Fatalf("matchAPIKey(%q) ok = %v, want %v", tt.presented, ok, tt.wantOK)
			}
			if label != tt.wantLabel {
				t.Errorf("matchAPIKey(%q) label = %q, want %q", tt.presented, label, tt.wantLabel)
			}
		})
	}
}

func TestQueryLimit(t *testing.T) {
	tests := []struct {
		url  string
		want int
	}{
		{url: "/v1/sessions/s1/history", want: 0},
		{url: "/v1/sessions/s1/history?limit=10", want: 10},
		{url: "/v1/sessions/s1/history?limit=0", want: 0},
		{url: "/v1/sessions/s1/history?limit=-3", want: 0},
		{url: "/v1/sessions/s1/history?limit=abc", want: 0},
	}

	for _, tt := range tests {
		r := httptest.NewRequest("GET", tt.url, nil)
		if got := queryLimit(r); got != tt.want {
			t.Errorf("queryLimit(%q) = %d, want %d", tt.url, got, tt.want)
		}
	}
}

func TestNewCorrelationID(t *testing.T) {
	a := newCorrelationID()
	b := newCorrelationID()
	if len(a) != 16 {
		t.Errorf("correlation ID length = %d, want 16", len(a))
	}
	if a == b {
		t.Error("consecutive correlation IDs should differ")
	}
}
