package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestCanonicalizeLink(t *testing.T) {
	testCases := []struct {
		name     string
		raw      string
		expected string
	}{
		{
			name:     "query string stripped",
			raw:      "https://example.com/deal/123?utm_source=feed&ref=top",
			expected: "https://example.com/deal/123",
		},
		{
			name:     "fragment stripped",
			raw:      "https://example.com/deal/123#comments",
			expected: "https://example.com/deal/123",
		},
		{
			name:     "clean link unchanged",
			raw:      "https://example.com/deal/123",
			expected: "https://example.com/deal/123",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := canonicalizeLink(tc.raw); got != tc.expected {
				t.Errorf("canonicalizeLink(%q) = %q, expected %q", tc.raw, got, tc.expected)
			}
		})
	}
}

func TestCanonicalizeLink_Idempotent(t *testing.T) {
	links := []string{
		"https://example.com/deal/123?page=2#top",
		"https://example.com/bbs/board.php?bo_table=deal&wr_id=99",
		"relative/path?q=1",
	}
	for _, link := range links {
		once := canonicalizeLink(link)
		twice := canonicalizeLink(once)
		if once != twice {
			t.Errorf("canonicalize not idempotent for %q: %q != %q", link, once, twice)
		}
	}
}

func TestCanonicalizeLink_SameDealSameKey(t *testing.T) {
	a := canonicalizeLink("https://example.com/deal/123?utm_source=a")
	b := canonicalizeLink("https://example.com/deal/123?utm_source=b&page=9")
	if a != b {
		t.Errorf("links differing only in query should share a key: %q != %q", a, b)
	}
}

func TestSeenStore_MissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen.json")
	store := loadSeenStore(path, 10)

	if store.Len() != 0 {
		t.Errorf("expected empty store, got %d entries", store.Len())
	}
	if store.Contains("https://example.com/deal/1") {
		t.Error("empty store should contain nothing")
	}
}

func TestSeenStore_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatalf("failed to write corrupt file: %v", err)
	}

	store := loadSeenStore(path, 10)
	if store.Len() != 0 {
		t.Errorf("corrupt file should yield empty store, got %d entries", store.Len())
	}

	// The store must still be usable afterwards.
	store.Record("https://example.com/deal/1")
	if !store.Contains("https://example.com/deal/1") {
		t.Error("store should accept records after corrupt load")
	}
}

func TestSeenStore_RecordPersistsAcrossReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen.json")

	store := loadSeenStore(path, 10)
	store.Record("https://example.com/deal/1")
	store.Record("https://example.com/deal/2")

	reloaded := loadSeenStore(path, 10)
	if !reloaded.Contains("https://example.com/deal/1") || !reloaded.Contains("https://example.com/deal/2") {
		t.Error("recorded links should survive a reload")
	}
	if reloaded.Len() != 2 {
		t.Errorf("expected 2 entries after reload, got %d", reloaded.Len())
	}
}

func TestSeenStore_DuplicateRecordDoesNotGrow(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen.json")
	store := loadSeenStore(path, 10)

	store.Record("https://example.com/deal/1")
	store.Record("https://example.com/deal/1")

	if store.Len() != 1 {
		t.Errorf("expected 1 entry after duplicate record, got %d", store.Len())
	}
}

func TestSeenStore_EvictionBound(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen.json")
	store := loadSeenStore(path, 3)

	links := []string{
		"https://example.com/deal/1",
		"https://example.com/deal/2",
		"https://example.com/deal/3",
		"https://example.com/deal/4",
		"https://example.com/deal/5",
	}
	for _, link := range links {
		store.Record(link)
	}

	if store.Len() != 3 {
		t.Errorf("expected store capped at 3, got %d", store.Len())
	}
	// Newest entries survive, oldest are evicted first.
	if !store.Contains("https://example.com/deal/5") {
		t.Error("most recently recorded entry must never be evicted")
	}
	if !store.Contains("https://example.com/deal/4") || !store.Contains("https://example.com/deal/3") {
		t.Error("entries within the cap should be retained")
	}
	if store.Contains("https://example.com/deal/1") || store.Contains("https://example.com/deal/2") {
		t.Error("oldest entries should be evicted")
	}

	// The persisted file honors the cap too.
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read persisted set: %v", err)
	}
	var persisted []string
	if err := json.Unmarshal(data, &persisted); err != nil {
		t.Fatalf("persisted set is not a JSON array: %v", err)
	}
	if len(persisted) != 3 {
		t.Errorf("persisted set should have 3 entries, got %d", len(persisted))
	}
}

func TestSeenStore_LoadRespectsCap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen.json")
	data, _ := json.Marshal([]string{"a", "b", "c", "d", "e"})
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to seed file: %v", err)
	}

	store := loadSeenStore(path, 3)
	if store.Len() != 3 {
		t.Errorf("expected load to trim to cap 3, got %d", store.Len())
	}
	if !store.Contains("e") || store.Contains("a") {
		t.Error("load should keep the newest entries when trimming")
	}
}
