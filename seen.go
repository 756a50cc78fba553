package main

import (
	"encoding/json"
	"log/slog"
	"net/url"
	"os"
	"sync"
)

// maxSeenEntries bounds the persisted seen set. Oldest entries are evicted
// first, so the cap limits storage without losing recently-seen links.
const maxSeenEntries = 2000

// canonicalizeLink reduces a raw listing URL to the identity the seen set
// keys on: scheme, host and path with any query string or fragment stripped.
// Two raw links differing only in tracking parameters canonicalize to the
// same key. Unparseable links are returned as-is.
func canonicalizeLink(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.RawQuery = ""
	u.Fragment = ""
	return u.String()
}

// SeenStore is the durable set of canonical links already processed.
// Record is the sole write path; it serializes the whole set to disk before
// returning so a crash between cycles cannot cause a duplicate alert.
type SeenStore struct {
	path string
	max  int

	mu      sync.Mutex
	links   []string // insertion order, oldest first
	present map[string]struct{}
}

// loadSeenStore reconstructs the seen set from disk. A missing or corrupt
// file yields an empty set; corruption is logged, never fatal.
func loadSeenStore(path string, max int) *SeenStore {
	if max <= 0 {
		max = maxSeenEntries
	}
	s := &SeenStore{
		path:    path,
		max:     max,
		present: make(map[string]struct{}),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Failed to read seen set, starting empty", "path", path, "error", err)
		}
		return s
	}

	var links []string
	if err := json.Unmarshal(data, &links); err != nil {
		slog.Warn("Seen set is corrupt, starting empty", "path", path, "error", err)
		return s
	}

	for _, link := range links {
		if _, ok := s.present[link]; ok {
			continue
		}
		s.links = append(s.links, link)
		s.present[link] = struct{}{}
	}
	s.evictLocked()

	slog.Debug("Loaded seen set", "path", path, "entries", len(s.links))
	return s
}

// Contains reports whether a canonical link has already been processed.
func (s *SeenStore) Contains(link string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.present[link]
	return ok
}

// Record adds a canonical link and persists the entire updated set. A write
// failure is logged; the in-memory set stays authoritative for the rest of
// the process lifetime.
func (s *SeenStore) Record(link string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.present[link]; !ok {
		s.links = append(s.links, link)
		s.present[link] = struct{}{}
		s.evictLocked()
	}

	if err := s.persistLocked(); err != nil {
		slog.Warn("Failed to persist seen set, continuing in memory", "path", s.path, "error", err)
	}
}

// Len returns the current number of entries.
func (s *SeenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.links)
}

func (s *SeenStore) evictLocked() {
	for len(s.links) > s.max {
		oldest := s.links[0]
		s.links = s.links[1:]
		delete(s.present, oldest)
	}
}

func (s *SeenStore) persistLocked() error {
	links := s.links
	if links == nil {
		links = []string{}
	}
	data, err := json.Marshal(links)
	if err != nil {
		return err
	}
	return os.WriteFile(s.path, data, 0644)
}
