package main

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/gorilla/feeds"
)

// AlertFeed keeps an Atom feed of every deal alerted on, rewritten to disk
// after each addition. It is the durable, subscribable record behind the
// chat notifications; write failures are logged and never block the monitor.
type AlertFeed struct {
	path string

	mu    sync.Mutex
	items []*feeds.Item
}

// NewAlertFeed creates a feed writing to path.
func NewAlertFeed(path string) *AlertFeed {
	return &AlertFeed{path: path}
}

// Add appends an alerted deal and rewrites the feed file.
func (f *AlertFeed) Add(item ListingItem, reason string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	f.items = append(f.items, &feeds.Item{
		Title:       item.Title,
		Link:        &feeds.Link{Href: item.Link, Rel: "alternate", Type: "text/html"},
		Id:          canonicalizeLink(item.Link),
		Description: fmt.Sprintf("Comments: %d | Site: %s | %s", item.CommentCount, item.Site, reason),
		Created:     now,
	})

	feed := &feeds.Feed{
		Title:       "Hot Deal Alerts",
		Description: "Deals judged worth buying by the monitor",
		Link:        &feeds.Link{Href: item.Link, Rel: "self", Type: "text/html"},
		Created:     now,
		Updated:     now,
		Items:       f.items,
	}

	atom, err := feed.ToAtom()
	if err != nil {
		slog.Warn("Failed to generate alert feed", "error", err)
		return
	}

	if err := os.WriteFile(f.path, []byte(atom), 0644); err != nil {
		slog.Warn("Failed to write alert feed", "path", f.path, "error", err)
		return
	}
	slog.Debug("Alert feed updated", "path", f.path, "entries", len(f.items))
}
