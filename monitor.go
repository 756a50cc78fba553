package main

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// listingSource abstracts the scraping layer.
type listingSource interface {
	FetchListing(ctx context.Context) ([]ListingItem, error)
	FetchDetail(ctx context.Context, link, hint string) (string, error)
}

// dealJudge abstracts the classifier.
type dealJudge interface {
	Classify(ctx context.Context, detailText string) Verdict
}

// alertSink abstracts the notification layer.
type alertSink interface {
	Notify(message string)
}

// Monitor drives repeated poll cycles: fetch the listings, thread each item
// through filter, dedup check, detail fetch, classification, notification
// and dedup commit, then sleep the poll interval. Items are processed
// strictly sequentially so notification order and seen-set commit order
// match processing order.
type Monitor struct {
	source listingSource
	judge  dealJudge
	sink   alertSink
	seen   *SeenStore
	feed   *AlertFeed // optional
}

// NewMonitor wires a monitor from its collaborators. feed may be nil.
func NewMonitor(source listingSource, judge dealJudge, sink alertSink, seen *SeenStore, feed *AlertFeed) *Monitor {
	return &Monitor{source: source, judge: judge, sink: sink, seen: seen, feed: feed}
}

// Run executes poll cycles until ctx is cancelled. Cancellation is
// cooperative: it is observed at the top of each cycle and between items,
// never mid-commit, and returns nil. Only the no-sites configuration error
// ends the session with an error; every transport failure is logged and
// retried next cycle.
func (m *Monitor) Run(ctx context.Context, cfg MonitorConfig) error {
	slog.Info("Monitor session started",
		"keyword", cfg.Keyword,
		"minComments", cfg.MinComments,
		"interval", cfg.PollInterval)

	for {
		if ctx.Err() != nil {
			return nil
		}

		items, err := m.source.FetchListing(ctx)
		switch {
		case errors.Is(err, errNoSites):
			return err
		case err != nil:
			slog.Warn("Listing fetch failed, retrying next cycle", "error", err)
		default:
			m.runCycle(ctx, cfg, items)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(cfg.PollInterval):
		}
	}
}

func (m *Monitor) runCycle(ctx context.Context, cfg MonitorConfig, items []ListingItem) {
	candidates := 0
	for _, item := range items {
		if ctx.Err() != nil {
			return
		}
		if m.processItem(ctx, cfg, item) {
			candidates++
		}
	}
	slog.Info("Scan cycle complete", "items", len(items), "candidates", candidates)
}

// processItem runs one item through the pipeline, reporting whether it was a
// candidate. Every failure is contained here: one bad item never aborts the
// cycle.
func (m *Monitor) processItem(ctx context.Context, cfg MonitorConfig, item ListingItem) bool {
	key := canonicalizeLink(item.Link)

	// The seen check is cheaper than the filter predicates, so it
	// short-circuits first.
	if m.seen.Contains(key) {
		return false
	}
	if !isCandidate(item, cfg, time.Now()) {
		return false
	}

	slog.Info("Analyzing candidate",
		"title", item.Title,
		"comments", item.CommentCount,
		"postedAt", item.PostedAt)

	detail, err := m.source.FetchDetail(ctx, item.Link, item.DetailHint)
	if err != nil {
		// Transport failure: classification was never attempted, so the
		// item stays unseen and is retried next cycle.
		slog.Warn("Detail fetch failed", "link", item.Link, "error", err)
		return true
	}

	verdict := m.judge.Classify(ctx, detail)
	switch verdict.Judgment {
	case JudgmentPositive:
		m.sink.Notify(formatDealAlert(item, verdict))
		if m.feed != nil {
			m.feed.Add(item, verdict.Reason)
		}
		slog.Info("Alert sent", "title", item.Title, "reason", verdict.Reason)
	case JudgmentNegative:
		slog.Info("Rejected", "title", item.Title, "reason", verdict.Reason)
	case JudgmentUnknown:
		slog.Info("Held back", "title", item.Title, "reason", verdict.Reason)
	default:
		// Classification failed: surface to a human rather than dropping.
		m.sink.Notify(formatFailureAlert(item))
		slog.Warn("Classification failed, sent manual-review alert", "title", item.Title)
	}

	// Committed after the notification decision and before the next item,
	// so a crash mid-cycle leaves every earlier item durably recorded.
	m.seen.Record(key)
	return true
}
