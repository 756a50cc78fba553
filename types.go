package main

import "time"

// ListingItem represents a single entry scraped from a board index page.
// Adapters populate every field; missing sub-fields get their zero-value
// defaults so downstream code never branches on presence.
type ListingItem struct {
	Site         string
	Title        string
	Link         string
	CommentCount int
	PostedAt     string // free-text recency marker, format varies by site
	DetailHint   string // content selector for the detail page, empty means auto-detect
}

// Judgment is the classifier's call on a deal. Failed is distinct from
// Unknown: Unknown means the classifier ran and explicitly could not decide,
// Failed means the call errored or its output was unusable.
type Judgment string

const (
	JudgmentPositive Judgment = "POSITIVE"
	JudgmentNegative Judgment = "NEGATIVE"
	JudgmentUnknown  Judgment = "UNKNOWN"
	JudgmentFailed   Judgment = "FAILED"
)

// Verdict is the classifier's structured reply.
type Verdict struct {
	Judgment Judgment `json:"judgment"`
	Reason   string   `json:"reason"`
}

// MonitorConfig holds the per-session monitoring parameters. It is created
// from the monitor command and never mutated during a session.
type MonitorConfig struct {
	Keyword      string // matchAllKeyword disables the keyword match
	MinComments  int
	PollInterval time.Duration
}

// SiteConfig describes one registered board and the selectors used to
// extract listing fields from its markup.
type SiteConfig struct {
	ID              int64
	Name            string
	BoardURL        string
	TitleSelector   string
	LinkSelector    string
	CommentSelector string
	DateSelector    string
	ContentSelector string
}
