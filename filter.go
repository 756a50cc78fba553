package main

import (
	"strings"
	"time"
)

// matchAllKeyword disables the keyword arm of the interest predicate.
const matchAllKeyword = "all"

// relativeTimeMarkers are substrings signalling a post is hours old at most.
// Korean boards write "5분 전", "방금"; English ones "5 minutes ago".
var relativeTimeMarkers = []string{
	"방금", "초", "분", "시간",
	"just now", "second", "minute", "hour",
}

// isRecent reports whether a free-text recency marker looks like today.
// This is a deliberate heuristic, not a date parse: an empty or
// unrecognized-but-relative marker passes, preferring a stale item reviewed
// over a fresh deal missed.
func isRecent(postedAt string, now time.Time) bool {
	postedAt = strings.TrimSpace(postedAt)
	if postedAt == "" {
		return true
	}

	lower := strings.ToLower(postedAt)
	for _, marker := range relativeTimeMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}

	// A colon reads as a same-day clock time ("14:03").
	if strings.Contains(postedAt, ":") {
		return true
	}

	return strings.Contains(postedAt, now.Format("01/02")) ||
		strings.Contains(postedAt, now.Format("01-02"))
}

// isInteresting reports whether an item clears the keyword or comment-count
// bar. The keyword match is case-sensitive and skipped entirely for the
// match-all sentinel, where only the comment threshold applies.
func isInteresting(item ListingItem, cfg MonitorConfig) bool {
	if cfg.Keyword != matchAllKeyword && strings.Contains(item.Title, cfg.Keyword) {
		return true
	}
	return item.CommentCount >= cfg.MinComments
}

// isCandidate decides whether an unseen item proceeds to detail fetch and
// classification.
func isCandidate(item ListingItem, cfg MonitorConfig, now time.Time) bool {
	return isRecent(item.PostedAt, now) && isInteresting(item, cfg)
}
