package main

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	items       []ListingItem
	listingErr  error
	detailText  string
	detailErr   error
	detailCalls int
}

func (f *fakeSource) FetchListing(ctx context.Context) ([]ListingItem, error) {
	return f.items, f.listingErr
}

func (f *fakeSource) FetchDetail(ctx context.Context, link, hint string) (string, error) {
	f.detailCalls++
	if f.detailErr != nil {
		return "", f.detailErr
	}
	return f.detailText, nil
}

type fakeJudge struct {
	verdict Verdict
	calls   int
}

func (f *fakeJudge) Classify(ctx context.Context, detailText string) Verdict {
	f.calls++
	return f.verdict
}

type fakeSink struct {
	messages []string
}

func (f *fakeSink) Notify(message string) {
	f.messages = append(f.messages, message)
}

func newTestSeen(t *testing.T) *SeenStore {
	t.Helper()
	return loadSeenStore(filepath.Join(t.TempDir(), "seen.json"), 100)
}

func testDeal(comments int) ListingItem {
	return ListingItem{
		Site:         "testboard",
		Title:        "GPU below list price",
		Link:         "https://example.com/deal/1?ref=list",
		CommentCount: comments,
		PostedAt:     "5분 전",
	}
}

// With the threshold above the comment count the item never becomes a
// candidate: no detail fetch, no notification, and crucially no seen-set
// entry, on either cycle.
func TestProcessItem_NonCandidateNeverRecorded(t *testing.T) {
	source := &fakeSource{detailText: "- comments"}
	judge := &fakeJudge{verdict: Verdict{Judgment: JudgmentPositive, Reason: "cheap"}}
	sink := &fakeSink{}
	seen := newTestSeen(t)
	m := NewMonitor(source, judge, sink, seen, nil)

	cfg := MonitorConfig{Keyword: matchAllKeyword, MinComments: 5}
	for cycle := 0; cycle < 2; cycle++ {
		candidate := m.processItem(context.Background(), cfg, testDeal(3))
		assert.False(t, candidate)
	}

	assert.Zero(t, source.detailCalls)
	assert.Empty(t, sink.messages)
	assert.Zero(t, seen.Len(), "an item that never became a candidate must not be recorded")
}

// With the threshold lowered the first cycle fetches, classifies, notifies
// and records; the second cycle is suppressed purely by seen-set membership.
func TestProcessItem_DuplicateSuppression(t *testing.T) {
	source := &fakeSource{detailText: "- bought two"}
	judge := &fakeJudge{verdict: Verdict{Judgment: JudgmentPositive, Reason: "cheap"}}
	sink := &fakeSink{}
	seen := newTestSeen(t)
	m := NewMonitor(source, judge, sink, seen, nil)

	cfg := MonitorConfig{Keyword: matchAllKeyword, MinComments: 2}

	assert.True(t, m.processItem(context.Background(), cfg, testDeal(3)))
	assert.Equal(t, 1, source.detailCalls)
	assert.Equal(t, 1, judge.calls)
	require.Len(t, sink.messages, 1)
	assert.Contains(t, sink.messages[0], "GPU below list price")

	// Same deal, different tracking query: same canonical identity.
	dup := testDeal(3)
	dup.Link = "https://example.com/deal/1?utm_source=feed"
	assert.False(t, m.processItem(context.Background(), cfg, dup))
	assert.Equal(t, 1, source.detailCalls, "seen items must not be re-fetched")
	assert.Len(t, sink.messages, 1, "seen items must not be re-notified")
}

func TestProcessItem_NegativeRecordedWithoutAlert(t *testing.T) {
	source := &fakeSource{detailText: "- overpriced"}
	judge := &fakeJudge{verdict: Verdict{Judgment: JudgmentNegative, Reason: "expensive"}}
	sink := &fakeSink{}
	seen := newTestSeen(t)
	m := NewMonitor(source, judge, sink, seen, nil)

	cfg := MonitorConfig{Keyword: matchAllKeyword, MinComments: 0}
	m.processItem(context.Background(), cfg, testDeal(3))

	assert.Empty(t, sink.messages)
	assert.Equal(t, 1, seen.Len(), "negative items are still recorded as processed")
}

// UNKNOWN is a one-shot hold: no alert, but the item is judged once and
// never re-evaluated.
func TestProcessItem_UnknownHeldBackOnce(t *testing.T) {
	source := &fakeSource{detailText: "- ?"}
	judge := &fakeJudge{verdict: Verdict{Judgment: JudgmentUnknown, Reason: "no comments"}}
	sink := &fakeSink{}
	seen := newTestSeen(t)
	m := NewMonitor(source, judge, sink, seen, nil)

	cfg := MonitorConfig{Keyword: matchAllKeyword, MinComments: 0}
	m.processItem(context.Background(), cfg, testDeal(3))
	m.processItem(context.Background(), cfg, testDeal(3))

	assert.Empty(t, sink.messages)
	assert.Equal(t, 1, judge.calls)
}

// A failed classification still surfaces to a human, exactly once, and the
// item is not retried.
func TestProcessItem_ClassificationFailureSurfaces(t *testing.T) {
	source := &fakeSource{detailText: "- something"}
	judge := &fakeJudge{verdict: Verdict{Judgment: JudgmentFailed, Reason: "timeout"}}
	sink := &fakeSink{}
	seen := newTestSeen(t)
	m := NewMonitor(source, judge, sink, seen, nil)

	cfg := MonitorConfig{Keyword: matchAllKeyword, MinComments: 0}
	m.processItem(context.Background(), cfg, testDeal(3))
	m.processItem(context.Background(), cfg, testDeal(3))

	require.Len(t, sink.messages, 1)
	assert.Contains(t, sink.messages[0], "manual review")
	assert.Equal(t, 1, judge.calls, "failed items are not re-classified")
	assert.Equal(t, 1, seen.Len())
}

// A detail transport failure means classification was never attempted, so
// the item stays unseen and is retried on the next cycle.
func TestProcessItem_DetailFetchErrorRetries(t *testing.T) {
	source := &fakeSource{detailErr: errors.New("connect timeout")}
	judge := &fakeJudge{verdict: Verdict{Judgment: JudgmentPositive, Reason: "cheap"}}
	sink := &fakeSink{}
	seen := newTestSeen(t)
	m := NewMonitor(source, judge, sink, seen, nil)

	cfg := MonitorConfig{Keyword: matchAllKeyword, MinComments: 0}
	m.processItem(context.Background(), cfg, testDeal(3))

	assert.Empty(t, sink.messages)
	assert.Zero(t, judge.calls)
	assert.Zero(t, seen.Len(), "unattempted items must stay unseen")

	// Transport recovers: next cycle processes it normally.
	source.detailErr = nil
	source.detailText = "- fine now"
	m.processItem(context.Background(), cfg, testDeal(3))
	assert.Len(t, sink.messages, 1)
	assert.Equal(t, 1, seen.Len())
}

// At-most-once across restarts: a fresh monitor sharing the same persisted
// seen set must not re-alert.
func TestAtMostOnceAcrossRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "seen.json")
	cfg := MonitorConfig{Keyword: matchAllKeyword, MinComments: 0}

	sink1 := &fakeSink{}
	m1 := NewMonitor(
		&fakeSource{detailText: "- cheap"},
		&fakeJudge{verdict: Verdict{Judgment: JudgmentPositive, Reason: "cheap"}},
		sink1, loadSeenStore(path, 100), nil)
	m1.processItem(context.Background(), cfg, testDeal(3))
	require.Len(t, sink1.messages, 1)

	// Simulated restart: new store loaded from the same file.
	sink2 := &fakeSink{}
	judge2 := &fakeJudge{verdict: Verdict{Judgment: JudgmentPositive, Reason: "cheap"}}
	m2 := NewMonitor(&fakeSource{detailText: "- cheap"}, judge2, sink2, loadSeenStore(path, 100), nil)
	m2.processItem(context.Background(), cfg, testDeal(3))

	assert.Empty(t, sink2.messages, "restart must not produce a second alert")
	assert.Zero(t, judge2.calls)
}

func TestRun_NoSitesEndsSession(t *testing.T) {
	source := &fakeSource{listingErr: errNoSites}
	m := NewMonitor(source, &fakeJudge{}, &fakeSink{}, newTestSeen(t), nil)

	err := m.Run(context.Background(), MonitorConfig{Keyword: matchAllKeyword, PollInterval: time.Millisecond})
	assert.ErrorIs(t, err, errNoSites)
}

func TestRun_TransientListingErrorKeepsRunning(t *testing.T) {
	source := &fakeSource{listingErr: errors.New("HTTP error: 503")}
	m := NewMonitor(source, &fakeJudge{}, &fakeSink{}, newTestSeen(t), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := m.Run(ctx, MonitorConfig{Keyword: matchAllKeyword, PollInterval: time.Millisecond})
	assert.NoError(t, err, "transient fetch errors must not end the session; only cancellation did")
}

func TestRun_CancellationReturnsNil(t *testing.T) {
	source := &fakeSource{items: []ListingItem{testDeal(3)}, detailText: "- cheap"}
	judge := &fakeJudge{verdict: Verdict{Judgment: JudgmentNegative, Reason: "meh"}}
	m := NewMonitor(source, judge, &fakeSink{}, newTestSeen(t), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- m.Run(ctx, MonitorConfig{Keyword: matchAllKeyword, MinComments: 0, PollInterval: 10 * time.Millisecond})
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not observe cancellation")
	}
}

func TestFormatDealAlert(t *testing.T) {
	msg := formatDealAlert(testDeal(12), Verdict{Judgment: JudgmentPositive, Reason: "praised in comments"})

	for _, want := range []string{"GPU below list price", "praised in comments", "https://example.com/deal/1?ref=list", "12"} {
		assert.Contains(t, msg, want)
	}
	assert.False(t, strings.Contains(msg, "manual review"))
}
