package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/time/rate"
)

// listingItemCap bounds one listing fetch to the board's first page.
const listingItemCap = 20

// errNoSites terminates a monitor session; every other scrape failure is a
// skip-and-retry condition.
var errNoSites = errors.New("no sites registered")

var digitsRegex = regexp.MustCompile(`\d+`)

// BoardScraper fetches board listings and detail pages for every registered
// site, normalizing arbitrary markup into ListingItems.
type BoardScraper struct {
	db      *sql.DB
	client  *http.Client
	limiter *rate.Limiter
}

// NewBoardScraper creates a scraper backed by the site registry.
func NewBoardScraper(db *sql.DB) *BoardScraper {
	return &BoardScraper{
		db: db,
		client: &http.Client{
			Timeout: 10 * time.Second,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
	}
}

// FetchListing returns a snapshot of the first-page items of every
// registered board. A single site failing is logged and skipped; the fetch
// only errors when no sites are registered or every site failed.
func (s *BoardScraper) FetchListing(ctx context.Context) ([]ListingItem, error) {
	sites, err := listSites(s.db)
	if err != nil {
		return nil, fmt.Errorf("failed to load site registry: %w", err)
	}
	if len(sites) == 0 {
		return nil, errNoSites
	}

	var items []ListingItem
	failed := 0
	for _, site := range sites {
		siteItems, err := s.fetchSiteListing(ctx, site)
		if err != nil {
			slog.Warn("Site listing fetch failed", "site", site.Name, "error", err)
			failed++
			continue
		}
		items = append(items, siteItems...)
	}

	if failed == len(sites) {
		return nil, fmt.Errorf("all %d sites failed to fetch", failed)
	}
	return items, nil
}

func (s *BoardScraper) fetchSiteListing(ctx context.Context, site SiteConfig) ([]ListingItem, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "GET", site.BoardURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	setBrowserHeaders(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	// Limit response body size to 1MB
	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, 1024*1024))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	base, err := url.Parse(site.BoardURL)
	if err != nil {
		return nil, fmt.Errorf("invalid board URL: %w", err)
	}

	var items []ListingItem
	doc.Find(site.TitleSelector).EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if i >= listingItemCap {
			return false
		}

		title := strings.TrimSpace(sel.Text())
		if title == "" {
			slog.Debug("Skipping item with empty title", "site", site.Name)
			return true
		}

		link := extractLink(sel, site.LinkSelector, base)
		if link == "" {
			slog.Debug("Skipping item without link", "site", site.Name, "title", title)
			return true
		}

		item := ListingItem{
			Site:         site.Name,
			Title:        title,
			Link:         link,
			CommentCount: extractCommentCount(sel, site.CommentSelector),
			PostedAt:     extractText(sel, site.DateSelector),
			DetailHint:   site.ContentSelector,
		}

		slog.Debug("Found item",
			"site", item.Site,
			"title", item.Title,
			"link", item.Link,
			"comments", item.CommentCount,
			"postedAt", item.PostedAt)

		items = append(items, item)
		return true
	})

	slog.Debug("Fetched site listing", "site", site.Name, "items", len(items))
	return items, nil
}

// extractLink finds the item's anchor: the title element itself if it is an
// anchor, the configured link selector if given, otherwise the nearest
// enclosing anchor.
func extractLink(sel *goquery.Selection, linkSelector string, base *url.URL) string {
	var href string
	switch {
	case goquery.NodeName(sel) == "a":
		href, _ = sel.Attr("href")
	case linkSelector != "":
		href, _ = sel.Find(linkSelector).First().Attr("href")
	default:
		href, _ = sel.Closest("a").Attr("href")
	}
	if href == "" {
		return ""
	}

	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// extractCommentCount pulls the first number out of the comment element,
// defaulting to 0 when the selector is unset or matches nothing.
func extractCommentCount(sel *goquery.Selection, selector string) int {
	text := extractText(sel, selector)
	if text == "" {
		return 0
	}
	match := digitsRegex.FindString(text)
	if match == "" {
		return 0
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return 0
	}
	return n
}

// extractText finds selector relative to the item element, climbing at most
// two levels since boards keep metadata in sibling cells of the title's row.
// The climb is bounded: reaching the table would leak other rows' metadata.
func extractText(sel *goquery.Selection, selector string) string {
	if selector == "" {
		return ""
	}
	for levels := 0; levels <= 2; levels++ {
		if found := sel.Find(selector).First(); found.Length() > 0 {
			return strings.TrimSpace(found.Text())
		}
		sel = sel.Parent()
		if sel.Length() == 0 {
			break
		}
	}
	return ""
}

func setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
}
