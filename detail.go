package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// maxDetailLen bounds the extracted detail text to stay within classifier
// input limits.
const maxDetailLen = 3000

// knownDomainSelectors maps recognized deal-board domains to their comment
// area selectors. New sites are supported by adding an entry, not by
// branching in the extraction code.
var knownDomainSelectors = map[string][]string{
	"ppomppu.co.kr":  {".comment_memo", "div.han_contents"},
	"algumon.com":    {".comment-content", ".product-body"},
	"fmkorea.com":    {".comment_view .xe_content", ".rd_body .xe_content"},
	"ruliweb.com":    {".comment_view_wrapper .text", ".view_content"},
	"quasarzone.com": {".reply-content", ".market-info-view-content"},
}

// genericCommentSelectors covers the comment markup conventions most board
// engines share, tried when no domain-specific selectors apply.
var genericCommentSelectors = []string{
	".comment_content",
	".comment-content",
	".comment_memo",
	".comment .content",
	".reply_content",
	"#comment",
	".cmt_content",
}

// FetchDetail returns the best-effort textual content of an item's detail
// page, truncated to maxDetailLen. Extraction falls through an ordered
// chain: the configured hint selector, the domain's known selectors, the
// generic comment selectors, and finally the page's full visible text, so a
// successful HTTP fetch never yields empty text.
func (s *BoardScraper) FetchDetail(ctx context.Context, link, hint string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	doc, err := s.fetchDocument(ctx, link)
	if err != nil {
		return "", err
	}

	// Some boards interpose a "redirecting..." page before the real post.
	if target := interstitialTarget(doc, link); target != "" {
		slog.Debug("Following interstitial redirect", "from", link, "to", target)
		if redirected, err := s.fetchDocument(ctx, target); err == nil {
			doc = redirected
		} else {
			slog.Debug("Interstitial fetch failed, extracting from original page", "error", err)
		}
	}

	for _, selector := range detailSelectorChain(link, hint) {
		if text := collectComments(doc, selector); text != "" {
			return truncateText(text, maxDetailLen), nil
		}
	}

	if text := visibleText(doc); text != "" {
		return truncateText(text, maxDetailLen), nil
	}
	return "no readable content found", nil
}

func (s *BoardScraper) fetchDocument(ctx context.Context, link string) (*goquery.Document, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, "GET", link, nil)
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

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1024*1024))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// detailSelectorChain builds the ordered selector fallback for a link: the
// adapter hint first, then the domain's known selectors, then the generics.
func detailSelectorChain(link, hint string) []string {
	var chain []string
	if hint != "" && hint != "auto" {
		chain = append(chain, hint)
	}

	if u, err := url.Parse(link); err == nil {
		host := strings.ToLower(u.Host)
		for domain, selectors := range knownDomainSelectors {
			if strings.Contains(host, domain) {
				chain = append(chain, selectors...)
				break
			}
		}
	}

	return append(chain, genericCommentSelectors...)
}

// collectComments joins the text of every element matching selector, one
// line per element.
func collectComments(doc *goquery.Document, selector string) string {
	var lines []string
	doc.Find(selector).Each(func(i int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			lines = append(lines, "- "+text)
		}
	})
	return strings.Join(lines, "\n")
}

// interstitialTarget detects a "redirecting" interstitial page and returns
// the absolute URL it points at, or empty when the page is the real content.
// Both meta refresh directives and marker text with a single outgoing link
// are recognized.
func interstitialTarget(doc *goquery.Document, base string) string {
	baseURL, err := url.Parse(base)
	if err != nil {
		return ""
	}

	target := ""
	doc.Find("meta").EachWithBreak(func(i int, sel *goquery.Selection) bool {
		if !strings.EqualFold(sel.AttrOr("http-equiv", ""), "refresh") {
			return true
		}
		content := sel.AttrOr("content", "")
		if idx := strings.Index(strings.ToLower(content), "url="); idx >= 0 {
			target = strings.TrimSpace(content[idx+len("url="):])
			return false
		}
		return true
	})

	if target == "" {
		bodyText := strings.ToLower(doc.Find("body").Text())
		if strings.Contains(bodyText, "redirect") || strings.Contains(bodyText, "이동 중") {
			target = doc.Find("body a").First().AttrOr("href", "")
		}
	}

	if target == "" {
		return ""
	}
	ref, err := url.Parse(strings.Trim(target, `'"`))
	if err != nil {
		return ""
	}
	resolved := baseURL.ResolveReference(ref).String()
	if resolved == base {
		return ""
	}
	return resolved
}

// skippedElements are stripped before falling back to full-page text.
var skippedElements = map[string]bool{
	"script":   true,
	"style":    true,
	"noscript": true,
	"nav":      true,
	"header":   true,
	"footer":   true,
	"form":     true,
	"iframe":   true,
}

// visibleText returns the page's visible text with non-content markup
// stripped, the last resort when no selector matched.
func visibleText(doc *goquery.Document) string {
	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}

	var parts []string
	for _, node := range root.Nodes {
		collectTextNodes(node, &parts)
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}

func collectTextNodes(n *html.Node, parts *[]string) {
	if n.Type == html.ElementNode && skippedElements[n.Data] {
		return
	}
	if n.Type == html.TextNode {
		if text := strings.TrimSpace(n.Data); text != "" {
			*parts = append(*parts, text)
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectTextNodes(c, parts)
	}
}

// truncateText caps text at max runes. Detail pages are often Korean, so the
// cut must not split a multi-byte sequence.
func truncateText(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
