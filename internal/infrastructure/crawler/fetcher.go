// Package crawler fetches site pages for ingestion. Fetching is rate
// limited and confined to the host of the configured start URL so a
// crawl cannot wander off the site.
package crawler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/kkucdk/assistant-backend/internal/core/ports"
)

const maxBodyBytes = 5 << 20

type Fetcher struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	host       string
	userAgent  string
}

// NewFetcher builds a fetcher confined to the host of startURL,
// issuing at most requestsPerSecond requests.
func NewFetcher(startURL string, requestsPerSecond float64) (*Fetcher, error) {
	parsed, err := url.Parse(startURL)
	if err != nil || parsed.Host == "" {
		return nil, fmt.Errorf("invalid start url %q", startURL)
	}
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &Fetcher{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		host:       parsed.Host,
		userAgent:  "kkuc-assistant-crawler/1.0",
	}, nil
}

func (f *Fetcher) Fetch(ctx context.Context, pageURL string) (*ports.FetchedPage, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create fetch request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("fetch %s: status %s", pageURL, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", pageURL, err)
	}

	contentType := resp.Header.Get("Content-Type")
	page := &ports.FetchedPage{
		URL:         pageURL,
		ContentType: contentType,
		Body:        body,
	}
	if strings.Contains(contentType, "text/html") {
		page.Links = f.extractLinks(pageURL, body)
	}
	return page, nil
}

func (f *Fetcher) extractLinks(baseURL string, body []byte) []string {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil
	}

	doc, err := html.Parse(strings.NewReader(string(body)))
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	var links []string
	for node := range doc.Descendants() {
		if node.Type != html.ElementNode || node.Data != "a" {
			continue
		}
		for _, attr := range node.Attr {
			if attr.Key != "href" {
				continue
			}
			resolved, ok := f.resolveLink(base, attr.Val)
			if !ok {
				continue
			}
			if _, dup := seen[resolved]; dup {
				continue
			}
			seen[resolved] = struct{}{}
			links = append(links, resolved)
		}
	}
	return links
}

// resolveLink turns an href into an absolute same-host URL, or
// rejects it. Fragments are dropped; only html-like and pdf targets
// are kept.
func (f *Fetcher) resolveLink(base *url.URL, href string) (string, bool) {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") {
		return "", false
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	resolved := base.ResolveReference(ref)
	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return "", false
	}
	if resolved.Host != f.host {
		return "", false
	}
	switch strings.ToLower(path.Ext(resolved.Path)) {
	case "", ".html", ".htm", ".php", ".pdf":
	default:
		return "", false
	}
	resolved.Fragment = ""
	return resolved.String(), true
}
