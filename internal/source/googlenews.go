package source

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/mmcdole/gofeed/rss"
	"golang.org/x/sync/singleflight"

	"github.com/deusflow/nrfinsight/internal/article"
)

const (
	// GoogleNewsRSSURL is the feed search endpoint.
	GoogleNewsRSSURL = "https://news.google.com/rss/search"

	googleNewsMaxItems = 10
	// recency qualifier appended to every feed query
	googleNewsWindow = " when:7d"
	// longer suffixes are part of the headline, not an outlet name
	maxOutletRunes = 30
	// parsed feeds are reused this long so grounding and the direct fetch
	// of one aggregation share a single upstream call
	feedReuseWindow = 10 * time.Second
)

// GoogleNews reads the Korean-locale news search feed for the last 7 days.
type GoogleNews struct {
	endpoint string
	client   *http.Client

	mu       sync.Mutex
	recent   map[string]feedEntry
	inflight singleflight.Group
	now      func() time.Time
}

type feedEntry struct {
	items   []article.Raw
	fetched time.Time
}

func NewGoogleNews(endpoint string, client *http.Client) *GoogleNews {
	if endpoint == "" {
		endpoint = GoogleNewsRSSURL
	}
	if client == nil {
		client = NewHTTPClient(0)
	}
	return &GoogleNews{
		endpoint: endpoint,
		client:   client,
		recent:   map[string]feedEntry{},
		now:      time.Now,
	}
}

func (g *GoogleNews) Name() string { return "googlenews" }

// Raw returns the feed markup unmodified.
func (g *GoogleNews) Raw(ctx context.Context, query string) ([]byte, error) {
	u, err := url.Parse(g.endpoint)
	if err != nil {
		return nil, fmt.Errorf("googlenews: bad endpoint: %w", err)
	}
	q := u.Query()
	q.Set("q", query+googleNewsWindow)
	q.Set("hl", "ko")
	q.Set("gl", "KR")
	q.Set("ceid", "KR:ko")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("googlenews: build request: %w", err)
	}
	return get(g.client, req, g.Name())
}

// Fetch parses the feed. Calls for the same query within feedReuseWindow,
// or while one is in flight, share one upstream request. Failures are not kept.
func (g *GoogleNews) Fetch(ctx context.Context, query string) ([]article.Raw, error) {
	if items, ok := g.lookup(query); ok {
		return items, nil
	}

	v, err, _ := g.inflight.Do(query, func() (interface{}, error) {
		body, err := g.Raw(ctx, query)
		if err != nil {
			return nil, err
		}
		items, err := parseGoogleNews(body)
		if err != nil {
			return nil, err
		}
		g.remember(query, items)
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return append([]article.Raw(nil), v.([]article.Raw)...), nil
}

func (g *GoogleNews) lookup(query string) ([]article.Raw, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.recent[query]
	if !ok || g.now().Sub(e.fetched) >= feedReuseWindow {
		return nil, false
	}
	return append([]article.Raw(nil), e.items...), true
}

func (g *GoogleNews) remember(query string, items []article.Raw) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	for q, e := range g.recent {
		if now.Sub(e.fetched) >= feedReuseWindow {
			delete(g.recent, q)
		}
	}
	g.recent[query] = feedEntry{items: items, fetched: now}
}

func parseGoogleNews(body []byte) ([]article.Raw, error) {
	parser := rss.Parser{}
	feed, err := parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("googlenews: %w: %v", ErrParse, err)
	}

	items := limit(feed.Items, googleNewsMaxItems)
	out := make([]article.Raw, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		outlet := ""
		if item.Source != nil {
			outlet = strings.TrimSpace(item.Source.Title)
		}
		title, outlet := splitHeadline(item.Title, outlet)

		out = append(out, article.Raw{
			Title:          title,
			Link:           item.Link,
			Source:         outlet,
			Date:           item.PubDate,
			Snippet:        feedSnippet(item.Description, title, outlet),
			FallbackSource: article.DefaultSource,
		})
	}
	return out, nil
}

// splitHeadline removes the " - Outlet" suffix feed titles carry.
// A structured outlet wins; without one the suffix itself becomes the outlet.
func splitHeadline(title, outlet string) (string, string) {
	title = strings.TrimSpace(title)

	if outlet != "" {
		if trimmed, ok := strings.CutSuffix(title, " - "+outlet); ok && strings.TrimSpace(trimmed) != "" {
			return strings.TrimSpace(trimmed), outlet
		}
		return title, outlet
	}

	i := strings.LastIndex(title, " - ")
	if i <= 0 {
		return title, ""
	}
	suffix := strings.TrimSpace(title[i+3:])
	if suffix == "" || utf8.RuneCountInString(suffix) > maxOutletRunes {
		return title, ""
	}
	return strings.TrimSpace(title[:i]), suffix
}

// feedSnippet drops descriptions that only restate the headline and outlet.
func feedSnippet(description, title, outlet string) string {
	text := article.StripHTML(description)
	if text == "" {
		return ""
	}
	rest := strings.TrimPrefix(text, title)
	if outlet != "" {
		rest = strings.ReplaceAll(rest, outlet, "")
	}
	if strings.Trim(rest, " -") == "" {
		return ""
	}
	return text
}
