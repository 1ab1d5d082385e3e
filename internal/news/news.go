// Package news fetches recent headlines for a ticker so the analysis
// prompt can mention them.
package news

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/seenimoa/tickerlens/internal/infra"
	"github.com/seenimoa/tickerlens/pkg/utils"
)

// DefaultFeedURL is the Google News RSS search endpoint, Indian edition.
// %s receives the URL-escaped query.
const DefaultFeedURL = "https://news.google.com/rss/search?q=%s&hl=en-IN&gl=IN&ceid=IN:en"

// Headline is one news item.
type Headline struct {
	Title       string    `json:"title"`
	URL         string    `json:"url"`
	Source      string    `json:"source,omitempty"`
	Summary     string    `json:"summary,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// Fetcher reads ticker headlines from an RSS search feed.
type Fetcher struct {
	feedURL string
	parser  *gofeed.Parser
	cache   *infra.Cache[[]Headline]
	limiter *infra.RateLimiter
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithFeedURL sets the feed URL template (must contain one %s).
func WithFeedURL(tmpl string) Option {
	return func(f *Fetcher) { f.feedURL = tmpl }
}

// NewFetcher creates a fetcher with a 10 minute cache and 2 req/s limit.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		feedURL: DefaultFeedURL,
		parser:  gofeed.NewParser(),
		cache:   infra.NewCache[[]Headline](10 * time.Minute),
		limiter: infra.NewRateLimiter(2, time.Second),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Headlines returns up to limit recent headlines for symbol, newest first.
func (f *Fetcher) Headlines(ctx context.Context, symbol string, limit int) ([]Headline, error) {
	query := Query(symbol)
	cacheKey := fmt.Sprintf("%s:%d", query, limit)
	if cached, ok := f.cache.Get(cacheKey); ok {
		return cached, nil
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	feed, err := f.parser.ParseURLWithContext(fmt.Sprintf(f.feedURL, url.QueryEscape(query)), ctx)
	if err != nil {
		return nil, fmt.Errorf("news: parse feed for %s: %w", symbol, err)
	}

	items := make([]Headline, 0, len(feed.Items))
	for _, item := range feed.Items {
		title := strings.TrimSpace(item.Title)
		if title == "" {
			continue
		}
		h := Headline{
			Title:   title,
			URL:     item.Link,
			Summary: cleanHTML(item.Description),
		}
		if item.Author != nil {
			h.Source = item.Author.Name
		}
		if h.Source == "" && feed.Title != "" {
			h.Source = feed.Title
		}
		if item.PublishedParsed != nil {
			h.PublishedAt = *item.PublishedParsed
		}
		items = append(items, h)
	}

	// Items that name the ticker come first, each group newest first.
	keyword := utils.BaseSymbol(symbol)
	sort.SliceStable(items, func(i, j int) bool {
		mi, mj := Mentions(items[i], keyword), Mentions(items[j], keyword)
		if mi != mj {
			return mi
		}
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	f.cache.Set(cacheKey, items)
	return items, nil
}

// Query builds the search query for a ticker: "TCS NSE" for TCS.NS.
func Query(symbol string) string {
	base := utils.BaseSymbol(symbol)
	if ex := utils.Exchange(symbol); ex != "" {
		return base + " " + ex + " stock"
	}
	return base + " stock"
}

// Mentions reports whether keyword appears in the headline's title or
// summary, ignoring case.
func Mentions(h Headline, keyword string) bool {
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return false
	}
	return strings.Contains(strings.ToLower(h.Title+" "+h.Summary), keyword)
}

// Context renders headlines as a prompt fragment. Empty input yields "".
// A summary that adds nothing beyond the title is left out.
func Context(headlines []Headline) string {
	if len(headlines) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Recent headlines (verify before relying on them):\n")
	for _, h := range headlines {
		b.WriteString("- ")
		if !h.PublishedAt.IsZero() {
			b.WriteString(h.PublishedAt.In(utils.IST).Format("02 Jan"))
			b.WriteString(": ")
		}
		b.WriteString(h.Title)
		if h.Source != "" && !strings.HasSuffix(h.Title, h.Source) {
			b.WriteString(" (")
			b.WriteString(h.Source)
			b.WriteString(")")
		}
		b.WriteString("\n")
		if sum := summaryLine(h); sum != "" {
			b.WriteString("  ")
			b.WriteString(sum)
			b.WriteString("\n")
		}
	}
	return b.String()
}

const maxSummary = 200

func summaryLine(h Headline) string {
	sum := strings.TrimSpace(h.Summary)
	if sum == "" || strings.Contains(h.Title, sum) {
		return ""
	}
	// Google News descriptions usually end with the publisher name.
	if h.Source != "" {
		sum = strings.TrimSpace(strings.TrimSuffix(sum, h.Source))
	}
	if sum == "" || strings.Contains(h.Title, sum) {
		return ""
	}
	if r := []rune(sum); len(r) > maxSummary {
		sum = string(r[:maxSummary]) + "..."
	}
	return sum
}

// cleanHTML strips HTML tags from a string using goquery.
func cleanHTML(s string) string {
	if s == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<body>" + s + "</body>"))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
