package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

const sampleRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>"TCS NSE stock" - Google News</title>
  <item>
    <title>TCS wins large deal - Economic Times</title>
    <link>https://example.com/older</link>
    <pubDate>Mon, 02 Mar 2026 08:00:00 GMT</pubDate>
    <description>&lt;a href="https://example.com"&gt;TCS wins&lt;/a&gt;&amp;nbsp;&lt;font&gt;large deal&lt;/font&gt;</description>
  </item>
  <item>
    <title>TCS shares slip after results</title>
    <link>https://example.com/newer</link>
    <pubDate>Wed, 04 Mar 2026 08:00:00 GMT</pubDate>
    <description>Shares fell 2%</description>
  </item>
  <item>
    <title>   </title>
    <link>https://example.com/blank</link>
  </item>
</channel>
</rss>`

func newFeedServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if q := r.URL.Query().Get("q"); q != "TCS NSE stock" {
			t.Errorf("unexpected query %q", q)
		}
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(sampleRSS))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHeadlines(t *testing.T) {
	var hits int32
	srv := newFeedServer(t, &hits)
	f := NewFetcher(WithFeedURL(srv.URL + "/rss/search?q=%s"))

	got, err := f.Headlines(context.Background(), "TCS.NS", 5)
	if err != nil {
		t.Fatalf("Headlines() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d headlines, want 2 (blank title skipped): %+v", len(got), got)
	}
	if got[0].URL != "https://example.com/newer" {
		t.Errorf("newest first: got %q", got[0].URL)
	}
	if got[1].Summary != "TCS wins large deal" {
		t.Errorf("HTML not stripped: %q", got[1].Summary)
	}

	// Second call is served from cache.
	if _, err := f.Headlines(context.Background(), "TCS.NS", 5); err != nil {
		t.Fatal(err)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("feed fetched %d times, want 1", n)
	}
}

func TestHeadlinesLimit(t *testing.T) {
	var hits int32
	srv := newFeedServer(t, &hits)
	f := NewFetcher(WithFeedURL(srv.URL + "/?q=%s"))

	got, err := f.Headlines(context.Background(), "TCS.NS", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("limit ignored: %d", len(got))
	}
}

func TestHeadlinesFeedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := NewFetcher(WithFeedURL(srv.URL + "/?q=%s"))
	if _, err := f.Headlines(context.Background(), "INFY.NS", 3); err == nil {
		t.Fatal("expected error from failing feed")
	}
}

func TestQuery(t *testing.T) {
	tests := []struct{ in, want string }{
		{"TCS.NS", "TCS NSE stock"},
		{"500325.BO", "500325 BSE stock"},
		{"AAPL.US", "AAPL.US stock"},
	}
	for _, tt := range tests {
		if got := Query(tt.in); got != tt.want {
			t.Errorf("Query(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestContext(t *testing.T) {
	if Context(nil) != "" {
		t.Fatal("empty headlines should render nothing")
	}
	out := Context([]Headline{
		{Title: "TCS shares slip", Source: "Mint", PublishedAt: time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)},
		{Title: "TCS wins deal - Economic Times", Source: "Economic Times"},
	})
	if !strings.Contains(out, "- 04 Mar: TCS shares slip (Mint)") {
		t.Errorf("unexpected rendering:\n%s", out)
	}
	if strings.Contains(out, "Economic Times (Economic Times)") {
		t.Errorf("source repeated:\n%s", out)
	}
}

func TestCleanHTML(t *testing.T) {
	if got := cleanHTML(`<b>Hello</b>  <i>world</i>`); got != "Hello world" {
		t.Errorf("cleanHTML = %q", got)
	}
	if cleanHTML("") != "" {
		t.Error("empty input")
	}
}

func TestContextIncludesSummary(t *testing.T) {
	out := Context([]Headline{
		{Title: "TCS shares slip after results", Source: "Mint", Summary: "Shares fell 2% as margins narrowed Mint"},
		{Title: "TCS wins large deal", Source: "Economic Times", Summary: "TCS wins large deal"},
		{Title: "Infosys guidance", Summary: strings.Repeat("x", 300)},
	})
	if !strings.Contains(out, "  Shares fell 2% as margins narrowed\n") {
		t.Errorf("summary missing or publisher not trimmed:\n%s", out)
	}
	if strings.Count(out, "TCS wins large deal") != 1 {
		t.Errorf("summary repeating the title should be dropped:\n%s", out)
	}
	if !strings.Contains(out, strings.Repeat("x", 200)+"...") || strings.Contains(out, strings.Repeat("x", 201)) {
		t.Errorf("long summary not truncated:\n%s", out)
	}
}

func TestMentions(t *testing.T) {
	h := Headline{Title: "Markets close higher", Summary: "Tcs and Infosys led gains"}
	if !Mentions(h, "TCS") {
		t.Error("summary mention should match, ignoring case")
	}
	if Mentions(h, "WIPRO") || Mentions(h, " ") {
		t.Error("unexpected match")
	}
}

const mixedRSS = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
  <title>Google News</title>
  <item>
    <title>Sensex ends flat</title>
    <link>https://example.com/market</link>
    <pubDate>Wed, 04 Mar 2026 09:00:00 GMT</pubDate>
    <description>Broad market wrap</description>
  </item>
  <item>
    <title>IT stocks in focus</title>
    <link>https://example.com/it</link>
    <pubDate>Tue, 03 Mar 2026 09:00:00 GMT</pubDate>
    <description>&lt;b&gt;TCS&lt;/b&gt; and peers rally</description>
  </item>
</channel>
</rss>`

func TestHeadlinesPreferTickerMentions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(mixedRSS))
	}))
	defer srv.Close()

	f := NewFetcher(WithFeedURL(srv.URL + "/?q=%s"))
	got, err := f.Headlines(context.Background(), "TCS.NS", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].URL != "https://example.com/it" {
		t.Fatalf("headline mentioning the ticker in its summary should rank first: %+v", got)
	}
}
