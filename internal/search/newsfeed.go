package search

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/mkarvo/websift/internal/estimate"
)

// NewsFeeds discovers candidates from curated RSS/Atom feeds. Feeds are not
// queryable like a search index, so items are pulled and keyword-filtered
// on the title locally. Intended as a fallback discovery source for
// time-sensitive queries when the primary provider yields nothing.
type NewsFeeds struct {
	HTTPClient *http.Client
	// Feeds is the global feed set. RegionalFeeds, keyed by region code
	// (e.g. "ES"), take precedence for region-specific queries.
	Feeds         []string
	RegionalFeeds map[string][]string
}

func (n *NewsFeeds) Name() string { return "newsfeeds" }

func (n *NewsFeeds) Search(ctx context.Context, query string, profile estimate.Profile, limit int) ([]Candidate, error) {
	if limit <= 0 {
		limit = 10
	}
	keywords := titleKeywords(query)
	if len(keywords) == 0 {
		return nil, nil
	}

	feeds := n.Feeds
	if profile.Region != nil {
		if regional, ok := n.RegionalFeeds[profile.Region.Code.String()]; ok && len(regional) > 0 {
			feeds = append(regional, feeds...)
		}
	}

	client := n.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	parser := gofeed.NewParser()
	out := make([]Candidate, 0, limit)

	for _, feedURL := range feeds {
		if len(out) >= limit {
			break
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
		if err != nil {
			continue
		}
		resp, err := client.Do(req)
		if err != nil {
			continue
		}
		feed, err := parser.Parse(resp.Body)
		resp.Body.Close()
		if err != nil {
			continue
		}
		for _, it := range feed.Items {
			if len(out) >= limit {
				break
			}
			title := strings.TrimSpace(it.Title)
			link := strings.TrimSpace(it.Link)
			if title == "" || link == "" {
				continue
			}
			if !matchesAnyKeyword(strings.ToLower(title), keywords) {
				continue
			}
			out = append(out, Candidate{Title: title, URL: link})
		}
	}
	return out, nil
}

// titleKeywords reduces the query to the tokens worth matching feed titles
// against; short stopword-ish tokens carry no signal.
func titleKeywords(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < 3 {
			continue
		}
		out = append(out, f)
	}
	return out
}

func matchesAnyKeyword(text string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}
