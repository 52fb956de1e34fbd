package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mkarvo/websift/internal/estimate"
)

// SearxNG implements Provider against a SearxNG instance's /search
// endpoint. In time-sensitive mode it queries the news category; for
// region-specific queries it biases the language parameter and appends the
// region name to the query when absent.
type SearxNG struct {
	BaseURL    string
	APIKey     string // optional
	HTTPClient *http.Client
	UserAgent  string // optional custom UA
}

func (s *SearxNG) Name() string { return "searxng" }

func (s *SearxNG) Search(ctx context.Context, query string, profile estimate.Profile, limit int) ([]Candidate, error) {
	if s.BaseURL == "" {
		return nil, fmt.Errorf("missing searxng base url")
	}
	if limit <= 0 {
		limit = 10
	}
	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(u.Path, "/search") {
		u.Path = strings.TrimRight(u.Path, "/") + "/search"
	}

	q := u.Query()
	q.Set("q", regionalQuery(query, profile.Region))
	q.Set("format", "json")
	q.Set("safesearch", "1")
	q.Set("count", fmt.Sprintf("%d", limit))
	if profile.Mode == estimate.ModeTimeSensitive {
		q.Set("categories", "news")
		q.Set("time_range", "week")
	} else {
		q.Set("categories", "general")
	}
	if profile.Region != nil {
		q.Set("language", "all")
		q.Set("country", profile.Region.Code.String())
	} else {
		q.Set("language", "auto")
	}
	if s.APIKey != "" {
		q.Set("apikey", s.APIKey)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	if s.UserAgent != "" {
		req.Header.Set("User-Agent", s.UserAgent)
	}
	hc := s.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("searxng status: %d", resp.StatusCode)
	}
	var sr searxResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, err
	}
	out := make([]Candidate, 0, len(sr.Results))
	for _, r := range sr.Results {
		if strings.TrimSpace(r.URL) == "" {
			continue
		}
		out = append(out, Candidate{
			Title: strings.TrimSpace(r.Title),
			URL:   strings.TrimSpace(r.URL),
		})
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

// regionalQuery appends the region name when the query does not already
// carry it, biasing results geographically.
func regionalQuery(query string, region *estimate.Region) string {
	if region == nil {
		return query
	}
	if region.Mentions(query) {
		return query
	}
	return query + " " + region.Name
}

type searxResponse struct {
	Results []struct {
		Title string `json:"title"`
		URL   string `json:"url"`
	} `json:"results"`
}
