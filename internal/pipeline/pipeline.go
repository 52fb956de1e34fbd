// Package pipeline wires discovery, courtesy checks, fetching, extraction
// and scoring into the retrieval entry point, then applies two-phase
// selection over the collected documents.
package pipeline

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mkarvo/websift/internal/estimate"
	"github.com/mkarvo/websift/internal/extract"
	"github.com/mkarvo/websift/internal/fetch"
	"github.com/mkarvo/websift/internal/robots"
	"github.com/mkarvo/websift/internal/score"
	"github.com/mkarvo/websift/internal/search"
	"github.com/mkarvo/websift/internal/truncate"
)

// ErrEmptyQuery is the only error Search raises: the caller handed in an
// empty or whitespace-only query. Every other failure mode degrades to an
// empty or partial result.
var ErrEmptyQuery = errors.New("query is empty")

// Document is a ranked retrieval result: cleaned, length-bounded prose plus
// its quality score. Immutable once scored.
type Document struct {
	URL          string
	Title        string
	Text         string
	QualityScore float64
}

// Options tunes one Search call. Zero values take the defaults below.
type Options struct {
	// MaxResults bounds the returned document count. Default 5.
	MaxResults int
	// MinResults is the yield floor the relaxed phase defends. Default 2.
	MinResults int
	// MinWords is the strict-phase word-count floor. Default 120.
	MinWords int
	// MinQualityScore is the strict-phase quality floor. Default 0.3.
	MinQualityScore float64
	// FixedTarget disables the difficulty estimator and always targets
	// MaxResults. The zero value keeps adaptive source counts on.
	FixedTarget bool
	// CandidateMultiplier oversamples discovery to absorb later
	// rejection. Default 4.
	CandidateMultiplier int
	// MaxChars caps each document's text at a sentence boundary.
	// Default 8000.
	MaxChars int
}

// DefaultOptions returns the reference configuration.
func DefaultOptions() Options {
	return Options{
		MaxResults:          5,
		MinResults:          2,
		MinWords:            120,
		MinQualityScore:     0.3,
		CandidateMultiplier: 4,
		MaxChars:            8000,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxResults <= 0 {
		o.MaxResults = d.MaxResults
	}
	if o.MinResults <= 0 {
		o.MinResults = d.MinResults
	}
	if o.MinResults > o.MaxResults {
		o.MinResults = o.MaxResults
	}
	if o.MinWords <= 0 {
		o.MinWords = d.MinWords
	}
	if o.MinQualityScore <= 0 {
		o.MinQualityScore = d.MinQualityScore
	}
	if o.CandidateMultiplier <= 0 {
		o.CandidateMultiplier = d.CandidateMultiplier
	}
	if o.MaxChars <= 0 {
		o.MaxChars = d.MaxChars
	}
	return o
}

// Pipeline holds the collaborators of one retrieval stack. All fields but
// Provider, Fetcher and Scorer are optional.
type Pipeline struct {
	Provider search.Provider
	// Fallback is consulted when the primary provider yields nothing for
	// a time-sensitive query. Optional.
	Fallback search.Provider
	Robots   *robots.Checker
	Fetcher  *fetch.Client
	Scorer   *score.Scorer
}

// candidate file extensions never worth fetching: document, spreadsheet and
// presentation formats the extractor cannot read.
var disallowedExtensions = []string{".pdf", ".doc", ".docx", ".ppt", ".pptx", ".xls", ".xlsx"}

// Search runs the full pipeline: profile the query, discover candidates,
// filter them, fetch/extract/score concurrently, then select. The returned
// slice is ordered best quality first; empty is a valid, non-error result.
func (p *Pipeline) Search(ctx context.Context, query string, opts Options) ([]Document, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	opts = opts.withDefaults()

	profile := estimate.Analyze(query, opts.MinResults, opts.MaxResults)
	if opts.FixedTarget {
		profile.TargetCount = opts.MaxResults
	}
	log.Debug().
		Str("query", query).
		Float64("difficulty", profile.Difficulty).
		Int("target", profile.TargetCount).
		Stringer("mode", profile.Mode).
		Msg("query profiled")

	candidates := p.discover(ctx, query, profile, opts)
	if len(candidates) == 0 {
		return []Document{}, nil
	}

	candidates = p.filterCandidates(ctx, candidates, opts.CandidateMultiplier*opts.MaxResults)
	if len(candidates) == 0 {
		log.Warn().Str("query", query).Msg("no candidates survived filtering")
		return []Document{}, nil
	}

	docs := p.collect(ctx, candidates, profile, opts)
	selected := selectDocuments(docs, profile, opts)

	log.Info().
		Str("query", query).
		Int("candidates", len(candidates)).
		Int("collected", len(docs)).
		Int("returned", len(selected)).
		Msg("retrieval complete")
	return selected, nil
}

// discover queries the provider, oversampling by the candidate multiplier.
// Provider failure degrades to zero candidates; for time-sensitive queries
// an optional fallback provider gets a chance first.
func (p *Pipeline) discover(ctx context.Context, query string, profile estimate.Profile, opts Options) []search.Candidate {
	limit := opts.CandidateMultiplier * profile.TargetCount
	candidates, err := p.Provider.Search(ctx, query, profile, limit)
	if err != nil {
		log.Warn().Err(err).Str("provider", p.Provider.Name()).Msg("search provider unavailable")
		candidates = nil
	}
	if len(candidates) == 0 && p.Fallback != nil && profile.Mode == estimate.ModeTimeSensitive {
		fb, err := p.Fallback.Search(ctx, query, profile, limit)
		if err != nil {
			log.Warn().Err(err).Str("provider", p.Fallback.Name()).Msg("fallback provider unavailable")
			return nil
		}
		candidates = fb
	}
	return candidates
}

// filterCandidates drops malformed URLs, disallowed file extensions,
// duplicates (by canonical URL) and courtesy-check rejections, capping the
// survivor list at the fan-out bound.
func (p *Pipeline) filterCandidates(ctx context.Context, in []search.Candidate, limit int) []search.Candidate {
	seen := make(map[string]struct{}, len(in))
	out := make([]search.Candidate, 0, len(in))
	for _, c := range in {
		if len(out) >= limit {
			break
		}
		u, err := url.Parse(strings.TrimSpace(c.URL))
		if err != nil || !u.IsAbs() || u.Host == "" {
			continue
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			continue
		}
		if hasDisallowedExtension(u.Path) {
			continue
		}
		canon := canonicalURL(u)
		if _, dup := seen[canon]; dup {
			continue
		}
		seen[canon] = struct{}{}
		if p.Robots != nil && !p.Robots.Allowed(ctx, c.URL) {
			log.Debug().Str("url", c.URL).Msg("candidate disallowed by courtesy check")
			continue
		}
		c.URL = canon
		out = append(out, c)
	}
	return out
}

// collect fans the candidates through fetch → extract → truncate → score
// with bounded concurrency. Each candidate writes only its own result slot;
// failures stay isolated and surface as nil slots.
func (p *Pipeline) collect(ctx context.Context, candidates []search.Candidate, profile estimate.Profile, opts Options) []scoredDoc {
	slots := make([]*scoredDoc, len(candidates))
	var wg sync.WaitGroup
	for i, c := range candidates {
		wg.Add(1)
		go func(i int, c search.Candidate) {
			defer wg.Done()
			slots[i] = p.process(ctx, c, profile, opts)
		}(i, c)
	}
	wg.Wait()

	docs := make([]scoredDoc, 0, len(candidates))
	for _, s := range slots {
		if s != nil {
			docs = append(docs, *s)
		}
	}
	return docs
}

// process runs one candidate's pipeline. A nil return means the candidate
// was dropped; the reason is logged, never raised.
func (p *Pipeline) process(ctx context.Context, c search.Candidate, profile estimate.Profile, opts Options) *scoredDoc {
	markup, err := p.Fetcher.Get(ctx, c.URL)
	if err != nil {
		log.Debug().Err(err).Str("url", c.URL).Msg("candidate fetch failed")
		return nil
	}
	res := extract.FromHTML(markup)
	if res.Text == "" {
		log.Debug().Str("url", c.URL).Msg("no usable content extracted")
		return nil
	}

	title := c.Title
	if title == "" {
		title = res.Title
	}
	if title == "" {
		title = "Untitled"
	}

	text := truncate.Sentence(res.Text, opts.MaxChars)
	quality := p.Scorer.Score(c.URL, title, text, profile)
	return &scoredDoc{
		doc: Document{
			URL:          c.URL,
			Title:        title,
			Text:         text,
			QualityScore: quality,
		},
		words:    len(strings.Fields(text)),
		regional: p.Scorer.RegionallyRelevant(c.URL, text, profile.Region),
	}
}

func hasDisallowedExtension(path string) bool {
	lower := strings.ToLower(path)
	for _, ext := range disallowedExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// canonicalURL drops fragments, lowercases the host and strips default
// ports, so duplicate discovery hits collapse to one fetch.
func canonicalURL(u *url.URL) string {
	u2 := *u
	u2.Fragment = ""
	u2.Host = strings.ToLower(u2.Host)
	if (u2.Scheme == "http" && strings.HasSuffix(u2.Host, ":80")) ||
		(u2.Scheme == "https" && strings.HasSuffix(u2.Host, ":443")) {
		u2.Host = u2.Hostname()
	}
	return u2.String()
}
