// Package score assigns a 0–1 usefulness score to an extracted document.
// The curated reputation, keyword, clickbait and regional-press tables are
// data (an embedded YAML document), not code branches.
package score

import (
	_ "embed"
	"fmt"
	"net/url"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mkarvo/websift/internal/estimate"
)

//go:embed lists.yaml
var listsYAML []byte

// Lists holds the curated scoring tables.
type Lists struct {
	HighReputation     []string            `yaml:"high_reputation"`
	HighReputationTLDs []string            `yaml:"high_reputation_tlds"`
	LowReputation      []string            `yaml:"low_reputation"`
	TopicalKeywords    []string            `yaml:"topical_keywords"`
	ClickbaitPhrases   []string            `yaml:"clickbait_phrases"`
	RegionalPress      map[string][]string `yaml:"regional_press"`
}

// Scorer computes quality scores against a set of curated lists.
type Scorer struct {
	lists Lists
}

// NewScorer loads the embedded curated lists.
func NewScorer() (*Scorer, error) {
	var l Lists
	if err := yaml.Unmarshal(listsYAML, &l); err != nil {
		return nil, fmt.Errorf("parse scoring lists: %w", err)
	}
	return &Scorer{lists: l}, nil
}

// NewScorerWithLists builds a scorer over caller-supplied tables, for
// deployments that swap the curated data.
func NewScorerWithLists(l Lists) *Scorer { return &Scorer{lists: l} }

// Score rates a document. Base 0.5, adjusted by domain reputation, length,
// topical-credibility keywords, clickbait signals, and — for
// region-specific queries — regional relevance. Clamped to [0,1].
func (s *Scorer) Score(rawURL, title, text string, profile estimate.Profile) float64 {
	score := 0.5
	host := hostOf(rawURL)

	if s.highReputation(host) {
		score += 0.3
	} else if matchesAnyDomain(host, s.lists.LowReputation) {
		score -= 0.2
	}

	words := len(strings.Fields(text))
	if words > 500 {
		score += 0.1
	}
	if words > 1000 {
		score += 0.1
	}

	lowerText := strings.ToLower(text)
	matched := 0.0
	for _, kw := range s.lists.TopicalKeywords {
		if strings.Contains(lowerText, kw) {
			matched += 0.05
		}
		if matched >= 0.2 {
			matched = 0.2
			break
		}
	}
	score += matched

	head := lowerText
	if len(head) > 500 {
		head = head[:500]
	}
	lowerTitle := strings.ToLower(title)
	for _, phrase := range s.lists.ClickbaitPhrases {
		if strings.Contains(lowerTitle, phrase) || strings.Contains(head, phrase) {
			score -= 0.15
			break
		}
	}

	if profile.Region != nil {
		score += s.regionalAdjustment(host, text, profile.Region)
	}

	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// regionalAdjustment rewards local domains and established regional press,
// and penalizes documents with no regional signal at all.
func (s *Scorer) regionalAdjustment(host, text string, region *estimate.Region) float64 {
	adj := 0.0
	regional := false
	if hasCCTLD(host, region.CCTLD()) {
		adj += 0.1
		regional = true
	}
	if matchesAnyDomain(host, s.lists.RegionalPress[region.Code.String()]) {
		adj += 0.25
		regional = true
	}
	if !regional && !region.Mentions(text) {
		adj -= 0.3
	}
	return adj
}

// RegionallyRelevant reports whether a document satisfies the strict-phase
// regional requirement: a regional domain (ccTLD or curated press) or a
// textual mention of the region.
func (s *Scorer) RegionallyRelevant(rawURL, text string, region *estimate.Region) bool {
	if region == nil {
		return true
	}
	host := hostOf(rawURL)
	if hasCCTLD(host, region.CCTLD()) {
		return true
	}
	if matchesAnyDomain(host, s.lists.RegionalPress[region.Code.String()]) {
		return true
	}
	return region.Mentions(text)
}

func (s *Scorer) highReputation(host string) bool {
	if matchesAnyDomain(host, s.lists.HighReputation) {
		return true
	}
	for _, tld := range s.lists.HighReputationTLDs {
		if hasCCTLD(host, tld) {
			return true
		}
	}
	return false
}

func hostOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// matchesAnyDomain matches the host itself or any subdomain of a listed
// domain. First match wins; bonuses are non-cumulative.
func matchesAnyDomain(host string, domains []string) bool {
	if host == "" {
		return false
	}
	for _, d := range domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func hasCCTLD(host, tld string) bool {
	if host == "" || tld == "" {
		return false
	}
	return strings.HasSuffix(host, "."+tld)
}
