// Package estimate derives a per-query retrieval profile: how many sources
// the query is worth, whether it is time-sensitive, and whether it targets a
// specific region. The whole package is a pure function of the query text —
// no I/O, no clock.
package estimate

import (
	"math"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/language"
)

// Mode selects the discovery flavor used by the provider adapter.
type Mode int

const (
	ModeGeneral Mode = iota
	ModeTimeSensitive
)

func (m Mode) String() string {
	if m == ModeTimeSensitive {
		return "time-sensitive"
	}
	return "general"
}

// Region identifies the geographic focus of a query. Terms are the
// lowercase tokens whose presence in a document counts as regional
// relevance.
type Region struct {
	Code  language.Region
	Name  string
	Terms []string
}

// Profile is the read-only per-query configuration threaded through the
// pipeline. Region is nil for global queries.
type Profile struct {
	Difficulty  float64
	TargetCount int
	Mode        Mode
	Region      *Region
}

// signal tables; data, not control flow, so they can be extended without
// touching the estimator.
var (
	temporalMarkers = []string{
		"latest", "today", "current", "currently", "now", "this week",
		"this month", "this year", "recent", "recently", "yesterday",
	}
	volatileTopics = []string{
		"weather", "forecast", "price", "prices", "stock", "stocks",
		"exchange rate", "score", "scores", "standings", "election",
		"news", "headline", "headlines",
	}
	newsVocabulary = []string{
		"news", "headline", "headlines", "breaking", "press", "bulletin",
		"announced", "announcement",
	}
	clauseSeparators = []string{";", "/", ",", " and ", " or ", " versus ", " vs ", " vs. "}

	recentYearRe = regexp.MustCompile(`\b20[2-3][0-9]\b`)
	digitRe      = regexp.MustCompile(`[0-9]`)
)

// Analyze computes the query profile. The difficulty heuristic starts at a
// base of 0.2 and accumulates weight for length, clause structure, temporal
// markers, volatile-fact topics, and proper-noun/digit mixes, clamped to
// [0,1]. TargetCount interpolates between minResults and maxResults.
func Analyze(query string, minResults, maxResults int) Profile {
	if minResults < 1 {
		minResults = 1
	}
	if maxResults < minResults {
		maxResults = minResults
	}
	q := strings.TrimSpace(query)
	lower := strings.ToLower(q)

	difficulty := 0.2
	if len([]rune(q)) > 80 {
		difficulty += 0.15
	}
	if containsAny(lower, clauseSeparators) {
		difficulty += 0.15
	}
	difficulty += temporalWeight(lower)
	if containsAny(lower, volatileTopics) {
		difficulty += 0.15
	}
	if mixesProperNounAndDigit(q) {
		difficulty += 0.15
	}
	difficulty = math.Max(0, math.Min(1, difficulty))

	target := minResults + int(math.Round(float64(maxResults-minResults)*difficulty))
	if target < minResults {
		target = minResults
	}
	if target > maxResults {
		target = maxResults
	}

	mode := ModeGeneral
	if containsAny(lower, newsVocabulary) {
		mode = ModeTimeSensitive
	}

	return Profile{
		Difficulty:  difficulty,
		TargetCount: target,
		Mode:        mode,
		Region:      DetectRegion(lower),
	}
}

// temporalWeight adds 0.2 per temporal signal, capped at 0.4. Explicit
// recent years count as one signal.
func temporalWeight(lower string) float64 {
	w := 0.0
	for _, m := range temporalMarkers {
		if containsWord(lower, m) {
			w += 0.2
		}
		if w >= 0.4 {
			return 0.4
		}
	}
	if recentYearRe.MatchString(lower) {
		w += 0.2
	}
	if w > 0.4 {
		w = 0.4
	}
	return w
}

// mixesProperNounAndDigit reports whether the query pairs a capitalized
// proper noun (beyond the leading word) with a digit — a shape suggesting a
// fact that wants corroboration from several sources.
func mixesProperNounAndDigit(q string) bool {
	if !digitRe.MatchString(q) {
		return false
	}
	words := strings.Fields(q)
	for i, w := range words {
		if i == 0 {
			continue
		}
		r := []rune(w)
		if len(r) > 1 && unicode.IsUpper(r[0]) && unicode.IsLower(r[1]) {
			return true
		}
	}
	return false
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}

// containsWord matches needle at word boundaries so "now" does not fire on
// "knowledge".
func containsWord(s, needle string) bool {
	idx := 0
	for {
		i := strings.Index(s[idx:], needle)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(needle)
		beforeOK := start == 0 || !isWordRune(rune(s[start-1]))
		afterOK := end == len(s) || !isWordRune(rune(s[end]))
		if beforeOK && afterOK {
			return true
		}
		idx = end
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
