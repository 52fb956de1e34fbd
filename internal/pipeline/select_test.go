package pipeline

import (
	"testing"

	"github.com/mkarvo/websift/internal/estimate"
)

func mkDoc(url string, quality float64, words int, regional bool) scoredDoc {
	text := ""
	for i := 0; i < words; i++ {
		text += "w "
	}
	return scoredDoc{
		doc:      Document{URL: url, Title: url, Text: text, QualityScore: quality},
		words:    words,
		regional: regional,
	}
}

func testOpts() Options {
	o := DefaultOptions()
	o.MinResults = 2
	o.MaxResults = 6
	o.MinWords = 100
	o.MinQualityScore = 0.5
	return o
}

func TestSelect_StrictPhaseSufficient(t *testing.T) {
	docs := []scoredDoc{
		mkDoc("u1", 0.9, 200, true),
		mkDoc("u2", 0.6, 150, true),
		mkDoc("u3", 0.8, 300, true),
		mkDoc("u4", 0.2, 400, true), // below quality floor
	}
	profile := estimate.Profile{TargetCount: 3}
	got := selectDocuments(docs, profile, testOpts())
	if len(got) != 3 {
		t.Fatalf("expected 3 documents, got %d", len(got))
	}
	if got[0].URL != "u1" || got[1].URL != "u3" || got[2].URL != "u2" {
		t.Fatalf("expected quality-descending order, got %v", got)
	}
}

func TestSelect_RelaxedPhaseDefendsMinimumYield(t *testing.T) {
	// Only one document passes strict; two more pass the relaxed
	// thresholds (words >= 80, quality >= 0.4).
	docs := []scoredDoc{
		mkDoc("strict", 0.7, 200, true),
		mkDoc("relaxA", 0.45, 90, true),
		mkDoc("relaxB", 0.42, 85, true),
		mkDoc("never", 0.1, 30, true),
	}
	profile := estimate.Profile{TargetCount: 4}
	got := selectDocuments(docs, profile, testOpts())
	if len(got) != 3 {
		t.Fatalf("expected all 3 eligible documents, got %d", len(got))
	}
	if got[0].URL != "strict" {
		t.Fatalf("expected best quality first, got %v", got[0].URL)
	}
}

func TestSelect_NeverExceedsTarget(t *testing.T) {
	var docs []scoredDoc
	for i := 0; i < 10; i++ {
		docs = append(docs, mkDoc(string(rune('a'+i)), 0.45, 90, true))
	}
	profile := estimate.Profile{TargetCount: 3}
	got := selectDocuments(docs, profile, testOpts())
	if len(got) != 3 {
		t.Fatalf("expected target cap of 3, got %d", len(got))
	}
}

func TestSelect_MinResultsFloorOverTarget(t *testing.T) {
	// Target below the floor: the floor wins when enough documents exist.
	docs := []scoredDoc{
		mkDoc("a", 0.45, 90, true),
		mkDoc("b", 0.44, 90, true),
		mkDoc("c", 0.43, 90, true),
	}
	profile := estimate.Profile{TargetCount: 1}
	got := selectDocuments(docs, profile, testOpts())
	if len(got) != 2 {
		t.Fatalf("expected minResults floor of 2, got %d", len(got))
	}
}

func TestSelect_EmptyWhenNothingSurvives(t *testing.T) {
	docs := []scoredDoc{
		mkDoc("a", 0.1, 10, true),
	}
	profile := estimate.Profile{TargetCount: 3}
	got := selectDocuments(docs, profile, testOpts())
	if len(got) != 0 {
		t.Fatalf("expected empty selection, got %d", len(got))
	}
}

func TestSelect_RegionalRequirementHardInBothPhases(t *testing.T) {
	profile := estimate.Profile{
		TargetCount: 3,
		Mode:        estimate.ModeTimeSensitive,
		Region:      estimate.DetectRegion("spain"),
	}
	docs := []scoredDoc{
		mkDoc("regional", 0.6, 200, true),
		mkDoc("highButForeign", 0.95, 500, false),
		mkDoc("relaxedRegional", 0.45, 90, true),
	}
	got := selectDocuments(docs, profile, testOpts())
	for _, d := range got {
		if d.URL == "highButForeign" {
			t.Fatalf("regional requirement violated: %v", got)
		}
	}
	if len(got) != 2 {
		t.Fatalf("expected the two regional documents, got %d", len(got))
	}
}

func TestSelect_RelaxedTiesBreakOnTextLength(t *testing.T) {
	docs := []scoredDoc{
		mkDoc("short", 0.45, 90, true),
		mkDoc("long", 0.45, 95, true),
	}
	profile := estimate.Profile{TargetCount: 2}
	got := selectDocuments(docs, profile, testOpts())
	if len(got) != 2 || got[0].URL != "long" {
		t.Fatalf("expected longer text first on quality tie, got %v", got)
	}
}

func TestSelect_StrictPassersSurviveFlooredRelaxedCutoff(t *testing.T) {
	// With a strict quality floor below 0.15 the relaxed cutoff floors
	// above it; documents that passed strict must still make the merge.
	opts := testOpts()
	opts.MinQualityScore = 0.1
	docs := []scoredDoc{
		mkDoc("strictOnly", 0.12, 200, true), // passes strict, fails relaxed floor
		mkDoc("relaxedOnly", 0.16, 90, true), // fails strict words, passes relaxed
	}
	profile := estimate.Profile{TargetCount: 3}
	got := selectDocuments(docs, profile, opts)
	if len(got) != 2 {
		t.Fatalf("expected both documents in the union, got %d: %v", len(got), got)
	}
	if got[0].URL != "relaxedOnly" || got[1].URL != "strictOnly" {
		t.Fatalf("expected quality-descending union, got %v", got)
	}
}

func TestSelect_QualityFloorNeverBelowRelaxedFloor(t *testing.T) {
	opts := testOpts()
	opts.MinQualityScore = 0.2 // relaxed would be 0.1, floored at 0.15
	docs := []scoredDoc{
		mkDoc("justBelowFloor", 0.12, 90, true),
		mkDoc("aboveFloor", 0.16, 90, true),
	}
	profile := estimate.Profile{TargetCount: 2}
	got := selectDocuments(docs, profile, opts)
	if len(got) != 1 || got[0].URL != "aboveFloor" {
		t.Fatalf("expected relaxed floor 0.15 to hold, got %v", got)
	}
}
