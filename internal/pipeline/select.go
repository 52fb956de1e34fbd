package pipeline

import (
	"sort"

	"github.com/mkarvo/websift/internal/estimate"
)

// scoredDoc pairs a Document with the collection-time facts the selection
// phases filter on but callers never see.
type scoredDoc struct {
	doc   Document
	words int
	// regional records whether the document carries a regional signal
	// (domain or mention) for the query's region; always true for global
	// queries.
	regional bool
}

// phase names the states of the selection machine. Collecting has already
// happened by the time selectDocuments runs; the machine walks the
// remaining states explicitly so the minimum-yield guarantee stays
// independently testable.
type phase int

const (
	phaseStrict phase = iota
	phaseRelaxed
	phaseReturn
)

// relaxed-phase loosening factors.
const (
	relaxedWordsFactor  = 0.8
	relaxedQualityDelta = 0.1
	relaxedQualityFloor = 0.15
)

// selectDocuments applies the two-phase selection: a strict pass over the
// collected documents, then — only if the strict set cannot cover the
// target — a relaxed pass that defends the minimum yield without ever
// exceeding the difficulty-derived target. Zero survivors yield an empty,
// non-error result.
func selectDocuments(docs []scoredDoc, profile estimate.Profile, opts Options) []Document {
	// The regional requirement is a hard constraint in both phases when
	// the query is both region-specific and time-sensitive.
	requireRegional := profile.Region != nil && profile.Mode == estimate.ModeTimeSensitive

	var strict, relaxedOnly []scoredDoc
	state := phaseStrict
	for state != phaseReturn {
		switch state {
		case phaseStrict:
			strict = filterDocs(docs, opts.MinWords, opts.MinQualityScore, requireRegional)
			if len(strict) >= profile.TargetCount {
				sortByQuality(strict)
				return toDocuments(strict[:profile.TargetCount])
			}
			state = phaseRelaxed

		case phaseRelaxed:
			minWords := int(float64(opts.MinWords) * relaxedWordsFactor)
			minQuality := opts.MinQualityScore - relaxedQualityDelta
			if minQuality < relaxedQualityFloor {
				minQuality = relaxedQualityFloor
			}
			relaxed := filterDocs(docs, minWords, minQuality, requireRegional)
			relaxedOnly = relaxed
			state = phaseReturn
		}
	}

	// Merge: union the strict survivors with the relaxed ones. The relaxed
	// thresholds are usually looser, but the floored relaxed quality cutoff
	// can sit above a very low strict one, so strict passers are kept
	// explicitly rather than assumed to reappear.
	merged := relaxedOnly
	seen := make(map[string]struct{}, len(merged))
	for _, d := range merged {
		seen[d.doc.URL] = struct{}{}
	}
	for _, d := range strict {
		if _, ok := seen[d.doc.URL]; !ok {
			merged = append(merged, d)
		}
	}
	sortByQuality(merged)

	want := profile.TargetCount
	if want > len(merged) {
		want = len(merged)
	}
	if want < opts.MinResults {
		want = opts.MinResults
	}
	if want > len(merged) {
		want = len(merged)
	}
	return toDocuments(merged[:want])
}

// filterDocs keeps documents meeting the word and quality floors, plus the
// regional requirement when active. Regional relevance is determined at
// collection time (domain or textual mention) and applies as a hard gate
// in both phases.
func filterDocs(docs []scoredDoc, minWords int, minQuality float64, requireRegional bool) []scoredDoc {
	out := make([]scoredDoc, 0, len(docs))
	for _, d := range docs {
		if d.words < minWords || d.doc.QualityScore < minQuality {
			continue
		}
		if requireRegional && !d.regional {
			continue
		}
		out = append(out, d)
	}
	return out
}

// sortByQuality orders best first; text length breaks ties so the relaxed
// merge prefers richer documents at equal quality.
func sortByQuality(docs []scoredDoc) {
	sort.SliceStable(docs, func(i, j int) bool {
		if docs[i].doc.QualityScore != docs[j].doc.QualityScore {
			return docs[i].doc.QualityScore > docs[j].doc.QualityScore
		}
		return len(docs[i].doc.Text) > len(docs[j].doc.Text)
	})
}

func toDocuments(docs []scoredDoc) []Document {
	out := make([]Document, len(docs))
	for i, d := range docs {
		out[i] = d.doc
	}
	return out
}
