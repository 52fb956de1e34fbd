// Package truncate caps document text at a sentence boundary so excerpts
// handed to a generation prompt never end mid-sentence when a boundary is
// available.
package truncate

import "strings"

// Ellipsis is appended when no sentence boundary falls inside the
// acceptable window and the text has to be cut hard.
const Ellipsis = "..."

// boundaryWindow is the fraction of the cap window, measured from the end,
// within which a sentence boundary is accepted. A boundary earlier than
// this would discard too much of the budget.
const boundaryWindow = 0.3

// sentence boundary markers, checked as suffix candidates. The blank line
// covers paragraph breaks that survive extraction.
var boundaries = []string{".", "!", "?", "\n\n"}

// Sentence returns text shortened to at most maxChars runes, cut at the
// last sentence boundary found within the final 30% of the window. If no
// boundary lands there the text is hard-truncated and Ellipsis appended,
// so the result never exceeds maxChars plus len(Ellipsis). Text already
// within the cap is returned unchanged.
func Sentence(text string, maxChars int) string {
	if maxChars <= 0 {
		return ""
	}
	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}
	window := string(runes[:maxChars])

	last := -1
	for _, b := range boundaries {
		if pos := strings.LastIndex(window, b); pos > last {
			last = pos
		}
	}
	// Only accept a boundary in the tail of the window.
	if last >= int(float64(len(window))*(1-boundaryWindow)) {
		return strings.TrimSpace(window[:last+1])
	}
	return strings.TrimSpace(window) + Ellipsis
}
