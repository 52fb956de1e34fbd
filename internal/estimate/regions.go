package estimate

import (
	"strings"

	"golang.org/x/text/language"
)

// regionTable maps query tokens to a region. Detection is intentionally
// coarse: the goal is to bias discovery and scoring toward local sources,
// not to geocode. Terms double as the relevance vocabulary the scorer and
// the strict selection phase match against document text.
var regionTable = []Region{
	{
		Code:  language.MustParseRegion("ES"),
		Name:  "Spain",
		Terms: []string{"spain", "spanish", "españa", "madrid", "barcelona", "catalonia"},
	},
	{
		Code:  language.MustParseRegion("FR"),
		Name:  "France",
		Terms: []string{"france", "french", "paris", "marseille"},
	},
	{
		Code:  language.MustParseRegion("DE"),
		Name:  "Germany",
		Terms: []string{"germany", "german", "deutschland", "berlin", "munich"},
	},
	{
		Code:  language.MustParseRegion("GB"),
		Name:  "United Kingdom",
		Terms: []string{"united kingdom", "britain", "british", "england", "london", "scotland", "wales"},
	},
	{
		Code:  language.MustParseRegion("US"),
		Name:  "United States",
		Terms: []string{"united states", "america", "american", "washington", "new york"},
	},
	{
		Code:  language.MustParseRegion("IT"),
		Name:  "Italy",
		Terms: []string{"italy", "italian", "italia", "rome", "milan"},
	},
	{
		Code:  language.MustParseRegion("FI"),
		Name:  "Finland",
		Terms: []string{"finland", "finnish", "suomi", "helsinki"},
	},
	{
		Code:  language.MustParseRegion("SE"),
		Name:  "Sweden",
		Terms: []string{"sweden", "swedish", "stockholm"},
	},
	{
		Code:  language.MustParseRegion("IN"),
		Name:  "India",
		Terms: []string{"india", "indian", "delhi", "mumbai", "bangalore"},
	},
	{
		Code:  language.MustParseRegion("JP"),
		Name:  "Japan",
		Terms: []string{"japan", "japanese", "tokyo", "osaka"},
	},
	{
		Code:  language.MustParseRegion("BR"),
		Name:  "Brazil",
		Terms: []string{"brazil", "brazilian", "brasil", "são paulo", "rio de janeiro"},
	},
	{
		Code:  language.MustParseRegion("AU"),
		Name:  "Australia",
		Terms: []string{"australia", "australian", "sydney", "melbourne", "canberra"},
	},
	{
		Code:  language.MustParseRegion("CA"),
		Name:  "Canada",
		Terms: []string{"canada", "canadian", "toronto", "ottawa", "vancouver"},
	},
	{
		Code:  language.MustParseRegion("MX"),
		Name:  "Mexico",
		Terms: []string{"mexico", "mexican", "méxico", "mexico city"},
	},
}

// DetectRegion returns the region a lowercase query names, or nil when the
// query is global. Country names and demonyms win over city mentions, so
// the first matching term ordering inside each entry puts names first.
func DetectRegion(lowerQuery string) *Region {
	for i := range regionTable {
		for _, term := range regionTable[i].Terms {
			if containsWord(lowerQuery, term) {
				r := regionTable[i]
				return &r
			}
		}
	}
	return nil
}

// Mentions reports whether the text refers to the region by any of its
// known terms. Used for the regional-relevance requirement.
func (r *Region) Mentions(text string) bool {
	if r == nil {
		return false
	}
	lower := strings.ToLower(text)
	for _, term := range r.Terms {
		if containsWord(lower, term) {
			return true
		}
	}
	return false
}

// ccTLDs that differ from the ISO region code.
var cctldOverrides = map[string]string{"GB": "uk"}

// CCTLD returns the country-code top-level domain for the region, lowercase
// without the leading dot (e.g. "es").
func (r *Region) CCTLD() string {
	if r == nil {
		return ""
	}
	code := r.Code.String()
	if tld, ok := cctldOverrides[code]; ok {
		return tld
	}
	return strings.ToLower(code)
}
