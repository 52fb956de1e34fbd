// Package search discovers candidate pages for a query through an external
// discovery service. Provider failures are a degraded-result signal, not a
// pipeline error.
package search

import (
	"context"

	"github.com/mkarvo/websift/internal/estimate"
)

// Candidate is a discovered page not yet fetched or scored.
type Candidate struct {
	Title string
	URL   string
}

// Provider issues the query to a discovery backend and normalizes its
// result list. limit is the oversampled candidate budget; implementations
// may return fewer. The profile carries mode and locale hints.
type Provider interface {
	Search(ctx context.Context, query string, profile estimate.Profile, limit int) ([]Candidate, error)
	Name() string
}
