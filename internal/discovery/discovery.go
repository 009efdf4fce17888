// Package discovery runs the full pipeline for one search: cooldown gate,
// catalog search and enrichment.
package discovery

import (
	"context"
	"fmt"

	"arcana_bot/internal/enrich"
	"arcana_bot/internal/model"
	"arcana_bot/internal/search"
	"arcana_bot/internal/session"
)

// Searcher runs catalog searches.
type Searcher interface {
	Run(ctx context.Context, sess *session.Session, req search.Request) ([]model.Listing, error)
}

// Enricher merges details into listings.
type Enricher interface {
	EnrichWithProgress(ctx context.Context, listings []model.Listing, progress enrich.ProgressFunc) []model.Listing
}

// Result is the outcome of one discovery. An empty Listings is a successful
// search with no matches.
type Result struct {
	Mode     model.Mode      `json:"mode"`
	Listings []model.Listing `json:"results"`
}

// Empty reports whether the search matched nothing.
func (r Result) Empty() bool {
	return len(r.Listings) == 0
}

// Service is the discovery pipeline.
type Service struct {
	searcher Searcher
	enricher Enricher
}

// New creates a Service.
func New(searcher Searcher, enricher Enricher) *Service {
	return &Service{searcher: searcher, enricher: enricher}
}

// Discover searches on behalf of sess and enriches what it finds. A cooldown
// rejection is returned as *session.CooldownError. progress may be nil.
func (s *Service) Discover(ctx context.Context, sess *session.Session, req search.Request, progress enrich.ProgressFunc) (Result, error) {
	listings, err := s.searcher.Run(ctx, sess, req)
	if err != nil {
		return Result{}, fmt.Errorf("discover: %w", err)
	}

	res := Result{Mode: req.Mode, Listings: []model.Listing{}}
	if len(listings) == 0 {
		return res, nil
	}
	res.Listings = s.enricher.EnrichWithProgress(ctx, listings, progress)
	return res, nil
}
