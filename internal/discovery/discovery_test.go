package discovery

import (
	"context"
	"errors"
	"testing"

	"arcana_bot/internal/enrich"
	"arcana_bot/internal/model"
	"arcana_bot/internal/search"
	"arcana_bot/internal/session"
)

type mockSearcher struct {
	listings []model.Listing
	err      error
	got      search.Request
}

func (m *mockSearcher) Run(_ context.Context, _ *session.Session, req search.Request) ([]model.Listing, error) {
	m.got = req
	return m.listings, m.err
}

type mockEnricher struct {
	calls int
}

func (m *mockEnricher) EnrichWithProgress(_ context.Context, in []model.Listing, progress enrich.ProgressFunc) []model.Listing {
	m.calls++
	out := make([]model.Listing, len(in))
	for i, l := range in {
		l.Enriched = true
		out[i] = l
		if progress != nil {
			progress(i+1, len(in))
		}
	}
	return out
}

func TestDiscover(t *testing.T) {
	s := &mockSearcher{listings: []model.Listing{{Title: "A"}, {Title: "B"}}}
	e := &mockEnricher{}
	svc := New(s, e)

	var last int
	res, err := svc.Discover(context.Background(), session.New(), search.Request{Mode: model.ModeArchive}, func(done, _ int) {
		last = done
	})
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if res.Mode != model.ModeArchive {
		t.Errorf("Mode = %s, want archive", res.Mode)
	}
	if len(res.Listings) != 2 || !res.Listings[0].Enriched || !res.Listings[1].Enriched {
		t.Errorf("Listings = %+v, want two enriched", res.Listings)
	}
	if last != 2 {
		t.Errorf("last progress = %d, want 2", last)
	}
}

func TestDiscoverNoMatches(t *testing.T) {
	e := &mockEnricher{}
	svc := New(&mockSearcher{}, e)

	res, err := svc.Discover(context.Background(), nil, search.Request{Mode: model.ModeLatest}, nil)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if !res.Empty() || res.Listings == nil {
		t.Errorf("Listings = %#v, want empty non-nil", res.Listings)
	}
	if e.calls != 0 {
		t.Errorf("enricher called %d times for an empty result", e.calls)
	}
}

func TestDiscoverCooldown(t *testing.T) {
	svc := New(&mockSearcher{err: &session.CooldownError{Remaining: 2}}, &mockEnricher{})

	_, err := svc.Discover(context.Background(), session.New(), search.Request{Mode: model.ModeLatest}, nil)
	var ce *session.CooldownError
	if !errors.As(err, &ce) {
		t.Errorf("Discover() error = %v, want *session.CooldownError", err)
	}
}
