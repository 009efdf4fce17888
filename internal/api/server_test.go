package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"arcana_bot/internal/discovery"
	"arcana_bot/internal/enrich"
	"arcana_bot/internal/model"
	"arcana_bot/internal/search"
	"arcana_bot/internal/session"
	"arcana_bot/internal/tags"
)

// gateDiscoverer applies a real cooldown gate and returns a fixed result.
type gateDiscoverer struct {
	gate   session.Gate
	result discovery.Result
	err    error
	got    search.Request
}

func (d *gateDiscoverer) Discover(_ context.Context, sess *session.Session, req search.Request, _ enrich.ProgressFunc) (discovery.Result, error) {
	d.got = req
	if err := d.gate.Admit(sess, time.Now()); err != nil {
		return discovery.Result{}, err
	}
	if d.err != nil {
		return discovery.Result{}, d.err
	}
	res := d.result
	res.Mode = req.Mode
	return res, nil
}

func newTestServer(t *testing.T, d Discoverer) http.Handler {
	t.Helper()
	idx, err := tags.Load([]byte("Basics:\n  Action: 19\nMood:\n  Horror: 1667\n"))
	if err != nil {
		t.Fatal(err)
	}
	reg, err := session.NewRegistry(16)
	if err != nil {
		t.Fatal(err)
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewServer(d, idx, reg, log).Handler()
}

func get(t *testing.T, h http.Handler, target, sessionID string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, http.NoBody)
	if sessionID != "" {
		req.Header.Set(SessionHeader, sessionID)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealthz(t *testing.T) {
	h := newTestServer(t, &gateDiscoverer{})
	rr := get(t, h, "/healthz", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if diff := cmp.Diff(`{"status":"ok"}`+"\n", rr.Body.String()); diff != "" {
		t.Errorf("body mismatch (-want +got):\n%s", diff)
	}
}

func TestTags(t *testing.T) {
	h := newTestServer(t, &gateDiscoverer{})
	rr := get(t, h, "/api/tags", "")

	var body struct {
		Categories []tags.Category `json:"categories"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []tags.Category{
		{Name: "Basics", Tags: []string{"Action"}},
		{Name: "Mood", Tags: []string{"Horror"}},
	}
	if diff := cmp.Diff(want, body.Categories); diff != "" {
		t.Errorf("categories mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchParsesQuery(t *testing.T) {
	d := &gateDiscoverer{gate: session.Gate{Cooldown: time.Minute}}
	h := newTestServer(t, d)

	rr := get(t, h, "/api/search?mode=future&tag=Action,Horror&exclude=Horror&lang=all&max=few&primary=1", "s1")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
	}

	want := search.Request{
		Mode:        model.ModeFuture,
		Include:     []string{"Action", "Horror"},
		Exclude:     []string{"Horror"},
		MaxReviews:  model.Threshold(50),
		PrimaryOnly: true,
	}
	if diff := cmp.Diff(want, d.got); diff != "" {
		t.Errorf("request mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchMaxReviews(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  int
	}{
		{name: "zero is a real threshold", query: "max=0", want: 0},
		{name: "count", query: "max=120", want: 120},
		{name: "preset", query: "max=many", want: 5000},
		{name: "default", query: "", want: 500000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &gateDiscoverer{gate: session.Gate{Cooldown: time.Minute}}
			h := newTestServer(t, d)

			rr := get(t, h, "/api/search?"+tt.query, "s-"+tt.name)
			if rr.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200: %s", rr.Code, rr.Body.String())
			}
			if d.got.MaxReviews == nil {
				t.Fatal("MaxReviews = nil, want a threshold")
			}
			if *d.got.MaxReviews != tt.want {
				t.Errorf("MaxReviews = %d, want %d", *d.got.MaxReviews, tt.want)
			}
		})
	}
}

func TestSearchNoMatches(t *testing.T) {
	h := newTestServer(t, &gateDiscoverer{result: discovery.Result{Listings: []model.Listing{}}})

	rr := get(t, h, "/api/search", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if rr.Header().Get(SessionHeader) == "" {
		t.Error("expected a session id to be issued")
	}

	var body searchResponse
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Message != "no matches" || body.Count != 0 || body.Mode != model.ModeLatest {
		t.Errorf("body = %+v", body)
	}
}

func TestSearchCooldown(t *testing.T) {
	d := &gateDiscoverer{
		gate:   session.Gate{Cooldown: time.Minute},
		result: discovery.Result{Listings: []model.Listing{{Title: "A"}}},
	}
	h := newTestServer(t, d)

	if rr := get(t, h, "/api/search", "same"); rr.Code != http.StatusOK {
		t.Fatalf("first status = %d, want 200", rr.Code)
	}

	rr := get(t, h, "/api/search", "same")
	if rr.Code != http.StatusTooManyRequests {
		t.Fatalf("second status = %d, want 429", rr.Code)
	}
	var body errorResponse
	if err := json.NewDecoder(rr.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Code != "cooldown" || body.RetryAfter < 1 || body.RetryAfter > 60 {
		t.Errorf("body = %+v", body)
	}
	if rr.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}

	if rr := get(t, h, "/api/search", "other"); rr.Code != http.StatusOK {
		t.Errorf("other session status = %d, want 200", rr.Code)
	}
}

func TestSearchErrors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		err    error
		want   int
	}{
		{name: "bad mode", target: "/api/search?mode=sideways", want: http.StatusBadRequest},
		{name: "bad lang", target: "/api/search?lang=fr", want: http.StatusBadRequest},
		{name: "bad max", target: "/api/search?max=lots", want: http.StatusBadRequest},
		{name: "pipeline failure", target: "/api/search", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, &gateDiscoverer{err: tt.err})
			if rr := get(t, h, tt.target, ""); rr.Code != tt.want {
				t.Errorf("status = %d, want %d", rr.Code, tt.want)
			}
		})
	}
}
