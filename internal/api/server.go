// Package api exposes health, metrics and a JSON search endpoint over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"arcana_bot/internal/discovery"
	"arcana_bot/internal/enrich"
	"arcana_bot/internal/metrics"
	"arcana_bot/internal/model"
	"arcana_bot/internal/search"
	"arcana_bot/internal/session"
	"arcana_bot/internal/tags"
)

// SessionHeader carries the caller's session id in requests and responses.
const SessionHeader = "X-Session-ID"

// Discoverer runs one search pipeline.
type Discoverer interface {
	Discover(ctx context.Context, sess *session.Session, req search.Request, progress enrich.ProgressFunc) (discovery.Result, error)
}

// Server is the HTTP surface.
type Server struct {
	discover Discoverer
	tags     *tags.Index
	sessions *session.Registry
	log      *slog.Logger
}

// NewServer creates a Server.
func NewServer(discover Discoverer, idx *tags.Index, sessions *session.Registry, log *slog.Logger) *Server {
	return &Server{discover: discover, tags: idx, sessions: sessions, log: log}
}

// Handler returns the routed handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(metrics.Middleware())

	r.Get("/healthz", s.health)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)
	r.Route("/api", func(r chi.Router) {
		r.Get("/tags", s.listTags)
		r.Get("/search", s.search)
	})
	return r
}

type errorResponse struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

type searchResponse struct {
	Mode    model.Mode      `json:"mode"`
	Count   int             `json:"count"`
	Results []model.Listing `json:"results"`
	Message string          `json:"message,omitempty"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) listTags(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"categories": s.tags.Categories()})
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	req, err := parseSearch(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	id := r.Header.Get(SessionHeader)
	if id == "" {
		id = uuid.NewString()
	}
	w.Header().Set(SessionHeader, id)

	res, err := s.discover.Discover(r.Context(), s.sessions.Get("http:"+id), req, nil)
	var ce *session.CooldownError
	switch {
	case errors.As(err, &ce):
		w.Header().Set("Retry-After", strconv.Itoa(ce.Seconds()))
		writeJSON(w, http.StatusTooManyRequests, errorResponse{
			Code:       "cooldown",
			Message:    "searching too often, wait a moment",
			RetryAfter: ce.Seconds(),
		})
		return
	case err != nil:
		s.log.Error("api search", "session", id, "error", err)
		writeError(w, http.StatusInternalServerError, "search_failed", "search failed")
		return
	}

	resp := searchResponse{Mode: res.Mode, Count: len(res.Listings), Results: res.Listings}
	if res.Empty() {
		resp.Message = "no matches"
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseSearch(r *http.Request) (search.Request, error) {
	q := r.URL.Query()

	req := search.Request{
		Mode:         model.ModeLatest,
		Include:      splitList(q["tag"]),
		Exclude:      splitList(q["exclude"]),
		JapaneseOnly: true,
		MaxReviews:   model.Threshold(model.ReviewLimitAny.Max()),
	}

	if v := q.Get("mode"); v != "" {
		m, err := model.ParseMode(v)
		if err != nil {
			return req, err
		}
		req.Mode = m
	}

	switch q.Get("lang") {
	case "", "jp":
	case "all":
		req.JapaneseOnly = false
	default:
		return req, errors.New("lang must be jp or all")
	}

	if v := q.Get("max"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			req.MaxReviews = model.Threshold(n)
		} else if l, err := model.ParseReviewLimit(v); err == nil {
			req.MaxReviews = model.Threshold(l.Max())
		} else {
			return req, errors.New("max must be a review count or one of: few, normal, many, any")
		}
	}

	req.PrimaryOnly = q.Get("primary") == "1" || q.Get("primary") == "true"
	return req, nil
}

// splitList accepts both repeated parameters and comma-separated values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}
