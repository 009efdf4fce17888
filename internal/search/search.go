// Package search runs catalog searches in one of three exploration modes and
// returns extracted listings.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/sethvargo/go-retry"

	"arcana_bot/internal/extract"
	"arcana_bot/internal/filter"
	"arcana_bot/internal/metrics"
	"arcana_bot/internal/model"
	"arcana_bot/internal/session"
	"arcana_bot/internal/steam"
	"arcana_bot/internal/tags"
)

// Archive ("treasure hunt") bounds.
const (
	ArchiveTarget   = 20
	ArchiveAttempts = 30
	archiveMaxPage  = 100
)

// DefaultPause separates consecutive upstream requests of one search.
const DefaultPause = 300 * time.Millisecond

// futureOffsets are the candidate windows sampled in future mode.
var futureOffsets = []int{0, 50, 100}

var errShortOfTarget = errors.New("archive target not reached")

// Catalog serves raw catalog result pages.
type Catalog interface {
	SearchPage(ctx context.Context, q steam.Query) (string, error)
}

// Request is one user search before tag resolution. A nil MaxReviews means no
// review threshold.
type Request struct {
	Mode         model.Mode
	Include      []string
	Exclude      []string
	JapaneseOnly bool
	MaxReviews   *int
	PrimaryOnly  bool
}

// Orchestrator executes searches against a Catalog.
type Orchestrator struct {
	catalog Catalog
	tags    *tags.Index
	gate    session.Gate
	log     *slog.Logger

	now   func() time.Time
	intn  func(n int) int
	pause time.Duration
}

// Option customizes an Orchestrator.
type Option func(*Orchestrator)

// WithClock sets the time source used by the cooldown gate.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

// WithRand sets the source of random offsets. intn must return a value in [0, n).
func WithRand(intn func(n int) int) Option {
	return func(o *Orchestrator) { o.intn = intn }
}

// WithPause sets the delay between consecutive requests.
func WithPause(d time.Duration) Option {
	return func(o *Orchestrator) { o.pause = d }
}

// New creates an Orchestrator.
func New(catalog Catalog, idx *tags.Index, gate session.Gate, log *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		catalog: catalog,
		tags:    idx,
		gate:    gate,
		log:     log,
		now:     time.Now,
		intn:    rand.IntN,
		pause:   DefaultPause,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Filter resolves the tag names of req. Unknown names are dropped.
func (o *Orchestrator) Filter(req Request) model.SearchFilter {
	return model.SearchFilter{
		Include:      o.tags.ResolveAll(req.Include),
		Exclude:      o.tags.ResolveAll(req.Exclude),
		MaxReviews:   req.MaxReviews,
		JapaneseOnly: req.JapaneseOnly,
		Mode:         req.Mode,
		PrimaryOnly:  req.PrimaryOnly,
	}
}

// Run executes req on behalf of sess. A nil sess skips the cooldown gate.
// Upstream faults are logged and count as empty pages; the returned error is
// a *session.CooldownError, an unknown mode or a context error.
func (o *Orchestrator) Run(ctx context.Context, sess *session.Session, req Request) ([]model.Listing, error) {
	mode := string(req.Mode)
	if _, err := model.ParseMode(mode); err != nil {
		return nil, fmt.Errorf("run search: %w", err)
	}
	if sess != nil {
		if err := o.gate.Admit(sess, o.now()); err != nil {
			metrics.SearchesTotal.WithLabelValues(mode, "cooldown").Inc()
			return nil, err
		}
	}

	f := o.Filter(req)

	var (
		out      []model.Listing
		attempts int
		err      error
	)
	switch req.Mode {
	case model.ModeLatest:
		out, attempts = o.latest(ctx, f), 1
	case model.ModeFuture:
		out, attempts, err = o.future(ctx, f)
	case model.ModeArchive:
		out, attempts, err = o.archive(ctx, f)
	}
	metrics.SearchAttempts.WithLabelValues(mode).Observe(float64(attempts))
	if err != nil {
		metrics.SearchesTotal.WithLabelValues(mode, "error").Inc()
		return nil, err
	}

	outcome := "results"
	if len(out) == 0 {
		outcome = "empty"
	}
	metrics.SearchesTotal.WithLabelValues(mode, outcome).Inc()
	o.log.Info("search done", "mode", mode, "attempts", attempts, "results", len(out))
	return out, nil
}

func (o *Orchestrator) latest(ctx context.Context, f model.SearchFilter) []model.Listing {
	return o.page(ctx, f, 0)
}

func (o *Orchestrator) future(ctx context.Context, f model.SearchFilter) ([]model.Listing, int, error) {
	offset := futureOffsets[o.intn(len(futureOffsets))]

	var (
		out      []model.Listing
		attempts int
	)
	err := retry.Do(ctx, retry.WithMaxRetries(1, o.backoff()), func(ctx context.Context) error {
		attempts++
		out = o.page(ctx, f, offset)
		if len(out) == 0 && offset > 0 {
			o.log.Debug("future window empty, retrying at start", "offset", offset)
			offset = 0
			return retry.RetryableError(errShortOfTarget)
		}
		return nil
	})
	if err != nil && ctx.Err() != nil {
		return nil, attempts, fmt.Errorf("future search: %w", err)
	}
	return out, attempts, nil
}

func (o *Orchestrator) archive(ctx context.Context, f model.SearchFilter) ([]model.Listing, int, error) {
	var (
		out      []model.Listing
		seen     = make(map[string]struct{})
		attempts int
	)
	err := retry.Do(ctx, retry.WithMaxRetries(ArchiveAttempts-1, o.backoff()), func(ctx context.Context) error {
		attempts++
		offset := o.intn(archiveMaxPage+1) * steam.PageSize
		for _, l := range o.page(ctx, f, offset) {
			key := l.Key()
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, l)
		}
		if len(out) >= ArchiveTarget {
			return nil
		}
		return retry.RetryableError(errShortOfTarget)
	})
	if err != nil && ctx.Err() != nil {
		return nil, attempts, fmt.Errorf("archive search: %w", err)
	}

	if len(out) > steam.PageSize {
		out = out[:steam.PageSize]
	}
	return out, attempts, nil
}

// page fetches and extracts one result window. Failures yield no listings.
func (o *Orchestrator) page(ctx context.Context, f model.SearchFilter, offset int) []model.Listing {
	q := steam.Query{
		TagIDs:       filter.Without(f.Include, f.Exclude),
		JapaneseOnly: f.JapaneseOnly,
		Upcoming:     f.Mode == model.ModeFuture,
		Offset:       offset,
		Count:        steam.PageSize,
	}

	html, err := o.catalog.SearchPage(ctx, q)
	if err != nil {
		o.log.Warn("search page", "mode", f.Mode, "offset", offset, "error", err)
		return nil
	}

	listings, err := extract.Page(html, f)
	if err != nil {
		o.log.Warn("extract page", "mode", f.Mode, "offset", offset, "error", err)
		return nil
	}
	return listings
}

func (o *Orchestrator) backoff() retry.Backoff {
	return retry.BackoffFunc(func() (time.Duration, bool) {
		return o.pause, false
	})
}

// FromSettings builds the request a chat's saved preferences describe.
func FromSettings(cs model.ChatSettings) Request {
	return Request{
		Mode:         cs.Mode,
		Include:      cs.IncludeTags,
		Exclude:      cs.ExcludeTags,
		JapaneseOnly: cs.JapaneseOnly,
		MaxReviews:   model.Threshold(cs.ReviewLimit.Max()),
	}
}
