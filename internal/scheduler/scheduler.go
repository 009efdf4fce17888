// Package scheduler delivers periodic search digests to chats that opted in.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"arcana_bot/internal/discovery"
	"arcana_bot/internal/enrich"
	"arcana_bot/internal/model"
	"arcana_bot/internal/search"
	"arcana_bot/internal/session"
	"arcana_bot/internal/storage"
)

// Sender delivers a digest to a chat.
type Sender interface {
	SendDigest(chatID int64, res discovery.Result)
}

// Discoverer runs one search pipeline.
type Discoverer interface {
	Discover(ctx context.Context, sess *session.Session, req search.Request, progress enrich.ProgressFunc) (discovery.Result, error)
}

// Scheduler periodically runs the saved search of every chat whose digest is due.
type Scheduler struct {
	store    storage.Storage
	discover Discoverer
	sender   Sender
	log      *slog.Logger
	every    time.Duration
	tick     time.Duration
	now      func() time.Time
}

// New creates a Scheduler delivering one digest per chat every interval.
func New(store storage.Storage, discover Discoverer, sender Sender, every time.Duration, log *slog.Logger) *Scheduler {
	return &Scheduler{
		store:    store,
		discover: discover,
		sender:   sender,
		log:      log,
		every:    every,
		tick:     1 * time.Minute,
		now:      time.Now,
	}
}

// SetTickInterval overrides the default 1-minute check interval.
func (s *Scheduler) SetTickInterval(d time.Duration) {
	s.tick = d
}

// Run starts the scheduler loop, blocking until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.checkAll(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.checkAll(ctx)
		}
	}
}

func (s *Scheduler) checkAll(ctx context.Context) {
	due, err := s.store.ListDueDigests(ctx, s.now(), s.every)
	if err != nil {
		s.log.Error("list due digests", "error", err)
		return
	}

	for _, cs := range due {
		if ctx.Err() != nil {
			return
		}
		s.processChat(ctx, cs)
	}
}

func (s *Scheduler) processChat(ctx context.Context, cs model.ChatSettings) {
	s.log.Debug("running digest", "chat_id", cs.ChatID, "mode", cs.Mode)

	// Digests bypass the cooldown gate; they run at most once per interval.
	res, err := s.discover.Discover(ctx, nil, search.FromSettings(cs), nil)
	if err != nil {
		s.log.Error("digest search", "chat_id", cs.ChatID, "error", err)
		s.markSent(ctx, cs.ChatID)
		return
	}

	if !res.Empty() {
		s.sender.SendDigest(cs.ChatID, res)
		s.log.Info("sent digest", "chat_id", cs.ChatID, "count", len(res.Listings))
	}

	s.markSent(ctx, cs.ChatID)
}

func (s *Scheduler) markSent(ctx context.Context, chatID int64) {
	if err := s.store.MarkDigestSent(ctx, chatID, s.now()); err != nil {
		s.log.Error("mark digest sent", "chat_id", chatID, "error", err)
	}
}
