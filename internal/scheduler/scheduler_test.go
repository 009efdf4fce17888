package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"arcana_bot/internal/discovery"
	"arcana_bot/internal/enrich"
	"arcana_bot/internal/model"
	"arcana_bot/internal/search"
	"arcana_bot/internal/session"
	"arcana_bot/internal/storage"
)

type sentDigest struct {
	ChatID int64
	Count  int
}

type mockSender struct {
	mu      sync.Mutex
	digests []sentDigest
}

func (m *mockSender) SendDigest(chatID int64, res discovery.Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.digests = append(m.digests, sentDigest{ChatID: chatID, Count: len(res.Listings)})
}

func (m *mockSender) getDigests() []sentDigest {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]sentDigest, len(m.digests))
	copy(cp, m.digests)
	return cp
}

type mockDiscoverer struct {
	mu       sync.Mutex
	results  map[model.Mode]discovery.Result
	err      error
	requests []search.Request
	sessions []*session.Session
}

func (m *mockDiscoverer) Discover(_ context.Context, sess *session.Session, req search.Request, _ enrich.ProgressFunc) (discovery.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	m.sessions = append(m.sessions, sess)
	if m.err != nil {
		return discovery.Result{}, m.err
	}
	return m.results[req.Mode], nil
}

func newTestStore(t *testing.T) *storage.SQLite {
	t.Helper()
	s, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func saveChat(t *testing.T, store storage.Storage, cs model.ChatSettings) {
	t.Helper()
	if err := store.SaveSettings(context.Background(), &cs); err != nil {
		t.Fatalf("save settings: %v", err)
	}
}

func TestSchedulerSendsDueDigests(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	saveChat(t, store, model.ChatSettings{
		ChatID: 100, Mode: model.ModeLatest, IncludeTags: []string{"Roguelike"},
		JapaneseOnly: true, ReviewLimit: model.ReviewLimitFew, Digest: true,
	})
	saveChat(t, store, model.ChatSettings{
		ChatID: 200, Mode: model.ModeFuture, ReviewLimit: model.ReviewLimitAny, Digest: true,
	})
	saveChat(t, store, model.ChatSettings{
		ChatID: 300, Mode: model.ModeLatest, ReviewLimit: model.ReviewLimitAny, Digest: false,
	})

	sender := &mockSender{}
	disc := &mockDiscoverer{results: map[model.Mode]discovery.Result{
		model.ModeLatest: {Mode: model.ModeLatest, Listings: []model.Listing{{Title: "A"}, {Title: "B"}}},
		model.ModeFuture: {Mode: model.ModeFuture, Listings: []model.Listing{}},
	}}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	sched := New(store, disc, sender, 24*time.Hour, log)
	sched.checkAll(ctx)

	// Chat 200 matched nothing, so only chat 100 receives a message.
	if diff := cmp.Diff([]sentDigest{{ChatID: 100, Count: 2}}, sender.getDigests()); diff != "" {
		t.Errorf("digests mismatch (-want +got):\n%s", diff)
	}

	wantReq := search.Request{
		Mode:         model.ModeLatest,
		Include:      []string{"Roguelike"},
		Exclude:      []string{},
		JapaneseOnly: true,
		MaxReviews:   model.Threshold(50),
	}
	if diff := cmp.Diff(wantReq, disc.requests[0]); diff != "" {
		t.Errorf("request mismatch (-want +got):\n%s", diff)
	}
	for _, sess := range disc.sessions {
		if sess != nil {
			t.Error("digest search must not use a cooldown session")
		}
	}

	// Both chats were marked, so a second pass sends nothing.
	sched.checkAll(ctx)
	if got := len(sender.getDigests()); got != 1 {
		t.Errorf("digests after second pass = %d, want 1", got)
	}
}

func TestSchedulerMarksFailedDigest(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	saveChat(t, store, model.ChatSettings{ChatID: 1, Mode: model.ModeArchive, ReviewLimit: model.ReviewLimitAny, Digest: true})

	disc := &mockDiscoverer{err: errors.New("boom")}
	sched := New(store, disc, &mockSender{}, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))
	sched.checkAll(ctx)

	due, err := store.ListDueDigests(ctx, time.Now(), time.Hour)
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(due) != 0 {
		t.Errorf("due after failure = %d, want 0", len(due))
	}
}

func TestSchedulerRunStopsOnCancel(t *testing.T) {
	store := newTestStore(t)
	sched := New(store, &mockDiscoverer{}, &mockSender{}, time.Hour, slog.New(slog.NewTextHandler(io.Discard, nil)))
	sched.SetTickInterval(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sched.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
