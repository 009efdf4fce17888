// Package session holds per-user search state and the cooldown gate that
// rate-limits searches.
package session

import (
	"fmt"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCooldown is the minimum interval between two admitted searches of
// one session.
const DefaultCooldown = 3 * time.Second

// Session is the state of one requester (a chat, an HTTP client).
type Session struct {
	mu       sync.Mutex
	last     time.Time
	admitted bool
}

// New returns a session that has never searched.
func New() *Session {
	return &Session{}
}

// CooldownError rejects a search issued before the cooldown elapsed.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("search cooldown: retry in %ds", e.Seconds())
}

// Seconds is the wait reported to users: whole seconds remaining plus one.
func (e *CooldownError) Seconds() int {
	return int(e.Remaining.Seconds()) + 1
}

// Gate admits at most one search per session per Cooldown.
type Gate struct {
	Cooldown time.Duration
}

// Admit records a search at now, or returns *CooldownError when the previous
// admitted search of s is less than Cooldown ago. Rejected calls do not move
// the window.
func (g Gate) Admit(s *Session, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.admitted {
		if elapsed := now.Sub(s.last); elapsed < g.Cooldown {
			return &CooldownError{Remaining: g.Cooldown - elapsed}
		}
	}
	s.last = now
	s.admitted = true
	return nil
}

// DefaultRegistrySize bounds the number of tracked sessions.
const DefaultRegistrySize = 10000

// Registry maps session keys to sessions. Least recently used sessions are
// forgotten once the registry is full.
type Registry struct {
	mu       sync.Mutex
	sessions *lru.Cache[string, *Session]
}

// NewRegistry creates a registry holding up to size sessions.
func NewRegistry(size int) (*Registry, error) {
	c, err := lru.New[string, *Session](size)
	if err != nil {
		return nil, fmt.Errorf("create session registry: %w", err)
	}
	return &Registry{sessions: c}, nil
}

// Get returns the session for key, creating it on first use.
func (r *Registry) Get(key string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions.Get(key); ok {
		return s
	}
	s := New()
	r.sessions.Add(key, s)
	return s
}
