// Package session keeps the in-memory state of each shopper: a cart and the
// current catalog listing selection. Nothing survives a restart.
package session

import (
	"context"
	"sync"
	"time"

	"shopapp/internal/cart"
	"shopapp/internal/pipeline"
)

type Session struct {
	ID   string
	Cart *cart.Store

	mu       sync.Mutex
	listing  pipeline.State
	lastSeen time.Time
}

// UpdateListing applies a listing selection and returns the resulting state.
func (s *Session) UpdateListing(category string, sort pipeline.SortKey, page int) pipeline.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listing.Update(category, sort, page)
	return s.listing
}

// CommitPage records the page actually shown, e.g. after clamping. It only
// applies while the listing is still from, so a selection made by a
// concurrent request is never overwritten.
func (s *Session) CommitPage(from pipeline.State, page int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listing != from {
		return false
	}
	s.listing.Page = page
	return true
}

func (s *Session) Listing() pipeline.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listing
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// DefaultIdleTTL is used when a registry is built without one.
const DefaultIdleTTL = 30 * time.Minute

type Registry struct {
	IdleTTL time.Duration
	// OnCreate hooks run once per new session, outside the registry lock.
	OnCreate []func(*Session)
	// OnCount receives the session count after every create or sweep.
	OnCount func(int)

	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(idleTTL time.Duration) *Registry {
	if idleTTL <= 0 {
		idleTTL = DefaultIdleTTL
	}
	return &Registry{IdleTTL: idleTTL, now: time.Now, sessions: make(map[string]*Session)}
}

// Ensure returns the session for id, creating an empty one on first use.
func (r *Registry) Ensure(id string) *Session {
	now := r.now()
	r.mu.Lock()
	s, ok := r.sessions[id]
	if !ok {
		s = &Session{ID: id, Cart: cart.NewStore(), listing: pipeline.NewState(), lastSeen: now}
		r.sessions[id] = s
	}
	n := len(r.sessions)
	r.mu.Unlock()

	if ok {
		s.touch(now)
		return s
	}
	for _, fn := range r.OnCreate {
		fn(s)
	}
	if r.OnCount != nil {
		r.OnCount(n)
	}
	return s
}

// Get returns an existing session without creating one.
func (r *Registry) Get(id string) (*Session, bool) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	if ok {
		s.touch(r.now())
	}
	return s, ok
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep ends sessions idle for longer than IdleTTL and returns how many
// were dropped. Their carts go with them.
func (r *Registry) Sweep() int {
	now := r.now()
	r.mu.Lock()
	dropped := 0
	for id, s := range r.sessions {
		if s.idleSince(now) > r.IdleTTL {
			delete(r.sessions, id)
			dropped++
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()

	if r.OnCount != nil {
		r.OnCount(n)
	}
	return dropped
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r.Sweep()
		}
	}
}
