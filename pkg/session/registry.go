package session

import (
	"context"
	"sync"
	"time"
)

// Registry keeps one Session per navigation key.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*registryEntry
	factory  func() *Session
	maxIdle  time.Duration
	now      func() time.Time
	onLen    func(int)
}

type registryEntry struct {
	session  *Session
	lastSeen time.Time
}

// NewRegistry creates a registry that builds sessions with factory and
// evicts those not used for maxIdle. A zero maxIdle disables eviction.
func NewRegistry(factory func() *Session, maxIdle time.Duration) *Registry {
	return &Registry{
		sessions: make(map[string]*registryEntry),
		factory:  factory,
		maxIdle:  maxIdle,
		now:      time.Now,
	}
}

// OnLenChange registers fn to receive the number of tracked sessions
// whenever a session is added or evicted. It must be set before the
// registry is used.
func (r *Registry) OnLenChange(fn func(n int)) {
	r.onLen = fn
}

// Get returns the session for key, creating it on first use.
func (r *Registry) Get(key string) *Session {
	r.mu.Lock()
	e, ok := r.sessions[key]
	if !ok {
		e = &registryEntry{session: r.factory()}
		r.sessions[key] = e
	}
	e.lastSeen = r.now()
	n := len(r.sessions)
	r.mu.Unlock()

	if !ok {
		r.reportLen(n)
	}
	return e.session
}

// Lookup returns the session for key without creating one.
func (r *Registry) Lookup(key string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.sessions[key]
	if !ok {
		return nil, false
	}
	e.lastSeen = r.now()
	return e.session, true
}

// Remove tears down and forgets the session for key.
func (r *Registry) Remove(key string) {
	r.mu.Lock()
	e, ok := r.sessions[key]
	delete(r.sessions, key)
	n := len(r.sessions)
	r.mu.Unlock()

	if ok {
		e.session.Leave()
		r.reportLen(n)
	}
}

// Len returns the number of tracked sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep evicts sessions idle for longer than maxIdle and returns how many
// were removed.
func (r *Registry) Sweep() int {
	if r.maxIdle <= 0 {
		return 0
	}

	cutoff := r.now().Add(-r.maxIdle)
	var evicted []*Session

	r.mu.Lock()
	for key, e := range r.sessions {
		if e.lastSeen.Before(cutoff) {
			evicted = append(evicted, e.session)
			delete(r.sessions, key)
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()

	for _, s := range evicted {
		s.Leave()
	}
	if len(evicted) > 0 {
		r.reportLen(n)
	}
	return len(evicted)
}

func (r *Registry) reportLen(n int) {
	if r.onLen != nil {
		r.onLen(n)
	}
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}
