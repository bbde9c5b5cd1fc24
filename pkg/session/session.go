package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panelnav/panelnav/pkg/panel"
)

// ErrIncompleteServer is reported when a loader returns a server without
// both identifiers.
var ErrIncompleteServer = errors.New("server response is missing its identifiers")

// Loader fetches a server identity.
type Loader interface {
	LoadServer(ctx context.Context, id string) (*panel.Server, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, id string) (*panel.Server, error)

// LoadServer implements Loader.
func (f LoaderFunc) LoadServer(ctx context.Context, id string) (*panel.Server, error) {
	return f(ctx, id)
}

// State is the resolver-facing state of a session.
type State int

const (
	StateIdle State = iota
	StateLoading
	StateError
	StateReady
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateError:
		return "error"
	case StateReady:
		return "ready"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Observer receives load lifecycle notifications. Outcomes are "success"
// and "error"; discarded loads are reported separately.
type Observer interface {
	LoadStarted(reload bool)
	LoadFinished(outcome string, elapsed time.Duration)
	LoadDiscarded()
}

// Snapshot is a consistent copy of a session's state.
type Snapshot struct {
	State State

	// Param is the server id the session was entered with.
	Param string

	// Generation changes on every Enter with a new id and on Leave.
	Generation uint64

	// Server is a copy of the loaded identity, nil unless Ready.
	Server *panel.Server

	// Error is the formatted load failure, set only in StateError.
	Error string
}

// InConflictState reports whether the loaded server is blocked.
func (s Snapshot) InConflictState() bool {
	return s.State == StateReady && s.Server.InConflictState()
}

// Session is the navigation session of one mounted server route.
// It is safe for concurrent use.
type Session struct {
	loader   Loader
	format   func(error) string
	logger   *slog.Logger
	observer Observer
	onChange func(Snapshot)

	mu     sync.Mutex
	param  string
	gen    uint64
	seq    uint64
	server *panel.Server
	errMsg string
	cancel context.CancelFunc
	done   chan struct{}
}

// Option configures a Session.
type Option func(*Session)

// WithFormatter sets the function that turns load errors into display text.
// Default: err.Error().
func WithFormatter(fn func(error) string) Option {
	return func(s *Session) {
		if fn != nil {
			s.format = fn
		}
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithObserver registers load lifecycle hooks, typically metrics.
func WithObserver(o Observer) Option {
	return func(s *Session) {
		s.observer = o
	}
}

// WithOnChange registers a callback run after every committed transition.
// It is called without the session lock held.
func WithOnChange(fn func(Snapshot)) Option {
	return func(s *Session) {
		s.onChange = fn
	}
}

// New creates an idle session.
func New(loader Loader, opts ...Option) *Session {
	s := &Session{
		loader: loader,
		format: func(err error) string { return err.Error() },
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enter mounts the session on server id. Entering the id that is already
// mounted is a no-op and returns the channel of the load in progress (or an
// already closed one), unless that load failed: a failed id is loaded
// again. A different id resets the session to Loading and starts a new
// load. The returned channel is closed when that load ends,
// whether it was committed or discarded.
//
// The load runs detached from ctx's cancellation so it can outlive the
// request that triggered it, but keeps ctx's values.
func (s *Session) Enter(ctx context.Context, id string) <-chan struct{} {
	if id == "" {
		s.Leave()
		return closedChan()
	}

	s.mu.Lock()
	if id == s.param && s.done != nil && s.errMsg == "" {
		done := s.done
		s.mu.Unlock()
		return done
	}

	s.resetLocked()
	s.param = id
	done := s.startLocked(ctx, false)
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.logger.Debug("server route entered", "server", id, "generation", snap.Generation)
	s.notify(snap)
	return done
}

// Reload fetches the mounted server again without clearing the current
// identity. A failed reload keeps the previous identity. It returns a
// closed channel when no server is mounted.
func (s *Session) Reload(ctx context.Context) <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.param == "" {
		return closedChan()
	}
	if s.cancel != nil {
		s.cancel()
	}
	return s.startLocked(ctx, true)
}

// ReloadIfCurrent is Reload for callers bound to a generation, such as a
// daemon listener. It does nothing and reports false once the session has
// moved to another server.
func (s *Session) ReloadIfCurrent(ctx context.Context, generation uint64) (<-chan struct{}, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if generation != s.gen || s.param == "" {
		return closedChan(), false
	}
	if s.cancel != nil {
		s.cancel()
	}
	return s.startLocked(ctx, true), true
}

// Leave unmounts the session, cancelling any load in flight.
func (s *Session) Leave() {
	s.mu.Lock()
	wasMounted := s.param != ""
	s.resetLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if wasMounted {
		s.notify(snap)
	}
}

// Update applies fn to a copy of the loaded server and commits it, as long
// as generation is still current and a server is loaded. It reports whether
// the update was applied.
func (s *Session) Update(generation uint64, fn func(*panel.Server)) bool {
	s.mu.Lock()
	if generation != s.gen || s.server == nil {
		s.mu.Unlock()
		return false
	}
	next := *s.server
	fn(&next)
	s.server = &next
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.notify(snap)
	return true
}

// Snapshot returns the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{Param: s.param, Generation: s.gen}
	switch {
	case s.param == "":
		snap.State = StateIdle
	case s.errMsg != "":
		snap.State = StateError
		snap.Error = s.errMsg
	case s.server.Loaded():
		snap.State = StateReady
		copied := *s.server
		snap.Server = &copied
	default:
		snap.State = StateLoading
	}
	return snap
}

// resetLocked cancels the current load and clears the record. Bumping the
// generation invalidates every load and listener bound to the old one.
func (s *Session) resetLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.gen++
	s.param = ""
	s.server = nil
	s.errMsg = ""
	s.done = nil
}

func (s *Session) startLocked(ctx context.Context, reload bool) chan struct{} {
	s.seq++
	loadCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	done := make(chan struct{})
	s.done = done

	if s.observer != nil {
		s.observer.LoadStarted(reload)
	}
	go s.load(loadCtx, cancel, s.gen, s.seq, s.param, reload, done)
	return done
}

func (s *Session) load(ctx context.Context, cancel context.CancelFunc, gen, seq uint64, id string, reload bool, done chan struct{}) {
	defer close(done)
	defer cancel()

	start := time.Now()
	server, err := s.loader.LoadServer(ctx, id)
	if err == nil && !server.Loaded() {
		err = ErrIncompleteServer
	}

	s.mu.Lock()
	if gen != s.gen || seq != s.seq || id != s.param {
		s.mu.Unlock()
		s.logger.Debug("discarding superseded server load", "server", id, "generation", gen)
		if s.observer != nil {
			s.observer.LoadDiscarded()
		}
		return
	}

	outcome := "success"
	switch {
	case err != nil && reload && s.server != nil:
		outcome = "error"
		s.logger.Warn("server reload failed", "server", id, "error", err)
	case err != nil:
		outcome = "error"
		s.server = nil
		s.errMsg = s.format(err)
		if s.errMsg == "" {
			s.errMsg = err.Error()
		}
		s.logger.Error("server load failed", "server", id, "error", err)
	default:
		copied := *server
		s.server = &copied
		s.errMsg = ""
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	if s.observer != nil {
		s.observer.LoadFinished(outcome, time.Since(start))
	}
	s.notify(snap)
}

func (s *Session) notify(snap Snapshot) {
	if s.onChange != nil {
		s.onChange(snap)
	}
}

func closedChan() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
