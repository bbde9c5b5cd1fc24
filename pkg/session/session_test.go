package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/panelnav/panelnav/pkg/panel"
)

type loadResult struct {
	server *panel.Server
	err    error
}

// gatedLoader blocks each load until the test releases a result for its id.
// It ignores cancellation so late responses can be simulated.
type gatedLoader struct {
	mu    sync.Mutex
	gates map[string]chan loadResult
	calls map[string]int
}

func newGatedLoader() *gatedLoader {
	return &gatedLoader{
		gates: make(map[string]chan loadResult),
		calls: make(map[string]int),
	}
}

func (g *gatedLoader) gate(id string) chan loadResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[id]
	if !ok {
		ch = make(chan loadResult, 4)
		g.gates[id] = ch
	}
	return ch
}

func (g *gatedLoader) release(id string, server *panel.Server, err error) {
	g.gate(id) <- loadResult{server: server, err: err}
}

func (g *gatedLoader) callCount(id string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[id]
}

func (g *gatedLoader) LoadServer(_ context.Context, id string) (*panel.Server, error) {
	g.mu.Lock()
	g.calls[id]++
	g.mu.Unlock()
	r := <-g.gate(id)
	return r.server, r.err
}

type countingObserver struct {
	mu        sync.Mutex
	started   int
	reloads   int
	outcomes  []string
	discarded int
}

func (o *countingObserver) LoadStarted(reload bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started++
	if reload {
		o.reloads++
	}
}

func (o *countingObserver) LoadFinished(outcome string, _ time.Duration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func (o *countingObserver) LoadDiscarded() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.discarded++
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func wait(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for load")
	}
}

func server(id string) *panel.Server {
	return &panel.Server{ID: id, UUID: id + "-uuid", InternalID: 7}
}

func TestSessionStartsIdle(t *testing.T) {
	s := New(newGatedLoader(), WithLogger(quietLogger()))
	snap := s.Snapshot()
	if snap.State != StateIdle || snap.Server != nil || snap.Error != "" {
		t.Errorf("Snapshot() = %+v, want idle", snap)
	}
}

func TestSessionLoadSuccess(t *testing.T) {
	loader := newGatedLoader()
	s := New(loader, WithLogger(quietLogger()))

	done := s.Enter(context.Background(), "abc")
	if got := s.Snapshot().State; got != StateLoading {
		t.Fatalf("State after Enter = %v, want loading", got)
	}

	loader.release("abc", server("abc"), nil)
	wait(t, done)

	snap := s.Snapshot()
	if snap.State != StateReady {
		t.Fatalf("State = %v, want ready", snap.State)
	}
	if snap.Server.ID != "abc" || snap.Param != "abc" {
		t.Errorf("Snapshot() = %+v", snap)
	}
}

func TestSessionSnapshotIsACopy(t *testing.T) {
	loader := newGatedLoader()
	s := New(loader, WithLogger(quietLogger()))
	done := s.Enter(context.Background(), "abc")
	loader.release("abc", server("abc"), nil)
	wait(t, done)

	snap := s.Snapshot()
	snap.Server.Status = panel.StatusSuspended
	if s.Snapshot().Server.Status != panel.StatusNone {
		t.Error("mutating a snapshot changed the session")
	}
}

func TestSessionLoadErrorIsFormatted(t *testing.T) {
	loader := newGatedLoader()
	s := New(loader,
		WithLogger(quietLogger()),
		WithFormatter(func(err error) string { return "human: " + err.Error() }),
	)

	done := s.Enter(context.Background(), "abc")
	loader.release("abc", nil, errors.New("503"))
	wait(t, done)

	snap := s.Snapshot()
	if snap.State != StateError || snap.Error != "human: 503" {
		t.Fatalf("Snapshot() = %+v, want error state with formatted message", snap)
	}

	// Entering the failed id again retries; a second failure stays an error.
	done = s.Enter(context.Background(), "abc")
	if snap := s.Snapshot(); snap.State != StateLoading || snap.Error != "" {
		t.Errorf("Snapshot() after retry = %+v, want loading without error", snap)
	}
	loader.release("abc", nil, errors.New("503 again"))
	wait(t, done)
	if got := loader.callCount("abc"); got != 2 {
		t.Errorf("loader called %d times, want 2", got)
	}
	if snap := s.Snapshot(); snap.State != StateError || snap.Error != "human: 503 again" {
		t.Errorf("Snapshot() after failed retry = %+v", snap)
	}

	// A new id clears the error.
	done = s.Enter(context.Background(), "def")
	if snap := s.Snapshot(); snap.State != StateLoading || snap.Error != "" {
		t.Errorf("Snapshot() after new Enter = %+v, want loading without error", snap)
	}
	loader.release("def", server("def"), nil)
	wait(t, done)
	if snap := s.Snapshot(); snap.State != StateReady || snap.Error != "" {
		t.Errorf("Snapshot() = %+v, want ready", snap)
	}
}

func TestSessionIncompleteServerIsAnError(t *testing.T) {
	loader := newGatedLoader()
	s := New(loader, WithLogger(quietLogger()))

	done := s.Enter(context.Background(), "abc")
	loader.release("abc", &panel.Server{ID: "abc"}, nil)
	wait(t, done)

	snap := s.Snapshot()
	if snap.State != StateError || snap.Error != ErrIncompleteServer.Error() {
		t.Errorf("Snapshot() = %+v, want incomplete server error", snap)
	}
}

func TestSessionLateResultIsDiscarded(t *testing.T) {
	loader := newGatedLoader()
	obs := &countingObserver{}
	s := New(loader, WithLogger(quietLogger()), WithObserver(obs))

	doneA := s.Enter(context.Background(), "aaa")
	doneB := s.Enter(context.Background(), "bbb")

	loader.release("bbb", server("bbb"), nil)
	wait(t, doneB)

	loader.release("aaa", server("aaa"), nil)
	wait(t, doneA)

	snap := s.Snapshot()
	if snap.State != StateReady || snap.Server.ID != "bbb" {
		t.Fatalf("Snapshot() = %+v, want server bbb", snap)
	}

	obs.mu.Lock()
	defer obs.mu.Unlock()
	if obs.started != 2 || obs.discarded != 1 || len(obs.outcomes) != 1 {
		t.Errorf("observer = %+v, want 2 started, 1 discarded, 1 finished", obs)
	}
}

func TestSessionEarlyStaleResultKeepsLoading(t *testing.T) {
	loader := newGatedLoader()
	s := New(loader, WithLogger(quietLogger()))

	doneA := s.Enter(context.Background(), "aaa")
	doneB := s.Enter(context.Background(), "bbb")

	loader.release("aaa", server("aaa"), nil)
	wait(t, doneA)
	if snap := s.Snapshot(); snap.State != StateLoading || snap.Param != "bbb" {
		t.Fatalf("Snapshot() = %+v, want still loading bbb", snap)
	}

	loader.release("bbb", nil, errors.New("boom"))
	wait(t, doneB)
	if snap := s.Snapshot(); snap.State != StateError || snap.Error != "boom" {
		t.Errorf("Snapshot() = %+v, want error boom", snap)
	}
}

func TestSessionEnterSameIDDoesNotReload(t *testing.T) {
	loader := newGatedLoader()
	s := New(loader, WithLogger(quietLogger()))

	first := s.Enter(context.Background(), "abc")
	second := s.Enter(context.Background(), "abc")
	if first != second {
		t.Error("Enter with the mounted id should return the pending load")
	}
	loader.release("abc", server("abc"), nil)
	wait(t, first)
	if got := loader.callCount("abc"); got != 1 {
		t.Errorf("loader called %d times, want 1", got)
	}
}

func TestSessionLeaveClearsAndDiscards(t *testing.T) {
	loader := newGatedLoader()
	var changes []State
	var mu sync.Mutex
	s := New(loader, WithLogger(quietLogger()), WithOnChange(func(snap Snapshot) {
		mu.Lock()
		changes = append(changes, snap.State)
		mu.Unlock()
	}))

	done := s.Enter(context.Background(), "abc")
	s.Leave()
	loader.release("abc", server("abc"), nil)
	wait(t, done)

	if snap := s.Snapshot(); snap.State != StateIdle || snap.Server != nil {
		t.Errorf("Snapshot() after Leave = %+v, want idle", snap)
	}

	mu.Lock()
	defer mu.Unlock()
	want := []State{StateLoading, StateIdle}
	if len(changes) != len(want) || changes[0] != want[0] || changes[1] != want[1] {
		t.Errorf("changes = %v, want %v", changes, want)
	}
}

func TestSessionEnterEmptyIDLeaves(t *testing.T) {
	loader := newGatedLoader()
	s := New(loader, WithLogger(quietLogger()))
	done := s.Enter(context.Background(), "abc")
	wait(t, s.Enter(context.Background(), ""))
	if got := s.Snapshot().State; got != StateIdle {
		t.Errorf("State = %v, want idle", got)
	}
	loader.release("abc", server("abc"), nil)
	wait(t, done)
}

func TestSessionUpdate(t *testing.T) {
	loader := newGatedLoader()
	s := New(loader, WithLogger(quietLogger()))

	done := s.Enter(context.Background(), "abc")
	gen := s.Snapshot().Generation
	if s.Update(gen, func(*panel.Server) {}) {
		t.Error("Update should fail before the server is loaded")
	}

	loader.release("abc", server("abc"), nil)
	wait(t, done)

	ok := s.Update(gen, func(srv *panel.Server) { srv.Status = panel.StatusInstalling })
	if !ok {
		t.Fatal("Update with the current generation failed")
	}
	if snap := s.Snapshot(); !snap.InConflictState() {
		t.Errorf("Snapshot() = %+v, want conflict state", snap)
	}

	s.Leave()
	if s.Update(gen, func(*panel.Server) {}) {
		t.Error("Update with a stale generation should fail")
	}
}

func TestSessionReload(t *testing.T) {
	loader := newGatedLoader()
	obs := &countingObserver{}
	s := New(loader, WithLogger(quietLogger()), WithObserver(obs))

	wait(t, s.Reload(context.Background()))

	done := s.Enter(context.Background(), "abc")
	installing := server("abc")
	installing.Status = panel.StatusInstalling
	loader.release("abc", installing, nil)
	wait(t, done)

	done = s.Reload(context.Background())
	if snap := s.Snapshot(); snap.State != StateReady {
		t.Errorf("State during reload = %v, want ready with the old identity", snap.State)
	}
	loader.release("abc", server("abc"), nil)
	wait(t, done)
	if snap := s.Snapshot(); snap.InConflictState() {
		t.Errorf("Snapshot() after reload = %+v, want installed", snap)
	}

	done = s.Reload(context.Background())
	loader.release("abc", nil, errors.New("flaky"))
	wait(t, done)
	if snap := s.Snapshot(); snap.State != StateReady {
		t.Errorf("failed reload should keep the identity, got %+v", snap)
	}

	obs.mu.Lock()
	defer obs.mu.Unlock()
	if obs.reloads != 2 {
		t.Errorf("reloads = %d, want 2", obs.reloads)
	}
}

func TestSessionReloadIfCurrent(t *testing.T) {
	loader := newGatedLoader()
	s := New(loader, WithLogger(quietLogger()))

	done := s.Enter(context.Background(), "abc")
	loader.release("abc", server("abc"), nil)
	wait(t, done)
	gen := s.Snapshot().Generation

	done, ok := s.ReloadIfCurrent(context.Background(), gen)
	if !ok {
		t.Fatal("ReloadIfCurrent with the current generation was refused")
	}
	loader.release("abc", server("abc"), nil)
	wait(t, done)
	if n := loader.callCount("abc"); n != 2 {
		t.Errorf("loads = %d, want 2", n)
	}

	done = s.Enter(context.Background(), "xyz")
	if _, ok := s.ReloadIfCurrent(context.Background(), gen); ok {
		t.Error("ReloadIfCurrent with a stale generation should be refused")
	}
	loader.release("xyz", server("xyz"), nil)
	wait(t, done)
	if n := loader.callCount("abc"); n != 2 {
		t.Errorf("loads of abc = %d, want no reload after switching servers", n)
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		StateIdle:    "idle",
		StateLoading: "loading",
		StateError:   "error",
		StateReady:   "ready",
		State(42):    "State(42)",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}
