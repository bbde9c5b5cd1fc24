package serverroute

import (
	"context"
	"strconv"
	"strings"

	"github.com/panelnav/panelnav/pkg/capability"
	"github.com/panelnav/panelnav/pkg/metrics"
	"github.com/panelnav/panelnav/pkg/panel"
	"github.com/panelnav/panelnav/pkg/router"
	"github.com/panelnav/panelnav/pkg/session"
	"github.com/panelnav/panelnav/pkg/view"
)

// Resolver maps server area paths to views.
type Resolver struct {
	table   *router.Table
	metrics *metrics.Metrics
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithMetrics records every resolution.
func WithMetrics(m *metrics.Metrics) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}

// New creates a resolver over Routes.
func New(opts ...Option) *Resolver {
	r := &Resolver{table: Routes}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ServerID returns the server id of a path inside the server area.
func (r *Resolver) ServerID(path string) (string, bool) {
	params, ok := r.table.Mount(path)
	if !ok {
		return "", false
	}
	return params["id"], true
}

// Navigate points sess at the server named by path. Inside the server area
// the session is entered (a no-op when the id is unchanged); outside it the
// session is left. It reports whether path is inside the server area and
// returns a channel closed when the resulting load ends.
func (r *Resolver) Navigate(ctx context.Context, sess *session.Session, path string) (<-chan struct{}, bool) {
	id, ok := r.ServerID(path)
	if !ok {
		sess.Leave()
		done := make(chan struct{})
		close(done)
		return done, false
	}
	return sess.Enter(ctx, id), true
}

// Resolve decides what to render for path given the session state and the
// viewer. It never fails: every problem maps to a screen.
func (r *Resolver) Resolve(path string, snap session.Snapshot, viewer panel.Viewer) view.Resolution {
	res := r.resolve(path, snap, viewer)
	r.metrics.ObserveResolution("server", string(res.Screen))
	return res
}

func (r *Resolver) resolve(path string, snap session.Snapshot, viewer panel.Viewer) view.Resolution {
	m, ok := r.table.Match(path)
	if !ok {
		return view.NotFound(path)
	}
	id := m.Params["id"]

	// A snapshot for another server is as good as no identity at all: the
	// session has not caught up with the path yet.
	if snap.Param != id {
		return view.Resolution{Screen: view.ScreenLoading, Path: m.Path}
	}
	switch snap.State {
	case session.StateError:
		return view.Resolution{Screen: view.ScreenError, Path: m.Path, Message: snap.Error}
	case session.StateReady:
	default:
		return view.Resolution{Screen: view.ScreenLoading, Path: m.Path}
	}

	server := snap.Server
	res := view.Resolution{
		Path:       m.Path,
		Params:     m.Params,
		ShowSubNav: true,
		Nav:        r.nav(m.Path, id, server, viewer),
	}

	if snap.InConflictState() && (!viewer.RootAdmin || !isConsoleRoot(m.Path, server.ID)) {
		block := BlockFor(server)
		res.Screen = view.ScreenBlocked
		res.Block = &block
		return res
	}

	switch {
	case m.Route.View == router.ViewNotFound:
		res.Screen = view.ScreenNotFound
		res.View = router.ViewNotFound
	case !viewer.Can(m.Route.Require):
		res.Screen = view.ScreenForbidden
	default:
		res.Screen = view.ScreenView
		res.View = m.Route.View
	}
	return res
}

// nav builds the server sub-navigation: home, the permitted routes and, for
// root admins, the external admin page.
func (r *Resolver) nav(path, id string, server *panel.Server, viewer panel.Viewer) []router.NavEntry {
	entries := []router.NavEntry{router.Link("Return Home", "/")}
	entries = append(entries, r.table.Nav(path, map[string]string{"id": id}, viewerChecker{viewer})...)
	if viewer.RootAdmin {
		entries = append(entries, router.ExternalLink("Admin", "/admin/servers/view/"+strconv.Itoa(server.InternalID)))
	}
	return entries
}

// isConsoleRoot reports whether path is the console of server id, the only
// page a root admin may open while the server is blocked.
func isConsoleRoot(path, id string) bool {
	return id != "" && strings.HasSuffix(path, "/server/"+id)
}

// viewerChecker lets the route table consult Viewer.Can, which treats a
// missing checker as granting nothing.
type viewerChecker struct {
	viewer panel.Viewer
}

func (c viewerChecker) Can(req capability.Requirement) bool {
	return c.viewer.Can(req)
}
