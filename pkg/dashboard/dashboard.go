// Package dashboard resolves the account area and dashboard home.
package dashboard

import (
	"github.com/panelnav/panelnav/pkg/metrics"
	"github.com/panelnav/panelnav/pkg/router"
	"github.com/panelnav/panelnav/pkg/routepath"
	"github.com/panelnav/panelnav/pkg/view"
)

// AccountPrefix is the path under which the account sub-navigation shows.
const AccountPrefix = "/account"

const (
	ViewDashboard       router.ViewID = "dashboard"
	ViewAccountOverview router.ViewID = "account.overview"
	ViewAccountAPI      router.ViewID = "account.api"
)

// Routes is the dashboard route table.
var Routes = router.MustTable("/",
	router.Route{Pattern: "/", Exact: true, View: ViewDashboard},
	router.Route{Pattern: "/account", Exact: true, View: ViewAccountOverview, Label: "Settings"},
	router.Route{Pattern: "/account/api", Exact: true, View: ViewAccountAPI, Label: "API Credentials", ActivePrefix: true},
	router.Route{Pattern: "*", View: router.ViewNotFound},
)

// Resolver maps dashboard paths to views. It holds no per-request state.
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

// Resolve returns the view for path. Paths that cannot be canonicalized
// resolve to not-found.
func (r *Resolver) Resolve(path string) view.Resolution {
	res := r.resolve(path)
	r.metrics.ObserveResolution("dashboard", string(res.Screen))
	return res
}

func (r *Resolver) resolve(path string) view.Resolution {
	m, ok := r.table.Match(path)
	if !ok {
		return view.NotFound(path)
	}

	res := view.Resolution{
		Screen: view.ScreenView,
		View:   m.Route.View,
		Path:   m.Path,
	}
	if m.Route.View == router.ViewNotFound {
		res.Screen = view.ScreenNotFound
	}

	if routepath.HasPrefix(m.Path, AccountPrefix) {
		res.ShowSubNav = true
		res.Nav = append([]router.NavEntry{router.Link("Return Home", "/")},
			r.table.Nav(m.Path, nil, nil)...)
	}
	return res
}
