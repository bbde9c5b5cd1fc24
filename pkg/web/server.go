package web

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/panelnav/panelnav/pkg/client"
	"github.com/panelnav/panelnav/pkg/dashboard"
	"github.com/panelnav/panelnav/pkg/events"
	"github.com/panelnav/panelnav/pkg/metrics"
	"github.com/panelnav/panelnav/pkg/panel"
	"github.com/panelnav/panelnav/pkg/serverroute"
	"github.com/panelnav/panelnav/pkg/session"
	"github.com/panelnav/panelnav/pkg/view"
)

// NavCookie is the cookie carrying the navigation key.
const NavCookie = "panelnav_nav"

// ViewerFunc derives the viewer of a request.
type ViewerFunc func(r *http.Request) panel.Viewer

// Config configures a Server.
type Config struct {
	// Loader fetches server identities. Required.
	Loader session.Loader

	// Viewer derives the viewer of each request. Default: a viewer with no
	// capabilities.
	Viewer ViewerFunc

	// LoadWait bounds how long a request waits for a server load before
	// answering with the loading screen. Zero answers immediately.
	LoadWait time.Duration

	// SessionIdle evicts navigation sessions unused for this long.
	// Zero keeps them forever.
	SessionIdle time.Duration

	// Credentials, when set, enables the daemon listener for every loaded
	// server.
	Credentials events.CredentialSource

	// Origin is sent to the daemon as the websocket Origin.
	Origin string

	// SecureCookie marks the navigation cookie Secure.
	SecureCookie bool

	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Tracing []TracingOption
}

// Server is the HTTP surface.
type Server struct {
	cfg       Config
	logger    *slog.Logger
	dashboard *dashboard.Resolver
	servers   *serverroute.Resolver
	sessions  *session.Registry
	router    chi.Router
}

// New creates a Server.
func New(cfg Config) *Server {
	if cfg.Viewer == nil {
		cfg.Viewer = func(*http.Request) panel.Viewer { return panel.Viewer{} }
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:       cfg,
		logger:    logger,
		dashboard: dashboard.New(dashboard.WithMetrics(cfg.Metrics)),
		servers:   serverroute.New(serverroute.WithMetrics(cfg.Metrics)),
	}
	s.sessions = session.NewRegistry(s.newSession, cfg.SessionIdle)
	s.sessions.OnLenChange(cfg.Metrics.SetActiveSessions)
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run evicts idle navigation sessions until ctx is done.
func (s *Server) Run(ctx context.Context) {
	if s.cfg.SessionIdle <= 0 {
		<-ctx.Done()
		return
	}
	interval := s.cfg.SessionIdle / 2
	if interval < time.Second {
		interval = time.Second
	}
	s.sessions.Run(ctx, interval)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(Tracing(s.cfg.Tracing...))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	if s.cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.cfg.Metrics.Handler())
	}

	r.Get("/", s.handleDashboard)
	r.Get("/account", s.handleDashboard)
	r.Get("/account/*", s.handleDashboard)
	r.Get("/server/{id}", s.handleServer)
	r.Get("/server/{id}/*", s.handleServer)
	r.NotFound(s.handleNotFound)
	return r
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if sess, ok := s.lookupSession(r); ok {
		sess.Leave()
	}
	writeResolution(w, s.dashboard.Resolve(r.URL.EscapedPath()))
}

// handleNotFound answers paths outside every page. Stray requests such as
// /favicon.ico keep the navigation session mounted.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeResolution(w, s.dashboard.Resolve(r.URL.EscapedPath()))
}

func (s *Server) handleServer(w http.ResponseWriter, r *http.Request) {
	path := r.URL.EscapedPath()
	sess := s.session(w, r)

	done, inside := s.servers.Navigate(r.Context(), sess, path)
	if !inside {
		writeResolution(w, s.dashboard.Resolve(path))
		return
	}
	if s.cfg.Credentials == nil && sess.Snapshot().InConflictState() {
		// Without a daemon listener nothing else moves a blocked server on.
		done = sess.Reload(r.Context())
	}
	s.wait(r.Context(), done)

	writeResolution(w, s.servers.Resolve(path, sess.Snapshot(), s.cfg.Viewer(r)))
}

func (s *Server) wait(ctx context.Context, done <-chan struct{}) {
	if s.cfg.LoadWait <= 0 {
		return
	}
	timer := time.NewTimer(s.cfg.LoadWait)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
	case <-ctx.Done():
	}
}

// session returns the request's navigation session, issuing a navigation
// key when the request has none.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *session.Session {
	key, ok := navKey(r)
	if !ok {
		key = uuid.NewString()
		http.SetCookie(w, &http.Cookie{
			Name:     NavCookie,
			Value:    key,
			Path:     "/",
			HttpOnly: true,
			Secure:   s.cfg.SecureCookie,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return s.sessions.Get(key)
}

func (s *Server) lookupSession(r *http.Request) (*session.Session, bool) {
	key, ok := navKey(r)
	if !ok {
		return nil, false
	}
	return s.sessions.Lookup(key)
}

func navKey(r *http.Request) (string, bool) {
	c, err := r.Cookie(NavCookie)
	if err != nil {
		return "", false
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return "", false
	}
	return c.Value, true
}

func (s *Server) newSession() *session.Session {
	opts := []session.Option{
		session.WithFormatter(client.HumanError),
		session.WithLogger(s.logger),
	}
	if s.cfg.Metrics != nil {
		opts = append(opts, session.WithObserver(s.cfg.Metrics))
	}

	var w *watcher
	if s.cfg.Credentials != nil {
		w = &watcher{srv: s}
		opts = append(opts, session.WithOnChange(w.changed))
	}
	sess := session.New(s.cfg.Loader, opts...)
	if w != nil {
		w.sess = sess
	}
	return sess
}

// watcher keeps one daemon listener running per loaded generation of a
// session.
type watcher struct {
	srv  *Server
	sess *session.Session

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

func (w *watcher) changed(snap session.Snapshot) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.cancel != nil && snap.Generation != w.gen {
		w.cancel()
		w.cancel = nil
	}
	if snap.State != session.StateReady || w.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	w.gen = snap.Generation
	w.cancel = cancel

	l := events.NewListener(w.sess, w.srv.cfg.Credentials,
		events.WithOrigin(w.srv.cfg.Origin),
		events.WithLogger(w.srv.logger),
		events.WithMetrics(w.srv.cfg.Metrics),
	)
	server := snap.Server.ID
	go func() {
		defer cancel()
		if err := l.Run(ctx); err != nil && ctx.Err() == nil {
			w.srv.logger.Warn("daemon listener stopped", "server", server, "error", err)
		}
	}()
}

func statusFor(screen view.Screen) int {
	switch screen {
	case view.ScreenNotFound:
		return http.StatusNotFound
	case view.ScreenForbidden:
		return http.StatusForbidden
	default:
		return http.StatusOK
	}
}

func writeResolution(w http.ResponseWriter, res view.Resolution) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(statusFor(res.Screen))
	_ = json.NewEncoder(w).Encode(res)
}
