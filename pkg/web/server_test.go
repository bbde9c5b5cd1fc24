package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/panelnav/panelnav/pkg/capability"
	"github.com/panelnav/panelnav/pkg/client"
	"github.com/panelnav/panelnav/pkg/metrics"
	"github.com/panelnav/panelnav/pkg/panel"
	"github.com/panelnav/panelnav/pkg/serverroute"
	"github.com/panelnav/panelnav/pkg/session"
	"github.com/panelnav/panelnav/pkg/view"
)

// headerViewer reads the viewer from test headers.
func headerViewer(r *http.Request) panel.Viewer {
	return panel.Viewer{
		RootAdmin:    r.Header.Get("X-Root-Admin") == "true",
		Capabilities: capability.Parse(r.Header.Get("X-Permissions")),
	}
}

type fakeLoader struct {
	calls   atomic.Int32
	servers map[string]*panel.Server
}

func (f *fakeLoader) LoadServer(_ context.Context, id string) (*panel.Server, error) {
	f.calls.Add(1)
	if s, ok := f.servers[id]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, &client.APIError{
		StatusCode: http.StatusNotFound,
		Errors:     []client.ErrorDetail{{Code: "NotFoundHttpException", Detail: "The requested resource could not be found on the server."}},
	}
}

func newTestServer(t *testing.T, loader session.Loader, m *metrics.Metrics) *Server {
	t.Helper()
	return New(Config{
		Loader:   loader,
		Viewer:   headerViewer,
		LoadWait: 2 * time.Second,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:  m,
		Tracing:  []TracingOption{WithTracerProvider(noop.NewTracerProvider())},
	})
}

type response struct {
	code    int
	res     view.Resolution
	cookies []*http.Cookie
}

func get(t *testing.T, h http.Handler, path string, cookie *http.Cookie, header map[string]string) response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var res view.Resolution
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return response{code: rec.Code, res: res, cookies: rec.Result().Cookies()}
}

func navCookie(t *testing.T, resp response) *http.Cookie {
	t.Helper()
	for _, c := range resp.cookies {
		if c.Name == NavCookie {
			return c
		}
	}
	t.Fatal("no navigation cookie issued")
	return nil
}

func TestDashboardRoutes(t *testing.T) {
	h := newTestServer(t, &fakeLoader{}, nil).Handler()

	tests := []struct {
		path     string
		wantCode int
		wantView string
		subNav   bool
	}{
		{"/", http.StatusOK, "dashboard", false},
		{"/account", http.StatusOK, "account.overview", true},
		{"/account/api", http.StatusOK, "account.api", true},
		{"/account/other", http.StatusNotFound, "not_found", true},
		{"/elsewhere", http.StatusNotFound, "not_found", false},
		{"/server", http.StatusNotFound, "not_found", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			resp := get(t, h, tt.path, nil, nil)
			if resp.code != tt.wantCode {
				t.Errorf("code = %d, want %d", resp.code, tt.wantCode)
			}
			if string(resp.res.View) != tt.wantView {
				t.Errorf("view = %q, want %q", resp.res.View, tt.wantView)
			}
			if resp.res.ShowSubNav != tt.subNav {
				t.Errorf("show_sub_nav = %v, want %v", resp.res.ShowSubNav, tt.subNav)
			}
		})
	}
}

func TestServerRouteLoadsAndResolves(t *testing.T) {
	loader := &fakeLoader{servers: map[string]*panel.Server{
		"abc": {ID: "abc", UUID: "abc-uuid", InternalID: 7},
	}}
	h := newTestServer(t, loader, nil).Handler()
	perms := map[string]string{"X-Permissions": "file.read,control.console"}

	resp := get(t, h, "/server/abc/files", nil, perms)
	if resp.code != http.StatusOK || resp.res.Screen != view.ScreenView || resp.res.View != serverroute.ViewFiles {
		t.Fatalf("got %d %+v, want the files view", resp.code, resp.res)
	}
	cookie := navCookie(t, resp)

	resp = get(t, h, "/server/abc/users", cookie, perms)
	if resp.code != http.StatusForbidden || resp.res.Screen != view.ScreenForbidden || resp.res.View != "" {
		t.Errorf("users without user.*: got %d %+v", resp.code, resp.res)
	}
	if n := loader.calls.Load(); n != 1 {
		t.Errorf("loads = %d, want one load for the same server", n)
	}

	resp = get(t, h, "/server/abc", cookie, map[string]string{"X-Root-Admin": "true"})
	last := resp.res.Nav[len(resp.res.Nav)-1]
	if last.Href != "/admin/servers/view/7" || !last.External {
		t.Errorf("admin nav entry = %+v", last)
	}
}

func TestServerRouteLoadError(t *testing.T) {
	h := newTestServer(t, &fakeLoader{}, nil).Handler()

	resp := get(t, h, "/server/missing", nil, nil)
	if resp.res.Screen != view.ScreenError {
		t.Fatalf("Screen = %q, want error", resp.res.Screen)
	}
	if resp.res.Message != "The requested resource could not be found on the server." {
		t.Errorf("Message = %q, want the API error detail", resp.res.Message)
	}
}

func TestServerRouteBlocked(t *testing.T) {
	loader := &fakeLoader{servers: map[string]*panel.Server{
		"abc": {ID: "abc", UUID: "u", Status: panel.StatusSuspended},
	}}
	h := newTestServer(t, loader, nil).Handler()
	admin := map[string]string{"X-Root-Admin": "true", "X-Permissions": "*"}

	resp := get(t, h, "/server/abc", nil, admin)
	if resp.res.Screen != view.ScreenView {
		t.Errorf("admin at console: Screen = %q, want view", resp.res.Screen)
	}
	cookie := navCookie(t, resp)

	resp = get(t, h, "/server/abc/files", cookie, admin)
	if resp.res.Screen != view.ScreenBlocked || resp.res.Block == nil || resp.res.Block.Title != "Server Suspended" {
		t.Errorf("admin at files: got %+v", resp.res)
	}
}

func TestServerRouteAnswersLoadingAfterWait(t *testing.T) {
	release := make(chan struct{})
	loader := session.LoaderFunc(func(ctx context.Context, id string) (*panel.Server, error) {
		<-release
		return &panel.Server{ID: id, UUID: "u"}, nil
	})
	srv := New(Config{
		Loader:   loader,
		LoadWait: 10 * time.Millisecond,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	defer close(release)

	resp := get(t, srv.Handler(), "/server/abc", nil, nil)
	if resp.res.Screen != view.ScreenLoading {
		t.Errorf("Screen = %q, want loading", resp.res.Screen)
	}
}

func TestLeavingServerAreaLeavesSession(t *testing.T) {
	loader := &fakeLoader{servers: map[string]*panel.Server{"abc": {ID: "abc", UUID: "u"}}}
	srv := newTestServer(t, loader, nil)
	h := srv.Handler()

	resp := get(t, h, "/server/abc", nil, nil)
	cookie := navCookie(t, resp)

	get(t, h, "/account", cookie, nil)
	sess, ok := srv.sessions.Lookup(cookie.Value)
	if !ok {
		t.Fatal("session missing after dashboard request")
	}
	if st := sess.Snapshot().State; st != session.StateIdle {
		t.Errorf("State = %v, want idle after leaving", st)
	}

	get(t, h, "/server/abc", cookie, nil)
	if n := loader.calls.Load(); n != 2 {
		t.Errorf("loads = %d, want a fresh load after re-entering", n)
	}
}

func TestInvalidNavCookieIsReplaced(t *testing.T) {
	loader := &fakeLoader{servers: map[string]*panel.Server{"abc": {ID: "abc", UUID: "u"}}}
	h := newTestServer(t, loader, nil).Handler()

	resp := get(t, h, "/server/abc", &http.Cookie{Name: NavCookie, Value: "not-a-uuid"}, nil)
	c := navCookie(t, resp)
	if c.Value == "not-a-uuid" || !c.HttpOnly {
		t.Errorf("cookie = %+v, want a fresh HttpOnly key", c)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(metrics.WithRegistry(reg))
	loader := &fakeLoader{servers: map[string]*panel.Server{"abc": {ID: "abc", UUID: "u"}}}
	h := newTestServer(t, loader, m).Handler()

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Errorf("/healthz = %d %q", rec.Code, rec.Body.String())
	}

	get(t, h, "/server/abc", nil, nil)

	req = httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	body := rec.Body.String()
	for _, want := range []string{
		`panelnav_resolutions_total{resolver="server",screen="view"} 1`,
		`panelnav_navigation_sessions 1`,
		`panelnav_server_loads_total{kind="initial"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("/metrics missing %q", want)
		}
	}
}

func TestRunReturnsOnCancel(t *testing.T) {
	srv := New(Config{Loader: &fakeLoader{}, SessionIdle: time.Minute})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		srv.Run(ctx)
		close(done)
	}()
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
}

func TestRecoversFromPanics(t *testing.T) {
	loader := session.LoaderFunc(func(context.Context, string) (*panel.Server, error) {
		return nil, errors.New("unused")
	})
	srv := New(Config{
		Loader: loader,
		Viewer: func(*http.Request) panel.Viewer { panic("viewer exploded") },
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	req := httptest.NewRequest(http.MethodGet, "/server/abc", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("code = %d, want 500", rec.Code)
	}
}

func TestServerRouteRefreshRetriesFailedLoad(t *testing.T) {
	var calls atomic.Int32
	loader := session.LoaderFunc(func(_ context.Context, id string) (*panel.Server, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("panel unavailable")
		}
		return &panel.Server{ID: id, UUID: "u"}, nil
	})
	h := newTestServer(t, loader, nil).Handler()

	resp := get(t, h, "/server/abc", nil, nil)
	if resp.res.Screen != view.ScreenError {
		t.Fatalf("first load: Screen = %q, want error", resp.res.Screen)
	}
	cookie := navCookie(t, resp)

	resp = get(t, h, "/server/abc", cookie, nil)
	if resp.res.Screen != view.ScreenView {
		t.Errorf("refresh: Screen = %q, want view", resp.res.Screen)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("loads = %d, want 2", n)
	}
}

func TestServerRouteRefreshReloadsBlockedServer(t *testing.T) {
	var calls atomic.Int32
	loader := session.LoaderFunc(func(_ context.Context, id string) (*panel.Server, error) {
		s := &panel.Server{ID: id, UUID: "u"}
		if calls.Add(1) == 1 {
			s.Status = panel.StatusInstalling
		}
		return s, nil
	})
	h := newTestServer(t, loader, nil).Handler()

	resp := get(t, h, "/server/abc", nil, nil)
	if resp.res.Screen != view.ScreenBlocked {
		t.Fatalf("first load: Screen = %q, want blocked", resp.res.Screen)
	}
	cookie := navCookie(t, resp)

	resp = get(t, h, "/server/abc", cookie, nil)
	if resp.res.Screen != view.ScreenView {
		t.Errorf("refresh after install: Screen = %q, want view", resp.res.Screen)
	}

	get(t, h, "/server/abc", cookie, nil)
	if n := calls.Load(); n != 2 {
		t.Errorf("loads = %d, want no reload once the server is usable", n)
	}
}

func TestStrayRequestKeepsSession(t *testing.T) {
	loader := &fakeLoader{servers: map[string]*panel.Server{"abc": {ID: "abc", UUID: "u"}}}
	srv := newTestServer(t, loader, nil)
	h := srv.Handler()

	cookie := navCookie(t, get(t, h, "/server/abc", nil, nil))

	resp := get(t, h, "/favicon.ico", cookie, nil)
	if resp.code != http.StatusNotFound {
		t.Errorf("/favicon.ico code = %d, want 404", resp.code)
	}
	sess, ok := srv.sessions.Lookup(cookie.Value)
	if !ok || sess.Snapshot().State != session.StateReady {
		t.Fatal("stray request should not leave the server session")
	}

	get(t, h, "/server/abc/files", cookie, nil)
	if n := loader.calls.Load(); n != 1 {
		t.Errorf("loads = %d, want 1", n)
	}
}

func TestSessionGaugeFollowsSweep(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(metrics.WithRegistry(reg))
	srv := New(Config{
		Loader:      &fakeLoader{servers: map[string]*panel.Server{"abc": {ID: "abc", UUID: "u"}}},
		LoadWait:    2 * time.Second,
		SessionIdle: 10 * time.Millisecond,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		Metrics:     m,
	})
	h := srv.Handler()

	get(t, h, "/server/abc", nil, nil)
	if got := scrape(t, h); !strings.Contains(got, "panelnav_navigation_sessions 1") {
		t.Fatalf("gauge after request missing, got:\n%s", got)
	}

	time.Sleep(20 * time.Millisecond)
	if n := srv.sessions.Sweep(); n != 1 {
		t.Fatalf("Sweep() = %d, want 1", n)
	}
	if got := scrape(t, h); !strings.Contains(got, "panelnav_navigation_sessions 0") {
		t.Errorf("gauge after sweep not reset, got:\n%s", got)
	}
}

func scrape(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rec.Body.String()
}
