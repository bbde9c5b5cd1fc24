package web

import (
	"context"
	"net/http"
	"strings"

	"github.com/panelnav/panelnav/pkg/capability"
	"github.com/panelnav/panelnav/pkg/panel"
)

// Headers read by HeaderViewer. They must only be trusted behind a proxy
// that strips them from client requests.
const (
	DefaultRootAdminHeader   = "X-Panel-Root-Admin"
	DefaultPermissionsHeader = "X-Panel-Permissions"
)

type viewerKey struct{}

// WithViewer stores the viewer on ctx. Authentication middleware mounted in
// front of the handler uses it to hand the resolved viewer over.
func WithViewer(ctx context.Context, v panel.Viewer) context.Context {
	return context.WithValue(ctx, viewerKey{}, v)
}

// ViewerFromContext returns the viewer stored by WithViewer.
func ViewerFromContext(ctx context.Context) (panel.Viewer, bool) {
	v, ok := ctx.Value(viewerKey{}).(panel.Viewer)
	return v, ok
}

// ContextViewer reads the viewer placed on the request context, falling
// back to fallback (or an unprivileged viewer) when there is none.
func ContextViewer(fallback ViewerFunc) ViewerFunc {
	return func(r *http.Request) panel.Viewer {
		if v, ok := ViewerFromContext(r.Context()); ok {
			return v
		}
		if fallback != nil {
			return fallback(r)
		}
		return panel.Viewer{}
	}
}

// HeaderViewer reads the viewer from trusted proxy headers: a boolean root
// admin flag and a comma separated permission list.
func HeaderViewer(rootAdminHeader, permissionsHeader string) ViewerFunc {
	return func(r *http.Request) panel.Viewer {
		admin := strings.TrimSpace(r.Header.Get(rootAdminHeader))
		return panel.Viewer{
			RootAdmin:    admin == "1" || strings.EqualFold(admin, "true"),
			Capabilities: capability.Parse(r.Header.Get(permissionsHeader)),
		}
	}
}

// StaticViewer serves the same viewer to every request.
func StaticViewer(v panel.Viewer) ViewerFunc {
	return func(*http.Request) panel.Viewer { return v }
}
