// Package view describes what a resolver decided to show.
package view

import "github.com/panelnav/panelnav/pkg/router"

// Screen is the kind of content a resolution renders.
type Screen string

const (
	// ScreenView renders the route's view.
	ScreenView Screen = "view"

	// ScreenNotFound renders the not-found fallback.
	ScreenNotFound Screen = "not_found"

	// ScreenLoading renders a blocking spinner while the server loads.
	ScreenLoading Screen = "loading"

	// ScreenError renders the load failure message.
	ScreenError Screen = "error"

	// ScreenForbidden renders nothing: the viewer lacks the route's capability.
	ScreenForbidden Screen = "forbidden"

	// ScreenBlocked renders the server's conflict-state block.
	ScreenBlocked Screen = "blocked"
)

// Block is the full-page message shown instead of a blocked server's pages.
type Block struct {
	Title   string `json:"title"`
	Message string `json:"message"`

	// Image names the illustration, e.g. "server_installing".
	Image string `json:"image"`
}

// Resolution is the output of a resolver for one path.
type Resolution struct {
	Screen Screen `json:"screen"`

	// View is set for ScreenView and ScreenNotFound.
	View router.ViewID `json:"view,omitempty"`

	// Path is the canonical path that was resolved.
	Path string `json:"path"`

	// Params are the route parameters of the matched route.
	Params map[string]string `json:"params,omitempty"`

	// ShowSubNav reports whether the secondary navigation is rendered.
	ShowSubNav bool `json:"show_sub_nav"`

	// Nav is the secondary navigation, in display order.
	Nav []router.NavEntry `json:"nav,omitempty"`

	// Block is set for ScreenBlocked.
	Block *Block `json:"block,omitempty"`

	// Message is the load failure text for ScreenError.
	Message string `json:"message,omitempty"`
}

// NotFound is the resolution of a path no table accepts.
func NotFound(path string) Resolution {
	return Resolution{Screen: ScreenNotFound, View: router.ViewNotFound, Path: path}
}
