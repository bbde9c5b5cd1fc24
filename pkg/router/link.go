package router

import "github.com/panelnav/panelnav/pkg/routepath"

// NavEntry is one link of a navigation panel.
type NavEntry struct {
	Label string `json:"label"`
	Href  string `json:"href"`

	// View is the view the link leads to, when it targets a table route.
	View ViewID `json:"view,omitempty"`

	// Active is set when the current path selects this entry.
	Active bool `json:"active"`

	// External entries leave the dashboard and open in a new tab.
	External bool `json:"external,omitempty"`
}

// Link is a plain entry that never renders as active.
func Link(label, href string) NavEntry {
	return NavEntry{Label: label, Href: href}
}

// NavLink is an entry that is active when current matches href, either
// exactly or as a segment prefix.
func NavLink(label, href, current string, exact bool) NavEntry {
	return NavEntry{Label: label, Href: href, Active: IsActive(current, href, exact)}
}

// ExternalLink is an entry pointing outside the dashboard.
func ExternalLink(label, href string) NavEntry {
	return NavEntry{Label: label, Href: href, External: true}
}

// IsActive reports whether a link to href is active while at current.
func IsActive(current, href string, exact bool) bool {
	res, err := routepath.Canonicalize(current)
	if err != nil {
		return false
	}
	if exact {
		return res.Path == href
	}
	return routepath.HasPrefix(res.Path, href)
}
