package router

import (
	"fmt"

	"github.com/panelnav/panelnav/pkg/capability"
	"github.com/panelnav/panelnav/pkg/routepath"
)

// ViewID names a screen the UI layer knows how to render.
type ViewID string

// ViewNotFound is the view of every table's trailing catch-all.
const ViewNotFound ViewID = "not_found"

// Route is one entry of a Table.
type Route struct {
	// Pattern is relative to the table base. "" is the base itself.
	Pattern string

	// Exact requires the pattern to consume the whole path.
	Exact bool

	// Require gates both the view and the navigation entry.
	Require capability.Requirement

	// View is the screen selected when the route matches.
	View ViewID

	// Label is the navigation entry text. Routes without a label have no
	// navigation entry.
	Label string

	// ActivePrefix keeps the navigation entry active on every path below
	// the route, e.g. the files entry while editing a file.
	ActivePrefix bool
}

// Match is the outcome of a successful Table.Match.
type Match struct {
	Route  Route
	Index  int
	Path   string
	Params map[string]string
}

// Table is an ordered list of routes mounted at a base pattern.
// A Table is immutable once built and safe for concurrent use.
type Table struct {
	base     *pattern
	routes   []Route
	compiled []*pattern
}

// NewTable compiles and validates routes mounted at base.
func NewTable(base string, routes ...Route) (*Table, error) {
	basePattern, err := compilePattern(routepath.MustCanonicalize(base))
	if err != nil {
		return nil, err
	}
	for _, seg := range basePattern.segments {
		if seg.kind == segCatchAll {
			return nil, fmt.Errorf("base %q: catch-all is not allowed in a table base", base)
		}
	}

	t := &Table{
		base:     basePattern,
		routes:   append([]Route(nil), routes...),
		compiled: make([]*pattern, len(routes)),
	}

	var errs []ValidationError
	for i, r := range routes {
		p, err := compilePattern(routepath.Join(basePattern.raw, r.Pattern))
		if err != nil {
			errs = append(errs, ValidationError{
				Type:    ErrorMalformedPattern,
				Message: err.Error(),
				Pattern: r.Pattern,
				Index:   i,
			})
			continue
		}
		t.compiled[i] = p
	}
	if len(errs) > 0 {
		return nil, &MultiValidationError{Errors: errs}
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// MustTable is NewTable for package-level tables. It panics on error.
func MustTable(base string, routes ...Route) *Table {
	t, err := NewTable(base, routes...)
	if err != nil {
		panic(fmt.Sprintf("router: invalid table at %s: %v", base, err))
	}
	return t
}

// Base returns the canonical base pattern.
func (t *Table) Base() string {
	return t.base.raw
}

// Routes returns the routes in evaluation order.
func (t *Table) Routes() []Route {
	return append([]Route(nil), t.routes...)
}

// Mount reports whether path lies at or below the table base and returns
// the base parameters (e.g. the server id).
func (t *Table) Mount(path string) (map[string]string, bool) {
	_, segs, ok := decode(path)
	if !ok {
		return nil, false
	}
	params := make(map[string]string)
	if !t.base.match(segs, false, params) {
		return nil, false
	}
	return params, true
}

// Match returns the first route matching path. It fails only when path
// cannot be canonicalized or lies outside the table base; inside the base
// the trailing catch-all always matches.
func (t *Table) Match(path string) (Match, bool) {
	canonical, segs, ok := decode(path)
	if !ok {
		return Match{}, false
	}
	for i, p := range t.compiled {
		params := make(map[string]string)
		if p.match(segs, t.routes[i].Exact, params) {
			return Match{Route: t.routes[i], Index: i, Path: canonical, Params: params}, true
		}
	}
	return Match{}, false
}

// URL builds the absolute path of the route at index with params
// substituted, e.g. "/server/abc/files".
func (t *Table) URL(index int, params map[string]string) (string, error) {
	if index < 0 || index >= len(t.compiled) {
		return "", fmt.Errorf("router: route index %d out of range", index)
	}
	return t.compiled[index].build(params)
}

// Nav returns navigation entries for labelled routes whose requirement can
// satisfies, in table order. A nil checker only admits ungated routes.
func (t *Table) Nav(current string, params map[string]string, can capability.Checker) []NavEntry {
	var out []NavEntry
	for i, r := range t.routes {
		if r.Label == "" {
			continue
		}
		if !r.Require.IsZero() && (can == nil || !can.Can(r.Require)) {
			continue
		}
		href, err := t.compiled[i].build(params)
		if err != nil {
			continue
		}
		entry := NavLink(r.Label, href, current, !r.ActivePrefix)
		entry.View = r.View
		out = append(out, entry)
	}
	return out
}

// decode canonicalizes path and splits it into decoded segments.
func decode(path string) (string, []string, bool) {
	res, err := routepath.Canonicalize(path)
	if err != nil {
		return "", nil, false
	}
	segs, err := routepath.Segments(res.Path)
	if err != nil {
		return "", nil, false
	}
	return res.Path, segs, true
}
