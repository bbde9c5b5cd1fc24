// Package router implements ordered, first-match route tables for the
// dashboard and the per-server area.
//
// A Table is mounted at a base path and holds routes in evaluation order:
//
//	t := router.MustTable("/server/:id",
//	    router.Route{Pattern: "", Exact: true, View: "server.console", Label: "Console"},
//	    router.Route{Pattern: "/files", Exact: true, View: "server.files",
//	        Require: capability.Require("file.*"), Label: "File Manager"},
//	    router.Route{Pattern: "/files/:action(edit|new)", Exact: true, View: "server.files.edit"},
//	    router.Route{Pattern: "*", View: router.ViewNotFound},
//	)
//
//	m, ok := t.Match("/server/abc/files/edit")
//	// m.Route.View == "server.files.edit"
//	// m.Params["id"] == "abc", m.Params["action"] == "edit"
//
// # Patterns
//
// Patterns are made of segments:
//
//	files            static segment
//	:id              parameter, any single segment
//	:action(a|b)     parameter limited to the listed values
//	*  or  *rest     catch-all, zero or more remaining segments (last only)
//
// An Exact route must consume the whole path. A non-exact route matches any
// path that has the pattern as a leading run of segments.
//
// # Ordering
//
// Routes are tried in the order given and the first structural match wins.
// NewTable rejects tables whose order would make a route unreachable, and
// requires the last route to be a bare catch-all so every path under the
// base resolves to something.
package router
