// Package routepath normalizes dashboard paths before they reach a route table.
//
// Every resolver canonicalizes its input first, so "/server/abc/files/",
// "/server//abc/files" and "/server/abc/./files" all select the same view.
// Paths that cannot be canonicalized (backslashes, NUL bytes, broken escapes,
// ".." above the root) are rejected and resolvers treat them as unknown routes.
package routepath
