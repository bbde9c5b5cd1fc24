// Package web serves route resolutions over HTTP as JSON view descriptors.
//
// Each browser is identified by a navigation key cookie that owns one
// navigation session. Requests under /server/{id} enter that session and
// wait a bounded time for the server identity to load; every other path
// leaves it and resolves against the dashboard table.
//
//	srv := web.New(web.Config{
//		Loader:   panelClient,
//		Viewer:   viewerFromHeaders,
//		LoadWait: 2 * time.Second,
//	})
//	http.ListenAndServe(":8080", srv.Handler())
package web
