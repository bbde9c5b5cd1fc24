// Package serverroute resolves the per-server management area mounted at
// /server/:id.
//
// Resolution is a pure function of the path, a session snapshot and the
// viewer, so rendering the same state twice selects the same view. The
// session itself is driven through Navigate, which enters the session for
// the id in the path or leaves it when the path is outside the server area:
//
//	r := serverroute.New()
//	done, _ := r.Navigate(ctx, sess, "/server/1a2b3c4d/files")
//	<-done
//	res := r.Resolve("/server/1a2b3c4d/files", sess.Snapshot(), viewer)
//
// The outcome follows the session state: a spinner while loading, the
// formatted failure on error, and once the server is loaded either its
// conflict block, the requested view, a forbidden screen when the viewer
// lacks the route's capability, or not-found.
package serverroute
