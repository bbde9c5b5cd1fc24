// Package session tracks the server identity behind a mounted server route.
//
// A Session moves through four states:
//
//	Idle     no server route is mounted
//	Loading  a load is in flight and nothing is known yet
//	Error    the load failed; the formatted message is kept
//	Ready    the identity is loaded
//
// Enter with a new server id clears the previous identity, cancels the
// previous load and starts a fresh one. Leave clears everything. Every load
// remembers the generation and id it was started for and only commits if
// both are still current, so a slow response for a server the user has
// already navigated away from is dropped:
//
//	sess := session.New(loader, session.WithFormatter(client.HumanError))
//	done := sess.Enter(ctx, "1a2b3c4d")
//	<-done
//	snap := sess.Snapshot()
//	if snap.State == session.StateReady && snap.InConflictState() {
//	    ...
//	}
//
// A Registry keeps one Session per navigation key and evicts idle ones.
package session
