// Package events follows a server's daemon websocket and applies lifecycle
// changes to the navigation session that loaded it.
//
// A Listener is bound to the session generation current when it starts.
// Once the session moves to another server every update from the listener
// is refused and the listener stops, so a slow daemon connection can never
// mark the wrong server as installing or transferring.
package events
