// Package client talks to the panel's client API to load server identities
// and daemon websocket credentials.
//
// Client implements session.Loader:
//
//	c, err := client.New("https://panel.example.com", apiKey,
//	    client.WithTimeout(10*time.Second))
//	sess := session.New(c, session.WithFormatter(client.HumanError))
//
// API failures are returned as *APIError. HumanError turns any error into
// the sentence shown on the error screen.
package client
