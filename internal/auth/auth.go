// Package auth provides request authentication for the vendor clients.
package auth

import "net/http"

// Applier injects credentials into an outgoing HTTP request. Transports
// call it on every request; a nil Applier means the endpoint authenticates
// some other way, such as a session cookie.
type Applier interface {
	Apply(req *http.Request)
}

// Bearer applies an OAuth bearer token. The owning client swaps Token
// after each refresh, so requests built later pick up the new value.
type Bearer struct {
	Token string
}

// Apply adds the Authorization header when a token is armed.
func (b *Bearer) Apply(req *http.Request) {
	if b == nil || b.Token == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+b.Token)
}
