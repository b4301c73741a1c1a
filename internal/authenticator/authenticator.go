// Package authenticator defines the middleware contract the router expects
// from the session layer.
package authenticator

import "net/http"

type Authenticator interface {
	AuthenticateUser(h http.Handler) http.Handler
	RequireUser(h http.Handler) http.Handler
	TrackVisitor(h http.Handler) http.Handler
	IssueSession(response http.ResponseWriter, userID string) error
	ClearSession(response http.ResponseWriter)
}
