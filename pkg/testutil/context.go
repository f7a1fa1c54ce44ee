package testutil

import (
	"net/http"
	"time"

	"docverify/pkg/requestcontext"
)

// WithClientID adds an authenticated API client to the request context.
// This simulates what the auth middleware would do for authenticated requests.
func WithClientID(req *http.Request, clientID string) *http.Request {
	return req.WithContext(requestcontext.WithClientID(req.Context(), clientID))
}

// WithTime pins the request-scoped clock.
func WithTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
