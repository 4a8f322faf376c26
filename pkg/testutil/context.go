package testutil

import (
	"context"
	"net/http"

	authmw "gatherhall/pkg/platform/middleware/auth"
	"gatherhall/pkg/requestcontext"

	id "gatherhall/pkg/domain"
)

// WithUserID adds a user ID to the request context.
// This simulates what the auth middleware would do for authenticated requests.
// If the userID is not a valid UUID, it will not be added to the context.
func WithUserID(req *http.Request, userID string) *http.Request {
	if parsedUserID, err := id.ParseUserID(userID); err == nil {
		return req.WithContext(requestcontext.WithUserID(req.Context(), parsedUserID))
	}
	return req
}

// WithRole adds a role to the request context, as the auth middleware
// would after validating a token.
func WithRole(req *http.Request, role string) *http.Request {
	ctx := context.WithValue(req.Context(), authmw.ContextKeyRole, role)
	return req.WithContext(ctx)
}

// WithAuth adds both user ID and role to the request context.
// This is the typical state for an authenticated request.
// An invalid user ID is silently ignored.
func WithAuth(req *http.Request, userID, role string) *http.Request {
	req = WithUserID(req, userID)
	if role != "" {
		req = WithRole(req, role)
	}
	return req
}

// WithContextValue adds an arbitrary key-value pair to the request context.
func WithContextValue(req *http.Request, key, value any) *http.Request {
	ctx := context.WithValue(req.Context(), key, value)
	return req.WithContext(ctx)
}
