package handler

import (
	"net/http"

	"github.com/tradecove/tradecove-api/internal/auth"
)

// callerExternalID pulls the authenticated identity out of the request
// context. Routes behind the auth middleware always have one; a miss
// means the route was wired without it.
func callerExternalID(r *http.Request) (string, *AppError) {
	id, ok := auth.ExternalIDFromContext(r.Context())
	if !ok || id == "" {
		return "", ErrMissingToken
	}
	return id, nil
}
