package handlers

import (
	"net/http"

	"github.com/hiruy72/mobile-movie-app/internal/identity"
)

// MiddlewareRequireIdentity rejects requests that did not carry a valid
// provider token. Browse and search stay open to guests; this guards
// the profile routes only.
func (h *Handler) MiddlewareRequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := identity.FromContext(r.Context()); !ok {
			writeJSON(w, http.StatusUnauthorized, &errorResponse{Error: "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}
