// Package middlewares holds the HTTP middleware specific to this service.
package middlewares

import (
	"net/http"

	"github.com/ovenworks/bakehouse/internal/identity"
)

// Headers set by the fronting auth layer after token verification. This
// service trusts them and performs authorization checks only.
const (
	HeaderUserID = "X-User-Id"
	HeaderRole   = "X-User-Role"
)

// RequireIdentity extracts the verified (user, role) pair from the request
// headers and attaches it to the context. Requests without a usable identity
// are rejected with 401 before reaching any handler.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := r.Header.Get(HeaderUserID)
		role := identity.Role(r.Header.Get(HeaderRole))

		if userID == "" || !role.Valid() {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"authentication_error","message":"missing or invalid identity"}`))
			return
		}

		ctx := identity.WithIdentity(r.Context(), identity.Identity{UserID: userID, Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
