package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/icon-gallery/internal/auth"
)

// RoleChecker answers whether a user holds the admin role. Implemented by
// the user service; an interface here keeps the middleware testable
// without a database.
type RoleChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// RequireAdmin gates a route group to admins. It must run after
// auth.RequireAuth — the user ID has to be in the context already. The
// role is checked against the database on every request, so a demotion
// takes effect immediately instead of when the JWT expires.
func RequireAdmin(roles RoleChecker, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := auth.UserIDFromContext(r.Context())
			if !ok {
				writeForbidden(w, http.StatusUnauthorized, "unauthorized", "valid authentication required")
				return
			}

			isAdmin, err := roles.IsAdmin(r.Context(), userID)
			if err != nil {
				logger.Error("admin check failed",
					slog.String("userID", userID),
					slog.String("error", err.Error()),
				)
				writeForbidden(w, http.StatusForbidden, "forbidden", "admin access required")
				return
			}
			if !isAdmin {
				writeForbidden(w, http.StatusForbidden, "forbidden", "admin access required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func writeForbidden(w http.ResponseWriter, status int, errType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + errType + `","message":"` + message + `"}`))
}
