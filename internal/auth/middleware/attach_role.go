package auth

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

// RoleLookup resolves the authoritative role of a user id or username.
type RoleLookup interface {
	RoleOf(ctx context.Context, subject string) (string, error) // ErrUnknownUser
}

// AttachRole replaces the token role with the stored one. With allowClaimFallback
// (offline mode) users missing from the directory keep their claim role; otherwise
// they are refused.
func AttachRole(users RoleLookup, allowClaimFallback bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			role, err := users.RoleOf(ctx, SubjectFromContext(ctx))
			switch {
			case err == nil && role != "":
				next.ServeHTTP(w, r.WithContext(rbac.WithRole(ctx, role)))
			case errors.Is(err, ErrUnknownUser) && allowClaimFallback && rbac.RoleFromContext(ctx) != "":
				next.ServeHTTP(w, r)
			default:
				if err != nil && !errors.Is(err, ErrUnknownUser) {
					log.Printf("auth: role lookup: %v", err)
				}
				http.Error(w, "forbidden", http.StatusForbidden)
			}
		})
	}
}
