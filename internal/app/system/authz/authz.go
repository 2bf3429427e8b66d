// internal/app/system/authz/authz.go
package authz

import (
	"net/http"

	"github.com/dalemusser/supportdesk/internal/app/system/auth"
	"github.com/dalemusser/supportdesk/internal/app/system/guard"
	"github.com/dalemusser/supportdesk/internal/domain/models"
)

// UserCtx returns the caller's role (resolved by the guard middleware),
// email, uid, and a found flag. ok is false unless the request carries both
// an identity and a resolved role, so callers can trust that ok=true means
// an authenticated user whose profile is live.
func UserCtx(r *http.Request) (role models.Role, email string, uid string, ok bool) {
	id, signed := auth.CurrentIdentity(r)
	if !signed {
		return "", "", "", false
	}
	role, hasRole := guard.RoleFrom(r.Context())
	if !hasRole {
		return "", id.Email, id.UID, false
	}
	return role, id.Email, id.UID, true
}

// IsAdmin reports whether the current request's user is an admin.
func IsAdmin(r *http.Request) bool {
	return HasRole(r, models.RoleAdmin)
}

// IsClientFamily reports whether the caller is a client or client head.
func IsClientFamily(r *http.Request) bool {
	role, _, _, ok := UserCtx(r)
	return ok && role.IsClient()
}
