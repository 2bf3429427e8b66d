package auth

import (
	"context"
	"errors"

	"github.com/dalemusser/supportdesk/internal/app/store"
	"github.com/dalemusser/supportdesk/internal/app/system/auditlog"
	"github.com/dalemusser/supportdesk/internal/app/system/session"
	"github.com/dalemusser/supportdesk/internal/app/system/status"
	"github.com/dalemusser/supportdesk/internal/app/system/timeouts"
	"github.com/dalemusser/supportdesk/internal/domain/models"
	"go.uber.org/zap"
)

// ProfileGetter loads a profile by its key.
type ProfileGetter interface {
	GetByID(ctx context.Context, id string) (models.UserProfile, error)
}

// SignOuter ends every live session of an identity.
type SignOuter interface {
	SignOut(id session.Identity)
}

// Resolver maps an identity to its role through the profile store.
type Resolver struct {
	profiles ProfileGetter
	signOut  SignOuter
	audit    *auditlog.Logger
	logger   *zap.Logger
}

// NewResolver builds a Resolver. signOut and audit may be nil.
func NewResolver(profiles ProfileGetter, signOut SignOuter, audit *auditlog.Logger, logger *zap.Logger) *Resolver {
	return &Resolver{profiles: profiles, signOut: signOut, audit: audit, logger: logger}
}

// ResolveRole returns the profile role for id.
//
// A missing or disabled profile yields false and forces a sign-out of id.
// Lookup errors yield false and are only logged.
func (res *Resolver) ResolveRole(ctx context.Context, id session.Identity) (models.Role, bool) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	p, err := res.profiles.GetByID(ctx, id.UID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		res.forceSignOut(ctx, id, "profile not found")
		return "", false
	case err != nil:
		res.logger.Warn("role lookup failed",
			zap.String("uid", id.UID),
			zap.Error(err))
		return "", false
	case p.Status == status.Disabled:
		res.forceSignOut(ctx, id, "profile disabled")
		return "", false
	}
	if _, ok := models.ParseRole(string(p.Role)); !ok {
		res.logger.Warn("profile has unknown role",
			zap.String("uid", id.UID),
			zap.String("role", string(p.Role)))
		return "", false
	}
	return p.Role, true
}

func (res *Resolver) forceSignOut(ctx context.Context, id session.Identity, reason string) {
	res.logger.Info("forcing sign-out",
		zap.String("uid", id.UID),
		zap.String("reason", reason))
	res.audit.ForcedSignOut(ctx, id.UID, reason)
	if res.signOut != nil {
		res.signOut.SignOut(id)
	}
}
