// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/supportdesk/internal/app/resources"
	"github.com/dalemusser/supportdesk/internal/app/store"
	"github.com/dalemusser/supportdesk/internal/app/system/normalize"
	"github.com/dalemusser/supportdesk/internal/app/system/status"
	"github.com/dalemusser/supportdesk/internal/app/system/timeouts"
	"github.com/dalemusser/supportdesk/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built: shared
// templates, the service graph, the bootstrap admin and background workers.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	resources.LoadSharedTemplates()
	deps.svc.init(appCfg, deps, logger)

	if appCfg.AdminEmail != "" {
		actx, cancel := context.WithTimeout(ctx, timeouts.Medium())
		err := ensureAdmin(actx, deps.Stores.Profiles, appCfg.AdminEmail, appCfg.AdminPassword, logger)
		cancel()
		if err != nil {
			return fmt.Errorf("ensure admin: %w", err)
		}
	}

	if deps.svc.Reconcile != nil {
		deps.svc.Reconcile.Start()
	}
	return nil
}

// ensureAdmin makes sure email belongs to an active admin. A missing account
// is created with password; an existing one is promoted and keeps its
// password.
func ensureAdmin(ctx context.Context, profiles store.Profiles, email, password string, logger *zap.Logger) error {
	email = normalize.Email(email)
	if email == "" {
		return errors.New("admin email is empty")
	}
	existing, err := profiles.FindByEmail(ctx, email)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	for _, p := range existing {
		if models.IsTemporaryID(p.ID) {
			continue
		}
		if p.Role == models.RoleAdmin && p.Status == status.Active {
			logger.Info("admin already present", zap.String("email", email))
			return nil
		}
		logger.Info("promoting user to admin",
			zap.String("email", email),
			zap.String("old_role", string(p.Role)))
		p.Role = models.RoleAdmin
		p.UserType = ""
		p.Status = status.Active
		p.UpdatedAt = &now
		p.UpdatedBy = "startup"
		return profiles.Upsert(ctx, p)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}
	logger.Info("creating admin", zap.String("email", email))
	return profiles.Upsert(ctx, models.UserProfile{
		ID:           uuid.NewString(),
		Email:        email,
		Role:         models.RoleAdmin,
		Status:       status.Active,
		Projects:     []string{},
		PasswordHash: string(hash),
		CreatedAt:    now,
		CreatedBy:    "startup",
	})
}
