package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/storeboost/storeboost-auth/internal/config"
	"github.com/storeboost/storeboost-auth/internal/domain"
	"github.com/storeboost/storeboost-auth/internal/password"
	"github.com/storeboost/storeboost-auth/internal/repository"
)

// EnsureAdmin seeds the default organization and its admin account on
// startup when they do not exist yet.
func EnsureAdmin(lc fx.Lifecycle, cfg config.Config, users repository.UserRepository, orgs repository.OrgRepository, node *snowflake.Node, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return ensureAdmin(ctx, cfg, users, orgs, node, logger)
		},
	})
}

func ensureAdmin(ctx context.Context, cfg config.Config, users repository.UserRepository, orgs repository.OrgRepository, node *snowflake.Node, logger *zap.Logger) error {
	email := strings.ToLower(strings.TrimSpace(cfg.AdminEmail))
	if email == "" || strings.TrimSpace(cfg.AdminPassword) == "" || cfg.DefaultOrgID == 0 {
		return fmt.Errorf("admin bootstrap missing required config")
	}

	if _, err := orgs.GetOrg(ctx, cfg.DefaultOrgID); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("bootstrap org lookup: %w", err)
		}
		org := domain.Organization{
			ID:        cfg.DefaultOrgID,
			Name:      cfg.DefaultOrgName,
			CreatedAt: time.Now().UTC(),
		}
		if _, err := orgs.Create(ctx, org); err != nil {
			return fmt.Errorf("bootstrap create org: %w", err)
		}
	}

	if _, err := users.GetByEmail(ctx, email); err == nil {
		return nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("bootstrap lookup user: %w", err)
	}

	hashed, err := password.Hash(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("bootstrap hash password: %w", err)
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:           node.Generate().Int64(),
		OrgID:        cfg.DefaultOrgID,
		Email:        email,
		PasswordHash: hashed,
		FirstName:    "Admin",
		RoleID:       domain.RoleAdmin,
		IsActive:     true,
		Registered:   true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := users.Create(ctx, user)
	if err != nil {
		return fmt.Errorf("bootstrap create user: %w", err)
	}

	if logger != nil {
		logger.Info("bootstrap admin user created",
			zap.String("email", created.Email),
			zap.Int64("org_id", cfg.DefaultOrgID),
			zap.Int64("user_id", created.ID),
		)
	}
	return nil
}
