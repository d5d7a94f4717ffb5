package repository

import (
	"context"
	"time"

	"github.com/storeboost/storeboost-auth/internal/domain"
	"github.com/storeboost/storeboost-auth/internal/domain/shopify"
)

// OrgRepository exposes organization lookups.
type OrgRepository interface {
	GetOrg(ctx context.Context, orgID int64) (domain.Organization, error)
	Create(ctx context.Context, org domain.Organization) (domain.Organization, error)
}

// UserRepository exposes persistence for accounts.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (domain.User, error)
	GetByID(ctx context.Context, userID int64) (domain.User, error)
	Create(ctx context.Context, user domain.User) (domain.User, error)
	UpdatePassword(ctx context.Context, userID int64, passwordHash string) error
	MarkRegistered(ctx context.Context, userID int64, firstName, lastName, passwordHash string) error
	SetActive(ctx context.Context, userID int64, active bool) error
}

// StoreRepository persists connected Shopify storefronts.
type StoreRepository interface {
	Create(ctx context.Context, store domain.Store) (domain.Store, error)
	GetByID(ctx context.Context, storeID int64) (domain.Store, error)
	GetByUserAndURL(ctx context.Context, userID int64, storeURL string) (domain.Store, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Store, error)
	Rename(ctx context.Context, storeID int64, storeName string) error
	Delete(ctx context.Context, storeID int64) error
}

// TokenCache is the single-slot register of the currently honored session
// token per user. Set overwrites any prior entry for the key.
type TokenCache interface {
	Set(ctx context.Context, key, token string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error
}

// OAuthStateStore holds pending Shopify handshakes keyed by state value.
// A nil state with nil error means the key is absent or expired.
type OAuthStateStore interface {
	SaveState(ctx context.Context, key string, data shopify.OAuthState, ttl time.Duration) error
	GetState(ctx context.Context, key string) (*shopify.OAuthState, error)
	DeleteState(ctx context.Context, key string) error
}
