package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	shopifyadapter "github.com/storeboost/storeboost-auth/internal/adapter/shopify"
	"github.com/storeboost/storeboost-auth/internal/apperr"
	"github.com/storeboost/storeboost-auth/internal/domain"
	domainshopify "github.com/storeboost/storeboost-auth/internal/domain/shopify"
	"github.com/storeboost/storeboost-auth/internal/repository"
	"github.com/storeboost/storeboost-auth/internal/shopify"
)

// StoreService owns connected storefronts. The OAuth handshake itself lives
// in the shopify package; this service drives it and takes ownership of the
// resulting credential.
type StoreService struct {
	stores    repository.StoreRepository
	handshake shopify.HandshakeService
	client    shopifyadapter.APIClient
	node      *snowflake.Node
	logger    *zap.Logger
	tracer    trace.Tracer
}

// NewStoreService wires dependencies.
func NewStoreService(stores repository.StoreRepository, handshake shopify.HandshakeService, client shopifyadapter.APIClient, node *snowflake.Node, logger *zap.Logger) *StoreService {
	return &StoreService{
		stores:    stores,
		handshake: handshake,
		client:    client,
		node:      node,
		logger:    logger,
		tracer:    otel.Tracer("github.com/storeboost/storeboost-auth/internal/service"),
	}
}

// BeginConnect starts the OAuth flow and returns the authorization URL the
// merchant is redirected to.
func (s *StoreService) BeginConnect(ctx context.Context, userID int64, shopURL string) (string, error) {
	ctx, span := s.startSpan(ctx, "StoreService.BeginConnect")
	defer span.End()

	if strings.TrimSpace(shopURL) == "" {
		return "", apperr.BadRequest("Missing store URL.")
	}
	authURL, err := s.handshake.Begin(ctx, shopURL, userID, nil)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("begin connect: %w", err)
	}
	return authURL, nil
}

// CompleteConnect finishes the callback leg and persists the resulting
// credential. Distinguishes a bad link (invalid state) from Shopify being
// unreachable so clients can tell the two apart.
func (s *StoreService) CompleteConnect(ctx context.Context, shop, code, state string) (*domain.Store, error) {
	ctx, span := s.startSpan(ctx, "StoreService.CompleteConnect")
	defer span.End()

	cred, err := s.handshake.CompleteCallback(ctx, shop, code, state)
	if err != nil {
		span.RecordError(err)
		switch {
		case errors.Is(err, domainshopify.ErrInvalidState):
			return nil, apperr.Unauthorized("Invalid state parameter.")
		case errors.Is(err, domainshopify.ErrTokenExchangeFailed):
			return nil, apperr.Upstream("Failed to obtain access token.").WithCause(err)
		case errors.Is(err, domainshopify.ErrIdentityFetchFailed):
			return nil, apperr.Upstream("Failed to get shop information.").WithCause(err)
		}
		return nil, fmt.Errorf("complete connect: %w", err)
	}

	store, err := s.persistCredential(ctx, cred)
	if err == nil {
		s.audit("store.connected", "user_id", cred.UserID, "store_url", cred.ShopURL)
	}
	return store, err
}

// AddManual persists a store from a merchant-pasted access token after
// verifying the token can actually read the shop.
func (s *StoreService) AddManual(ctx context.Context, userID int64, shopURL, accessToken, storeName string) (*domain.Store, error) {
	ctx, span := s.startSpan(ctx, "StoreService.AddManual")
	defer span.End()

	shop := shopify.NormalizeShopURL(shopURL)
	if strings.TrimSpace(shopURL) == "" || strings.TrimSpace(accessToken) == "" {
		return nil, apperr.BadRequest("Missing required fields.")
	}
	if !s.client.VerifyAccessToken(ctx, shop, accessToken) {
		return nil, apperr.BadRequest("Invalid Shopify access token.")
	}

	store, err := s.persistCredential(ctx, &domainshopify.StoreCredential{
		UserID:      userID,
		ShopURL:     shop,
		AccessToken: accessToken,
		ShopName:    storeName,
	})
	if err == nil {
		s.audit("store.added", "user_id", userID, "store_url", shop)
	}
	return store, err
}

// List returns the user's connected stores.
func (s *StoreService) List(ctx context.Context, userID int64) ([]domain.Store, error) {
	stores, err := s.stores.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	return stores, nil
}

// Rename updates the display name of a store the user owns.
func (s *StoreService) Rename(ctx context.Context, userID, storeID int64, storeName string) (*domain.Store, error) {
	ctx, span := s.startSpan(ctx, "StoreService.Rename")
	defer span.End()

	if strings.TrimSpace(storeName) == "" {
		return nil, apperr.BadRequest("Missing store name.")
	}
	store, err := s.ownedStore(ctx, userID, storeID)
	if err != nil {
		return nil, err
	}
	if err := s.stores.Rename(ctx, store.ID, storeName); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("rename store: %w", err)
	}
	store.StoreName = storeName
	return store, nil
}

// Delete disconnects a store the user owns.
func (s *StoreService) Delete(ctx context.Context, userID, storeID int64) error {
	ctx, span := s.startSpan(ctx, "StoreService.Delete")
	defer span.End()

	store, err := s.ownedStore(ctx, userID, storeID)
	if err != nil {
		return err
	}
	if err := s.stores.Delete(ctx, store.ID); err != nil {
		span.RecordError(err)
		return fmt.Errorf("delete store: %w", err)
	}
	s.audit("store.deleted", "user_id", userID, "store_url", store.StoreURL)
	return nil
}

func (s *StoreService) persistCredential(ctx context.Context, cred *domainshopify.StoreCredential) (*domain.Store, error) {
	if _, err := s.stores.GetByUserAndURL(ctx, cred.UserID, cred.ShopURL); err == nil {
		return nil, apperr.Conflict("Store already exists for this user.")
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("store lookup: %w", err)
	}

	name := cred.ShopName
	if strings.TrimSpace(name) == "" {
		name = cred.ShopURL
	}
	store, err := s.stores.Create(ctx, domain.Store{
		ID:          s.node.Generate().Int64(),
		UserID:      cred.UserID,
		StoreURL:    cred.ShopURL,
		AccessToken: cred.AccessToken,
		StoreName:   name,
	})
	if err != nil {
		return nil, fmt.Errorf("persist store: %w", err)
	}
	return &store, nil
}

func (s *StoreService) ownedStore(ctx context.Context, userID, storeID int64) (*domain.Store, error) {
	store, err := s.stores.GetByID(ctx, storeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.BadRequest("Store not found.")
		}
		return nil, fmt.Errorf("get store: %w", err)
	}
	if store.UserID != userID {
		return nil, apperr.Forbidden("")
	}
	return &store, nil
}

func (s *StoreService) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if s == nil || s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return s.tracer.Start(ctx, name)
}

func (s *StoreService) audit(event string, attrs ...any) {
	logger := s.log()
	if logger == nil {
		return
	}
	fields := make([]zap.Field, 0, len(attrs)/2+2)
	fields = append(fields, zap.String("event", event), zap.Time("timestamp", time.Now().UTC()))
	for i := 0; i+1 < len(attrs); i += 2 {
		key, ok := attrs[i].(string)
		if !ok {
			continue
		}
		fields = append(fields, zap.Any(key, attrs[i+1]))
	}
	logger.Info("audit", fields...)
}

func (s *StoreService) log() *zap.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return zap.L()
}
