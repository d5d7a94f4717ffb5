package shopify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	shopifyadapter "github.com/storeboost/storeboost-auth/internal/adapter/shopify"
	domainshopify "github.com/storeboost/storeboost-auth/internal/domain/shopify"
	"github.com/storeboost/storeboost-auth/internal/repository"
)

const (
	statePrefix = "shopify_oauth_state:"
	stateTTL    = time.Hour

	shopSuffix = ".myshopify.com"
)

// DefaultScopes is the access the product requires on a connected store.
var DefaultScopes = []string{
	"read_products", "write_products",
	"read_orders", "write_orders",
	"read_customers", "write_customers",
	"read_inventory", "write_inventory",
	"read_fulfillments", "write_fulfillments",
	"read_shipping", "write_shipping",
	"read_analytics",
	"read_merchant_managed_fulfillment_orders", "write_merchant_managed_fulfillment_orders",
	"read_third_party_fulfillment_orders", "write_third_party_fulfillment_orders",
}

// HandshakeService drives the three-legged Shopify OAuth flow.
type HandshakeService interface {
	Begin(ctx context.Context, shopURL string, userID int64, scopes []string) (string, error)
	CompleteCallback(ctx context.Context, shop, code, state string) (*domainshopify.StoreCredential, error)
}

// Config carries the Shopify app registration the handshake runs under.
type Config struct {
	APIKey      string
	APISecret   string
	CallbackURL string
}

type handshakeService struct {
	states repository.OAuthStateStore
	client shopifyadapter.APIClient
	cfg    Config
	logger *zap.Logger
	now    func() time.Time
}

// NewHandshakeService wires the handshake implementation.
func NewHandshakeService(states repository.OAuthStateStore, client shopifyadapter.APIClient, cfg Config, logger *zap.Logger) HandshakeService {
	return &handshakeService{
		states: states,
		client: client,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Begin normalizes the shop domain, derives the state value, persists the
// pending handshake, and returns the authorization URL the merchant is
// redirected to. The state is a keyed hash of the shop domain: it cannot be
// forged without the app secret, and the stored record pins it to the
// initiating user for the callback check.
func (s *handshakeService) Begin(ctx context.Context, shopURL string, userID int64, scopes []string) (string, error) {
	shop := NormalizeShopURL(shopURL)
	if shop == shopSuffix {
		return "", fmt.Errorf("empty shop url")
	}
	if len(scopes) == 0 {
		scopes = DefaultScopes
	}

	state := deriveState(s.cfg.APISecret, shop)
	record := domainshopify.OAuthState{
		State:     state,
		UserID:    userID,
		ShopURL:   shop,
		CreatedAt: s.now().UTC(),
	}
	if err := s.states.SaveState(ctx, stateKey(state), record, stateTTL); err != nil {
		return "", fmt.Errorf("persist state: %w", err)
	}

	params := url.Values{}
	params.Set("client_id", s.cfg.APIKey)
	params.Set("scope", strings.Join(scopes, ","))
	params.Set("redirect_uri", s.cfg.CallbackURL)
	params.Set("state", state)

	return fmt.Sprintf("https://%s/admin/oauth/authorize?%s", shop, params.Encode()), nil
}

// CompleteCallback verifies the state, exchanges the code, fetches the shop
// identity, and consumes the state. The state entry is deleted only after
// both remote calls succeed: a handshake that dies on an upstream failure
// stays retryable until its TTL, while a completed one can never be
// replayed.
func (s *handshakeService) CompleteCallback(ctx context.Context, shop, code, state string) (*domainshopify.StoreCredential, error) {
	stored, err := s.states.GetState(ctx, stateKey(state))
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	if stored == nil || stored.UserID == 0 || stored.ShopURL != shop {
		return nil, domainshopify.ErrInvalidState
	}

	tokenResp, err := s.client.ExchangeCode(ctx, shop, s.cfg.APIKey, s.cfg.APISecret, code)
	if err != nil {
		s.log().Warn("shopify token exchange failed", zap.String("shop", shop), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domainshopify.ErrTokenExchangeFailed, err)
	}
	if strings.TrimSpace(tokenResp.AccessToken) == "" {
		return nil, domainshopify.ErrTokenExchangeFailed
	}

	info, err := s.client.FetchShopInfo(ctx, shop, tokenResp.AccessToken)
	if err != nil {
		s.log().Warn("shopify shop info fetch failed", zap.String("shop", shop), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domainshopify.ErrIdentityFetchFailed, err)
	}

	if err := s.states.DeleteState(ctx, stateKey(state)); err != nil {
		s.log().Warn("failed to delete oauth state", zap.Error(err))
	}

	return &domainshopify.StoreCredential{
		UserID:      stored.UserID,
		ShopURL:     shop,
		AccessToken: tokenResp.AccessToken,
		ShopName:    info.Name,
	}, nil
}

func (s *handshakeService) log() *zap.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return zap.L()
}

// NormalizeShopURL maps a merchant-entered shop name to its canonical
// myshopify domain.
func NormalizeShopURL(shopURL string) string {
	shop := strings.ToLower(strings.TrimSpace(shopURL))
	if !strings.HasSuffix(shop, shopSuffix) {
		shop += shopSuffix
	}
	return shop
}

func deriveState(secret, shop string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(shop))
	return hex.EncodeToString(mac.Sum(nil))
}

func stateKey(state string) string {
	return statePrefix + strings.TrimSpace(state)
}
