package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	domainshopify "github.com/storeboost/storeboost-auth/internal/domain/shopify"
)

const adminAPIVersion = "2024-01"

// APIClient encapsulates outbound HTTP calls to the Shopify admin API.
type APIClient interface {
	ExchangeCode(ctx context.Context, shop, clientID, clientSecret, code string) (*domainshopify.AccessTokenResponse, error)
	FetchShopInfo(ctx context.Context, shop, accessToken string) (*domainshopify.ShopInfo, error)
	VerifyAccessToken(ctx context.Context, shop, accessToken string) bool
}

// HTTPAPIClient is the default HTTP implementation.
type HTTPAPIClient struct {
	httpClient *http.Client
}

var _ APIClient = (*HTTPAPIClient)(nil)

// NewHTTPAPIClient constructs the default client. The timeout bounds both
// handshake calls so a slow shop cannot hang a callback indefinitely.
func NewHTTPAPIClient(client *http.Client) *HTTPAPIClient {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPAPIClient{httpClient: client}
}

// ExchangeCode redeems an authorization code for a permanent access token.
func (c *HTTPAPIClient) ExchangeCode(ctx context.Context, shop, clientID, clientSecret, code string) (*domainshopify.AccessTokenResponse, error) {
	data := url.Values{}
	data.Set("client_id", clientID)
	data.Set("client_secret", clientSecret)
	data.Set("code", code)

	endpoint := fmt.Sprintf("https://%s/admin/oauth/access_token", shop)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token exchange request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("token exchange failed: status=%d", resp.StatusCode)
	}

	var token domainshopify.AccessTokenResponse
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	return &token, nil
}

// FetchShopInfo loads the shop resource identified by the access token.
func (c *HTTPAPIClient) FetchShopInfo(ctx context.Context, shop, accessToken string) (*domainshopify.ShopInfo, error) {
	endpoint := fmt.Sprintf("https://%s/admin/api/%s/shop.json", shop, adminAPIVersion)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build shop request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("shop info request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read shop info: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("shop info failed: status=%d", resp.StatusCode)
	}

	var payload struct {
		Shop domainshopify.ShopInfo `json:"shop"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode shop info: %w", err)
	}
	return &payload.Shop, nil
}

// VerifyAccessToken reports whether the token can read the shop resource.
// Used when a merchant pastes a token instead of running the OAuth flow.
func (c *HTTPAPIClient) VerifyAccessToken(ctx context.Context, shop, accessToken string) bool {
	_, err := c.FetchShopInfo(ctx, shop, accessToken)
	return err == nil
}
