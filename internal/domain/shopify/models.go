package shopify

import "time"

// OAuthState captures a pending handshake persisted between Begin and the
// provider callback. Keyed in the state store by its State value.
type OAuthState struct {
	State     string    `json:"state"`
	UserID    int64     `json:"user_id"`
	ShopURL   string    `json:"shop_url"`
	CreatedAt time.Time `json:"created_at"`
}

// AccessTokenResponse models Shopify's token endpoint response.
type AccessTokenResponse struct {
	AccessToken string `json:"access_token"`
	Scope       string `json:"scope"`
}

// ShopInfo is the subset of the shop.json resource the service consumes.
type ShopInfo struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Domain   string `json:"domain"`
	PlanName string `json:"plan_name"`
}

// StoreCredential is the product of a completed handshake. Ownership
// transfers to the store persistence layer immediately; the handshake
// service does not retain it.
type StoreCredential struct {
	UserID      int64
	ShopURL     string
	AccessToken string
	ShopName    string
}
