package domain

import "time"

// Store is a connected Shopify storefront. AccessToken is the remote admin
// API credential obtained through the OAuth handshake; it is persisted here
// and never echoed back to clients.
type Store struct {
	ID          int64
	UserID      int64
	StoreURL    string
	AccessToken string
	StoreName   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
