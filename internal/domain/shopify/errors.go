package shopify

import "errors"

var (
	// ErrInvalidState indicates the callback state was never issued, has
	// expired, was already consumed, or was issued for a different shop.
	ErrInvalidState = errors.New("shopify: invalid state")
	// ErrTokenExchangeFailed indicates the code-for-token exchange failed.
	ErrTokenExchangeFailed = errors.New("shopify: token exchange failed")
	// ErrIdentityFetchFailed indicates the shop identity lookup failed.
	ErrIdentityFetchFailed = errors.New("shopify: identity fetch failed")
)
