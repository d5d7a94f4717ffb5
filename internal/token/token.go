package token

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	gojose "github.com/go-jose/go-jose/v4"
	gojwt "github.com/go-jose/go-jose/v4/jwt"

	"github.com/storeboost/storeboost-auth/internal/domain"
	"github.com/storeboost/storeboost-auth/internal/repository"
)

// ErrInvalidToken is the sentinel for any token that fails verification:
// bad signature, malformed payload, stale issued-at, or superseded/revoked
// in the cache. Callers translate it to an Unauthorized response; it is
// never an exceptional condition.
var ErrInvalidToken = errors.New("token: invalid token")

const cacheKeyPrefix = "user:"

// Claims is the payload embedded in a session token. The password hash and
// any other credential material never appear here.
type Claims struct {
	UserID int64 `json:"user_id"`
	OrgID  int64 `json:"org_id"`
	RoleID int   `json:"role_id"`
}

// Service issues, verifies, and revokes signed session tokens. The cache
// acts as a single-slot register of the currently honored token per user:
// issuing overwrites, so at most one session per account is live.
type Service struct {
	secret []byte
	cache  repository.TokenCache
	maxAge time.Duration
	now    func() time.Time
}

// NewService constructs the token service. maxAge bounds both the signed
// lifetime and the cache TTL so the two expiries stay in lockstep.
func NewService(secret []byte, cache repository.TokenCache, maxAge time.Duration) *Service {
	return &Service{
		secret: secret,
		cache:  cache,
		maxAge: maxAge,
		now:    time.Now,
	}
}

// MaxAge returns the configured session lifetime.
func (s *Service) MaxAge() time.Duration {
	return s.maxAge
}

// IssueFor issues a session token carrying the user's identity claims.
func (s *Service) IssueFor(ctx context.Context, user domain.User) (string, error) {
	return s.Issue(ctx, Claims{UserID: user.ID, OrgID: user.OrgID, RoleID: user.RoleID})
}

// Issue signs the claims with an issued-at timestamp and records the result
// as the user's current token. Any previously issued token for the same
// user is implicitly invalidated by the overwrite.
func (s *Service) Issue(ctx context.Context, claims Claims) (string, error) {
	signer, err := gojose.NewSigner(
		gojose.SigningKey{Algorithm: gojose.HS256, Key: s.secret},
		(&gojose.SignerOptions{}).WithType("JWT"),
	)
	if err != nil {
		return "", fmt.Errorf("new signer: %w", err)
	}

	now := s.now().UTC()
	std := gojwt.Claims{
		Subject:  strconv.FormatInt(claims.UserID, 10),
		IssuedAt: gojwt.NewNumericDate(now),
	}

	signed, err := gojwt.Signed(signer).Claims(std).Claims(claims).Serialize()
	if err != nil {
		return "", fmt.Errorf("serialize token: %w", err)
	}

	if err := s.cache.Set(ctx, cacheKey(claims.UserID), signed, s.maxAge); err != nil {
		return "", fmt.Errorf("register token: %w", err)
	}
	return signed, nil
}

// Verify checks the token's signature, its age against maxAge, and finally
// that the cache still holds this exact string for the embedded user. All
// three must pass; the first failure wins and yields ErrInvalidToken.
func (s *Service) Verify(ctx context.Context, token string, maxAge time.Duration) (*Claims, error) {
	parsed, err := gojwt.ParseSigned(token, []gojose.SignatureAlgorithm{gojose.HS256})
	if err != nil {
		return nil, ErrInvalidToken
	}

	var std gojwt.Claims
	var claims Claims
	if err := parsed.Claims(s.secret, &std, &claims); err != nil {
		return nil, ErrInvalidToken
	}
	if std.IssuedAt == nil || claims.UserID == 0 {
		return nil, ErrInvalidToken
	}
	if s.now().Sub(std.IssuedAt.Time()) > maxAge {
		return nil, ErrInvalidToken
	}

	cached, err := s.cache.Get(ctx, cacheKey(claims.UserID))
	if err != nil {
		return nil, fmt.Errorf("load current token: %w", err)
	}
	if cached == "" || cached != token {
		return nil, ErrInvalidToken
	}
	return &claims, nil
}

// Revoke ends the user's session. With an empty token the current session
// is dropped unconditionally; with a token, only when it is still the one
// on record, so a stale client cannot revoke a newer login. Revoking an
// absent session is a no-op.
func (s *Service) Revoke(ctx context.Context, userID int64, token string) error {
	key := cacheKey(userID)
	if token != "" {
		cached, err := s.cache.Get(ctx, key)
		if err != nil {
			return fmt.Errorf("load current token: %w", err)
		}
		if cached != token {
			return nil
		}
	}
	if err := s.cache.Delete(ctx, key); err != nil {
		return fmt.Errorf("drop token: %w", err)
	}
	return nil
}

func cacheKey(userID int64) string {
	return cacheKeyPrefix + strconv.FormatInt(userID, 10)
}
