package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/storeboost/storeboost-auth/internal/domain"
	domainshopify "github.com/storeboost/storeboost-auth/internal/domain/shopify"
	"github.com/storeboost/storeboost-auth/internal/service"
)

type memoryStoreRepo struct {
	mu   sync.Mutex
	byID map[int64]domain.Store
}

func newMemoryStoreRepo() *memoryStoreRepo {
	return &memoryStoreRepo{byID: map[int64]domain.Store{}}
}

func (m *memoryStoreRepo) Create(ctx context.Context, store domain.Store) (domain.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[store.ID] = store
	return store, nil
}

func (m *memoryStoreRepo) GetByID(ctx context.Context, storeID int64) (domain.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	store, ok := m.byID[storeID]
	if !ok {
		return domain.Store{}, pgx.ErrNoRows
	}
	return store, nil
}

func (m *memoryStoreRepo) GetByUserAndURL(ctx context.Context, userID int64, storeURL string) (domain.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, store := range m.byID {
		if store.UserID == userID && store.StoreURL == storeURL {
			return store, nil
		}
	}
	return domain.Store{}, pgx.ErrNoRows
}

func (m *memoryStoreRepo) ListByUser(ctx context.Context, userID int64) ([]domain.Store, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Store
	for _, store := range m.byID {
		if store.UserID == userID {
			out = append(out, store)
		}
	}
	return out, nil
}

func (m *memoryStoreRepo) Rename(ctx context.Context, storeID int64, storeName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	store := m.byID[storeID]
	store.StoreName = storeName
	m.byID[storeID] = store
	return nil
}

func (m *memoryStoreRepo) Delete(ctx context.Context, storeID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.byID, storeID)
	return nil
}

type fakeHandshake struct {
	authURL string
	cred    *domainshopify.StoreCredential
	err     error
}

func (f *fakeHandshake) Begin(ctx context.Context, shopURL string, userID int64, scopes []string) (string, error) {
	return f.authURL, nil
}

func (f *fakeHandshake) CompleteCallback(ctx context.Context, shop, code, state string) (*domainshopify.StoreCredential, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.cred, nil
}

type fakeVerifier struct {
	valid bool
}

func (f *fakeVerifier) ExchangeCode(ctx context.Context, shop, clientID, clientSecret, code string) (*domainshopify.AccessTokenResponse, error) {
	return nil, errors.New("not used")
}

func (f *fakeVerifier) FetchShopInfo(ctx context.Context, shop, accessToken string) (*domainshopify.ShopInfo, error) {
	return nil, errors.New("not used")
}

func (f *fakeVerifier) VerifyAccessToken(ctx context.Context, shop, accessToken string) bool {
	return f.valid
}

func newStoreFixture(t *testing.T, handshake *fakeHandshake, verifier *fakeVerifier) (*service.StoreService, *memoryStoreRepo) {
	t.Helper()
	repo := newMemoryStoreRepo()
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)
	if handshake == nil {
		handshake = &fakeHandshake{}
	}
	if verifier == nil {
		verifier = &fakeVerifier{valid: true}
	}
	svc := service.NewStoreService(repo, handshake, verifier, node, zap.NewNop())
	return svc, repo
}

func TestBeginConnect(t *testing.T) {
	ctx := context.Background()
	svc, _ := newStoreFixture(t, &fakeHandshake{authURL: "https://acme.myshopify.com/admin/oauth/authorize?x=1"}, nil)

	authURL, err := svc.BeginConnect(ctx, 42, "acme")
	require.NoError(t, err)
	require.Contains(t, authURL, "oauth/authorize")

	_, err = svc.BeginConnect(ctx, 42, "   ")
	requireStatus(t, err, 400)
}

func TestCompleteConnectPersistsStore(t *testing.T) {
	ctx := context.Background()
	handshake := &fakeHandshake{cred: &domainshopify.StoreCredential{
		UserID:      42,
		ShopURL:     "acme.myshopify.com",
		AccessToken: "tok123",
		ShopName:    "Acme Co",
	}}
	svc, repo := newStoreFixture(t, handshake, nil)

	store, err := svc.CompleteConnect(ctx, "acme.myshopify.com", "code", "state")
	require.NoError(t, err)
	require.Equal(t, int64(42), store.UserID)
	require.Equal(t, "acme.myshopify.com", store.StoreURL)
	require.Equal(t, "tok123", store.AccessToken)
	require.Equal(t, "Acme Co", store.StoreName)

	persisted, err := repo.GetByID(ctx, store.ID)
	require.NoError(t, err)
	require.Equal(t, "tok123", persisted.AccessToken)

	// Connecting the same shop again for the same user conflicts.
	_, err = svc.CompleteConnect(ctx, "acme.myshopify.com", "code", "state")
	requireStatus(t, err, 409)
}

func TestCompleteConnectErrorMapping(t *testing.T) {
	ctx := context.Background()

	svc, _ := newStoreFixture(t, &fakeHandshake{err: domainshopify.ErrInvalidState}, nil)
	_, err := svc.CompleteConnect(ctx, "acme.myshopify.com", "code", "state")
	requireStatus(t, err, 401)

	svc, _ = newStoreFixture(t, &fakeHandshake{err: domainshopify.ErrTokenExchangeFailed}, nil)
	_, err = svc.CompleteConnect(ctx, "acme.myshopify.com", "code", "state")
	requireStatus(t, err, 502)

	svc, _ = newStoreFixture(t, &fakeHandshake{err: domainshopify.ErrIdentityFetchFailed}, nil)
	_, err = svc.CompleteConnect(ctx, "acme.myshopify.com", "code", "state")
	requireStatus(t, err, 502)
}

func TestAddManual(t *testing.T) {
	ctx := context.Background()
	svc, _ := newStoreFixture(t, nil, &fakeVerifier{valid: true})

	store, err := svc.AddManual(ctx, 42, "acme", "tok123", "Acme Co")
	require.NoError(t, err)
	require.Equal(t, "acme.myshopify.com", store.StoreURL)
	require.Equal(t, "Acme Co", store.StoreName)

	_, err = svc.AddManual(ctx, 42, "acme", "", "Acme Co")
	requireStatus(t, err, 400)
}

func TestAddManualRejectsBadToken(t *testing.T) {
	svc, _ := newStoreFixture(t, nil, &fakeVerifier{valid: false})
	_, err := svc.AddManual(context.Background(), 42, "acme", "bad-token", "")
	requireStatus(t, err, 400)
}

func TestRenameAndDeleteEnforceOwnership(t *testing.T) {
	ctx := context.Background()
	svc, repo := newStoreFixture(t, nil, nil)

	store, err := svc.AddManual(ctx, 42, "acme", "tok", "Acme")
	require.NoError(t, err)

	renamed, err := svc.Rename(ctx, 42, store.ID, "Acme Renamed")
	require.NoError(t, err)
	require.Equal(t, "Acme Renamed", renamed.StoreName)

	_, err = svc.Rename(ctx, 99, store.ID, "Hijack")
	requireStatus(t, err, 403)

	_, err = svc.Rename(ctx, 42, 12345, "Ghost")
	requireStatus(t, err, 400)

	requireStatus(t, svc.Delete(ctx, 99, store.ID), 403)
	require.NoError(t, svc.Delete(ctx, 42, store.ID))
	_, err = repo.GetByID(ctx, store.ID)
	require.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestListReturnsOnlyOwnStores(t *testing.T) {
	ctx := context.Background()
	svc, _ := newStoreFixture(t, nil, nil)

	_, err := svc.AddManual(ctx, 42, "acme", "tok1", "Acme")
	require.NoError(t, err)
	_, err = svc.AddManual(ctx, 42, "globex", "tok2", "Globex")
	require.NoError(t, err)
	_, err = svc.AddManual(ctx, 7, "initech", "tok3", "Initech")
	require.NoError(t, err)

	stores, err := svc.List(ctx, 42)
	require.NoError(t, err)
	require.Len(t, stores, 2)
	for _, store := range stores {
		require.Equal(t, int64(42), store.UserID)
	}
}
