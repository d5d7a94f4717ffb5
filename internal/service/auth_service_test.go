package service_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/storeboost/storeboost-auth/internal/apperr"
	"github.com/storeboost/storeboost-auth/internal/config"
	"github.com/storeboost/storeboost-auth/internal/domain"
	"github.com/storeboost/storeboost-auth/internal/password"
	"github.com/storeboost/storeboost-auth/internal/service"
	"github.com/storeboost/storeboost-auth/internal/token"
)

type memoryUserRepo struct {
	mu   sync.Mutex
	byID map[int64]domain.User
}

func newMemoryUserRepo(users ...domain.User) *memoryUserRepo {
	repo := &memoryUserRepo{byID: map[int64]domain.User{}}
	for _, u := range users {
		repo.byID[u.ID] = u
	}
	return repo
}

func (m *memoryUserRepo) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

func (m *memoryUserRepo) GetByID(ctx context.Context, userID int64) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.byID[userID]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (m *memoryUserRepo) Create(ctx context.Context, user domain.User) (domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byID[user.ID] = user
	return user, nil
}

func (m *memoryUserRepo) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.byID[userID]
	u.PasswordHash = passwordHash
	m.byID[userID] = u
	return nil
}

func (m *memoryUserRepo) MarkRegistered(ctx context.Context, userID int64, firstName, lastName, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.byID[userID]
	u.FirstName = firstName
	u.LastName = lastName
	u.PasswordHash = passwordHash
	u.Registered = true
	u.IsInvited = false
	m.byID[userID] = u
	return nil
}

func (m *memoryUserRepo) SetActive(ctx context.Context, userID int64, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u := m.byID[userID]
	u.IsActive = active
	m.byID[userID] = u
	return nil
}

type memoryOrgRepo struct {
	org domain.Organization
}

func (m *memoryOrgRepo) GetOrg(ctx context.Context, orgID int64) (domain.Organization, error) {
	if orgID != m.org.ID {
		return domain.Organization{}, pgx.ErrNoRows
	}
	return m.org, nil
}

func (m *memoryOrgRepo) Create(ctx context.Context, org domain.Organization) (domain.Organization, error) {
	m.org = org
	return org, nil
}

type memoryTokenCache struct {
	mu      sync.Mutex
	entries map[string]string
}

func newMemoryTokenCache() *memoryTokenCache {
	return &memoryTokenCache{entries: map[string]string{}}
}

func (m *memoryTokenCache) Set(ctx context.Context, key, tok string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = tok
	return nil
}

func (m *memoryTokenCache) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.entries[key], nil
}

func (m *memoryTokenCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

type memoryMailer struct {
	to      []string
	subject []string
	body    []string
	fail    bool
}

func (m *memoryMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if m.fail {
		return context.DeadlineExceeded
	}
	m.to = append(m.to, to)
	m.subject = append(m.subject, subject)
	m.body = append(m.body, htmlBody)
	return nil
}

type authFixture struct {
	svc    *service.AuthService
	tokens *token.Service
	users  *memoryUserRepo
	cache  *memoryTokenCache
	mailer *memoryMailer
	cfg    config.Config
}

func newAuthFixture(t *testing.T, users ...domain.User) *authFixture {
	t.Helper()
	userRepo := newMemoryUserRepo(users...)
	orgRepo := &memoryOrgRepo{org: domain.Organization{ID: 1, Name: "Storeboost"}}
	cache := newMemoryTokenCache()
	tokens := token.NewService([]byte("test-secret-0123456789abcdefghij"), cache, time.Hour)
	mailer := &memoryMailer{}
	cfg := config.Config{
		DefaultOrgID:     1,
		PasswordResetURL: "https://app.example.com/reset",
		RegistrationURL:  "https://app.example.com/register",
	}
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := service.NewAuthService(userRepo, orgRepo, tokens, mailer, node, cfg, zap.NewNop())
	return &authFixture{svc: svc, tokens: tokens, users: userRepo, cache: cache, mailer: mailer, cfg: cfg}
}

func registeredUser(t *testing.T, id int64, email, plaintext string) domain.User {
	t.Helper()
	hash, err := password.Hash(plaintext)
	require.NoError(t, err)
	return domain.User{
		ID:           id,
		OrgID:        1,
		Email:        email,
		PasswordHash: hash,
		FirstName:    "Test",
		RoleID:       domain.RoleMember,
		IsActive:     true,
		Registered:   true,
	}
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, registeredUser(t, 10, "user@example.com", "hunter22"))

	result, err := f.svc.Login(ctx, "User@Example.com", "hunter22")
	require.NoError(t, err)
	require.NotEmpty(t, result.Token)
	require.Equal(t, int64(10), result.User.ID)
	require.Equal(t, "Storeboost", result.Org.Name)

	claims, err := f.tokens.Verify(ctx, result.Token, f.tokens.MaxAge())
	require.NoError(t, err)
	require.Equal(t, int64(10), claims.UserID)
}

func TestLoginFailures(t *testing.T) {
	ctx := context.Background()
	user := registeredUser(t, 10, "user@example.com", "hunter22")
	suspended := registeredUser(t, 11, "suspended@example.com", "hunter22")
	suspended.IsActive = false
	invited := registeredUser(t, 12, "invited@example.com", "hunter22")
	invited.Registered = false
	f := newAuthFixture(t, user, suspended, invited)

	_, err := f.svc.Login(ctx, "unknown@example.com", "hunter22")
	requireStatus(t, err, 400)

	_, err = f.svc.Login(ctx, "user@example.com", "wrong")
	requireStatus(t, err, 400)

	_, err = f.svc.Login(ctx, "suspended@example.com", "hunter22")
	requireStatus(t, err, 403)

	_, err = f.svc.Login(ctx, "invited@example.com", "hunter22")
	requireStatus(t, err, 401)
}

func TestSecondLoginSupersedesFirst(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, registeredUser(t, 10, "user@example.com", "hunter22"))

	first, err := f.svc.Login(ctx, "user@example.com", "hunter22")
	require.NoError(t, err)
	second, err := f.svc.Login(ctx, "user@example.com", "hunter22")
	require.NoError(t, err)

	if first.Token != second.Token {
		_, err = f.tokens.Verify(ctx, first.Token, f.tokens.MaxAge())
		require.ErrorIs(t, err, token.ErrInvalidToken)
	}
	_, err = f.tokens.Verify(ctx, second.Token, f.tokens.MaxAge())
	require.NoError(t, err)
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	result, err := f.svc.Register(ctx, service.RegisterInput{
		Email:     "New@Example.com",
		Password:  "hunter22",
		FirstName: "New",
		LastName:  "User",
	})
	require.NoError(t, err)
	require.Equal(t, "new@example.com", result.User.Email)
	require.Equal(t, domain.RoleMember, result.User.RoleID)
	require.True(t, result.User.Registered)
	require.NotEmpty(t, result.Token)

	// Duplicate registration conflicts.
	_, err = f.svc.Register(ctx, service.RegisterInput{Email: "new@example.com", Password: "hunter22"})
	requireStatus(t, err, 409)

	_, err = f.svc.Register(ctx, service.RegisterInput{Email: "not-an-email", Password: "hunter22"})
	requireStatus(t, err, 400)

	_, err = f.svc.Register(ctx, service.RegisterInput{Email: "short@example.com", Password: "abc"})
	requireStatus(t, err, 400)
}

func TestLogoutRevokesSession(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, registeredUser(t, 10, "user@example.com", "hunter22"))

	result, err := f.svc.Login(ctx, "user@example.com", "hunter22")
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, 10, result.Token))
	_, err = f.tokens.Verify(ctx, result.Token, f.tokens.MaxAge())
	require.ErrorIs(t, err, token.ErrInvalidToken)
}

func TestForgotPasswordMailsResetLink(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, registeredUser(t, 10, "user@example.com", "hunter22"))

	require.NoError(t, f.svc.ForgotPassword(ctx, "user@example.com"))
	require.Len(t, f.mailer.to, 1)
	require.Equal(t, "user@example.com", f.mailer.to[0])
	require.Contains(t, f.mailer.body[0], f.cfg.PasswordResetURL+"/")

	// The link embeds a token that verifies for the user.
	body := f.mailer.body[0]
	start := strings.Index(body, f.cfg.PasswordResetURL+"/") + len(f.cfg.PasswordResetURL) + 1
	end := strings.IndexAny(body[start:], `"<`)
	require.Greater(t, end, 0)
	claims, err := f.tokens.Verify(ctx, body[start:start+end], f.tokens.MaxAge())
	require.NoError(t, err)
	require.Equal(t, int64(10), claims.UserID)
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	f := newAuthFixture(t)
	err := f.svc.ForgotPassword(context.Background(), "ghost@example.com")
	requireStatus(t, err, 400)
	require.Empty(t, f.mailer.to)
}

func TestForgotPasswordMailFailure(t *testing.T) {
	f := newAuthFixture(t, registeredUser(t, 10, "user@example.com", "hunter22"))
	f.mailer.fail = true
	err := f.svc.ForgotPassword(context.Background(), "user@example.com")
	requireStatus(t, err, 500)
}

func TestResetPasswordRevokesSession(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, registeredUser(t, 10, "user@example.com", "hunter22"))

	result, err := f.svc.Login(ctx, "user@example.com", "hunter22")
	require.NoError(t, err)

	require.NoError(t, f.svc.ResetPassword(ctx, 10, "newpassword", "newpassword"))

	_, err = f.tokens.Verify(ctx, result.Token, f.tokens.MaxAge())
	require.ErrorIs(t, err, token.ErrInvalidToken)

	_, err = f.svc.Login(ctx, "user@example.com", "hunter22")
	requireStatus(t, err, 400)
	relogin, err := f.svc.Login(ctx, "user@example.com", "newpassword")
	require.NoError(t, err)
	require.NotEmpty(t, relogin.Token)
}

func TestResetPasswordValidation(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t, registeredUser(t, 10, "user@example.com", "hunter22"))

	requireStatus(t, f.svc.ResetPassword(ctx, 10, "abc", "abc"), 400)
	requireStatus(t, f.svc.ResetPassword(ctx, 10, "newpassword", "different"), 400)
}

func TestInviteAndAcceptInvitation(t *testing.T) {
	ctx := context.Background()
	admin := registeredUser(t, 1, "admin@example.com", "adminpass")
	admin.RoleID = domain.RoleAdmin
	f := newAuthFixture(t, admin)

	tok, err := f.svc.Invite(ctx, admin, service.InviteInput{Email: "member@example.com"})
	require.NoError(t, err)
	require.NotEmpty(t, tok)
	require.Len(t, f.mailer.to, 1)
	require.Contains(t, f.mailer.body[0], f.cfg.RegistrationURL+"/")

	invited, err := f.users.GetByEmail(ctx, "member@example.com")
	require.NoError(t, err)
	require.True(t, invited.IsInvited)
	require.False(t, invited.Registered)

	claims, err := f.tokens.Verify(ctx, tok, f.tokens.MaxAge())
	require.NoError(t, err)
	require.Equal(t, invited.ID, claims.UserID)

	err = f.svc.AcceptInvitation(ctx, invited.ID, service.AcceptInvitationInput{
		FirstName: "Member",
		LastName:  "One",
		Password:  "memberpass",
	})
	require.NoError(t, err)

	// The invitation token is single use.
	_, err = f.tokens.Verify(ctx, tok, f.tokens.MaxAge())
	require.ErrorIs(t, err, token.ErrInvalidToken)

	result, err := f.svc.Login(ctx, "member@example.com", "memberpass")
	require.NoError(t, err)
	require.True(t, result.User.Registered)

	// Accepting twice conflicts.
	err = f.svc.AcceptInvitation(ctx, invited.ID, service.AcceptInvitationInput{Password: "memberpass"})
	requireStatus(t, err, 409)
}

func TestInviteRegisteredUserConflicts(t *testing.T) {
	ctx := context.Background()
	admin := registeredUser(t, 1, "admin@example.com", "adminpass")
	admin.RoleID = domain.RoleAdmin
	member := registeredUser(t, 2, "member@example.com", "memberpass")
	f := newAuthFixture(t, admin, member)

	_, err := f.svc.Invite(ctx, admin, service.InviteInput{Email: "member@example.com"})
	requireStatus(t, err, 409)
}

func TestSetActive(t *testing.T) {
	ctx := context.Background()
	admin := registeredUser(t, 1, "admin@example.com", "adminpass")
	admin.RoleID = domain.RoleAdmin
	member := registeredUser(t, 2, "member@example.com", "memberpass")
	f := newAuthFixture(t, admin, member)

	session, err := f.svc.Login(ctx, "member@example.com", "memberpass")
	require.NoError(t, err)

	// Suspension revokes the member's live session.
	require.NoError(t, f.svc.SetActive(ctx, admin, 2, false))
	_, err = f.tokens.Verify(ctx, session.Token, f.tokens.MaxAge())
	require.ErrorIs(t, err, token.ErrInvalidToken)

	_, err = f.svc.Login(ctx, "member@example.com", "memberpass")
	requireStatus(t, err, 403)

	require.NoError(t, f.svc.SetActive(ctx, admin, 2, true))
	_, err = f.svc.Login(ctx, "member@example.com", "memberpass")
	require.NoError(t, err)

	// Admins cannot suspend themselves.
	requireStatus(t, f.svc.SetActive(ctx, admin, admin.ID, false), 403)
}

func requireStatus(t *testing.T, err error, status int) {
	t.Helper()
	require.Error(t, err)
	appErr := apperr.From(err)
	require.Equal(t, status, appErr.Status)
}
