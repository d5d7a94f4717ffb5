package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/storeboost/storeboost-auth/internal/apperr"
	"github.com/storeboost/storeboost-auth/internal/config"
	"github.com/storeboost/storeboost-auth/internal/domain"
	"github.com/storeboost/storeboost-auth/internal/mail"
	"github.com/storeboost/storeboost-auth/internal/password"
	"github.com/storeboost/storeboost-auth/internal/repository"
	"github.com/storeboost/storeboost-auth/internal/token"
)

const minPasswordLength = 5

var emailPattern = regexp.MustCompile(`(?i)\b[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}\b`)

// LoginResult bundles a fresh session token with the authenticated identity.
type LoginResult struct {
	Token string
	User  domain.User
	Org   domain.Organization
}

// RegisterInput carries self-service registration fields.
type RegisterInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// InviteInput carries the fields an admin supplies when inviting a member.
type InviteInput struct {
	Email     string
	FirstName string
	LastName  string
	RoleID    int
}

// AcceptInvitationInput finishes registration for an invited user.
type AcceptInvitationInput struct {
	FirstName string
	LastName  string
	Password  string
}

// AuthService encapsulates credential verification and the session
// lifecycle around it. Mismatched credentials surface as apperr values, not
// panics or bare errors.
type AuthService struct {
	users  repository.UserRepository
	orgs   repository.OrgRepository
	tokens *token.Service
	mailer mail.Sender
	node   *snowflake.Node
	cfg    config.Config
	logger *zap.Logger
	tracer trace.Tracer
}

// NewAuthService wires dependencies.
func NewAuthService(users repository.UserRepository, orgs repository.OrgRepository, tokens *token.Service, mailer mail.Sender, node *snowflake.Node, cfg config.Config, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:  users,
		orgs:   orgs,
		tokens: tokens,
		mailer: mailer,
		node:   node,
		cfg:    cfg,
		logger: logger,
		tracer: otel.Tracer("github.com/storeboost/storeboost-auth/internal/service"),
	}
}

// Login verifies the credential pair and issues a session token. Any
// previously live session for the user is superseded by the new token.
func (s *AuthService) Login(ctx context.Context, email, plaintext string) (*LoginResult, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Login")
	defer span.End()

	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.BadRequest("Incorrect email.")
		}
		span.RecordError(err)
		return nil, fmt.Errorf("login lookup: %w", err)
	}
	if !user.IsActive {
		return nil, apperr.Forbidden("Your account has been suspended.")
	}
	if !user.Registered {
		return nil, apperr.Unauthorized("Please register first and try again.")
	}

	ok, err := password.Verify(plaintext, user.PasswordHash)
	if err != nil || !ok {
		return nil, apperr.BadRequest("Wrong password.")
	}

	result, err := s.establishSession(ctx, user)
	if err == nil {
		s.audit("login.success", "user_id", user.ID, "org_id", user.OrgID)
	} else {
		span.RecordError(err)
	}
	return result, err
}

// Register creates a self-service account and logs it in.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*LoginResult, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Register")
	defer span.End()

	email := normalizeEmail(in.Email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if len(in.Password) < minPasswordLength {
		return nil, apperr.BadRequest("Password length is short. Please try another password.")
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, apperr.Conflict("Email already registered.")
	} else if !errors.Is(err, pgx.ErrNoRows) {
		span.RecordError(err)
		return nil, fmt.Errorf("register lookup: %w", err)
	}

	hashed, err := password.Hash(in.Password)
	if err != nil {
		return nil, apperr.BadRequest("Please provide a valid password.").WithCause(err)
	}

	user, err := s.users.Create(ctx, domain.User{
		ID:           s.node.Generate().Int64(),
		OrgID:        s.cfg.DefaultOrgID,
		Email:        email,
		PasswordHash: hashed,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		RoleID:       domain.RoleMember,
		IsActive:     true,
		Registered:   true,
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("register create user: %w", err)
	}

	result, err := s.establishSession(ctx, user)
	if err == nil {
		s.audit("register.success", "user_id", user.ID, "org_id", user.OrgID)
	}
	return result, err
}

// Logout revokes the session behind the presented token. A stale token from
// an older login does not end a newer session.
func (s *AuthService) Logout(ctx context.Context, userID int64, rawToken string) error {
	ctx, span := s.startSpan(ctx, "AuthService.Logout")
	defer span.End()

	if err := s.tokens.Revoke(ctx, userID, rawToken); err != nil {
		span.RecordError(err)
		return fmt.Errorf("logout revoke: %w", err)
	}
	s.audit("logout.success", "user_id", userID)
	return nil
}

// ForgotPassword issues a session token for the account and mails a reset
// link embedding it. The token is the credential the reset endpoint
// verifies; the core never sends mail itself beyond this collaborator call.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	ctx, span := s.startSpan(ctx, "AuthService.ForgotPassword")
	defer span.End()

	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperr.BadRequest("Please enter a valid email address.")
		}
		span.RecordError(err)
		return fmt.Errorf("forgot password lookup: %w", err)
	}
	if !user.IsActive {
		return apperr.BadRequest("Please enter a valid email address.")
	}
	if !user.Registered {
		return apperr.Forbidden("Please register first.")
	}

	tok, err := s.tokens.IssueFor(ctx, user)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("forgot password issue token: %w", err)
	}

	body, err := mail.RenderPasswordReset(user.FirstName, s.cfg.PasswordResetURL+"/"+tok)
	if err != nil {
		return fmt.Errorf("forgot password render: %w", err)
	}
	if err := s.mailer.Send(ctx, user.Email, "Storeboost password reset", body); err != nil {
		span.RecordError(err)
		return apperr.Internal("Please try again later.").WithCause(err)
	}

	s.audit("password.reset_requested", "user_id", user.ID)
	return nil
}

// ResetPassword replaces the password and revokes the current session so
// the reset token (and any other live credential) stops working.
func (s *AuthService) ResetPassword(ctx context.Context, userID int64, newPassword, confirm string) error {
	ctx, span := s.startSpan(ctx, "AuthService.ResetPassword")
	defer span.End()

	if len(newPassword) < minPasswordLength {
		return apperr.BadRequest("Password length is short. Please try another password.")
	}
	if newPassword != confirm {
		return apperr.BadRequest("Enter the password correctly.")
	}

	hashed, err := password.Hash(newPassword)
	if err != nil {
		return apperr.BadRequest("Please provide a valid password.").WithCause(err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hashed); err != nil {
		span.RecordError(err)
		return fmt.Errorf("reset password update: %w", err)
	}
	if err := s.tokens.Revoke(ctx, userID, ""); err != nil {
		span.RecordError(err)
		return fmt.Errorf("reset password revoke: %w", err)
	}

	s.audit("password.reset", "user_id", userID)
	return nil
}

// Invite creates (or revives) a pending account and emails a registration
// link carrying its invitation token. Returns the token for tests and
// auditing; the caller must already be authorized as admin.
func (s *AuthService) Invite(ctx context.Context, inviter domain.User, in InviteInput) (string, error) {
	ctx, span := s.startSpan(ctx, "AuthService.Invite")
	defer span.End()

	email := normalizeEmail(in.Email)
	if err := validateEmail(email); err != nil {
		return "", err
	}

	user, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		if user.Registered {
			return "", apperr.Conflict("The user has already registered.")
		}
	case errors.Is(err, pgx.ErrNoRows):
		roleID := in.RoleID
		if roleID == 0 {
			roleID = domain.RoleMember
		}
		user, err = s.users.Create(ctx, domain.User{
			ID:        s.node.Generate().Int64(),
			OrgID:     inviter.OrgID,
			Email:     email,
			FirstName: strings.TrimSpace(in.FirstName),
			LastName:  strings.TrimSpace(in.LastName),
			RoleID:    roleID,
			IsActive:  true,
			IsInvited: true,
		})
		if err != nil {
			span.RecordError(err)
			return "", fmt.Errorf("invite create user: %w", err)
		}
	default:
		span.RecordError(err)
		return "", fmt.Errorf("invite lookup: %w", err)
	}

	tok, err := s.tokens.IssueFor(ctx, user)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("invite issue token: %w", err)
	}

	org, err := s.orgs.GetOrg(ctx, inviter.OrgID)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("invite org lookup: %w", err)
	}
	body, err := mail.RenderInvitation(user.FirstName, org.Name, s.cfg.RegistrationURL+"/"+tok)
	if err != nil {
		return "", fmt.Errorf("invite render: %w", err)
	}
	if err := s.mailer.Send(ctx, user.Email, "Storeboost invitation", body); err != nil {
		span.RecordError(err)
		return "", apperr.Internal("Please try again later.").WithCause(err)
	}

	s.audit("user.invited", "user_id", user.ID, "invited_by", inviter.ID)
	return tok, nil
}

// AcceptInvitation finishes registration for the user behind a valid
// invitation token and revokes that token so the link is single use.
func (s *AuthService) AcceptInvitation(ctx context.Context, userID int64, in AcceptInvitationInput) error {
	ctx, span := s.startSpan(ctx, "AuthService.AcceptInvitation")
	defer span.End()

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("accept invitation lookup: %w", err)
	}
	if user.Registered {
		return apperr.Conflict("User already registered.")
	}
	if len(in.Password) < minPasswordLength {
		return apperr.BadRequest("Password length is short. Please try another password.")
	}

	hashed, err := password.Hash(in.Password)
	if err != nil {
		return apperr.BadRequest("Please provide a valid password.").WithCause(err)
	}
	firstName := strings.TrimSpace(in.FirstName)
	if firstName == "" {
		firstName = user.FirstName
	}
	lastName := strings.TrimSpace(in.LastName)
	if lastName == "" {
		lastName = user.LastName
	}
	if err := s.users.MarkRegistered(ctx, user.ID, firstName, lastName, hashed); err != nil {
		span.RecordError(err)
		return fmt.Errorf("accept invitation update: %w", err)
	}
	if err := s.tokens.Revoke(ctx, user.ID, ""); err != nil {
		span.RecordError(err)
		return fmt.Errorf("accept invitation revoke: %w", err)
	}

	s.audit("user.invitation_accepted", "user_id", user.ID)
	return nil
}

// SetActive suspends or reactivates a member. Suspension also revokes the
// member's live session; admins cannot suspend themselves.
func (s *AuthService) SetActive(ctx context.Context, actor domain.User, userID int64, active bool) error {
	ctx, span := s.startSpan(ctx, "AuthService.SetActive")
	defer span.End()

	if actor.ID == userID {
		return apperr.Forbidden("You cannot suspend your own account.")
	}
	if err := s.users.SetActive(ctx, userID, active); err != nil {
		span.RecordError(err)
		return fmt.Errorf("set active: %w", err)
	}
	if !active {
		if err := s.tokens.Revoke(ctx, userID, ""); err != nil {
			span.RecordError(err)
			return fmt.Errorf("set active revoke: %w", err)
		}
	}
	s.audit("user.set_active", "user_id", userID, "active", active, "actor_id", actor.ID)
	return nil
}

// Me resolves the current user together with their organization.
func (s *AuthService) Me(ctx context.Context, userID int64) (domain.User, domain.Organization, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return domain.User{}, domain.Organization{}, fmt.Errorf("me lookup: %w", err)
	}
	org, err := s.orgs.GetOrg(ctx, user.OrgID)
	if err != nil {
		return domain.User{}, domain.Organization{}, fmt.Errorf("me org lookup: %w", err)
	}
	return user, org, nil
}

func (s *AuthService) establishSession(ctx context.Context, user domain.User) (*LoginResult, error) {
	tok, err := s.tokens.IssueFor(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("issue session token: %w", err)
	}
	org, err := s.orgs.GetOrg(ctx, user.OrgID)
	if err != nil {
		return nil, fmt.Errorf("session org lookup: %w", err)
	}
	return &LoginResult{Token: tok, User: user, Org: org}, nil
}

func (s *AuthService) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	if s == nil || s.tracer == nil {
		return ctx, trace.SpanFromContext(ctx)
	}
	return s.tracer.Start(ctx, name)
}

func (s *AuthService) audit(event string, attrs ...any) {
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

func (s *AuthService) log() *zap.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return zap.L()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return apperr.BadRequest("Please give a valid email address.")
	}
	return nil
}
