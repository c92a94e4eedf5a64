// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/taibuivan/apisegura/internal/platform/apperr"
	"github.com/taibuivan/apisegura/internal/platform/ctxutil"
	"github.com/taibuivan/apisegura/internal/platform/sec"
	"github.com/taibuivan/apisegura/internal/platform/validate"
	"github.com/taibuivan/apisegura/pkg/pagination"
)

// ErrRefreshTokenNotStored is the cause attached to TOKEN_INVALID when a
// well-formed refresh token has no live row in the store.
var ErrRefreshTokenNotStored = errors.New("auth: refresh token not stored or expired")

// dummyPassword is hashed once and verified against when the login user does
// not exist, so unknown usernames cost one bcrypt comparison like known ones.
const dummyPassword = "timing-equalizer-not-a-real-password"

// # Contracts & Types

// TokenIssuer defines the contract for minting and checking security tokens.
type TokenIssuer interface {
	// IssueTokenPair creates an access and a refresh token for identity.
	IssueTokenPair(identity sec.Identity) (*sec.TokenPair, error)

	// IssueAccessToken creates only an access token.
	IssueAccessToken(identity sec.Identity) (string, error)

	// VerifyRefreshToken validates a refresh token and returns its claims.
	VerifyRefreshToken(token string) (*sec.RefreshClaims, error)

	// AccessTTL is the access token lifetime reported as expiresIn.
	AccessTTL() time.Duration
}

// Login outcomes reported to the [Recorder].
const (
	OutcomeSuccess            = "success"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeInactive           = "inactive"
	OutcomeBlocked            = "blocked"
)

// Recorder receives security events for metrics.
type Recorder interface {
	LoginAttempt(outcome string)
	UserRegistered()
	TokensIssued(kind string)
}

type nopRecorder struct{}

func (nopRecorder) LoginAttempt(string) {}
func (nopRecorder) UserRegistered()     {}
func (nopRecorder) TokensIssued(string) {}

// ServiceOption customizes a [Service].
type ServiceOption func(*Service)

// WithRecorder attaches a metrics recorder.
func WithRecorder(recorder Recorder) ServiceOption {
	return func(service *Service) {
		if recorder != nil {
			service.recorder = recorder
		}
	}
}

// WithServiceClock overrides the time source used for refresh-token expiry checks.
func WithServiceClock(now func() time.Time) ServiceOption {
	return func(service *Service) { service.now = now }
}

// Service implements user authentication use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing, registration,
// throttling or login logic must be reviewed by the security team.
type Service struct {
	userRepository         UserRepository
	refreshTokenRepository RefreshTokenRepository
	throttle               *Throttle
	hasher                 sec.PasswordHasher
	tokenIssuer            TokenIssuer
	passwordPolicy         validate.PasswordPolicy
	recorder               Recorder
	now                    func() time.Time

	dummyHashMutex sync.Mutex
	dummyHash      string
}

// NewService constructs a new [Service] with necessary dependencies.
func NewService(
	userRepo UserRepository,
	refreshRepo RefreshTokenRepository,
	throttle *Throttle,
	hasher sec.PasswordHasher,
	tokenIssuer TokenIssuer,
	policy validate.PasswordPolicy,
	options ...ServiceOption,
) *Service {
	service := &Service{
		userRepository:         userRepo,
		refreshTokenRepository: refreshRepo,
		throttle:               throttle,
		hasher:                 hasher,
		tokenIssuer:            tokenIssuer,
		passwordPolicy:         policy,
		recorder:               nopRecorder{},
		now:                    time.Now,
	}
	for _, option := range options {
		option(service)
	}
	return service
}

// # Registration Flow

// RegisterInput holds the data required to enroll a new account.
type RegisterInput struct {
	Username string
	Email    string
	Password string
}

/*
Register validates, hashes, and persists a brand new user account, then
opens a session for it.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *AuthResult: Created user and token pair
  - err: VALIDATION_ERROR, CONFLICT, or storage errors
*/
func (service *Service) Register(context context.Context, input RegisterInput) (*AuthResult, error) {
	username := strings.TrimSpace(input.Username)
	email := strings.TrimSpace(input.Email)

	validator := &validate.Validator{}
	validator.Required(FieldUsername, username)
	if username != "" {
		validator.MinLen(FieldUsername, username, UsernameMinLength).
			MaxLen(FieldUsername, username, UsernameMaxLength).
			Username(FieldUsername, username)
	}
	validator.Required(FieldEmail, email)
	if email != "" {
		validator.MaxLen(FieldEmail, email, EmailMaxLength).Email(FieldEmail, email)
	}
	validator.Password(FieldPassword, input.Password, service.passwordPolicy)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	// Prevent storing plain-text passwords.
	hashedPassword, err := service.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("auth_service_hash_failed: %w", err)
	}

	user := &User{
		Username:     username,
		Email:        email,
		PasswordHash: hashedPassword,
		Role:         sec.RoleUser,
		Active:       true,
	}

	// Uniqueness is enforced by the store constraints, not by a prior lookup.
	if err := service.userRepository.Create(context, user); err != nil {
		return nil, fmt.Errorf("auth_service_register_failed: %w", err)
	}

	tokens, err := service.openSession(context, user)
	if err != nil {
		return nil, err
	}

	service.recorder.UserRegistered()
	ctxutil.GetLogger(context).InfoContext(context, "auth_user_registered",
		slog.Int64("user_id", user.ID),
		slog.String("username", user.Username),
	)

	return &AuthResult{User: user, Tokens: tokens}, nil
}

// # Authentication Flow

// LoginInput defines credentials for an authentication attempt.
type LoginInput struct {
	Username  string // Can be Username or Email
	Password  string
	IPAddress string
}

/*
Login validates user credentials and issues security tokens.

Description: Runs strictly in order: throttle check, credential lookup,
constant-time password comparison, attempt recording, token issuance.

Parameters:
  - context: context.Context
  - input: LoginInput

Returns:
  - *AuthResult: User and fresh token pair
  - err: TOO_MANY_ATTEMPTS, INVALID_CREDENTIALS, ACCOUNT_INACTIVE or internal failures
*/
func (service *Service) Login(context context.Context, input LoginInput) (*AuthResult, error) {
	logger := ctxutil.GetLogger(context)
	credential := strings.TrimSpace(input.Username)

	validator := &validate.Validator{}
	validator.Required(FieldUsername, credential).Required(FieldPassword, input.Password)
	if err := validator.Err(); err != nil {
		return nil, err
	}

	// The throttle runs before any hashing to bound attacker cost.
	if err := service.throttle.Check(context, input.IPAddress); err != nil {
		if errors.Is(err, apperr.ErrTooManyAttempts) {
			service.recorder.LoginAttempt(OutcomeBlocked)
			logger.WarnContext(context, "auth_login_blocked", slog.String("ip", input.IPAddress))
		}
		return nil, err
	}

	user, err := service.userRepository.FindByUsernameOrEmail(context, credential)
	if err != nil {
		return nil, fmt.Errorf("auth_service_login_lookup_failed: %w", err)
	}

	// Unknown user and wrong password are indistinguishable to the caller.
	if user == nil {
		dummyHash, err := service.timingHash()
		if err != nil {
			return nil, fmt.Errorf("auth_service_login_failed: %w", err)
		}
		service.hasher.Verify(input.Password, dummyHash)
		return nil, service.rejectLogin(context, input.IPAddress, credential, OutcomeInvalidCredentials, apperr.InvalidCredentials())
	}

	if !service.hasher.Verify(input.Password, user.PasswordHash) {
		return nil, service.rejectLogin(context, input.IPAddress, credential, OutcomeInvalidCredentials, apperr.InvalidCredentials())
	}

	if !user.Active {
		return nil, service.rejectLogin(context, input.IPAddress, credential, OutcomeInactive, apperr.AccountInactive())
	}

	if err := service.throttle.Record(context, input.IPAddress, credential, true); err != nil {
		return nil, fmt.Errorf("auth_service_login_failed: %w", err)
	}

	tokens, err := service.openSession(context, user)
	if err != nil {
		return nil, err
	}

	service.recorder.LoginAttempt(OutcomeSuccess)
	logger.InfoContext(context, "auth_login_succeeded",
		slog.Int64("user_id", user.ID),
		slog.String("ip", input.IPAddress),
	)

	return &AuthResult{User: user, Tokens: tokens}, nil
}

// rejectLogin records a failed attempt and returns the domain error, or the
// recording failure if the audit log is unavailable.
func (service *Service) rejectLogin(context context.Context, ipAddress, credential, outcome string, domainErr error) error {
	if err := service.throttle.Record(context, ipAddress, credential, false); err != nil {
		return fmt.Errorf("auth_service_login_failed: %w", err)
	}

	service.recorder.LoginAttempt(outcome)
	ctxutil.GetLogger(context).WarnContext(context, "auth_login_rejected",
		slog.String("outcome", outcome),
		slog.String("ip", ipAddress),
	)
	return domainErr
}

// timingHash lazily computes the hash used for unknown-user comparisons.
// A failed computation is retried on the next call.
func (service *Service) timingHash() (string, error) {
	service.dummyHashMutex.Lock()
	defer service.dummyHashMutex.Unlock()

	if service.dummyHash == "" {
		hash, err := service.hasher.Hash(dummyPassword)
		if err != nil {
			return "", fmt.Errorf("auth_service_timing_hash_failed: %w", err)
		}
		service.dummyHash = hash
	}
	return service.dummyHash, nil
}

// openSession issues a token pair for user and persists the refresh token digest.
func (service *Service) openSession(context context.Context, user *User) (*sec.TokenPair, error) {
	tokens, err := service.tokenIssuer.IssueTokenPair(user.Identity())
	if err != nil {
		return nil, fmt.Errorf("auth_service_token_generation_failed: %w", err)
	}

	tokenHash := sec.HashToken(tokens.RefreshToken)
	if err := service.refreshTokenRepository.Save(context, tokenHash, user.ID, tokens.RefreshExpiresAt); err != nil {
		return nil, fmt.Errorf("auth_service_session_creation_failed: %w", err)
	}

	service.recorder.TokensIssued("pair")
	return tokens, nil
}

// # Session Management

/*
Refresh exchanges a stored refresh token for a new access token.

Description: The refresh token itself is not rotated; it stays valid until its
own expiry, logout, or a password change.

Parameters:
  - context: context.Context
  - refreshToken: string

Returns:
  - *AccessGrant: New access token
  - err: TOKEN_INVALID, USER_INVALID or storage failures
*/
func (service *Service) Refresh(context context.Context, refreshToken string) (*AccessGrant, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, validate.RequiredError(FieldRefreshToken, "This field is required")
	}

	claims, err := service.tokenIssuer.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, apperr.TokenInvalid(err)
	}

	stored, err := service.refreshTokenRepository.FindValid(context, sec.HashToken(refreshToken), userID, service.now())
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_lookup_failed: %w", err)
	}
	if stored == nil {
		return nil, apperr.TokenInvalid(ErrRefreshTokenNotStored)
	}

	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_user_failed: %w", err)
	}
	if user == nil || !user.Active {
		return nil, apperr.UserInvalid()
	}

	accessToken, err := service.tokenIssuer.IssueAccessToken(user.Identity())
	if err != nil {
		return nil, fmt.Errorf("auth_service_refresh_access_token_failed: %w", err)
	}

	service.recorder.TokensIssued("access")
	return &AccessGrant{
		AccessToken: accessToken,
		ExpiresIn:   int64(service.tokenIssuer.AccessTTL() / time.Second),
		TokenType:   sec.BearerScheme,
	}, nil
}

/*
Logout revokes refresh tokens. It is idempotent.

Description: A given refreshToken is deleted on its own. When userID is
known (authenticated caller) every refresh token of that user is deleted.

Parameters:
  - context: context.Context
  - refreshToken: string (may be empty)
  - userID: *int64 (nil for anonymous callers)

Returns:
  - err: Revocation failures
*/
func (service *Service) Logout(context context.Context, refreshToken string, userID *int64) error {
	if refreshToken = strings.TrimSpace(refreshToken); refreshToken != "" {
		if err := service.refreshTokenRepository.Delete(context, sec.HashToken(refreshToken)); err != nil {
			return fmt.Errorf("auth_service_logout_failed: %w", err)
		}
	}

	if userID != nil {
		if err := service.refreshTokenRepository.DeleteAllForUser(context, *userID); err != nil {
			return fmt.Errorf("auth_service_logout_all_failed: %w", err)
		}
		ctxutil.GetLogger(context).InfoContext(context, "auth_logout_all", slog.Int64("user_id", *userID))
	}

	return nil
}

// # Password Management

// ChangePasswordInput carries the credentials for a password change.
type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string
}

/*
ChangePassword allows an authenticated user to update their credentials.

Description: Verifies the current password, validates the new one, stores the
new hash and revokes every refresh token of the user.

Parameters:
  - context: context.Context
  - userID: int64
  - input: ChangePasswordInput

Returns:
  - err: VALIDATION_ERROR, INVALID_CREDENTIALS or storage failures
*/
func (service *Service) ChangePassword(context context.Context, userID int64, input ChangePasswordInput) error {
	validator := &validate.Validator{}
	validator.Required(FieldCurrentPassword, input.CurrentPassword).
		Required(FieldNewPassword, input.NewPassword)
	if err := validator.Err(); err != nil {
		return err
	}

	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return fmt.Errorf("auth_service_change_password_lookup_failed: %w", err)
	}
	if user == nil {
		return apperr.UserNotFound()
	}

	// Verify the current password before allowing change
	if !service.hasher.Verify(input.CurrentPassword, user.PasswordHash) {
		return apperr.InvalidCredentials()
	}

	validator = &validate.Validator{}
	validator.Password(FieldNewPassword, input.NewPassword, service.passwordPolicy).
		Differs(FieldNewPassword, input.NewPassword, input.CurrentPassword, "Must differ from the current password")
	if err := validator.Err(); err != nil {
		return err
	}

	hashedPassword, err := service.hasher.Hash(input.NewPassword)
	if err != nil {
		return fmt.Errorf("auth_service_change_password_hash_failed: %w", err)
	}

	if err := service.userRepository.UpdatePassword(context, userID, hashedPassword); err != nil {
		return fmt.Errorf("auth_service_change_password_update_failed: %w", err)
	}

	// A password change must invalidate every standing session.
	if err := service.refreshTokenRepository.DeleteAllForUser(context, userID); err != nil {
		return fmt.Errorf("auth_service_change_password_revoke_failed: %w", err)
	}

	ctxutil.GetLogger(context).InfoContext(context, "auth_password_changed", slog.Int64("user_id", userID))
	return nil
}

// # Account Access

/*
Profile returns the account of an authenticated user.
*/
func (service *Service) Profile(context context.Context, userID int64) (*User, error) {
	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return nil, fmt.Errorf("auth_service_profile_failed: %w", err)
	}
	if user == nil {
		return nil, apperr.NotFound("User")
	}
	return user, nil
}

/*
LoadIdentity resolves the principal behind a verified access token.

Returns:
  - *sec.Identity: Principal, or nil if the user no longer exists
  - bool: Whether the account is active
  - err: Storage failures
*/
func (service *Service) LoadIdentity(context context.Context, userID int64) (*sec.Identity, bool, error) {
	user, err := service.userRepository.FindByID(context, userID)
	if err != nil {
		return nil, false, fmt.Errorf("auth_service_load_identity_failed: %w", err)
	}
	if user == nil {
		return nil, false, nil
	}
	identity := user.Identity()
	return &identity, user.Active, nil
}

/*
ResolveUserOwner reports the owning user of a user resource, which is itself.

Returns:
  - int64: Owner ID
  - bool: false when the resource does not exist or the ID is malformed
  - err: Storage failures
*/
func (service *Service) ResolveUserOwner(context context.Context, resourceID string) (int64, bool, error) {
	id, err := strconv.ParseInt(resourceID, 10, 64)
	if err != nil || id <= 0 {
		return 0, false, nil
	}

	user, err := service.userRepository.FindByID(context, id)
	if err != nil {
		return 0, false, fmt.Errorf("auth_service_resolve_owner_failed: %w", err)
	}
	if user == nil {
		return 0, false, nil
	}
	return user.ID, true, nil
}

// # Administration

/*
ListUsers returns one page of accounts.
*/
func (service *Service) ListUsers(context context.Context, params pagination.Params) ([]*User, pagination.Meta, error) {
	users, total, err := service.userRepository.List(context, params.Limit, params.Offset())
	if err != nil {
		return nil, pagination.Meta{}, fmt.Errorf("auth_service_list_users_failed: %w", err)
	}
	return users, pagination.NewMeta(params, total), nil
}

/*
SetActive activates or deactivates an account.

Description: Deactivation also revokes the account's refresh tokens.
*/
func (service *Service) SetActive(context context.Context, userID int64, active bool) (*User, error) {
	user, err := service.userRepository.SetActive(context, userID, active)
	if err != nil {
		return nil, fmt.Errorf("auth_service_set_active_failed: %w", err)
	}
	if user == nil {
		return nil, apperr.NotFound("User")
	}

	if !active {
		if err := service.refreshTokenRepository.DeleteAllForUser(context, userID); err != nil {
			return nil, fmt.Errorf("auth_service_set_active_revoke_failed: %w", err)
		}
	}

	ctxutil.GetLogger(context).InfoContext(context, "auth_user_active_changed",
		slog.Int64("user_id", userID),
		slog.Bool("active", active),
	)
	return user, nil
}

/*
SetRole changes the role of an account.
*/
func (service *Service) SetRole(context context.Context, userID int64, rawRole string) (*User, error) {
	role, ok := sec.ParseRole(rawRole)
	if !ok {
		validator := &validate.Validator{}
		validator.OneOf(FieldRole, rawRole, string(sec.RoleUser), string(sec.RoleAdmin))
		return nil, validator.Err()
	}

	user, err := service.userRepository.SetRole(context, userID, role)
	if err != nil {
		return nil, fmt.Errorf("auth_service_set_role_failed: %w", err)
	}
	if user == nil {
		return nil, apperr.NotFound("User")
	}

	ctxutil.GetLogger(context).InfoContext(context, "auth_user_role_changed",
		slog.Int64("user_id", userID),
		slog.String("role", string(role)),
	)
	return user, nil
}

/*
PurgeExpiredTokens removes refresh tokens that can no longer be used.
*/
func (service *Service) PurgeExpiredTokens(context context.Context) (int64, error) {
	removed, err := service.refreshTokenRepository.DeleteExpired(context, service.now())
	if err != nil {
		return 0, fmt.Errorf("auth_service_purge_tokens_failed: %w", err)
	}
	return removed, nil
}
