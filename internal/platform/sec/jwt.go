// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec provides cryptographic primitives and token management.
//
// # Architecture
//
// This package isolates security-sensitive code (Hashing, JWT Signing) from
// the domain logic. It acts as an Infrastructure service injected into the
// Application layer through small interfaces.
//
// Access and refresh tokens are HS256 JWTs signed with two distinct secrets,
// so a leaked refresh secret cannot mint access tokens and vice versa.
package sec

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/taibuivan/apisegura/internal/platform/apperr"
	"github.com/taibuivan/apisegura/pkg/uuid"
)

// TokenTypeRefresh is the value of the "type" claim on refresh tokens.
const TokenTypeRefresh = "refresh"

// BearerScheme is the token type reported to clients.
const BearerScheme = "Bearer"

// ErrWrongTokenType is returned when a token lacks the expected "type" claim.
var ErrWrongTokenType = errors.New("sec: unexpected token type")

// AccessClaims represents the payload embedded inside a JWT Access Token.
type AccessClaims struct {
	jwt.RegisteredClaims

	Username string `json:"username"`
	Email    string `json:"email"`
	Role     Role   `json:"role"`
}

// UserID parses the numeric subject.
func (claims *AccessClaims) UserID() (int64, error) {
	return parseSubject(claims.Subject)
}

// Validate is invoked by the jwt parser after the registered claims pass.
func (claims *AccessClaims) Validate() error {
	if _, err := parseSubject(claims.Subject); err != nil {
		return err
	}
	return nil
}

// RefreshClaims represents the payload embedded inside a JWT Refresh Token.
type RefreshClaims struct {
	jwt.RegisteredClaims

	Username string `json:"username"`
	Type     string `json:"type"`
}

// UserID parses the numeric subject.
func (claims *RefreshClaims) UserID() (int64, error) {
	return parseSubject(claims.Subject)
}

// Validate is invoked by the jwt parser after the registered claims pass.
func (claims *RefreshClaims) Validate() error {
	if claims.Type != TokenTypeRefresh {
		return ErrWrongTokenType
	}
	if _, err := parseSubject(claims.Subject); err != nil {
		return err
	}
	return nil
}

// TokenPair is returned to clients after register and login.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
	TokenType    string `json:"tokenType"`

	// RefreshExpiresAt is the absolute expiry persisted next to the refresh token.
	RefreshExpiresAt time.Time `json:"-"`
}

// TokenConfig holds the signing material and lifetimes for a [TokenService].
type TokenConfig struct {
	AccessSecret  string
	RefreshSecret string
	Issuer        string
	Audience      string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

// TokenOption customizes a [TokenService].
type TokenOption func(*TokenService)

// WithClock overrides the time source used for issuing and verifying.
func WithClock(now func() time.Time) TokenOption {
	return func(service *TokenService) { service.now = now }
}

// TokenService handles generation and verification of JWT tokens using HS256.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	issuer        string
	audience      string
	accessTTL     time.Duration
	refreshTTL    time.Duration
	now           func() time.Time
}

// NewTokenService creates a new TokenService.
//
// It fails when either secret is empty or when both secrets are identical.
func NewTokenService(config TokenConfig, options ...TokenOption) (*TokenService, error) {
	if config.AccessSecret == "" || config.RefreshSecret == "" {
		return nil, errors.New("sec: access and refresh secrets are required")
	}
	if config.AccessSecret == config.RefreshSecret {
		return nil, errors.New("sec: access and refresh secrets must differ")
	}
	if config.AccessTTL <= 0 || config.RefreshTTL <= 0 {
		return nil, errors.New("sec: token lifetimes must be positive")
	}

	service := &TokenService{
		accessSecret:  []byte(config.AccessSecret),
		refreshSecret: []byte(config.RefreshSecret),
		issuer:        config.Issuer,
		audience:      config.Audience,
		accessTTL:     config.AccessTTL,
		refreshTTL:    config.RefreshTTL,
		now:           time.Now,
	}
	for _, option := range options {
		option(service)
	}
	return service, nil
}

// AccessTTL returns the configured access token lifetime.
func (service *TokenService) AccessTTL() time.Duration { return service.accessTTL }

// # Issuing

// IssueAccessToken creates a new JWT access token for identity.
func (service *TokenService) IssueAccessToken(identity Identity) (string, error) {
	currentTime := service.now()
	claims := AccessClaims{
		RegisteredClaims: service.registered(identity.ID, currentTime, service.accessTTL),
		Username:         identity.Username,
		Email:            identity.Email,
		Role:             identity.Role,
	}
	return sign(claims, service.accessSecret)
}

// IssueRefreshToken creates a new JWT refresh token for identity and returns
// its absolute expiry.
//
// Every refresh token carries a unique jti so two tokens minted within the
// same second for the same user never collide in storage.
func (service *TokenService) IssueRefreshToken(identity Identity) (string, time.Time, error) {
	currentTime := service.now()
	registered := service.registered(identity.ID, currentTime, service.refreshTTL)
	registered.ID = uuid.New()

	claims := RefreshClaims{
		RegisteredClaims: registered,
		Username:         identity.Username,
		Type:             TokenTypeRefresh,
	}

	token, err := sign(claims, service.refreshSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return token, registered.ExpiresAt.Time, nil
}

// IssueTokenPair issues an access token and a refresh token for identity.
func (service *TokenService) IssueTokenPair(identity Identity) (*TokenPair, error) {
	accessToken, err := service.IssueAccessToken(identity)
	if err != nil {
		return nil, err
	}

	refreshToken, refreshExpiresAt, err := service.IssueRefreshToken(identity)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		ExpiresIn:        int64(service.accessTTL / time.Second),
		TokenType:        BearerScheme,
		RefreshExpiresAt: refreshExpiresAt,
	}, nil
}

// # Verification

// VerifyAccessToken checks the signature and validity of an access token.
//
// Any failure is returned as [apperr.TokenInvalid] wrapping the jwt reason.
func (service *TokenService) VerifyAccessToken(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := service.parse(tokenString, claims, service.accessSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyRefreshToken checks the signature, validity and type of a refresh token.
func (service *TokenService) VerifyRefreshToken(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := service.parse(tokenString, claims, service.refreshSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

func (service *TokenService) parse(tokenString string, claims jwt.Claims, secret []byte) error {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(service.issuer),
		jwt.WithAudience(service.audience),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(service.now),
	)

	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		return apperr.TokenInvalid(err)
	}
	if !token.Valid {
		return apperr.TokenInvalid(jwt.ErrTokenInvalidClaims)
	}
	return nil
}

// # Helpers

func (service *TokenService) registered(userID int64, issuedAt time.Time, timeToLive time.Duration) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{
		Subject:   strconv.FormatInt(userID, 10),
		Issuer:    service.issuer,
		Audience:  jwt.ClaimStrings{service.audience},
		IssuedAt:  jwt.NewNumericDate(issuedAt),
		ExpiresAt: jwt.NewNumericDate(issuedAt.Add(timeToLive)),
	}
}

func sign(claims jwt.Claims, secret []byte) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign token: %w", err)
	}
	return signedToken, nil
}

func parseSubject(subject string) (int64, error) {
	id, err := strconv.ParseInt(subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("sec: invalid subject %q", subject)
	}
	return id, nil
}

// ExtractBearer parses an Authorization header of the form "Bearer <token>".
//
// The scheme is matched case-insensitively. ok is false when the header is
// empty or malformed.
func ExtractBearer(header string) (token string, ok bool) {
	scheme, value, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, BearerScheme) {
		return "", false
	}

	value = strings.TrimSpace(value)
	if value == "" || strings.ContainsAny(value, " \t") {
		return "", false
	}
	return value, true
}
