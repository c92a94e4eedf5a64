// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/apisegura/internal/platform/apperr"
	"github.com/taibuivan/apisegura/internal/platform/sec"
)

var testTokenConfig = sec.TokenConfig{
	AccessSecret:  "access-secret-for-tests",
	RefreshSecret: "refresh-secret-for-tests",
	Issuer:        "api-segura",
	Audience:      "api-segura-users",
	AccessTTL:     15 * time.Minute,
	RefreshTTL:    7 * 24 * time.Hour,
}

var testIdentity = sec.Identity{ID: 42, Username: "alice", Email: "alice@example.com", Role: sec.RoleUser}

// fakeClock is a settable time source with second precision.
type fakeClock struct{ current time.Time }

func (clock *fakeClock) Now() time.Time { return clock.current }

func newTestService(t *testing.T) (*sec.TokenService, *fakeClock) {
	t.Helper()
	clock := &fakeClock{current: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	service, err := sec.NewTokenService(testTokenConfig, sec.WithClock(clock.Now))
	require.NoError(t, err)
	return service, clock
}

func TestNewTokenService_RejectsBadSecrets(t *testing.T) {
	tests := []struct {
		name    string
		access  string
		refresh string
	}{
		{"empty access", "", "r"},
		{"empty refresh", "a", ""},
		{"identical", "same", "same"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := testTokenConfig
			config.AccessSecret = tt.access
			config.RefreshSecret = tt.refresh

			_, err := sec.NewTokenService(config)
			assert.Error(t, err)
		})
	}
}

func TestAccessToken_RoundTrip(t *testing.T) {
	service, clock := newTestService(t)

	token, err := service.IssueAccessToken(testIdentity)
	require.NoError(t, err)

	claims, err := service.VerifyAccessToken(token)
	require.NoError(t, err)

	userID, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, sec.RoleUser, claims.Role)
	assert.Equal(t, "api-segura", claims.Issuer)
	assert.Equal(t, jwt.ClaimStrings{"api-segura-users"}, claims.Audience)
	assert.Equal(t, clock.current.Add(15*time.Minute).Unix(), claims.ExpiresAt.Unix())
}

func TestAccessToken_ExpiryBoundary(t *testing.T) {
	service, clock := newTestService(t)
	issuedAt := clock.current

	token, err := service.IssueAccessToken(testIdentity)
	require.NoError(t, err)

	// One second before expiry the token is still valid.
	clock.current = issuedAt.Add(15*time.Minute - time.Second)
	_, err = service.VerifyAccessToken(token)
	assert.NoError(t, err)

	// At exactly the expiry instant it is rejected.
	clock.current = issuedAt.Add(15 * time.Minute)
	_, err = service.VerifyAccessToken(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrTokenInvalid)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestVerifyAccessToken_Rejects(t *testing.T) {
	service, clock := newTestService(t)

	valid, err := service.IssueAccessToken(testIdentity)
	require.NoError(t, err)

	refresh, _, err := service.IssueRefreshToken(testIdentity)
	require.NoError(t, err)

	otherIssuerConfig := testTokenConfig
	otherIssuerConfig.Issuer = "someone-else"
	otherIssuer, err := sec.NewTokenService(otherIssuerConfig, sec.WithClock(clock.Now))
	require.NoError(t, err)
	foreign, err := otherIssuer.IssueAccessToken(testIdentity)
	require.NoError(t, err)

	otherAudienceConfig := testTokenConfig
	otherAudienceConfig.Audience = "other-app"
	otherAudience, err := sec.NewTokenService(otherAudienceConfig, sec.WithClock(clock.Now))
	require.NoError(t, err)
	wrongAudience, err := otherAudience.IssueAccessToken(testIdentity)
	require.NoError(t, err)

	otherSecretConfig := testTokenConfig
	otherSecretConfig.AccessSecret = "a-different-access-secret"
	otherSecret, err := sec.NewTokenService(otherSecretConfig, sec.WithClock(clock.Now))
	require.NoError(t, err)
	wrongSecret, err := otherSecret.IssueAccessToken(testIdentity)
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "42"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-jwt"},
		{"truncated", valid[:len(valid)/2]},
		{"wrong secret", wrongSecret},
		{"refresh token on access verifier", refresh},
		{"wrong issuer", foreign},
		{"wrong audience", wrongAudience},
		{"alg none", noneToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.VerifyAccessToken(tt.token)
			assert.ErrorIs(t, err, apperr.ErrTokenInvalid)
		})
	}
}

func TestRefreshToken_RoundTrip(t *testing.T) {
	service, clock := newTestService(t)

	token, expiresAt, err := service.IssueRefreshToken(testIdentity)
	require.NoError(t, err)
	assert.Equal(t, clock.current.Add(7*24*time.Hour), expiresAt)

	claims, err := service.VerifyRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, sec.TokenTypeRefresh, claims.Type)
	assert.Equal(t, "alice", claims.Username)
	assert.NotEmpty(t, claims.ID)

	userID, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)
}

func TestRefreshToken_UniqueWithinSameSecond(t *testing.T) {
	service, _ := newTestService(t)

	first, _, err := service.IssueRefreshToken(testIdentity)
	require.NoError(t, err)
	second, _, err := service.IssueRefreshToken(testIdentity)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestVerifyRefreshToken_RejectsAccessToken(t *testing.T) {
	service, _ := newTestService(t)

	access, err := service.IssueAccessToken(testIdentity)
	require.NoError(t, err)

	_, err = service.VerifyRefreshToken(access)
	assert.ErrorIs(t, err, apperr.ErrTokenInvalid)
}

func TestVerifyRefreshToken_RequiresRefreshType(t *testing.T) {
	service, clock := newTestService(t)

	claims := jwt.MapClaims{
		"sub":  "42",
		"iss":  testTokenConfig.Issuer,
		"aud":  testTokenConfig.Audience,
		"iat":  clock.current.Unix(),
		"exp":  clock.current.Add(time.Hour).Unix(),
		"type": "access",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testTokenConfig.RefreshSecret))
	require.NoError(t, err)

	_, err = service.VerifyRefreshToken(token)
	assert.ErrorIs(t, err, apperr.ErrTokenInvalid)
	assert.ErrorIs(t, err, sec.ErrWrongTokenType)
}

func TestIssueTokenPair(t *testing.T) {
	service, _ := newTestService(t)

	pair, err := service.IssueTokenPair(testIdentity)
	require.NoError(t, err)

	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.Equal(t, int64(900), pair.ExpiresIn)
	assert.Equal(t, "Bearer", pair.TokenType)
	assert.False(t, pair.RefreshExpiresAt.IsZero())
}

func TestExtractBearer(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc.def.ghi", "abc.def.ghi", true},
		{"bearer abc", "abc", true},
		{"BEARER   abc  ", "abc", true},
		{"", "", false},
		{"Bearer", "", false},
		{"Bearer ", "", false},
		{"Basic dXNlcjpwYXNz", "", false},
		{"Bearer a b", "", false},
		{"abc.def.ghi", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			token, ok := sec.ExtractBearer(tt.header)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.token, token)
		})
	}
}
