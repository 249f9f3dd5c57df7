package jwt

import (
	"testing"
	"time"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/auth"
	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var operator = auth.Claims{
	TenantID: "0195a1b2-0000-7000-8000-000000000001",
	UserID:   "gate-1",
	Role:     auth.RoleOperator,
}

func TestGenerateAccessToken(t *testing.T) {
	svc := NewJWTService("secret", "1h")

	token, expiresAt, err := svc.GenerateAccessToken(operator)
	require.NoError(t, err)
	assert.InDelta(t, time.Now().Add(time.Hour).Unix(), expiresAt, 5)

	parsed, err := jwtauth.VerifyToken(svc.JWTAuth(), token)
	require.NoError(t, err)

	typ, _ := parsed.Get("type")
	assert.Equal(t, TypeAccess, typ)
	claims, ok := ClaimsFromMap(parsed.PrivateClaims())
	require.True(t, ok)
	assert.Equal(t, operator, claims)
}

func TestGenerateAccessToken_InvalidClaims(t *testing.T) {
	svc := NewJWTService("secret", "1h")

	bad := operator
	bad.TenantID = "school-1"
	_, _, err := svc.GenerateAccessToken(bad)
	assert.ErrorIs(t, err, auth.ErrTenantIDInvalid)

	bad = operator
	bad.Role = "owner"
	_, _, err = svc.GenerateAccessToken(bad)
	assert.ErrorIs(t, err, auth.ErrInvalidRole)

	_, _, err = NewJWTService("secret", "forever").GenerateAccessToken(operator)
	assert.Error(t, err)
}

func TestSSEToken(t *testing.T) {
	svc := NewJWTService("secret", "1h")

	token, expiresIn, err := svc.GenerateSSEToken(operator)
	require.NoError(t, err)
	assert.Equal(t, 300, expiresIn)

	claims, err := svc.ValidateSSEToken(token)
	require.NoError(t, err)
	assert.Equal(t, operator, claims)

	// An access token is not accepted on the stream.
	access, _, err := svc.GenerateAccessToken(operator)
	require.NoError(t, err)
	_, err = svc.ValidateSSEToken(access)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	// Nor a token signed with another key.
	other, _, err := NewJWTService("other", "1h").GenerateSSEToken(operator)
	require.NoError(t, err)
	_, err = svc.ValidateSSEToken(other)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}
