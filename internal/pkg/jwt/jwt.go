package jwt

import (
	"time"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/auth"
	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const (
	TypeAccess = "access"
	TypeSSE    = "sse"

	sseTokenLifetime = 5 * time.Minute
)

type Service interface {
	GenerateAccessToken(claims auth.Claims) (token string, expiresAt int64, err error)
	GenerateSSEToken(claims auth.Claims) (token string, expiresIn int, err error)
	ValidateSSEToken(tokenString string) (auth.Claims, error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	accessTokenExpirationTime string
	tokenAuth                 *jwtauth.JWTAuth
	now                       func() time.Time
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func NewJWTService(secretKey string, accessTokenExpirationTime string) Service {
	return &JWTService{
		accessTokenExpirationTime: accessTokenExpirationTime,
		tokenAuth:                 jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
		now:                       time.Now,
	}
}

func validateClaims(c auth.Claims) error {
	if _, err := uuid.Parse(c.TenantID); err != nil {
		return auth.ErrTenantIDInvalid
	}
	if c.UserID == "" {
		return auth.ErrUserIDRequired
	}
	if !c.Role.IsValid() {
		return auth.ErrInvalidRole
	}
	return nil
}

func (j *JWTService) encode(c auth.Claims, tokenType string, expiresAt int64) (string, error) {
	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"tenant_id": c.TenantID,
		"user_id":   c.UserID,
		"role":      string(c.Role),
		"type":      tokenType,
		"exp":       expiresAt,
	})
	return tokenString, err
}

func (j *JWTService) GenerateAccessToken(claims auth.Claims) (token string, expiresAt int64, err error) {
	if err := validateClaims(claims); err != nil {
		return "", 0, err
	}
	expDuration, err := time.ParseDuration(j.accessTokenExpirationTime)
	if err != nil {
		return "", 0, err
	}
	expiresAt = j.now().Add(expDuration).Unix()

	token, err = j.encode(claims, TypeAccess, expiresAt)
	return token, expiresAt, err
}

// GenerateSSEToken generates a short-lived token for SSE connections
func (j *JWTService) GenerateSSEToken(claims auth.Claims) (token string, expiresIn int, err error) {
	if err := validateClaims(claims); err != nil {
		return "", 0, err
	}
	expiresAt := j.now().Add(sseTokenLifetime).Unix()

	token, err = j.encode(claims, TypeSSE, expiresAt)
	if err != nil {
		return "", 0, err
	}
	return token, int(sseTokenLifetime.Seconds()), nil
}

// ValidateSSEToken validates an SSE token and returns its claims
func (j *JWTService) ValidateSSEToken(tokenString string) (auth.Claims, error) {
	token, err := jwtauth.VerifyToken(j.tokenAuth, tokenString)
	if err != nil {
		return auth.Claims{}, auth.ErrInvalidToken
	}

	tokenType, ok := token.Get("type")
	if !ok || tokenType != TypeSSE {
		return auth.Claims{}, auth.ErrInvalidToken
	}

	claims, ok := ClaimsFromMap(token.PrivateClaims())
	if !ok {
		return auth.Claims{}, auth.ErrInvalidToken
	}
	return claims, nil
}

// ClaimsFromMap reads the private claims set by this service.
func ClaimsFromMap(m map[string]interface{}) (auth.Claims, bool) {
	tenantID, _ := m["tenant_id"].(string)
	userID, _ := m["user_id"].(string)
	role, _ := m["role"].(string)

	c := auth.Claims{TenantID: tenantID, UserID: userID, Role: auth.Role(role)}
	if validateClaims(c) != nil {
		return auth.Claims{}, false
	}
	return c, true
}
