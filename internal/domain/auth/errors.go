package auth

import "errors"

var (
	ErrInvalidToken    = errors.New("invalid or expired token")
	ErrTenantRequired  = errors.New("token carries no tenant")
	ErrOperatorAccess  = errors.New("operator or admin role required")
	ErrAdminAccess     = errors.New("admin role required")
	ErrInvalidRole     = errors.New("invalid role")
	ErrUserIDRequired  = errors.New("user id is required")
	ErrTenantIDInvalid = errors.New("tenant id must be a valid UUID")
)
