package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/school-attendance-go/internal/domain/auth"
	"github.com/cmlabs-hris/school-attendance-go/internal/handler/http/response"
)

// RequireRole rejects callers below min.
func RequireRole(min auth.Role) func(http.Handler) http.Handler {
	denied := auth.ErrOperatorAccess
	if min == auth.RoleAdmin {
		denied = auth.ErrAdminAccess
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromContext(r.Context())
			if !ok {
				response.HandleError(w, auth.ErrInvalidToken)
				return
			}

			if !claims.Role.AtLeast(min) {
				response.HandleError(w, denied)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireOperator requires operator or admin role
var RequireOperator = RequireRole(auth.RoleOperator)

// RequireAdmin requires admin role
var RequireAdmin = RequireRole(auth.RoleAdmin)
