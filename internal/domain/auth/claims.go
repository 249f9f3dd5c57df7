package auth

// Role is the caller's permission level inside its tenant.
type Role string

const (
	// RoleScanner is a gate device. It may record scans and departures only.
	RoleScanner  Role = "scanner"
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleScanner, RoleOperator, RoleAdmin:
		return true
	}
	return false
}

// AtLeast reports whether r grants everything min grants.
func (r Role) AtLeast(min Role) bool {
	return rank[r] >= rank[min] && rank[r] > 0
}

var rank = map[Role]int{
	RoleScanner:  1,
	RoleOperator: 2,
	RoleAdmin:    3,
}

// Claims identifies the caller of an authenticated request.
type Claims struct {
	TenantID string
	UserID   string
	Role     Role
}

type StreamTokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expires_in"`
}
