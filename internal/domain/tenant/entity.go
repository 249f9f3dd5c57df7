package tenant

import "time"

// Tenant is one school. Nothing is shared across tenants.
type Tenant struct {
	ID        string
	Name      string
	Timezone  string // IANA name, empty means the system zone
	CreatedAt time.Time
}

// Location resolves the tenant's civil zone, falling back when the tenant has
// none configured or the name cannot be loaded.
func (t Tenant) Location(fallback *time.Location) *time.Location {
	if t.Timezone == "" {
		return fallback
	}
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return fallback
	}
	return loc
}
