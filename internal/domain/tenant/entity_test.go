package tenant

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTenant_Location(t *testing.T) {
	fallback := time.FixedZone("WIB", 7*3600)

	assert.Equal(t, fallback, Tenant{}.Location(fallback))
	assert.Equal(t, fallback, Tenant{Timezone: "Not/AZone"}.Location(fallback))
	assert.Equal(t, "Asia/Makassar", Tenant{Timezone: "Asia/Makassar"}.Location(fallback).String())
}
