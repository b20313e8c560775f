package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowed(t *testing.T) {
	manager := Caller{
		Email:           "manager@acme.test",
		PlaceProviderID: "PR1",
		Roles: map[string][]Capability{
			"PR1": {RegistrationManager},
			"PR2": {MedicTester, PlaceProviderAdmin},
		},
	}

	tests := []struct {
		name       string
		caller     Caller
		capability Capability
		provider   string
		want       bool
	}{
		{"granted capability", manager, RegistrationManager, "PR1", true},
		{"capability scoped to provider", manager, RegistrationManager, "PR2", false},
		{"other provider capability", manager, MedicTester, "PR2", true},
		{"unknown provider", manager, RegistrationManager, "PR3", false},
		{"empty provider", manager, RegistrationManager, "", false},
		{"anonymous", Anonymous(), RegistrationManager, "PR1", false},
		{"roles without email are anonymous", Caller{Roles: manager.Roles}, RegistrationManager, "PR1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Allowed(tt.caller, tt.capability, tt.provider))
		})
	}

	assert.True(t, HasRegistrationManagerRole(manager, "PR1"))
	assert.True(t, HasMedicTesterRole(manager, "PR2"))
	assert.True(t, IsPlaceProviderAdmin(manager, "PR2"))
	assert.False(t, IsPlaceProviderAdmin(manager, "PR1"))
}
