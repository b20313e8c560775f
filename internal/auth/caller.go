// Package auth carries the identity of whoever invokes a workflow and the
// capability checks privileged workflows gate on. Authentication itself
// happens in the transport layer; this package only evaluates what it produced.
package auth

type Capability string

const (
	RegistrationManager Capability = "RegistrationManager"
	MedicTester         Capability = "MedicTester"
	PlaceProviderAdmin  Capability = "PPAdmin"
)

// Caller is the identity attached to a request. The zero value is anonymous.
type Caller struct {
	Email           string
	PlaceProviderID string
	// Roles are granted per place provider id.
	Roles map[string][]Capability
}

func Anonymous() Caller {
	return Caller{}
}

func (c Caller) IsAnonymous() bool {
	return c.Email == ""
}

// Allowed reports whether the caller holds capability for providerID.
func Allowed(c Caller, capability Capability, providerID string) bool {
	if c.IsAnonymous() || providerID == "" {
		return false
	}
	for _, granted := range c.Roles[providerID] {
		if granted == capability {
			return true
		}
	}
	return false
}

func HasRegistrationManagerRole(c Caller, providerID string) bool {
	return Allowed(c, RegistrationManager, providerID)
}

func HasMedicTesterRole(c Caller, providerID string) bool {
	return Allowed(c, MedicTester, providerID)
}

func IsPlaceProviderAdmin(c Caller, providerID string) bool {
	return Allowed(c, PlaceProviderAdmin, providerID)
}
