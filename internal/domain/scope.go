package domain

// Role identifies the kind of actor performing an operation.
type Role string

// List of actor roles
const (
	RoleAdmin      Role = "ADMIN"
	RoleHubManager Role = "HUB_MANAGER"
	RoleRider      Role = "RIDER"
	RoleMerchant   Role = "MERCHANT"
	RoleSystem     Role = "SYSTEM"
)

var allowedRoles = [...]Role{RoleAdmin, RoleHubManager, RoleRider, RoleMerchant, RoleSystem}

// Valid checks if the Role is known.
func (r Role) Valid() bool {
	for _, v := range allowedRoles {
		if r == v {
			return true
		}
	}
	return false
}

// Scope is the explicit acting identity passed into every core operation.
// Hub, rider and merchant ids are ownership filters only.
type Scope struct {
	UserID     int64
	Role       Role
	HubID      *int64
	RiderID    *int64
	MerchantID *int64
}

// SystemScope returns the scope used by background jobs.
func SystemScope() Scope {
	return Scope{Role: RoleSystem}
}

// IsAdmin reports whether the scope may perform review/payment actions.
func (s Scope) IsAdmin() bool {
	return s.Role == RoleAdmin || s.Role == RoleSystem
}

// HoldsHub reports whether the scope acts for hubID. A scope without a hub holds none.
func (s Scope) HoldsHub(hubID *int64) bool {
	return s.HubID != nil && hubID != nil && *s.HubID == *hubID
}

// Int64Ptr returns a pointer to v.
func Int64Ptr(v int64) *int64 { return &v }

// SameID reports whether two optional ids are both set and equal.
func SameID(a, b *int64) bool {
	return a != nil && b != nil && *a == *b
}
