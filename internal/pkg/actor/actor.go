// internal/pkg/actor/actor.go
package actor

// Role is the coarse role attached to an authenticated user. Authorization
// decisions happen at the HTTP boundary; core services only receive the
// already-validated actor.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
)

// Actor identifies the authenticated caller of a core operation: which tenant
// it acts for, which user performs it, and the request it arrived on. It is
// passed explicitly through the call chain instead of living in a
// request-scoped container.
type Actor struct {
	OrganizationID uint
	UserID         uint
	Role           Role
	RequestID      string
}

// IsAdmin reports whether the actor carries the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
