package model

// Role is the access level carried in a bearer token.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID string
	Email  string
	Role   Role
}

// IsAdmin reports whether the actor may use admin operations.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Owns reports whether the actor placed the order or is an admin.
func (a Actor) Owns(order *Order) bool {
	return a.IsAdmin() || (a.UserID != "" && order.UserID == a.UserID)
}
