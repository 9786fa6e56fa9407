package model

// Actor is the authenticated identity performing a workflow action,
// extracted from the JWT claims by the auth middleware.
type Actor struct {
	Username string `json:"username"`
	Tenant   string `json:"tenant"`
	Role     string `json:"role"`
}

// User role constants
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// IsAdmin reports whether the actor holds the admin role
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
