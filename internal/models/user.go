package models

type UserRole string

const (
	RoleEmployee UserRole = "employee"
	RoleManager  UserRole = "manager"
	RoleAdmin    UserRole = "admin"
)

// AuthClaims is the identity extracted from the platform JWT. The
// department travels in the token so attempts can snapshot it without a
// directory lookup.
type AuthClaims struct {
	UserID     string   `json:"user_id"`
	Name       string   `json:"name,omitempty"`
	Department string   `json:"department,omitempty"`
	Role       UserRole `json:"role"`
}

func (c AuthClaims) IsAdmin() bool   { return c.Role == RoleAdmin }
func (c AuthClaims) IsManager() bool { return c.Role == RoleManager || c.Role == RoleAdmin }
