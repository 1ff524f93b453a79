package models

import "time"

// User roles
const (
	RoleAdmin  = "admin"
	RoleVendor = "vendor"
)

var manageRoles = map[string]bool{
	RoleAdmin:  true,
	RoleVendor: true,
}

// User is a staff member acting on the store
type User struct {
	ID        int64     `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	FirstName string    `db:"first_name" json:"first_name"`
	LastName  string    `db:"last_name" json:"last_name"`
	Role      string    `db:"role" json:"role"`
	IsStaff   bool      `db:"is_staff" json:"is_staff"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	ImageURL  string    `db:"image_url" json:"image_url"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ValidRole reports whether role is one of the known staff roles
func ValidRole(role string) bool {
	return manageRoles[role]
}

// CanManage reports whether the actor may create, edit or delete records
func CanManage(u *User) bool {
	if u == nil || !u.IsActive {
		return false
	}
	return u.IsStaff || manageRoles[u.Role]
}
