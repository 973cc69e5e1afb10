package users

import (
	"strings"
	"time"

	"github.com/supermart/supermart/internal/rbac"
)

// StaffDomain marks internal accounts.
const StaffDomain = "@supermart.com"

// User represents an account.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Role      rbac.Role `json:"role"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateInput carries a new account.
type CreateInput struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Username string `json:"username" validate:"required,max=150"`
	Phone    string `json:"phone" validate:"max=15"`
	Address  string `json:"address" validate:"max=500"`
	// Role overrides the role derived from the email when set.
	Role string `json:"role" validate:"omitempty,oneof=ADMIN MANAGER STAFF CUSTOMER"`
}

// ProfileInput carries a self-service profile change. Nil fields are left as is.
type ProfileInput struct {
	Username *string `json:"username" validate:"omitempty,min=1,max=150"`
	Phone    *string `json:"phone" validate:"omitempty,max=15"`
	Address  *string `json:"address" validate:"omitempty,max=500"`
}

// RoleForEmail derives a role from the email address. The internal addresses
// admin@ and manager@ get that role, every other internal address gets STAFF
// and everyone else is a CUSTOMER. Only an exact local part is elevated.
func RoleForEmail(email string) rbac.Role {
	email = strings.ToLower(strings.TrimSpace(email))
	if !strings.HasSuffix(email, StaffDomain) {
		return rbac.RoleCustomer
	}
	local := strings.TrimSuffix(email, StaffDomain)
	switch local {
	case "admin":
		return rbac.RoleAdmin
	case "manager":
		return rbac.RoleManager
	default:
		return rbac.RoleStaff
	}
}
