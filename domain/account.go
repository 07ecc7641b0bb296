package domain

import (
	"strings"
	"time"
)

// Account roles.
const (
	RoleAdmin = "Admin"
	RoleStaff = "Staff"
)

type Account struct {
	ID        int64     `json:"id" db:"id"`
	Username  string    `json:"username" db:"username"`
	FirstName string    `json:"first_name" db:"first_name"`
	LastName  string    `json:"last_name" db:"last_name"`
	Password  string    `json:"-" db:"password"`
	Role      string    `json:"role" db:"role"`
	Active    bool      `json:"is_active" db:"is_active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// DisplayName is the name printed on receipts. It falls back to the username
// when the account has no personal name on file.
func (a Account) DisplayName() string {
	name := strings.TrimSpace(strings.TrimSpace(a.FirstName) + " " + strings.TrimSpace(a.LastName))
	if name != "" {
		return name
	}
	return a.Username
}
