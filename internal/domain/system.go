package domain

import (
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// User is an operator account. Passwords are stored as entered.
type User struct {
	Username string `json:"user"`
	Password string `json:"pass"`
	Role     Role   `json:"role"`
}

// Matches compares the username case-insensitively after trimming.
func (u User) Matches(username string) bool {
	return strings.EqualFold(strings.TrimSpace(u.Username), strings.TrimSpace(username))
}

// CountAdmins number of ADMIN accounts in users
func CountAdmins(users []User) int {
	n := 0
	for _, u := range users {
		if u.Role == RoleAdmin {
			n++
		}
	}
	return n
}

// Activation records that this installation was activated.
type Activation struct {
	MachineID   string    `json:"machine_id"`
	ActivatedAt time.Time `json:"activated_at"`
}
