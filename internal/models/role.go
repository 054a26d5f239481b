package models

import "fmt"

// Role identifies who authored a chat message
type Role string

const (
	RoleUser   Role = "user"
	RoleBot    Role = "bot"
	RoleSystem Role = "system"
)

// ParseRole converts a string into a Role, rejecting anything outside the
// closed set. Unknown roles are refused at the boundary so downstream code
// can match exhaustively.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleBot, RoleSystem:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role: %q", s)
	}
}

// Valid reports whether the role is one of the known values
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleBot, RoleSystem:
		return true
	}
	return false
}
