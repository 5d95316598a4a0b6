package auth

// Role represents a user role.
type Role string

const (
	RoleResident   Role = "resident"
	RoleAccountant Role = "accountant"
	RoleManager    Role = "manager"
)

// NormalizeRole validates and normalizes a role string.
func NormalizeRole(value string) (Role, bool) {
	switch Role(value) {
	case RoleResident, RoleAccountant, RoleManager:
		return Role(value), true
	default:
		return "", false
	}
}

// RoleAtLeast returns true when role satisfies required role.
func RoleAtLeast(role Role, required Role) bool {
	return roleRank(role) >= roleRank(required)
}

func roleRank(role Role) int {
	switch role {
	case RoleResident:
		return 1
	case RoleAccountant:
		return 2
	case RoleManager:
		return 3
	default:
		return 0
	}
}
