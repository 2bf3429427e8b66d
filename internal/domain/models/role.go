// internal/domain/models/role.go
package models

import "strings"

// Role is the closed set of account roles. Every profile carries exactly one.
type Role string

const (
	RoleAdmin          Role = "admin"
	RoleClient         Role = "client"
	RoleClientHead     Role = "client_head"
	RoleEmployee       Role = "employee"
	RoleProjectManager Role = "project_manager"
)

// Roles lists every valid role in display order.
var Roles = []Role{RoleAdmin, RoleClientHead, RoleClient, RoleProjectManager, RoleEmployee}

// ParseRole returns the Role for s (case-insensitive) and whether it is valid.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case RoleAdmin, RoleClient, RoleClientHead, RoleEmployee, RoleProjectManager:
		return r, true
	}
	return "", false
}

// UserType is the coarse client/employee split used by the member screens.
type UserType string

const (
	UserTypeClient   UserType = "client"
	UserTypeEmployee UserType = "employee"
)

// ParseUserType returns the UserType for s (case-insensitive) and whether it is valid.
func ParseUserType(s string) (UserType, bool) {
	t := UserType(strings.ToLower(strings.TrimSpace(s)))
	switch t {
	case UserTypeClient, UserTypeEmployee:
		return t, true
	}
	return "", false
}

// Family returns the UserType a role belongs to. Admins have no family.
func (r Role) Family() (UserType, bool) {
	switch r {
	case RoleClient, RoleClientHead:
		return UserTypeClient, true
	case RoleEmployee, RoleProjectManager:
		return UserTypeEmployee, true
	}
	return "", false
}

// ConsistentWith reports whether r belongs to the family t.
func (r Role) ConsistentWith(t UserType) bool {
	fam, ok := r.Family()
	return ok && fam == t
}

// IsClient reports whether r is in the client family.
func (r Role) IsClient() bool {
	fam, ok := r.Family()
	return ok && fam == UserTypeClient
}
