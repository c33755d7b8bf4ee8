package models

import "strings"

type Role string

const (
	RoleGuard      Role = "guard"
	RoleClient     Role = "client"
	RoleOwner      Role = "owner"
	RoleManagement Role = "management"
	RoleOperations Role = "operations"
	RoleDispatch   Role = "dispatch"
	RoleSupervisor Role = "supervisor"
	RoleSecretary  Role = "secretary"
)

// StaffRoles are the back-office roles that share the company channels.
var StaffRoles = []Role{RoleOwner, RoleManagement, RoleOperations, RoleDispatch, RoleSupervisor, RoleSecretary}

// IsStaff reports whether r is one of StaffRoles.
func (r Role) IsStaff() bool {
	for _, s := range StaffRoles {
		if r == s {
			return true
		}
	}
	return false
}

// ParseRole normalises a role string; unknown values are returned as-is in lower case.
func ParseRole(s string) Role {
	return Role(strings.ToLower(strings.TrimSpace(s)))
}

// User is the session descriptor handed to the provisioner at login.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Role        Role   `json:"role"`
	TeamID      string `json:"team_id,omitempty"`
	TeamName    string `json:"team_name,omitempty"`
	Badge       string `json:"badge,omitempty"`
	Rank        string `json:"rank,omitempty"`
}

// Participant converts the user into a conversation participant descriptor.
func (u User) Participant() Participant {
	return Participant{UserID: u.ID, DisplayName: u.DisplayName, Role: u.Role, Rank: u.Rank}
}
