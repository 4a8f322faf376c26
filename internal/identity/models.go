// Package identity holds the minimal view of platform accounts the
// vetting workflow needs: who is an administrator, and the derived
// role/status markers kept in sync with vetting outcomes.
package identity

import (
	"time"

	id "gatherhall/pkg/domain"
)

// Role is the platform account role.
type Role string

const (
	RoleMember        Role = "Member"
	RoleVettedMember  Role = "VettedMember"
	RoleAdministrator Role = "Administrator"
)

// User is a platform account linked (or linkable) to a vetting application.
type User struct {
	ID          id.UserID `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	Role        Role      `json:"role"`

	// VettingStatus mirrors the linked application's outcome so hot
	// access checks don't need the application row.
	VettingStatus string    `json:"vetting_status,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// IsAdmin reports whether the account holds the administrator capability.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdministrator
}
