package model

import (
	"fmt"
	"strings"
	"time"
)

// Role is the closed set of account roles. Every authorization decision
// switches over it exhaustively; an unknown value is never treated as a
// weaker role.
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleSeller Role = "SELLER"
	RoleBuyer  Role = "BUYER"
)

var Roles = []Role{RoleAdmin, RoleSeller, RoleBuyer}

// ParseRole accepts any casing and surrounding whitespace.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleSeller, RoleBuyer:
		return true
	default:
		return false
	}
}

// RequiresApproval reports whether a freshly registered account with this
// role must wait for an admin decision before it can log in.
func (r Role) RequiresApproval() bool {
	switch r {
	case RoleSeller:
		return true
	case RoleAdmin, RoleBuyer:
		return false
	default:
		return true
	}
}

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "PENDING"
	ApprovalApproved ApprovalStatus = "APPROVED"
	ApprovalRejected ApprovalStatus = "REJECTED"
)

func ParseApprovalStatus(s string) (ApprovalStatus, error) {
	st := ApprovalStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("unknown approval status %q", s)
	}
	return st, nil
}

func (s ApprovalStatus) Valid() bool {
	switch s {
	case ApprovalPending, ApprovalApproved, ApprovalRejected:
		return true
	default:
		return false
	}
}

type User struct {
	ID             uint           `gorm:"primarykey" json:"id"`
	Email          string         `gorm:"uniqueIndex;size:254;not null" json:"email"`
	PasswordHash   string         `gorm:"not null" json:"-"`
	FirstName      string         `gorm:"size:150" json:"first_name"`
	LastName       string         `gorm:"size:150" json:"last_name"`
	Phone          string         `gorm:"size:32" json:"phone"`
	Company        string         `gorm:"size:255" json:"company"`
	AvatarURL      string         `json:"avatar"`
	Role           Role           `gorm:"type:varchar(20);not null;index" json:"role"`
	ApprovalStatus ApprovalStatus `gorm:"type:varchar(20);not null;default:'APPROVED';index" json:"approval_status"`
	ApprovalNotes  string         `gorm:"type:text" json:"approval_notes"`
	ApprovedAt     *time.Time     `json:"approved_at"`
	ApprovedByID   *uint          `gorm:"index" json:"approved_by"`
	IsActive       bool           `gorm:"not null" json:"is_active"`
	CreatedAt      time.Time      `json:"date_joined"`
	UpdatedAt      time.Time      `json:"updated_at"`

	ApprovedBy *User `gorm:"foreignKey:ApprovedByID;constraint:OnDelete:SET NULL" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// FullName is "first last" trimmed, or empty.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// DisplayName falls back to the email address when no name is set.
func (u *User) DisplayName() string {
	if name := u.FullName(); name != "" {
		return name
	}
	return u.Email
}

// TransitionApproval moves the account to status on behalf of admin and
// recomputes the derived fields. It is the only place approval fields are
// written, so is_active/approved_at/approved_by can never disagree with
// approval_status.
func (u *User) TransitionApproval(status ApprovalStatus, adminID uint, now time.Time) {
	u.ApprovalStatus = status
	switch status {
	case ApprovalApproved:
		u.IsActive = true
		at := now
		u.ApprovedAt = &at
		id := adminID
		u.ApprovedByID = &id
	case ApprovalPending, ApprovalRejected:
		u.IsActive = false
		u.ApprovedAt = nil
		u.ApprovedByID = nil
	}
	u.ApprovedBy = nil
}

// ReconcileApproval restores is_active to match the current status and
// reports whether anything had drifted.
func (u *User) ReconcileApproval() bool {
	want := u.ApprovalStatus == ApprovalApproved
	if u.IsActive == want {
		return false
	}
	u.IsActive = want
	return true
}
