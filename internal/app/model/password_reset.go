package model

import (
	"time"
)

// PasswordResetRequest is one OTP issuance. A user has at most one row
// with UsedAt == nil at any time.
type PasswordResetRequest struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	UserID       uint       `gorm:"not null;index" json:"user_id"`
	CodeHash     string     `gorm:"size:255;not null" json:"-"`
	Token        string     `gorm:"size:64;not null;uniqueIndex" json:"-"`
	ExpiresAt    time.Time  `gorm:"not null;index" json:"expires_at"`
	VerifiedAt   *time.Time `json:"verified_at"`
	UsedAt       *time.Time `gorm:"index" json:"used_at"`
	AttemptCount int        `gorm:"not null;default:0" json:"attempt_count"`
	CreatedAt    time.Time  `gorm:"index" json:"created_at"`

	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (PasswordResetRequest) TableName() string {
	return "password_reset_requests"
}

func (r *PasswordResetRequest) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

func (r *PasswordResetRequest) IsUsed() bool {
	return r.UsedAt != nil
}

func (r *PasswordResetRequest) IsVerified() bool {
	return r.VerifiedAt != nil
}
