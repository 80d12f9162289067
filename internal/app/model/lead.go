package model

import (
	"fmt"
	"strings"
	"time"
)

type LeadStatus string

const (
	LeadStatusNew            LeadStatus = "NEW"
	LeadStatusQualified      LeadStatus = "QUALIFIED"
	LeadStatusScopeLocked    LeadStatus = "SCOPE_LOCKED"
	LeadStatusPISent         LeadStatus = "PI_SENT"
	LeadStatusOrderConfirmed LeadStatus = "ORDER_CONFIRMED"
	LeadStatusLost           LeadStatus = "LOST"
)

func ParseLeadStatus(s string) (LeadStatus, error) {
	st := LeadStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return "", fmt.Errorf("unknown lead status %q", s)
	}
	return st, nil
}

func (s LeadStatus) Valid() bool {
	switch s {
	case LeadStatusNew, LeadStatusQualified, LeadStatusScopeLocked,
		LeadStatusPISent, LeadStatusOrderConfirmed, LeadStatusLost:
		return true
	default:
		return false
	}
}

// Lead is a sourcing enquiry. UserID is the buyer who raised it,
// AssignedToID the seller or admin handling it.
type Lead struct {
	ID           uint       `gorm:"primarykey" json:"id"`
	Name         string     `gorm:"size:255;not null" json:"name"`
	Email        string     `gorm:"size:254;not null" json:"email"`
	Phone        string     `gorm:"size:32" json:"phone"`
	Company      string     `gorm:"size:255" json:"company"`
	Country      string     `gorm:"size:100" json:"country"`
	ProductType  string     `gorm:"size:255" json:"product_type"`
	Quantity     int        `gorm:"not null;default:0" json:"quantity"`
	Message      string     `gorm:"type:text" json:"message"`
	ProductID    *uint      `gorm:"index" json:"product"`
	Status       LeadStatus `gorm:"type:varchar(32);not null;default:'NEW';index" json:"status"`
	UserID       *uint      `gorm:"index" json:"user"`
	AssignedToID *uint      `gorm:"index" json:"assigned_to"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`

	Product    *Product `gorm:"foreignKey:ProductID;constraint:OnDelete:SET NULL" json:"-"`
	User       *User    `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" json:"-"`
	AssignedTo *User    `gorm:"foreignKey:AssignedToID;constraint:OnDelete:SET NULL" json:"-"`
}

func (Lead) TableName() string {
	return "leads"
}
