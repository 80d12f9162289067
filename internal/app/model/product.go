package model

import (
	"time"

	"gorm.io/gorm"
)

// PriceTier is one quantity break in a product's wholesale pricing.
type PriceTier struct {
	MinQuantity int     `json:"min_quantity"`
	MaxQuantity *int    `json:"max_quantity,omitempty"`
	Price       float64 `json:"price"`
}

type Product struct {
	ID             uint                   `gorm:"primarykey" json:"id"`
	Name           string                 `gorm:"size:255;not null" json:"name"`
	Description    string                 `gorm:"type:text" json:"description"`
	Category       string                 `gorm:"size:100;index" json:"category"`
	SubCategory    string                 `gorm:"size:100;index" json:"sub_category"`
	PriceTiers     []PriceTier            `gorm:"serializer:json;type:text" json:"price_tiers"`
	Colors         []string               `gorm:"serializer:json;type:text" json:"colors"`
	Sizes          []string               `gorm:"serializer:json;type:text" json:"sizes"`
	Specifications map[string]interface{} `gorm:"serializer:json;type:text" json:"specifications"`
	Images         []string               `gorm:"serializer:json;type:text" json:"images"`
	MOQ            int                    `gorm:"column:moq;not null;default:1" json:"moq"`
	LeadTime       string                 `gorm:"size:100" json:"lead_time"`
	Material       string                 `gorm:"size:255" json:"material"`
	Warranty       string                 `gorm:"size:255" json:"warranty"`
	Certifications string                 `gorm:"type:text" json:"certifications"`
	ShippingTerms  string                 `gorm:"type:text" json:"shipping_terms"`
	PaymentTerms   string                 `gorm:"type:text" json:"payment_terms"`
	BulkPricing    string                 `gorm:"type:text" json:"bulk_pricing"`
	OwnerID        *uint                  `gorm:"index" json:"owner"`
	CreatedAt      time.Time              `gorm:"index" json:"created_at"`
	UpdatedAt      time.Time              `json:"updated_at"`
	DeletedAt      gorm.DeletedAt         `gorm:"index" json:"-"`

	Owner *User `gorm:"foreignKey:OwnerID;constraint:OnDelete:SET NULL" json:"-"`
}

func (Product) TableName() string {
	return "products"
}

// OwnedBy reports whether userID created the product.
func (p *Product) OwnedBy(userID uint) bool {
	return p.OwnerID != nil && *p.OwnerID == userID
}
