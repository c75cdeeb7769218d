package models

import "time"

// Product is a sellable catalog entry. Rows are managed by catalog
// administration; the fulfillment pipeline only reads them.
type Product struct {
	ID              string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name            string    `gorm:"type:varchar(200);not null" json:"name"`
	Description     string    `gorm:"type:text" json:"description"`
	CoverURL        string    `gorm:"type:varchar(255)" json:"cover_url"`
	AudioURL        string    `gorm:"type:varchar(255)" json:"audio_url"`
	StripeProductID string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"stripe_product_id"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Product) TableName() string {
	return "products"
}
