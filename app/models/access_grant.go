package models

import "time"

// AccessGrant records that a user may retrieve a digital product. The
// (user_id, product_id) pair is unique; repeated grants for the same purchase
// must collapse into one row. Grants never expire and are never deleted here.
type AccessGrant struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	UserID    string    `gorm:"type:varchar(64);not null;index:ux_user_access_user_product,unique,priority:1" json:"user_id"`
	ProductID string    `gorm:"type:varchar(36);not null;index:ux_user_access_user_product,unique,priority:2" json:"product_id"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (AccessGrant) TableName() string {
	return "user_access"
}
