package models

import "time"

// Profile denormalizes identity-provider data for display. ID is the Clerk
// user id; rows are upserted best-effort during fulfillment.
type Profile struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Email     string    `gorm:"type:varchar(200);index" json:"email"`
	FullName  string    `gorm:"type:varchar(200)" json:"full_name"`
	IsAdmin   bool      `gorm:"default:false" json:"is_admin"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Profile) TableName() string {
	return "profiles"
}
