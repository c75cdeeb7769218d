package models

import "time"

// TrackPlay is an append-only play log row from the streaming dashboard.
type TrackPlay struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    *string   `gorm:"type:varchar(64);index;default:null" json:"user_id,omitempty"`
	ProductID string    `gorm:"type:varchar(36);not null;index" json:"product_id"`
	TrackName string    `gorm:"type:varchar(255);not null" json:"track_name"`
	PlayedAt  time.Time `gorm:"autoCreateTime;index" json:"played_at"`
}

func (TrackPlay) TableName() string {
	return "track_plays"
}
