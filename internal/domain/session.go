package domain

import "time"

// Session is the single active credential record of a device. A later mint
// for the same device overwrites AccessToken, RefreshToken, Key, Nonce and
// UserID in place.
type Session struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	AccessToken  string    `gorm:"type:text;index;not null" json:"-"`
	RefreshToken string    `gorm:"type:text;index;not null" json:"-"`
	Key          string    `gorm:"size:64;not null" json:"-"`
	Nonce        string    `gorm:"size:97;not null" json:"-"`
	UserID       string    `gorm:"size:36;index;not null" json:"userId"`
	DeviceID     string    `gorm:"size:255;index;not null" json:"deviceId"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
