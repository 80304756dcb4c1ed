package domain

import "time"

// Device ids are supplied by clients and stay stable across logins.
// UserID is the current owner; GuestID remembers the guest identity the
// device was first bound to so later guest entries reuse it.
type Device struct {
	ID        string    `gorm:"primaryKey;size:255" json:"id"`
	Name      *string   `gorm:"size:255" json:"name,omitempty"`
	Platform  *string   `gorm:"size:64" json:"platform,omitempty"`
	UserID    *string   `gorm:"size:36;index" json:"userId,omitempty"`
	GuestID   *string   `gorm:"size:36;index" json:"guestId,omitempty"`
	PushToken *string   `gorm:"type:text" json:"pushToken,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DevicePatch carries only the fields a caller supplied.
type DevicePatch struct {
	Name      *string `json:"name,omitempty"`
	Platform  *string `json:"platform,omitempty"`
	UserID    *string `json:"-"`
	GuestID   *string `json:"-"`
	PushToken *string `json:"pushToken,omitempty"`
}

func (p DevicePatch) Updates() map[string]any {
	updates := map[string]any{}
	if p.Name != nil {
		updates["name"] = *p.Name
	}
	if p.Platform != nil {
		updates["platform"] = *p.Platform
	}
	if p.UserID != nil {
		updates["user_id"] = *p.UserID
	}
	if p.GuestID != nil {
		updates["guest_id"] = *p.GuestID
	}
	if p.PushToken != nil {
		updates["push_token"] = *p.PushToken
	}
	return updates
}
