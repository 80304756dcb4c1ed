package domain

import "time"

type UserKind string

const (
	UserKindRegistered UserKind = "user"
	UserKindGuest      UserKind = "guest"
)

type User struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	Kind          UserKind  `gorm:"size:16;index;not null" json:"type"`
	Email         *string   `gorm:"size:320;uniqueIndex" json:"email,omitempty"`
	PasswordHash  *string   `gorm:"size:255" json:"-"`
	Name          *string   `gorm:"size:255" json:"name,omitempty"`
	AvatarSeed    string    `gorm:"size:255" json:"avatarSeed"`
	VerifiedEmail *bool     `json:"verifiedEmail,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (u *User) IsGuest() bool { return u.Kind == UserKindGuest }
