package service

import (
	"context"

	"github.com/sandeepkv93/echo-backend/internal/domain"
	"github.com/sandeepkv93/echo-backend/internal/security"
)

type AuthServiceInterface interface {
	Signup(in SignupInput) (*LoginResult, error)
	Login(in LoginInput) (*LoginResult, error)
	Guest(device DeviceInput) (*LoginResult, error)
	Refresh(refreshOpaque, deviceID string) (*LoginResult, error)
	CheckEmail(email string) (bool, error)
	Logout(accessOpaque string) error
}

// AccessValidator resolves a bearer string to its claims.
type AccessValidator interface {
	ValidateAccess(opaque string) (*security.Claims, error)
}

type UserServiceInterface interface {
	Me(userID string) (*domain.User, error)
	Update(userID string, patch UserPatch) (*domain.User, error)
	Delete(userID string) error
}

type DeviceServiceInterface interface {
	List(userID string) ([]domain.Device, error)
	Update(userID, deviceID string, patch DevicePatch) (*domain.Device, error)
	Delete(userID, deviceID string) error
}

type StorageServiceInterface interface {
	PresignPut(ctx context.Context, key string) (*PresignedURL, error)
	PresignGet(ctx context.Context, key string) (*PresignedURL, error)
}
