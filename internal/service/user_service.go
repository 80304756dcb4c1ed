package service

import (
	"errors"
	"fmt"

	"github.com/sandeepkv93/echo-backend/internal/domain"
	"github.com/sandeepkv93/echo-backend/internal/repository"
	"github.com/sandeepkv93/echo-backend/internal/security"
)

// UserPatch carries the profile fields a caller may change. A non-nil
// Password is re-derived into a new hash.
type UserPatch struct {
	Name          *string `json:"name,omitempty"`
	AvatarSeed    *string `json:"avatarSeed,omitempty"`
	VerifiedEmail *bool   `json:"verifiedEmail,omitempty"`
	Password      *string `json:"password,omitempty"`
}

type UserService struct {
	users  repository.UserRepository
	hasher *security.PasswordHasher
}

func NewUserService(users repository.UserRepository, hasher *security.PasswordHasher) *UserService {
	return &UserService{users: users, hasher: hasher}
}

func (s *UserService) Me(userID string) (*domain.User, error) {
	user, err := s.users.FindByID(userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

func (s *UserService) Update(userID string, patch UserPatch) (*domain.User, error) {
	user, err := s.Me(userID)
	if err != nil {
		return nil, err
	}
	if patch.Name != nil {
		user.Name = patch.Name
	}
	if patch.AvatarSeed != nil {
		user.AvatarSeed = *patch.AvatarSeed
	}
	if patch.VerifiedEmail != nil {
		user.VerifiedEmail = patch.VerifiedEmail
	}
	if patch.Password != nil {
		if user.IsGuest() {
			return nil, fmt.Errorf("%w: guests have no password", ErrInvalidInput)
		}
		hash, err := s.hasher.Derive(*patch.Password)
		if err != nil {
			if errors.Is(err, security.ErrEmptyPassword) {
				return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
			}
			return nil, fmt.Errorf("derive password hash: %w", err)
		}
		user.PasswordHash = &hash
	}
	if err := s.users.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

// Delete removes the identity, the devices bound to it and their sessions.
func (s *UserService) Delete(userID string) error {
	if err := s.users.DeleteCascade(userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}
