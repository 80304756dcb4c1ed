package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/sandeepkv93/echo-backend/internal/domain"
	"github.com/sandeepkv93/echo-backend/internal/observability"
	"github.com/sandeepkv93/echo-backend/internal/repository"
	"github.com/sandeepkv93/echo-backend/internal/security"
)

const guestNamePrefix = "Guest#"

// DeviceInput is the device block sent with every identity event.
type DeviceInput struct {
	ID        string  `json:"id"`
	Name      *string `json:"name,omitempty"`
	Platform  *string `json:"platform,omitempty"`
	PushToken *string `json:"pushToken,omitempty"`
}

func (d DeviceInput) patch() domain.DevicePatch {
	return domain.DevicePatch{Name: d.Name, Platform: d.Platform, PushToken: d.PushToken}
}

type SignupInput struct {
	Email      string      `json:"email"`
	Password   string      `json:"password"`
	Name       *string     `json:"name,omitempty"`
	AvatarSeed *string     `json:"avatarSeed,omitempty"`
	Device     DeviceInput `json:"device"`
}

type LoginInput struct {
	Email    string      `json:"email"`
	Password string      `json:"password"`
	Device   DeviceInput `json:"device"`
}

type LoginResult struct {
	User   *domain.User
	Tokens *TokenPair
}

type AuthService struct {
	users   repository.UserRepository
	devices repository.DeviceRepository
	tokens  *TokenService
	hasher  *security.PasswordHasher

	emailCache    NegativeLookupCache
	emailCacheTTL time.Duration

	dummyOnce sync.Once
	dummyHash string
}

func NewAuthService(users repository.UserRepository, devices repository.DeviceRepository, tokens *TokenService, hasher *security.PasswordHasher) *AuthService {
	return &AuthService{users: users, devices: devices, tokens: tokens, hasher: hasher, emailCache: NoopNegativeLookupCache{}}
}

// WithEmailLookupCache lets CheckEmail answer "not in use" from cache for
// ttl. Signup forgets the entry for the email it registers.
func (s *AuthService) WithEmailLookupCache(cache NegativeLookupCache, ttl time.Duration) *AuthService {
	if cache != nil {
		s.emailCache = cache
		s.emailCacheTTL = ttl
	}
	return s
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	at := strings.LastIndex(email, "@")
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t\r\n")
}

func (s *AuthService) Signup(in SignupInput) (*LoginResult, error) {
	email := normalizeEmail(in.Email)
	if !validEmail(email) {
		return nil, fmt.Errorf("%w: email is invalid", ErrInvalidInput)
	}
	if in.Password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	if in.Device.ID == "" {
		return nil, fmt.Errorf("%w: device id is required", ErrInvalidInput)
	}
	if _, err := s.users.FindByEmail(email); err == nil {
		return nil, ErrEmailInUse
	} else if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	hash, err := s.hasher.Derive(in.Password)
	if err != nil {
		return nil, fmt.Errorf("derive password hash: %w", err)
	}
	seed := email
	if in.AvatarSeed != nil && *in.AvatarSeed != "" {
		seed = *in.AvatarSeed
	}
	verified := false
	user := &domain.User{
		Kind:          domain.UserKindRegistered,
		Email:         &email,
		PasswordHash:  &hash,
		Name:          in.Name,
		AvatarSeed:    seed,
		VerifiedEmail: &verified,
	}
	if err := s.users.Create(user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailInUse
		}
		return nil, err
	}
	if err := s.emailCache.Forget(context.Background(), email); err != nil {
		slog.Warn("email lookup cache forget failed", "error", err)
	}
	unlock := s.tokens.lockDevice(in.Device.ID)
	defer unlock()
	return s.bindAndMint("signup", user, in.Device, domain.DevicePatch{UserID: &user.ID})
}

// Login fails with ErrWrongCredentials whether the email is unknown, the
// identity has no password or the password does not match.
func (s *AuthService) Login(in LoginInput) (*LoginResult, error) {
	if in.Device.ID == "" {
		return nil, fmt.Errorf("%w: device id is required", ErrInvalidInput)
	}
	user, err := s.users.FindByEmail(normalizeEmail(in.Email))
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			s.verifyDummy(in.Password)
			observability.RecordAuthLogin(string(domain.UserKindRegistered), "failure")
			return nil, ErrWrongCredentials
		}
		return nil, err
	}
	if user.PasswordHash == nil {
		s.verifyDummy(in.Password)
		observability.RecordAuthLogin(string(user.Kind), "failure")
		return nil, ErrWrongCredentials
	}
	if s.hasher.Verify(*user.PasswordHash, in.Password) != nil {
		observability.RecordAuthLogin(string(user.Kind), "failure")
		return nil, ErrWrongCredentials
	}
	observability.RecordAuthLogin(string(user.Kind), "success")
	unlock := s.tokens.lockDevice(in.Device.ID)
	defer unlock()
	return s.bindAndMint("login", user, in.Device, domain.DevicePatch{UserID: &user.ID})
}

// Guest reuses the guest identity already bound to the device, creating one
// only when the device has none or it no longer exists.
func (s *AuthService) Guest(device DeviceInput) (*LoginResult, error) {
	if device.ID == "" {
		return nil, fmt.Errorf("%w: device id is required", ErrInvalidInput)
	}
	unlock := s.tokens.lockDevice(device.ID)
	defer unlock()
	guest, err := s.boundGuest(device.ID)
	if err != nil {
		return nil, err
	}
	if guest == nil {
		code, err := security.RandomAlphanumeric(4)
		if err != nil {
			return nil, err
		}
		name := guestNamePrefix + code
		guest = &domain.User{Kind: domain.UserKindGuest, Name: &name, AvatarSeed: name}
		if err := s.users.Create(guest); err != nil {
			return nil, err
		}
	}
	observability.RecordAuthLogin(string(domain.UserKindGuest), "success")
	return s.bindAndMint("guest", guest, device, domain.DevicePatch{UserID: &guest.ID, GuestID: &guest.ID})
}

// verifyDummy runs one key derivation against a throwaway hash so a login
// for a missing identity costs the same as a wrong password.
func (s *AuthService) verifyDummy(password string) {
	s.dummyOnce.Do(func() {
		secret, err := security.RandomAlphanumeric(24)
		if err != nil {
			slog.Warn("generate dummy password failed", "error", err)
			return
		}
		hash, err := s.hasher.Derive(secret)
		if err != nil {
			slog.Warn("derive dummy password hash failed", "error", err)
			return
		}
		s.dummyHash = hash
	})
	if s.dummyHash == "" {
		return
	}
	_ = s.hasher.Verify(s.dummyHash, password)
}

func (s *AuthService) boundGuest(deviceID string) (*domain.User, error) {
	existing, err := s.devices.FindByID(deviceID)
	if err != nil {
		if errors.Is(err, repository.ErrDeviceNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if existing.GuestID == nil || *existing.GuestID == "" {
		return nil, nil
	}
	guest, err := s.users.FindByID(*existing.GuestID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return guest, nil
}

// Refresh rotates the session on the device the refresh string was minted for.
func (s *AuthService) Refresh(refreshOpaque, deviceID string) (*LoginResult, error) {
	pair, user, err := s.tokens.Rotate(refreshOpaque, deviceID, s.users.FindByID)
	if err != nil {
		observability.RecordAuthRefresh("failure")
		observability.RecordTokenMint("refresh", "failure")
		return nil, err
	}
	observability.RecordAuthRefresh("success")
	observability.RecordTokenMint("refresh", "success")
	return &LoginResult{User: user, Tokens: pair}, nil
}

// CheckEmail reports whether a registered identity owns email.
func (s *AuthService) CheckEmail(email string) (bool, error) {
	email = normalizeEmail(email)
	if !validEmail(email) {
		return false, fmt.Errorf("%w: email is invalid", ErrInvalidInput)
	}
	ctx := context.Background()
	if absent, err := s.emailCache.Absent(ctx, email); err == nil && absent {
		return false, nil
	}
	if _, err := s.users.FindByEmail(email); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			if err := s.emailCache.Remember(ctx, email, s.emailCacheTTL); err != nil {
				slog.Warn("email lookup cache remember failed", "error", err)
			}
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *AuthService) Logout(accessOpaque string) error {
	if err := s.tokens.Revoke(accessOpaque); err != nil {
		observability.RecordAuthLogout("failure")
		return err
	}
	observability.RecordAuthLogout("success")
	return nil
}

func (s *AuthService) ValidateAccess(opaque string) (*security.Claims, error) {
	return s.tokens.ValidateAccess(opaque)
}

// bindAndMint expects the caller to hold the device lock.
func (s *AuthService) bindAndMint(trigger string, user *domain.User, device DeviceInput, owner domain.DevicePatch) (*LoginResult, error) {
	patch := device.patch()
	patch.UserID = owner.UserID
	patch.GuestID = owner.GuestID
	if _, err := s.devices.Upsert(device.ID, patch); err != nil {
		observability.RecordTokenMint(trigger, "failure")
		return nil, fmt.Errorf("upsert device: %w", err)
	}
	pair, err := s.tokens.mintLocked(user, device.ID)
	if err != nil {
		observability.RecordTokenMint(trigger, "failure")
		return nil, err
	}
	observability.RecordTokenMint(trigger, "success")
	return &LoginResult{User: user, Tokens: pair}, nil
}
