package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/sandeepkv93/echo-backend/internal/domain"
	"github.com/sandeepkv93/echo-backend/internal/observability"
	"github.com/sandeepkv93/echo-backend/internal/repository"
	"github.com/sandeepkv93/echo-backend/internal/security"
)

// TokenPair holds the two opaque strings handed to a client.
type TokenPair struct {
	Access  string `json:"token"`
	Refresh string `json:"refreshToken"`
}

// TokenService mints, validates and rotates device-scoped sessions.
type TokenService struct {
	jwtMgr      *security.JWTManager
	cipher      *security.EnvelopeCipher
	sessionRepo repository.SessionRepository
	accessTTL   time.Duration
	refreshTTL  time.Duration
	now         func() time.Time
	locks       *deviceLocks
}

func NewTokenService(jwtMgr *security.JWTManager, cipher *security.EnvelopeCipher, sessionRepo repository.SessionRepository, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		jwtMgr:      jwtMgr,
		cipher:      cipher,
		sessionRepo: sessionRepo,
		accessTTL:   accessTTL,
		refreshTTL:  refreshTTL,
		now:         time.Now,
		locks:       newDeviceLocks(),
	}
}

// WithClock sets the time source for both claim construction and expiry checks.
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	if now != nil {
		s.now = now
		s.jwtMgr.WithClock(now)
	}
	return s
}

// Mint builds fresh access and refresh assertions for user, seals them with
// new key material and overwrites the device's session. The previous pair
// for the device stops validating as soon as the write commits.
func (s *TokenService) Mint(user *domain.User, deviceID string) (*TokenPair, error) {
	unlock := s.lockDevice(deviceID)
	defer unlock()
	return s.mintLocked(user, deviceID)
}

// lockDevice serializes identity events on deviceID. Callers that already
// hold it use mintLocked.
func (s *TokenService) lockDevice(deviceID string) func() {
	return s.locks.Lock(deviceID)
}

func (s *TokenService) mintLocked(user *domain.User, deviceID string) (*TokenPair, error) {
	if user == nil || user.ID == "" {
		return nil, fmt.Errorf("%w: user is required", ErrInvalidInput)
	}
	if deviceID == "" {
		return nil, fmt.Errorf("%w: device id is required", ErrInvalidInput)
	}

	now := s.now()
	access, err := s.jwtMgr.Sign(security.NewClaims(user.ID, s.accessTTL, now))
	if err != nil {
		return nil, fmt.Errorf("sign access assertion: %w", err)
	}
	refresh, err := s.jwtMgr.Sign(security.NewClaims(user.ID, s.refreshTTL, now))
	if err != nil {
		return nil, fmt.Errorf("sign refresh assertion: %w", err)
	}
	sealed, err := s.cipher.Seal([]byte(access), []byte(refresh))
	if err != nil {
		return nil, fmt.Errorf("seal session: %w", err)
	}

	persisted, err := s.sessionRepo.UpsertByDevice(&domain.Session{
		AccessToken:  sealed.Access,
		RefreshToken: sealed.Refresh,
		Key:          sealed.Key,
		Nonce:        sealed.Nonce,
		UserID:       user.ID,
		DeviceID:     deviceID,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSessionNotPersisted, err)
	}
	if persisted == nil || persisted.AccessToken != sealed.Access || persisted.RefreshToken != sealed.Refresh {
		return nil, ErrSessionNotPersisted
	}
	return &TokenPair{Access: sealed.Access, Refresh: sealed.Refresh}, nil
}

func (s *TokenService) ValidateAccess(opaque string) (*security.Claims, error) {
	claims, _, err := s.validate(opaque, security.AccessHalf)
	return claims, err
}

func (s *TokenService) ValidateRefresh(opaque string) (*security.Claims, error) {
	claims, _, err := s.validate(opaque, security.RefreshHalf)
	return claims, err
}

func (s *TokenService) validate(opaque string, half security.EnvelopeHalf) (*security.Claims, *domain.Session, error) {
	var (
		session *domain.Session
		err     error
	)
	if half == security.RefreshHalf {
		session, err = s.sessionRepo.FindByRefreshToken(opaque)
	} else {
		session, err = s.sessionRepo.FindByAccessToken(opaque)
	}
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			observability.RecordTokenValidation(half.String(), "mismatch")
			return nil, nil, ErrTokenMismatch
		}
		observability.RecordTokenValidation(half.String(), "error")
		return nil, nil, fmt.Errorf("lookup session: %w", err)
	}

	assertion, err := s.cipher.Open(session.Key, session.Nonce, opaque, half)
	if err != nil {
		observability.RecordTokenValidation(half.String(), "mismatch")
		return nil, nil, ErrTokenMismatch
	}
	claims, err := s.jwtMgr.Parse(string(assertion))
	if err != nil {
		observability.RecordTokenValidation(half.String(), "unauthorized")
		return nil, nil, ErrUnauthorized
	}
	observability.RecordTokenValidation(half.String(), "ok")
	return claims, session, nil
}

// Rotate exchanges a refresh string for a brand-new pair on the session's own
// device. A non-empty deviceID that differs from it is a mismatch.
func (s *TokenService) Rotate(refreshOpaque, deviceID string, userFetcher func(id string) (*domain.User, error)) (*TokenPair, *domain.User, error) {
	claims, session, err := s.validate(refreshOpaque, security.RefreshHalf)
	if err != nil {
		return nil, nil, err
	}
	if deviceID != "" && deviceID != session.DeviceID {
		return nil, nil, ErrTokenMismatch
	}
	user, err := userFetcher(claims.Subject)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) || errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil, ErrUnauthorized
		}
		return nil, nil, err
	}
	pair, err := s.Mint(user, session.DeviceID)
	if err != nil {
		return nil, nil, err
	}
	return pair, user, nil
}

// Revoke deletes the session whose access string is accessOpaque.
func (s *TokenService) Revoke(accessOpaque string) error {
	removed, err := s.sessionRepo.DeleteByAccessToken(accessOpaque)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	if !removed {
		return ErrTokenMismatch
	}
	return nil
}
