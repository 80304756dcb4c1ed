package service

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sandeepkv93/echo-backend/internal/domain"
	"github.com/sandeepkv93/echo-backend/internal/repository"
	"github.com/sandeepkv93/echo-backend/internal/security"
	"gorm.io/gorm"
)

const testSecret = "0123456789abcdef0123456789abcdef"

var errStoreDown = errors.New("store unavailable")

type inMemorySessionRepo struct {
	mu        sync.Mutex
	nextID    uint
	byDevice  map[string]*domain.Session
	failWrite bool
	dropWrite bool
	upserts   int
}

func newInMemorySessionRepo() *inMemorySessionRepo {
	return &inMemorySessionRepo{nextID: 1, byDevice: map[string]*domain.Session{}}
}

func (r *inMemorySessionRepo) FindByDevice(deviceID string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byDevice[deviceID]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	copy := *s
	return &copy, nil
}

func (r *inMemorySessionRepo) find(match func(*domain.Session) bool) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.byDevice {
		if match(s) {
			copy := *s
			return &copy, nil
		}
	}
	return nil, repository.ErrSessionNotFound
}

func (r *inMemorySessionRepo) FindByAccessToken(ciphertext string) (*domain.Session, error) {
	return r.find(func(s *domain.Session) bool { return s.AccessToken == ciphertext })
}

func (r *inMemorySessionRepo) FindByRefreshToken(ciphertext string) (*domain.Session, error) {
	return r.find(func(s *domain.Session) bool { return s.RefreshToken == ciphertext })
}

func (r *inMemorySessionRepo) UpsertByDevice(s *domain.Session) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.upserts++
	if r.failWrite {
		return nil, errStoreDown
	}
	if r.dropWrite {
		return nil, nil
	}
	copy := *s
	if existing, ok := r.byDevice[s.DeviceID]; ok {
		copy.ID = existing.ID
	} else {
		copy.ID = r.nextID
		r.nextID++
	}
	r.byDevice[s.DeviceID] = &copy
	out := copy
	return &out, nil
}

func (r *inMemorySessionRepo) DeleteByAccessToken(ciphertext string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for device, s := range r.byDevice {
		if s.AccessToken == ciphertext {
			delete(r.byDevice, device)
			return true, nil
		}
	}
	return false, nil
}

func (r *inMemorySessionRepo) DeleteByDevice(deviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byDevice, deviceID)
	return nil
}

func (r *inMemorySessionRepo) DeleteByUserID(userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for device, s := range r.byDevice {
		if s.UserID == userID {
			delete(r.byDevice, device)
		}
	}
	return nil
}

func (r *inMemorySessionRepo) mutate(deviceID string, fn func(*domain.Session)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.byDevice[deviceID]; ok {
		fn(s)
	}
}

type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFixedClock() *fixedClock {
	return &fixedClock{t: time.Unix(1_700_000_000, 0)}
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func newTokenServiceForTest(repo repository.SessionRepository) *TokenService {
	return NewTokenService(
		security.NewJWTManager(testSecret),
		security.NewEnvelopeCipher(),
		repo,
		3*time.Hour,
		30*24*time.Hour,
	)
}

func testHasher() *security.PasswordHasher {
	return security.NewPasswordHasher(security.Argon2Params{
		MemoryKiB:   64,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
}

type testStack struct {
	db       *gorm.DB
	users    repository.UserRepository
	devices  repository.DeviceRepository
	sessions repository.SessionRepository
	tokens   *TokenService
	auth     *AuthService
}

func newTestStack(t *testing.T) *testStack {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := repository.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repository.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	st := &testStack{
		db:       db,
		users:    repository.NewUserRepository(db),
		devices:  repository.NewDeviceRepository(db),
		sessions: repository.NewSessionRepository(db),
	}
	st.tokens = newTokenServiceForTest(st.sessions)
	st.auth = NewAuthService(st.users, st.devices, st.tokens, testHasher())
	return st
}

func strPtr(v string) *string { return &v }

func flipHex(s string, i int) string {
	b := []byte(s)
	if b[i] == '0' {
		b[i] = '1'
	} else {
		b[i] = '0'
	}
	return string(b)
}
