package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/sandeepkv93/echo-backend/internal/domain"
	"github.com/sandeepkv93/echo-backend/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionRepository persists the one active credential record per device.
// Ciphertext lookups are exact matches on the stored opaque string.
type SessionRepository interface {
	FindByDevice(deviceID string) (*domain.Session, error)
	FindByAccessToken(ciphertext string) (*domain.Session, error)
	FindByRefreshToken(ciphertext string) (*domain.Session, error)
	UpsertByDevice(s *domain.Session) (*domain.Session, error)
	DeleteByAccessToken(ciphertext string) (bool, error)
	DeleteByDevice(deviceID string) error
	DeleteByUserID(userID string) error
}

type GormSessionRepository struct{ db *gorm.DB }

func NewSessionRepository(db *gorm.DB) SessionRepository { return &GormSessionRepository{db: db} }

func (r *GormSessionRepository) FindByDevice(deviceID string) (*domain.Session, error) {
	return r.findOne("find_by_device", "device_id = ?", deviceID)
}

func (r *GormSessionRepository) FindByAccessToken(ciphertext string) (*domain.Session, error) {
	return r.findOne("find_by_access_token", "access_token = ?", ciphertext)
}

func (r *GormSessionRepository) FindByRefreshToken(ciphertext string) (*domain.Session, error) {
	return r.findOne("find_by_refresh_token", "refresh_token = ?", ciphertext)
}

func (r *GormSessionRepository) findOne(op, query string, arg string) (*domain.Session, error) {
	if arg == "" {
		observability.RecordRepositoryOperation(context.Background(), "session", op, "not_found")
		return nil, ErrSessionNotFound
	}
	var s domain.Session
	err := r.db.Where(query, arg).Order("id").First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "session", op, "not_found")
			return nil, ErrSessionNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "session", op, "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "session", op, "success")
	return &s, nil
}

// UpsertByDevice inserts s when the device has no session yet, otherwise it
// overwrites the five mutable fields of the existing row. Lookup and write run
// in one transaction with the row locked where the dialect supports it.
func (r *GormSessionRepository) UpsertByDevice(s *domain.Session) (*domain.Session, error) {
	if s == nil || s.DeviceID == "" {
		return nil, errors.New("upsert session: device id is required")
	}
	var persisted *domain.Session
	err := r.db.Transaction(func(tx *gorm.DB) error {
		var existing domain.Session
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("device_id = ?", s.DeviceID).
			Order("id").
			First(&existing).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			row := *s
			row.ID = 0
			res := tx.Create(&row)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected != 1 || row.ID == 0 {
				return errors.New("insert session: no row written")
			}
			persisted = &row
			return nil
		}

		res := tx.Model(&domain.Session{}).
			Where("id = ?", existing.ID).
			Updates(map[string]any{
				"access_token":  s.AccessToken,
				"refresh_token": s.RefreshToken,
				"key":           s.Key,
				"nonce":         s.Nonce,
				"user_id":       s.UserID,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return fmt.Errorf("overwrite session %d: %d rows written", existing.ID, res.RowsAffected)
		}
		if err := tx.First(&existing, existing.ID).Error; err != nil {
			return err
		}
		persisted = &existing
		return nil
	})
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "session", "upsert_by_device", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "upsert_by_device", "success")
	return persisted, nil
}

// DeleteByAccessToken reports whether a row matched.
func (r *GormSessionRepository) DeleteByAccessToken(ciphertext string) (bool, error) {
	if ciphertext == "" {
		return false, nil
	}
	res := r.db.Where("access_token = ?", ciphertext).Delete(&domain.Session{})
	if res.Error != nil {
		observability.RecordRepositoryOperation(context.Background(), "session", "delete_by_access_token", "error")
		return false, res.Error
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "delete_by_access_token", "success")
	return res.RowsAffected > 0, nil
}

func (r *GormSessionRepository) DeleteByDevice(deviceID string) error {
	err := r.db.Where("device_id = ?", deviceID).Delete(&domain.Session{}).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "session", "delete_by_device", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "delete_by_device", "success")
	return nil
}

func (r *GormSessionRepository) DeleteByUserID(userID string) error {
	err := r.db.Where("user_id = ?", userID).Delete(&domain.Session{}).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "session", "delete_by_user_id", "error")
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "session", "delete_by_user_id", "success")
	return nil
}
