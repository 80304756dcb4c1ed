package repository

import (
	"context"
	"errors"
	"sort"

	"github.com/sandeepkv93/echo-backend/internal/domain"
	"github.com/sandeepkv93/echo-backend/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrDeviceNotFound = errors.New("device not found")

type DeviceRepository interface {
	FindByID(id string) (*domain.Device, error)
	ListByUserID(userID string) ([]domain.Device, error)
	Upsert(id string, patch domain.DevicePatch) (*domain.Device, error)
	Update(id string, patch domain.DevicePatch) (*domain.Device, error)
	Delete(id string) error
}

type GormDeviceRepository struct{ db *gorm.DB }

func NewDeviceRepository(db *gorm.DB) DeviceRepository { return &GormDeviceRepository{db: db} }

func (r *GormDeviceRepository) FindByID(id string) (*domain.Device, error) {
	var d domain.Device
	err := r.db.Where("id = ?", id).First(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "device", "find_by_id", "not_found")
			return nil, ErrDeviceNotFound
		}
		observability.RecordRepositoryOperation(context.Background(), "device", "find_by_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "device", "find_by_id", "success")
	return &d, nil
}

func (r *GormDeviceRepository) ListByUserID(userID string) ([]domain.Device, error) {
	var devices []domain.Device
	err := r.db.Where("user_id = ?", userID).Order("created_at ASC").Find(&devices).Error
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "device", "list_by_user_id", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "device", "list_by_user_id", "success")
	return devices, nil
}

// Upsert keys on the caller-supplied id: a missing device is created from the
// patch, an existing one has only the supplied fields merged in. The insert
// resolves conflicts on id so concurrent first sightings of a device do not
// fail on the primary key.
func (r *GormDeviceRepository) Upsert(id string, patch domain.DevicePatch) (*domain.Device, error) {
	if id == "" {
		return nil, errors.New("upsert device: id is required")
	}
	row := domain.Device{
		ID:        id,
		Name:      patch.Name,
		Platform:  patch.Platform,
		UserID:    patch.UserID,
		GuestID:   patch.GuestID,
		PushToken: patch.PushToken,
	}
	onConflict := clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, DoNothing: true}
	if columns := patchColumns(patch); len(columns) > 0 {
		onConflict = clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(append(columns, "updated_at")),
		}
	}
	var out domain.Device
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(onConflict).Create(&row).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).First(&out).Error
	})
	if err != nil {
		observability.RecordRepositoryOperation(context.Background(), "device", "upsert", "error")
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "device", "upsert", "success")
	return &out, nil
}

func patchColumns(patch domain.DevicePatch) []string {
	updates := patch.Updates()
	columns := make([]string, 0, len(updates))
	for column := range updates {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	return columns
}

func (r *GormDeviceRepository) Update(id string, patch domain.DevicePatch) (*domain.Device, error) {
	var out domain.Device
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ?", id).First(&out).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDeviceNotFound
			}
			return err
		}
		if updates := patch.Updates(); len(updates) > 0 {
			if err := tx.Model(&domain.Device{}).Where("id = ?", id).Updates(updates).Error; err != nil {
				return err
			}
		}
		return tx.Where("id = ?", id).First(&out).Error
	})
	if err != nil {
		if errors.Is(err, ErrDeviceNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "device", "update", "not_found")
		} else {
			observability.RecordRepositoryOperation(context.Background(), "device", "update", "error")
		}
		return nil, err
	}
	observability.RecordRepositoryOperation(context.Background(), "device", "update", "success")
	return &out, nil
}

// Delete removes the device and its session.
func (r *GormDeviceRepository) Delete(id string) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("device_id = ?", id).Delete(&domain.Session{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&domain.Device{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrDeviceNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrDeviceNotFound) {
			observability.RecordRepositoryOperation(context.Background(), "device", "delete", "not_found")
		} else {
			observability.RecordRepositoryOperation(context.Background(), "device", "delete", "error")
		}
		return err
	}
	observability.RecordRepositoryOperation(context.Background(), "device", "delete", "success")
	return nil
}
