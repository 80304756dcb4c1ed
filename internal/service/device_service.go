package service

import (
	"errors"

	"github.com/sandeepkv93/echo-backend/internal/domain"
	"github.com/sandeepkv93/echo-backend/internal/repository"
)

// DevicePatch is what a caller may change on a device it owns.
type DevicePatch struct {
	Name      *string `json:"name,omitempty"`
	Platform  *string `json:"platform,omitempty"`
	PushToken *string `json:"pushToken,omitempty"`
}

type DeviceService struct {
	devices repository.DeviceRepository
}

func NewDeviceService(devices repository.DeviceRepository) *DeviceService {
	return &DeviceService{devices: devices}
}

func (s *DeviceService) List(userID string) ([]domain.Device, error) {
	return s.devices.ListByUserID(userID)
}

func (s *DeviceService) Update(userID, deviceID string, patch DevicePatch) (*domain.Device, error) {
	if _, err := s.owned(userID, deviceID); err != nil {
		return nil, err
	}
	device, err := s.devices.Update(deviceID, domain.DevicePatch{
		Name:      patch.Name,
		Platform:  patch.Platform,
		PushToken: patch.PushToken,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDeviceNotFound) {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}
	return device, nil
}

// Delete drops the device together with its session.
func (s *DeviceService) Delete(userID, deviceID string) error {
	if _, err := s.owned(userID, deviceID); err != nil {
		return err
	}
	if err := s.devices.Delete(deviceID); err != nil {
		if errors.Is(err, repository.ErrDeviceNotFound) {
			return ErrDeviceNotFound
		}
		return err
	}
	return nil
}

// owned reports devices belonging to someone else as not found.
func (s *DeviceService) owned(userID, deviceID string) (*domain.Device, error) {
	device, err := s.devices.FindByID(deviceID)
	if err != nil {
		if errors.Is(err, repository.ErrDeviceNotFound) {
			return nil, ErrDeviceNotFound
		}
		return nil, err
	}
	if device.UserID == nil || *device.UserID != userID {
		return nil, ErrDeviceNotFound
	}
	return device, nil
}
