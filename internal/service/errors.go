package service

import "errors"

var (
	// ErrWrongCredentials is returned for unknown emails and bad passwords alike.
	ErrWrongCredentials = errors.New("wrong credentials")
	// ErrTokenMismatch covers bearer strings with no stored session and
	// envelopes that fail to open.
	ErrTokenMismatch = errors.New("token mismatch")
	// ErrUnauthorized means the envelope opened but the signed assertion
	// failed signature or expiry checks.
	ErrUnauthorized        = errors.New("unauthorized")
	ErrSessionNotPersisted = errors.New("session not persisted")
	ErrEmailInUse          = errors.New("email already in use")
	ErrInvalidInput        = errors.New("invalid input")
	ErrUserNotFound        = errors.New("user not found")
	ErrDeviceNotFound      = errors.New("device not found")
	ErrStorageUnavailable  = errors.New("storage is not configured")
)
