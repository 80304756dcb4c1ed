package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/sandeepkv93/echo-backend/internal/http/response"
	"github.com/sandeepkv93/echo-backend/internal/service"
)

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrWrongCredentials):
		response.Error(w, r, http.StatusUnauthorized, "WRONG_CREDENTIALS", "wrong credentials", nil)
	case errors.Is(err, service.ErrTokenMismatch):
		response.Error(w, r, http.StatusUnauthorized, "TOKEN_MISMATCH", "token is not valid", nil)
	case errors.Is(err, service.ErrUnauthorized):
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "token expired or invalid", nil)
	case errors.Is(err, service.ErrEmailInUse):
		response.Error(w, r, http.StatusConflict, "EMAIL_IN_USE", "email already in use", nil)
	case errors.Is(err, service.ErrInvalidInput):
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	case errors.Is(err, service.ErrUserNotFound), errors.Is(err, service.ErrDeviceNotFound):
		response.Error(w, r, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, service.ErrStorageUnavailable):
		response.Error(w, r, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "storage is not configured", nil)
	default:
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		response.Error(w, r, http.StatusInternalServerError, "INTERNAL", "internal server error", nil)
	}
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return fmt.Errorf("%w: request body is required", service.ErrInvalidInput)
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid json body", service.ErrInvalidInput)
	}
	return nil
}
