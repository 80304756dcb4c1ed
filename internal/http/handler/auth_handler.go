package handler

import (
	"net/http"

	"github.com/sandeepkv93/echo-backend/internal/http/middleware"
	"github.com/sandeepkv93/echo-backend/internal/http/response"
	"github.com/sandeepkv93/echo-backend/internal/observability"
	"github.com/sandeepkv93/echo-backend/internal/service"
)

type AuthHandler struct {
	auth service.AuthServiceInterface
}

func NewAuthHandler(auth service.AuthServiceInterface) *AuthHandler {
	return &AuthHandler{auth: auth}
}

type guestRequest struct {
	Device service.DeviceInput `json:"device"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
	DeviceID     string `json:"deviceId,omitempty"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req service.SignupInput
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	res, err := h.auth.Signup(req)
	if err != nil {
		observability.Audit(r, "auth.signup", "outcome", "failure")
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "auth.signup", "outcome", "success", "user_id", res.User.ID, "device_id", req.Device.ID)
	response.JSON(w, r, http.StatusCreated, res.Tokens)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginInput
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	res, err := h.auth.Login(req)
	if err != nil {
		observability.Audit(r, "auth.login", "outcome", "failure", "device_id", req.Device.ID)
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "auth.login", "outcome", "success", "user_id", res.User.ID, "device_id", req.Device.ID)
	response.JSON(w, r, http.StatusOK, res.Tokens)
}

func (h *AuthHandler) Guest(w http.ResponseWriter, r *http.Request) {
	var req guestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	res, err := h.auth.Guest(req.Device)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "auth.guest", "outcome", "success", "user_id", res.User.ID, "device_id", req.Device.ID)
	response.JSON(w, r, http.StatusOK, res.Tokens)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if req.RefreshToken == "" {
		response.Error(w, r, http.StatusBadRequest, "BAD_REQUEST", "refreshToken is required", nil)
		return
	}
	res, err := h.auth.Refresh(req.RefreshToken, req.DeviceID)
	if err != nil {
		observability.Audit(r, "auth.refresh", "outcome", "failure")
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "auth.refresh", "outcome", "success", "user_id", res.User.ID)
	response.JSON(w, r, http.StatusOK, res.Tokens)
}

func (h *AuthHandler) CheckEmail(w http.ResponseWriter, r *http.Request) {
	inUse, err := h.auth.CheckEmail(r.URL.Query().Get("email"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]bool{"inUse": inUse})
}

func (h *AuthHandler) Validate(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing claims", nil)
		return
	}
	response.JSON(w, r, http.StatusOK, claims)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.ClaimsFromContext(r.Context())
	if err := h.auth.Logout(middleware.BearerFromContext(r.Context())); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if claims != nil {
		observability.Audit(r, "auth.logout", "outcome", "success", "user_id", claims.Subject)
	}
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "logged_out"})
}
