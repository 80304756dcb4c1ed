package handler

import (
	"net/http"

	"github.com/sandeepkv93/echo-backend/internal/http/middleware"
	"github.com/sandeepkv93/echo-backend/internal/http/response"
	"github.com/sandeepkv93/echo-backend/internal/observability"
	"github.com/sandeepkv93/echo-backend/internal/service"
)

type UserHandler struct {
	users service.UserServiceInterface
}

func NewUserHandler(users service.UserServiceInterface) *UserHandler {
	return &UserHandler{users: users}
}

func subject(w http.ResponseWriter, r *http.Request) (string, bool) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok || claims.Subject == "" {
		response.Error(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "missing claims", nil)
		return "", false
	}
	return claims.Subject, true
}

func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	sub, ok := subject(w, r)
	if !ok {
		return
	}
	user, err := h.users.Me(sub)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, user)
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	sub, ok := subject(w, r)
	if !ok {
		return
	}
	var patch service.UserPatch
	if err := decodeJSON(r, &patch); err != nil {
		writeServiceError(w, r, err)
		return
	}
	user, err := h.users.Update(sub, patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, user)
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sub, ok := subject(w, r)
	if !ok {
		return
	}
	if err := h.users.Delete(sub); err != nil {
		writeServiceError(w, r, err)
		return
	}
	observability.Audit(r, "user.delete", "user_id", sub)
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "deleted"})
}
