package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/sandeepkv93/echo-backend/internal/http/response"
	"github.com/sandeepkv93/echo-backend/internal/service"
)

type DeviceHandler struct {
	devices service.DeviceServiceInterface
}

func NewDeviceHandler(devices service.DeviceServiceInterface) *DeviceHandler {
	return &DeviceHandler{devices: devices}
}

func (h *DeviceHandler) List(w http.ResponseWriter, r *http.Request) {
	sub, ok := subject(w, r)
	if !ok {
		return
	}
	devices, err := h.devices.List(sub)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, devices)
}

func (h *DeviceHandler) Update(w http.ResponseWriter, r *http.Request) {
	sub, ok := subject(w, r)
	if !ok {
		return
	}
	var patch service.DevicePatch
	if err := decodeJSON(r, &patch); err != nil {
		writeServiceError(w, r, err)
		return
	}
	device, err := h.devices.Update(sub, chi.URLParam(r, "id"), patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, device)
}

func (h *DeviceHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sub, ok := subject(w, r)
	if !ok {
		return
	}
	if err := h.devices.Delete(sub, chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]string{"status": "deleted"})
}
