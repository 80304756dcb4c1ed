package handler

import (
	"net/http"

	"github.com/sandeepkv93/echo-backend/internal/http/response"
	"github.com/sandeepkv93/echo-backend/internal/service"
)

type StorageHandler struct {
	storage service.StorageServiceInterface
}

func NewStorageHandler(storage service.StorageServiceInterface) *StorageHandler {
	return &StorageHandler{storage: storage}
}

func (h *StorageHandler) SignPut(w http.ResponseWriter, r *http.Request) {
	signed, err := h.storage.PresignPut(r.Context(), r.URL.Query().Get("key"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, signed)
}

func (h *StorageHandler) SignGet(w http.ResponseWriter, r *http.Request) {
	signed, err := h.storage.PresignGet(r.Context(), r.URL.Query().Get("key"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, signed)
}
