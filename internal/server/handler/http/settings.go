package http

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/ukarch-cms/internal/apperr"
	"github.com/atinyakov/ukarch-cms/internal/models"
)

// SettingsService defines the settings operations required by the handlers.
type SettingsService interface {
	GetAll(ctx context.Context) (map[string]string, error)
	Set(ctx context.Context, name, value string) error
	SetMany(ctx context.Context, values map[string]string) error
	Clear(ctx context.Context, name string) error
	ReplaceMedia(ctx context.Context, name string, up models.Upload) (*models.UploadedMedia, error)
}

// SettingsHandler serves /api/settings.
type SettingsHandler struct {
	Settings SettingsService
	// MaxUploadBytes bounds media uploads to settings fields.
	MaxUploadBytes int64
	Log            *zap.Logger
}

// SetSettingRequest is the body of PUT /api/settings/{key}.
type SetSettingRequest struct {
	Value *string `json:"value"`
}

// GetAll handles GET /api/settings.
func (h *SettingsHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	settings, err := h.Settings.GetAll(r.Context())
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

// Update handles PUT /api/settings. All keys are applied or none.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var values map[string]string
	if err := decodeJSON(r, &values); err != nil {
		writeError(w, h.Log, err)
		return
	}
	if err := h.Settings.SetMany(r.Context(), values); err != nil {
		writeError(w, h.Log, err)
		return
	}
	h.GetAll(w, r)
}

// Set handles PUT /api/settings/{key}.
func (h *SettingsHandler) Set(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var req SetSettingRequest
	if err := decodeJSON(r, &req); err != nil || req.Value == nil {
		writeError(w, h.Log, apperr.ErrBadRequest)
		return
	}
	if err := h.Settings.Set(r.Context(), key, *req.Value); err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "setting updated", "key": key, "value": *req.Value})
}

// Clear handles DELETE /api/settings/{key}.
func (h *SettingsHandler) Clear(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := h.Settings.Clear(r.Context(), key); err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "setting cleared", "key": key})
}

// Upload handles POST /api/settings/{key}/upload for media fields.
func (h *SettingsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if _, ok := models.ParseSettingField(key); !ok {
		writeError(w, h.Log, apperr.ErrUnknownField)
		return
	}
	up, err := readUpload(w, r, "file", h.MaxUploadBytes)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	media, err := h.Settings.ReplaceMedia(r.Context(), key, up)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, media)
}
