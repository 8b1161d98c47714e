package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/icon-gallery/internal/service"
)

// SettingsHandler serves the admin authentication-settings page.
type SettingsHandler struct {
	settings *service.SettingService
	logger   *slog.Logger
}

func NewSettingsHandler(settings *service.SettingService, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{settings: settings, logger: logger}
}

// authSettingsResponse is the admin view of the Google sign-in settings.
// The stored secret is never echoed back; the form shows only whether one
// is on file.
type authSettingsResponse struct {
	GoogleEnabled     bool   `json:"googleEnabled"`
	GoogleClientID    string `json:"googleClientId"`
	GoogleRedirectURL string `json:"googleRedirectUrl"`
	HasClientSecret   bool   `json:"hasClientSecret"`
}

type authSettingsRequest struct {
	GoogleEnabled      bool   `json:"googleEnabled"`
	GoogleClientID     string `json:"googleClientId"`
	GoogleClientSecret string `json:"googleClientSecret"`
	GoogleRedirectURL  string `json:"googleRedirectUrl"`
}

// HandleGetAuthSettings returns the current Google sign-in configuration.
//
// HTTP: GET /api/admin/settings/auth
func (h *SettingsHandler) HandleGetAuthSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settings.AuthSettings(r.Context())
	if err != nil {
		h.logger.Error("loading auth settings", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authSettingsResponse{
		GoogleEnabled:     settings.GoogleEnabled,
		GoogleClientID:    settings.GoogleClientID,
		GoogleRedirectURL: settings.GoogleRedirectURL,
		HasClientSecret:   settings.GoogleClientSecret != "",
	})
}

// HandleUpdateAuthSettings saves the Google sign-in configuration. An
// empty client secret in the request keeps the stored one.
//
// HTTP: PUT /api/admin/settings/auth
func (h *SettingsHandler) HandleUpdateAuthSettings(w http.ResponseWriter, r *http.Request) {
	var req authSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}

	err := h.settings.SaveAuthSettings(r.Context(), service.AuthSettings{
		GoogleEnabled:      req.GoogleEnabled,
		GoogleClientID:     req.GoogleClientID,
		GoogleClientSecret: req.GoogleClientSecret,
		GoogleRedirectURL:  req.GoogleRedirectURL,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	h.HandleGetAuthSettings(w, r)
}
