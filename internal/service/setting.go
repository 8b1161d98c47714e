package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/icon-gallery/internal/apperror"
	"github.com/sakif/icon-gallery/internal/repository"
)

// Setting keys for the Google sign-in configuration.
const (
	SettingGoogleEnabled      = "auth_google_enabled"
	SettingGoogleClientID     = "auth_google_client_id"
	SettingGoogleClientSecret = "auth_google_client_secret"
	SettingGoogleRedirect     = "auth_google_redirect"
)

// AuthSettings is the Google sign-in configuration as stored in the
// settings table. The client secret is never serialized back to clients.
type AuthSettings struct {
	GoogleEnabled      bool   `json:"googleEnabled"`
	GoogleClientID     string `json:"googleClientId"`
	GoogleClientSecret string `json:"-"`
	GoogleRedirectURL  string `json:"googleRedirectUrl"`
}

// Configured reports whether Google sign-in is enabled and has the
// credentials it needs to actually work.
func (a AuthSettings) Configured() bool {
	return a.GoogleEnabled && a.GoogleClientID != "" && a.GoogleClientSecret != "" && a.GoogleRedirectURL != ""
}

// SettingService reads and writes the key/value settings table.
type SettingService struct {
	settings repository.SettingRepository
	logger   *slog.Logger
}

func NewSettingService(settings repository.SettingRepository, logger *slog.Logger) *SettingService {
	return &SettingService{settings: settings, logger: logger}
}

// Get returns a setting's value, or def when the key has never been set.
func (s *SettingService) Get(ctx context.Context, key, def string) (string, error) {
	value, err := s.settings.GetSetting(ctx, key)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return def, nil
		}
		return "", fmt.Errorf("reading setting %s: %w", key, err)
	}
	return value, nil
}

// GetBool reads a setting as a boolean. "1", "true", "yes" and "on"
// (case-insensitive) count as true; anything else, including a missing
// key, counts as false unless def says otherwise.
func (s *SettingService) GetBool(ctx context.Context, key string, def bool) (bool, error) {
	value, err := s.settings.GetSetting(ctx, key)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return def, nil
		}
		return false, fmt.Errorf("reading setting %s: %w", key, err)
	}
	return parseBool(value), nil
}

// Set stores a setting value.
func (s *SettingService) Set(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return apperror.ValidationFailed("key", "setting key is required")
	}
	if err := s.settings.SetSetting(ctx, key, value); err != nil {
		return err
	}
	s.logger.Info("setting updated", slog.String("key", key))
	return nil
}

// AuthSettings loads the Google sign-in configuration. Missing keys fall
// back to the zero value, so a fresh instance reports sign-in disabled.
func (s *SettingService) AuthSettings(ctx context.Context) (AuthSettings, error) {
	var out AuthSettings
	var err error

	if out.GoogleEnabled, err = s.GetBool(ctx, SettingGoogleEnabled, false); err != nil {
		return AuthSettings{}, err
	}
	if out.GoogleClientID, err = s.Get(ctx, SettingGoogleClientID, ""); err != nil {
		return AuthSettings{}, err
	}
	if out.GoogleClientSecret, err = s.Get(ctx, SettingGoogleClientSecret, ""); err != nil {
		return AuthSettings{}, err
	}
	if out.GoogleRedirectURL, err = s.Get(ctx, SettingGoogleRedirect, ""); err != nil {
		return AuthSettings{}, err
	}
	return out, nil
}

// SaveAuthSettings persists the Google sign-in configuration. An empty
// incoming client secret keeps the stored one, so the admin form can omit
// the secret on edits without wiping it.
func (s *SettingService) SaveAuthSettings(ctx context.Context, in AuthSettings) error {
	enabled := "0"
	if in.GoogleEnabled {
		enabled = "1"
	}

	if err := s.Set(ctx, SettingGoogleEnabled, enabled); err != nil {
		return err
	}
	if err := s.Set(ctx, SettingGoogleClientID, strings.TrimSpace(in.GoogleClientID)); err != nil {
		return err
	}
	if secret := strings.TrimSpace(in.GoogleClientSecret); secret != "" {
		if err := s.Set(ctx, SettingGoogleClientSecret, secret); err != nil {
			return err
		}
	}
	return s.Set(ctx, SettingGoogleRedirect, strings.TrimSpace(in.GoogleRedirectURL))
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
