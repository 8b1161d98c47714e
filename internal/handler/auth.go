package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/icon-gallery/internal/auth"
	"github.com/sakif/icon-gallery/internal/service"
)

const stateCookieName = "oauth_state"

// AuthHandler manages registration, login and the Google OAuth flow.
//
// The Google provider is not a fixed dependency: its credentials live in
// the settings store and can change at runtime, so the handler builds a
// provider from the current settings on each login/callback request.
type AuthHandler struct {
	users    *service.UserService
	settings *service.SettingService
	tokens   *auth.TokenService
	logger   *slog.Logger
}

func NewAuthHandler(
	users *service.UserService,
	settings *service.SettingService,
	tokens *auth.TokenService,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{users: users, settings: settings, tokens: tokens, logger: logger}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleRegister creates an account and logs the new user in.
//
// HTTP: POST /api/auth/register
// Body: {"name": "...", "email": "...", "password": "..."}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}

	user, err := h.users.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.setSessionCookie(w, user.ID); err != nil {
		h.logger.Error("issuing token after register", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// HandleLogin checks credentials and issues the session cookie.
//
// HTTP: POST /api/auth/login
// Body: {"email": "...", "password": "..."}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}

	user, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.setSessionCookie(w, user.ID); err != nil {
		h.logger.Error("issuing token after login", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleLogout clears the session cookie. POST because logout changes
// state; a GET would be prefetchable and CSRF-able.
//
// HTTP: POST /api/auth/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleMe returns the authenticated user's profile.
//
// HTTP: GET /api/auth/me (auth required)
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "authentication required"})
		return
	}

	user, err := h.users.Get(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleGoogleLogin starts the Google OAuth flow.
//
// HTTP: GET /api/auth/google
//
// The random state value goes into a short-lived HttpOnly cookie and is
// verified on callback, proving the callback belongs to a flow this
// server started.
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	provider, ok := h.googleProvider(w, r)
	if !ok {
		return
	}

	state := xid.New().String()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   600,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, provider.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGoogleCallback completes the Google OAuth flow: verify state,
// exchange the code, match or create the account, issue the session
// cookie, and land the browser back on the app.
//
// HTTP: GET /api/auth/google/callback?code=xxx&state=yyy
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	provider, ok := h.googleProvider(w, r)
	if !ok {
		return
	}

	stateCookie, err := r.Cookie(stateCookieName)
	if err != nil || stateCookie.Value == "" || r.URL.Query().Get("state") != stateCookie.Value {
		h.logger.Warn("google callback: state mismatch")
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid OAuth state"})
		return
	}

	// The state cookie is single-use.
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Value: "", Path: "/", MaxAge: -1})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Info("google callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "missing OAuth code"})
		return
	}

	googleUser, err := provider.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("google callback: exchange failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: "authentication failed"})
		return
	}

	user, err := h.users.LoginOrRegisterGoogle(r.Context(), googleUser)
	if err != nil {
		h.logger.Error("google callback: account lookup failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	if err := h.setSessionCookie(w, user.ID); err != nil {
		h.logger.Error("google callback: token generation failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal_error", Message: "authentication failed"})
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// googleProvider builds a provider from the current auth settings. When
// sign-in is disabled or unconfigured it writes the error response and
// returns ok=false.
func (h *AuthHandler) googleProvider(w http.ResponseWriter, r *http.Request) (*auth.GoogleProvider, bool) {
	settings, err := h.settings.AuthSettings(r.Context())
	if err != nil {
		h.logger.Error("loading auth settings", slog.String("error", err.Error()))
		writeError(w, err)
		return nil, false
	}
	if !settings.Configured() {
		writeJSON(w, http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Google sign-in is not enabled",
		})
		return nil, false
	}
	return auth.NewGoogleProvider(
		settings.GoogleClientID,
		settings.GoogleClientSecret,
		settings.GoogleRedirectURL,
	), true
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, userID string) error {
	token, err := h.tokens.Generate(userID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(auth.TokenLifetime / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}
