package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/icon-gallery/internal/auth"
	"github.com/sakif/icon-gallery/internal/service"
)

// AdminHandler serves the moderation panel: gallery stats, icon approval,
// user management and category management. Every route is behind the
// admin middleware, so handlers can assume the caller is an admin.
type AdminHandler struct {
	icons      *service.IconService
	categories *service.CategoryService
	users      *service.UserService
	logger     *slog.Logger
}

func NewAdminHandler(
	icons *service.IconService,
	categories *service.CategoryService,
	users *service.UserService,
	logger *slog.Logger,
) *AdminHandler {
	return &AdminHandler{icons: icons, categories: categories, users: users, logger: logger}
}

// adminStats is the dashboard summary for the admin landing page.
type adminStats struct {
	Icons      int64 `json:"icons"`
	Downloads  int64 `json:"downloads"`
	Users      int64 `json:"users"`
	Categories int64 `json:"categories"`
}

// HandleStats returns gallery-wide totals.
//
// HTTP: GET /api/admin/stats
func (h *AdminHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	icons, downloads, err := h.icons.Totals(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	users, err := h.users.Count(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	categories, err := h.categories.Count(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, adminStats{
		Icons:      icons,
		Downloads:  downloads,
		Users:      users,
		Categories: categories,
	})
}

// HandleListIcons returns every icon, pending ones included.
//
// HTTP: GET /api/admin/icons
func (h *AdminHandler) HandleListIcons(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	icons, err := h.icons.ListAll(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("admin listing icons", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, icons)
}

// HandleApproveIcon makes an icon publicly visible.
//
// HTTP: POST /api/admin/icons/{id}/approve
func (h *AdminHandler) HandleApproveIcon(w http.ResponseWriter, r *http.Request) {
	h.setApproval(w, r, true)
}

// HandleUnapproveIcon sends an icon back to the pending state.
//
// HTTP: POST /api/admin/icons/{id}/unapprove
func (h *AdminHandler) HandleUnapproveIcon(w http.ResponseWriter, r *http.Request) {
	h.setApproval(w, r, false)
}

func (h *AdminHandler) setApproval(w http.ResponseWriter, r *http.Request, approved bool) {
	if err := h.icons.SetApproval(r.Context(), r.PathValue("id"), approved); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"isApproved": approved})
}

// HandleDeleteIcon removes any icon regardless of owner.
//
// HTTP: DELETE /api/admin/icons/{id}
func (h *AdminHandler) HandleDeleteIcon(w http.ResponseWriter, r *http.Request) {
	adminID, _ := auth.UserIDFromContext(r.Context())
	if err := h.icons.Delete(r.Context(), r.PathValue("id"), adminID, true); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleListUsers returns all accounts with their icon counts.
//
// HTTP: GET /api/admin/users
func (h *AdminHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	users, err := h.users.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("admin listing users", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

type updateUserRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// HandleUpdateUser edits an account's name, email or role. Omitted fields
// are left alone.
//
// HTTP: PUT /api/admin/users/{id}
func (h *AdminHandler) HandleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}

	adminID, _ := auth.UserIDFromContext(r.Context())
	user, err := h.users.AdminUpdate(r.Context(), r.PathValue("id"), adminID, req.Name, req.Email, req.Role)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleDeleteUser removes an account and everything it uploaded.
//
// HTTP: DELETE /api/admin/users/{id}
func (h *AdminHandler) HandleDeleteUser(w http.ResponseWriter, r *http.Request) {
	adminID, _ := auth.UserIDFromContext(r.Context())
	if err := h.users.AdminDelete(r.Context(), r.PathValue("id"), adminID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type categoryRequest struct {
	Name string `json:"name"`
}

// HandleCreateCategory adds a category.
//
// HTTP: POST /api/admin/categories
func (h *AdminHandler) HandleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}

	category, err := h.categories.Create(r.Context(), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

// HandleUpdateCategory renames a category.
//
// HTTP: PUT /api/admin/categories/{id}
func (h *AdminHandler) HandleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: "invalid JSON body"})
		return
	}

	category, err := h.categories.Update(r.Context(), r.PathValue("id"), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, category)
}

// HandleDeleteCategory removes an unused category; a category that still
// has icons comes back as 409.
//
// HTTP: DELETE /api/admin/categories/{id}
func (h *AdminHandler) HandleDeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.categories.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
