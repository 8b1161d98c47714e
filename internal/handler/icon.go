package handler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/icon-gallery/internal/apperror"
	"github.com/sakif/icon-gallery/internal/auth"
	"github.com/sakif/icon-gallery/internal/service"
)

// maxUploadBytes bounds the whole multipart request: icon + preview at
// 5 MiB each, plus generous headroom for the text fields and boundaries.
const maxUploadBytes = 2*service.MaxIconFileSize + 1<<20

// IconHandler serves the public gallery endpoints and the authenticated
// upload/manage endpoints.
type IconHandler struct {
	icons  *service.IconService
	users  *service.UserService
	logger *slog.Logger
}

func NewIconHandler(icons *service.IconService, users *service.UserService, logger *slog.Logger) *IconHandler {
	return &IconHandler{icons: icons, users: users, logger: logger}
}

// HandleList returns approved icons for the public gallery.
//
// HTTP: GET /api/icons?search=&category=&limit=&offset=
func (h *IconHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	icons, err := h.icons.ListApproved(r.Context(),
		r.URL.Query().Get("search"),
		r.URL.Query().Get("category"),
		limit, offset,
	)
	if err != nil {
		h.logger.Error("listing icons", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, icons)
}

// HandleGet returns one icon by slug. Unapproved icons are visible only
// to their owner; OptionalAuth makes the viewer ID available when a valid
// token rides along.
//
// HTTP: GET /api/icons/{slug}
func (h *IconHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := auth.UserIDFromContext(r.Context())

	icon, err := h.icons.GetBySlug(r.Context(), r.PathValue("slug"), viewerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, icon)
}

// HandleDownload streams the icon file and counts the download.
//
// HTTP: GET /api/icons/{slug}/download
//
// The suggested filename is slug-based ("safari-2024.svg"); the stored
// filename never leaves the server.
func (h *IconHandler) HandleDownload(w http.ResponseWriter, r *http.Request) {
	viewerID, _ := auth.UserIDFromContext(r.Context())

	result, err := h.icons.Download(r.Context(), r.PathValue("slug"), viewerID)
	if err != nil {
		writeError(w, err)
		return
	}
	defer result.Reader.Close()

	w.Header().Set("Content-Type", contentTypeFor(result.FileType))
	w.Header().Set("Content-Length", fmt.Sprintf("%d", result.Size))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))

	if _, err := io.Copy(w, result.Reader); err != nil {
		// Headers are gone; all we can do is log. Usually the client
		// cancelled the download.
		h.logger.Warn("streaming icon download",
			slog.String("filename", result.Filename),
			slog.String("error", err.Error()),
		)
	}
}

// HandleUpload accepts a multipart upload form and creates an icon.
//
// HTTP: POST /api/icons (auth required)
//
// Form fields: name, description, category, size, tags
// Form files:  icon (required), preview_image (required for .icns)
func (h *IconHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "authentication required"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "could not parse upload form; is it multipart and within the size limit?",
		})
		return
	}
	defer r.MultipartForm.RemoveAll()

	in := service.UploadInput{
		Name:        r.FormValue("name"),
		Description: r.FormValue("description"),
		Category:    r.FormValue("category"),
		Size:        r.FormValue("size"),
		Tags:        r.FormValue("tags"),
	}

	iconFile, cleanupIcon, err := formFile(r, "icon")
	if err != nil {
		writeError(w, err)
		return
	}
	if cleanupIcon != nil {
		defer cleanupIcon()
	}
	in.File = iconFile

	previewFile, cleanupPreview, err := formFile(r, "preview_image")
	if err != nil {
		writeError(w, err)
		return
	}
	if cleanupPreview != nil {
		defer cleanupPreview()
	}
	in.Preview = previewFile

	icon, err := h.icons.Upload(r.Context(), userID, in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, icon)
}

// HandleMyIcons returns all of the caller's icons, pending ones included.
//
// HTTP: GET /api/my-icons (auth required)
func (h *IconHandler) HandleMyIcons(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "authentication required"})
		return
	}

	limit, offset := pagination(r)
	icons, err := h.icons.ListByUser(r.Context(), userID, limit, offset)
	if err != nil {
		h.logger.Error("listing user icons", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, icons)
}

// HandleMyStats returns the caller's dashboard numbers.
//
// HTTP: GET /api/my-stats (auth required)
func (h *IconHandler) HandleMyStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "authentication required"})
		return
	}

	stats, err := h.icons.UserStats(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// HandleDelete removes one of the caller's icons (admins may remove any).
//
// HTTP: DELETE /api/icons/{id} (auth required)
func (h *IconHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: "authentication required"})
		return
	}

	isAdmin, err := h.users.IsAdmin(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.icons.Delete(r.Context(), r.PathValue("id"), userID, isAdmin); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// formFile pulls one optional file out of the parsed multipart form.
// A missing file is not an error here; required-ness is the service's
// call, since it depends on the icon type.
func formFile(r *http.Request, field string) (*service.FileUpload, func(), error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil, nil
		}
		return nil, nil, apperror.ValidationFailed(field, "could not read uploaded file")
	}
	upload := &service.FileUpload{
		Filename: header.Filename,
		Size:     header.Size,
		Reader:   file,
	}
	return upload, func() { file.Close() }, nil
}

func contentTypeFor(fileType string) string {
	switch fileType {
	case "svg":
		return "image/svg+xml"
	case "icns":
		return "image/x-icns"
	default:
		return "application/octet-stream"
	}
}
