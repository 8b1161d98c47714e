// Package service contains the business logic layer.
//
// Handlers parse HTTP and write responses; services validate, enforce
// rules and orchestrate; repositories read and write the database. Each
// service receives interfaces (repositories, the content store), so tests
// exercise the rules with in-memory fakes and no HTTP or SQL.
package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/sakif/icon-gallery/internal/apperror"
	"github.com/sakif/icon-gallery/internal/model"
	"github.com/sakif/icon-gallery/internal/repository"
	"github.com/sakif/icon-gallery/internal/slug"
)

// Validation limits for icon uploads.
const (
	MaxIconFileSize    = 5 << 20 // 5 MiB, icon file and preview alike
	MaxNameLength      = 255
	MaxDescLength      = 1000
	MaxTagsLength      = 500
	DefaultIconPerPage = 30
)

// allowed upload extensions, lowercased, without the dot.
var (
	iconExtensions    = map[string]bool{"svg": true, "icns": true}
	previewExtensions = map[string]bool{"png": true, "jpg": true, "jpeg": true}
)

// ContentStore is the slice of the file store the icon services use.
// Implemented by *storage.Store; tests substitute an in-memory fake.
type ContentStore interface {
	SaveIcon(originalName string, r io.Reader) (string, error)
	SavePreview(originalName string, r io.Reader) (string, error)
	Open(relPath string) (io.ReadCloser, int64, error)
	Remove(relPath string) error
}

// FileUpload is one file from a multipart form: its client-reported name
// and size, plus the content reader.
type FileUpload struct {
	Filename string
	Size     int64
	Reader   io.Reader
}

// UploadInput carries everything from the upload form.
type UploadInput struct {
	Name        string
	Description string
	Category    string // category slug; must exist
	Size        string // optional: 512, 1024, 2048 or vector
	Tags        string
	File        *FileUpload // required
	Preview     *FileUpload // optional; required when File is .icns
}

// IconService handles the icon lifecycle: upload validation, slug
// assignment, approval, download streaming and deletion.
type IconService struct {
	icons       repository.IconRepository
	categories  repository.CategoryRepository
	store       ContentStore
	autoApprove bool
	logger      *slog.Logger
}

// NewIconService creates an IconService.
//
// autoApprove controls the upload policy: when true (the default
// deployment), new icons are publicly visible immediately; when false they
// wait in the pending state until an admin approves them.
func NewIconService(
	icons repository.IconRepository,
	categories repository.CategoryRepository,
	store ContentStore,
	autoApprove bool,
	logger *slog.Logger,
) *IconService {
	return &IconService{
		icons:       icons,
		categories:  categories,
		store:       store,
		autoApprove: autoApprove,
		logger:      logger,
	}
}

// Upload validates the form, stores the file(s), and creates the icon
// record.
//
// Validation runs to completion before any file is written, so a rejected
// upload leaves no partial state behind. If the database insert fails
// after the files were written, the written files are removed again —
// either the whole upload succeeds or nothing is persisted.
func (s *IconService) Upload(ctx context.Context, userID string, in UploadInput) (*model.Icon, error) {
	if userID == "" {
		return nil, apperror.Unauthorized("authentication required to upload")
	}

	// --- Validate everything first; no side effects yet ---

	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "name is required")
	}
	if len(name) > MaxNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("name must be %d characters or less", MaxNameLength))
	}
	if len(in.Description) > MaxDescLength {
		return nil, apperror.ValidationFailed("description",
			fmt.Sprintf("description must be %d characters or less", MaxDescLength))
	}
	if len(in.Tags) > MaxTagsLength {
		return nil, apperror.ValidationFailed("tags",
			fmt.Sprintf("tags must be %d characters or less", MaxTagsLength))
	}

	category := strings.TrimSpace(in.Category)
	if category == "" {
		return nil, apperror.ValidationFailed("category", "category is required")
	}
	if _, err := s.categories.GetCategoryBySlug(ctx, category); err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.ValidationFailed("category",
				fmt.Sprintf("unknown category %q", category))
		}
		return nil, fmt.Errorf("checking category: %w", err)
	}

	if in.Size != "" && !validSize(in.Size) {
		return nil, apperror.ValidationFailed("size",
			"size must be one of 512, 1024, 2048 or vector")
	}

	if in.File == nil {
		return nil, apperror.ValidationFailed("icon", "icon file is required")
	}
	fileType := extension(in.File.Filename)
	if !iconExtensions[fileType] {
		return nil, apperror.ValidationFailed("icon", "icon file must be .svg or .icns")
	}
	if in.File.Size > MaxIconFileSize {
		return nil, apperror.ValidationFailed("icon", "icon file must be 5 MB or smaller")
	}

	// ICNS can't be rendered by a browser, so a raster preview is
	// mandatory. The error is scoped to the preview field — the icon file
	// itself is fine.
	if fileType == model.FileTypeICNS && in.Preview == nil {
		return nil, apperror.ValidationFailed("preview_image",
			"preview image is required for ICNS files")
	}
	if in.Preview != nil {
		if ext := extension(in.Preview.Filename); !previewExtensions[ext] {
			return nil, apperror.ValidationFailed("preview_image",
				"preview image must be .png, .jpg or .jpeg")
		}
		if in.Preview.Size > MaxIconFileSize {
			return nil, apperror.ValidationFailed("preview_image",
				"preview image must be 5 MB or smaller")
		}
	}

	// --- Write files ---

	filePath, err := s.store.SaveIcon(in.File.Filename, in.File.Reader)
	if err != nil {
		return nil, fmt.Errorf("storing icon file: %w", err)
	}

	previewPath := ""
	if in.Preview != nil {
		previewPath, err = s.store.SavePreview(in.Preview.Filename, in.Preview.Reader)
		if err != nil {
			s.store.Remove(filePath)
			return nil, fmt.Errorf("storing preview image: %w", err)
		}
	}

	// --- Create the record ---

	icon := &model.Icon{
		UserID:      userID,
		Name:        name,
		Description: strings.TrimSpace(in.Description),
		Category:    category,
		Size:        in.Size,
		Tags:        strings.TrimSpace(in.Tags),
		FilePath:    filePath,
		PreviewPath: previewPath,
		FileType:    fileType,
		FileSize:    in.File.Size,
		IsApproved:  s.autoApprove,
	}

	if err := s.createWithUniqueSlug(ctx, icon); err != nil {
		s.store.Remove(filePath)
		s.store.Remove(previewPath)
		return nil, err
	}

	s.logger.Info("icon uploaded",
		slog.String("id", icon.ID),
		slog.String("slug", icon.Slug),
		slog.String("userID", userID),
		slog.Bool("approved", icon.IsApproved),
	)

	return icon, nil
}

// createWithUniqueSlug generates a slug and inserts the icon. The probe in
// slug.MakeUnique is optimistic: two concurrent uploads with the same name
// can both pass it, and the loser hits the UNIQUE constraint. That comes
// back as ErrConflict, and we regenerate against the now-updated table and
// retry once.
func (s *IconService) createWithUniqueSlug(ctx context.Context, icon *model.Icon) error {
	for attempt := 0; attempt < 2; attempt++ {
		generated, err := slug.MakeUnique(ctx, icon.Name, "", s.icons.SlugExists)
		if err != nil {
			return fmt.Errorf("generating slug: %w", err)
		}
		icon.Slug = generated

		err = s.icons.Create(ctx, icon)
		if err == nil {
			return nil
		}
		if !errors.Is(err, apperror.ErrConflict) {
			return fmt.Errorf("creating icon: %w", err)
		}

		s.logger.Warn("slug collision at insert, retrying",
			slog.String("slug", icon.Slug))
	}

	return fmt.Errorf("creating icon: slug conflict persisted after retry")
}

// GetBySlug returns the icon for a public detail page. Unapproved icons
// are invisible (404) to everyone but their owner.
func (s *IconService) GetBySlug(ctx context.Context, slugStr, viewerID string) (*model.Icon, error) {
	icon, err := s.icons.GetBySlug(ctx, strings.TrimSpace(slugStr))
	if err != nil {
		return nil, err
	}
	if !icon.IsApproved && icon.UserID != viewerID {
		return nil, apperror.NotFound("icon", slugStr)
	}
	return icon, nil
}

// ListApproved returns the public gallery listing.
func (s *IconService) ListApproved(ctx context.Context, search, category string, limit, offset int) ([]model.Icon, error) {
	icons, err := s.icons.List(ctx, repository.IconFilter{
		ApprovedOnly: true,
		Search:       strings.TrimSpace(search),
		Category:     strings.TrimSpace(category),
		Limit:        limit,
		Offset:       offset,
	})
	if err != nil {
		return nil, fmt.Errorf("listing icons: %w", err)
	}
	return icons, nil
}

// ListByUser returns all of one user's icons, approved or not (my-icons).
func (s *IconService) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Icon, error) {
	icons, err := s.icons.List(ctx, repository.IconFilter{
		UserID: userID,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("listing icons for user %s: %w", userID, err)
	}
	return icons, nil
}

// ListAll returns every icon regardless of approval (admin moderation).
func (s *IconService) ListAll(ctx context.Context, limit, offset int) ([]model.Icon, error) {
	icons, err := s.icons.List(ctx, repository.IconFilter{Limit: limit, Offset: offset})
	if err != nil {
		return nil, fmt.Errorf("listing all icons: %w", err)
	}
	return icons, nil
}

// DownloadResult is an open stream of the icon file plus the metadata the
// handler needs to serve it.
type DownloadResult struct {
	Reader   io.ReadCloser
	Size     int64
	Filename string // slug-based suggested name, e.g. "safari-2024.svg"
	FileType string
}

// Download opens the icon's stored file and counts the download.
//
// Order matters: the file is opened before the counter moves, so a file
// that was removed from the content store behind our back yields a plain
// 404 and the counter never drifts. The increment itself is atomic inside
// the database (downloads = downloads + 1), so K concurrent downloads add
// exactly K.
func (s *IconService) Download(ctx context.Context, slugStr, viewerID string) (*DownloadResult, error) {
	icon, err := s.icons.GetBySlug(ctx, strings.TrimSpace(slugStr))
	if err != nil {
		return nil, err
	}
	if !icon.IsApproved && icon.UserID != viewerID {
		return nil, apperror.NotFound("icon", slugStr)
	}

	reader, size, err := s.store.Open(icon.FilePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("icon file missing from content store",
				slog.String("id", icon.ID),
				slog.String("path", icon.FilePath),
			)
			return nil, apperror.NotFound("icon file", icon.Slug)
		}
		return nil, fmt.Errorf("opening icon file: %w", err)
	}

	if err := s.icons.IncrementDownloads(ctx, icon.ID); err != nil {
		reader.Close()
		return nil, fmt.Errorf("counting download: %w", err)
	}

	return &DownloadResult{
		Reader:   reader,
		Size:     size,
		Filename: icon.DownloadName(),
		FileType: icon.FileType,
	}, nil
}

// Delete removes an icon, its stored file and its preview. Only the owner
// or an admin may delete.
func (s *IconService) Delete(ctx context.Context, id, actorID string, actorIsAdmin bool) error {
	icon, err := s.icons.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return err
	}
	if icon.UserID != actorID && !actorIsAdmin {
		return apperror.Forbidden("you may only delete your own icons")
	}

	// Row first, files second: if the row delete fails the files are still
	// referenced, and an orphaned file is recoverable where a dangling DB
	// row pointing at nothing is a broken download link.
	if err := s.icons.Delete(ctx, icon.ID); err != nil {
		return err
	}

	if err := s.store.Remove(icon.FilePath); err != nil {
		s.logger.Error("failed to remove icon file",
			slog.String("path", icon.FilePath),
			slog.String("error", err.Error()),
		)
	}
	if err := s.store.Remove(icon.PreviewPath); err != nil {
		s.logger.Error("failed to remove preview file",
			slog.String("path", icon.PreviewPath),
			slog.String("error", err.Error()),
		)
	}

	s.logger.Info("icon deleted",
		slog.String("id", icon.ID),
		slog.String("slug", icon.Slug),
		slog.String("actorID", actorID),
	)
	return nil
}

// SetApproval flips the moderation state of an icon. Admin-only — the
// route is behind the admin middleware.
func (s *IconService) SetApproval(ctx context.Context, id string, approved bool) error {
	if err := s.icons.SetApproval(ctx, strings.TrimSpace(id), approved); err != nil {
		return err
	}
	s.logger.Info("icon approval changed",
		slog.String("id", id),
		slog.Bool("approved", approved),
	)
	return nil
}

// UserStats returns the dashboard numbers for one user.
func (s *IconService) UserStats(ctx context.Context, userID string) (repository.UserStats, error) {
	return s.icons.UserStats(ctx, userID)
}

// Totals returns the gallery-wide icon count and download sum.
func (s *IconService) Totals(ctx context.Context) (icons, downloads int64, err error) {
	return s.icons.Totals(ctx)
}

func validSize(size string) bool {
	for _, s := range model.ValidSizes {
		if size == s {
			return true
		}
	}
	return false
}

// extension returns the lowercased filename extension without the dot.
func extension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}
