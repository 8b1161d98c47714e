package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/icon-gallery/internal/apperror"
	"github.com/sakif/icon-gallery/internal/model"
	"github.com/sakif/icon-gallery/internal/repository"
	"github.com/sakif/icon-gallery/internal/slug"
)

// CategoryService manages the gallery's category taxonomy. Categories are
// referenced from icons by slug, so renames keep the slug stable unless
// the admin explicitly changes the name — and a category can't be removed
// while icons still point at it.
type CategoryService struct {
	categories repository.CategoryRepository
	icons      repository.IconRepository
	logger     *slog.Logger
}

func NewCategoryService(
	categories repository.CategoryRepository,
	icons repository.IconRepository,
	logger *slog.Logger,
) *CategoryService {
	return &CategoryService{categories: categories, icons: icons, logger: logger}
}

// List returns all categories with their icon counts, ordered by name.
func (s *CategoryService) List(ctx context.Context) ([]model.Category, error) {
	categories, err := s.categories.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return categories, nil
}

// GetBySlug returns one category.
func (s *CategoryService) GetBySlug(ctx context.Context, slugStr string) (*model.Category, error) {
	return s.categories.GetCategoryBySlug(ctx, strings.TrimSpace(slugStr))
}

// Create adds a category with a slug derived from its name.
func (s *CategoryService) Create(ctx context.Context, name string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "name is required")
	}
	if len(name) > MaxNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("name must be %d characters or less", MaxNameLength))
	}

	generated, err := slug.MakeUnique(ctx, name, "", s.categories.CategorySlugExists)
	if err != nil {
		return nil, fmt.Errorf("generating category slug: %w", err)
	}

	category := &model.Category{Name: name, Slug: generated}
	if err := s.categories.CreateCategory(ctx, category); err != nil {
		return nil, err
	}

	s.logger.Info("category created",
		slog.String("id", category.ID),
		slog.String("slug", category.Slug),
	)
	return category, nil
}

// Update renames a category. The slug is fixed at creation and survives
// renames — icons reference their category by slug, and a slug change
// would orphan every icon filed under the old one.
func (s *CategoryService) Update(ctx context.Context, id, name string) (*model.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperror.ValidationFailed("name", "name is required")
	}
	if len(name) > MaxNameLength {
		return nil, apperror.ValidationFailed("name",
			fmt.Sprintf("name must be %d characters or less", MaxNameLength))
	}

	category, err := s.categories.GetCategoryByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	category.Name = name

	if err := s.categories.UpdateCategory(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

// Delete removes a category. A category still referenced by icons is
// refused with a conflict error rather than orphaning the icons.
func (s *CategoryService) Delete(ctx context.Context, id string) error {
	category, err := s.categories.GetCategoryByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return err
	}

	inUse, err := s.icons.CountByCategory(ctx, category.Slug)
	if err != nil {
		return fmt.Errorf("counting icons in category %s: %w", category.Slug, err)
	}
	if inUse > 0 {
		return apperror.Conflict(
			fmt.Sprintf("category %q still has %d icon(s); reassign them first", category.Name, inUse))
	}

	if err := s.categories.DeleteCategory(ctx, category.ID); err != nil {
		return err
	}

	s.logger.Info("category deleted",
		slog.String("id", category.ID),
		slog.String("slug", category.Slug),
	)
	return nil
}

// Count returns the number of categories (admin stats).
func (s *CategoryService) Count(ctx context.Context) (int64, error) {
	return s.categories.CountCategories(ctx)
}
