// Package repository defines the storage interfaces the service layer
// programs against. The concrete implementation lives in repository/sqlite;
// tests substitute in-memory mocks.
//
// All interfaces are implemented by the single sqlite.DB type, so methods
// for the secondary entities carry the entity name (CreateCategory,
// GetUserByID, ...) while the central Icon entity keeps the plain names.
package repository

import (
	"context"

	"github.com/sakif/icon-gallery/internal/model"
)

// ListOptions carries limit/offset pagination for list queries.
type ListOptions struct {
	Limit  int
	Offset int
}

// IconFilter narrows icon list queries. Zero values mean "no filter".
type IconFilter struct {
	ApprovedOnly bool   // public listings only show approved icons
	UserID       string // restrict to one owner (my-icons)
	Category     string // category slug
	Search       string // substring match on name and tags
	Limit        int
	Offset       int
}

// UserStats are the dashboard numbers for a single user.
type UserStats struct {
	Icons     int64 `json:"icons"`
	Downloads int64 `json:"downloads"`
}

type IconRepository interface {
	Create(ctx context.Context, icon *model.Icon) error
	GetByID(ctx context.Context, id string) (*model.Icon, error)
	GetBySlug(ctx context.Context, slug string) (*model.Icon, error)
	List(ctx context.Context, filter IconFilter) ([]model.Icon, error)
	Update(ctx context.Context, icon *model.Icon) error
	SetApproval(ctx context.Context, id string, approved bool) error

	// IncrementDownloads bumps the download counter by exactly one, as a
	// single atomic statement at the storage layer. Concurrent increments
	// must never lose updates.
	IncrementDownloads(ctx context.Context, id string) error

	Delete(ctx context.Context, id string) error
	CountByCategory(ctx context.Context, categorySlug string) (int64, error)

	// SlugExists reports whether slug is taken by an icon other than
	// excludeID (pass "" when creating).
	SlugExists(ctx context.Context, slug, excludeID string) (bool, error)

	// Totals returns the gallery-wide icon count and download sum.
	Totals(ctx context.Context) (icons, downloads int64, err error)
	UserStats(ctx context.Context, userID string) (UserStats, error)
}

type CategoryRepository interface {
	CreateCategory(ctx context.Context, category *model.Category) error
	GetCategoryByID(ctx context.Context, id string) (*model.Category, error)
	GetCategoryBySlug(ctx context.Context, slug string) (*model.Category, error)

	// ListCategories returns all categories ordered by name, with
	// IconCount filled.
	ListCategories(ctx context.Context) ([]model.Category, error)

	UpdateCategory(ctx context.Context, category *model.Category) error
	DeleteCategory(ctx context.Context, id string) error
	CategorySlugExists(ctx context.Context, slug, excludeID string) (bool, error)
	CountCategories(ctx context.Context) (int64, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)

	// ListUsers returns users newest-first with IconCount filled.
	ListUsers(ctx context.Context, opts ListOptions) ([]model.User, error)

	UpdateUser(ctx context.Context, user *model.User) error
	DeleteUser(ctx context.Context, id string) error
	CountUsers(ctx context.Context) (int64, error)
}

type SettingRepository interface {
	// GetSetting returns the raw string value, or apperror.ErrNotFound.
	GetSetting(ctx context.Context, key string) (string, error)

	// SetSetting upserts the value for key.
	SetSetting(ctx context.Context, key, value string) error
}
