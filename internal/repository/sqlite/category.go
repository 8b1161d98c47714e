package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/sakif/icon-gallery/internal/apperror"
	"github.com/sakif/icon-gallery/internal/model"
	"github.com/sakif/icon-gallery/internal/repository"
)

// Compile-time check that *DB implements repository.CategoryRepository.
var _ repository.CategoryRepository = (*DB)(nil)

func (db *DB) CreateCategory(ctx context.Context, category *model.Category) error {
	category.ID = xid.New().String()
	now := time.Now()
	category.CreatedAt = now
	category.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO categories (id, name, slug, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		category.ID, category.Name, category.Slug,
		category.CreatedAt, category.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict(fmt.Sprintf("category slug %q already exists", category.Slug))
		}
		return fmt.Errorf("sqlite: creating category: %w", err)
	}

	return nil
}

func (db *DB) GetCategoryByID(ctx context.Context, id string) (*model.Category, error) {
	return db.getCategory(ctx, "id", id)
}

func (db *DB) GetCategoryBySlug(ctx context.Context, slug string) (*model.Category, error) {
	return db.getCategory(ctx, "slug", slug)
}

func (db *DB) getCategory(ctx context.Context, column, value string) (*model.Category, error) {
	var c model.Category
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, slug, created_at, updated_at
		 FROM categories WHERE `+column+` = ?`, value,
	).Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("category", value)
		}
		return nil, fmt.Errorf("sqlite: getting category by %s %q: %w", column, value, err)
	}
	return &c, nil
}

// ListCategories returns all categories ordered by name, each with the
// number of icons currently filed under its slug.
func (db *DB) ListCategories(ctx context.Context) ([]model.Category, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT c.id, c.name, c.slug, c.created_at, c.updated_at,
		        (SELECT COUNT(*) FROM icons i WHERE i.category = c.slug)
		 FROM categories c
		 ORDER BY c.name`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing categories: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt, &c.UpdatedAt, &c.IconCount); err != nil {
			return nil, fmt.Errorf("sqlite: scanning category row: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating categories: %w", err)
	}

	return categories, nil
}

func (db *DB) UpdateCategory(ctx context.Context, category *model.Category) error {
	category.UpdatedAt = time.Now()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE categories SET name = ?, slug = ?, updated_at = ? WHERE id = ?`,
		category.Name, category.Slug, category.UpdatedAt, category.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict(fmt.Sprintf("category slug %q already exists", category.Slug))
		}
		return fmt.Errorf("sqlite: updating category %s: %w", category.ID, err)
	}

	return checkAffected(result, "category", category.ID)
}

// DeleteCategory removes the row. The in-use check (no deletion while
// icons reference the slug) is enforced in the service layer, which owns
// the ordering of the check against CountByCategory.
func (db *DB) DeleteCategory(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting category %s: %w", id, err)
	}
	return checkAffected(result, "category", id)
}

func (db *DB) CategorySlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE slug = ? AND id != ?`, slug, excludeID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking category slug %q: %w", slug, err)
	}
	return count > 0, nil
}

func (db *DB) CountCategories(ctx context.Context) (int64, error) {
	var count int64
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories`).Scan(&count); err != nil {
		return 0, fmt.Errorf("sqlite: counting categories: %w", err)
	}
	return count, nil
}
