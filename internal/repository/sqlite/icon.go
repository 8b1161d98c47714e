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

// Compile-time check that *DB implements repository.IconRepository.
var _ repository.IconRepository = (*DB)(nil)

const iconColumns = `id, user_id, name, slug, description, category, size, tags,
	file_path, preview_path, file_type, file_size, downloads, is_approved,
	created_at, updated_at`

// Create inserts a new icon. ID and timestamps are filled in on the passed
// struct. A duplicate slug (lost race against a concurrent upload with the
// same name) comes back as apperror.ErrConflict so the service can retry
// slug generation.
func (db *DB) Create(ctx context.Context, icon *model.Icon) error {
	icon.ID = xid.New().String()
	now := time.Now()
	icon.CreatedAt = now
	icon.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO icons (id, user_id, name, slug, description, category, size, tags,
			file_path, preview_path, file_type, file_size, downloads, is_approved,
			created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		icon.ID, icon.UserID, icon.Name, icon.Slug, icon.Description,
		icon.Category, icon.Size, icon.Tags, icon.FilePath, icon.PreviewPath,
		icon.FileType, icon.FileSize, icon.Downloads, icon.IsApproved,
		icon.CreatedAt, icon.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict(fmt.Sprintf("icon slug %q already exists", icon.Slug))
		}
		return fmt.Errorf("sqlite: creating icon: %w", err)
	}

	return nil
}

func (db *DB) GetByID(ctx context.Context, id string) (*model.Icon, error) {
	return db.getIcon(ctx, "id", id)
}

func (db *DB) GetBySlug(ctx context.Context, slug string) (*model.Icon, error) {
	return db.getIcon(ctx, "slug", slug)
}

func (db *DB) getIcon(ctx context.Context, column, value string) (*model.Icon, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+iconColumns+` FROM icons WHERE `+column+` = ?`, value)

	icon, err := scanIcon(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperror.NotFound("icon", value)
		}
		return nil, fmt.Errorf("sqlite: getting icon by %s %q: %w", column, value, err)
	}
	return icon, nil
}

// List returns icons newest-first, narrowed by the filter. Search matches
// a substring of the name or the tags, case-insensitively (LIKE on a
// lowercase pattern).
func (db *DB) List(ctx context.Context, filter repository.IconFilter) ([]model.Icon, error) {
	query := `SELECT ` + iconColumns + ` FROM icons WHERE 1=1`
	var args []any

	if filter.ApprovedOnly {
		query += ` AND is_approved = 1`
	}
	if filter.UserID != "" {
		query += ` AND user_id = ?`
		args = append(args, filter.UserID)
	}
	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, filter.Category)
	}
	if filter.Search != "" {
		query += ` AND (LOWER(name) LIKE ? ESCAPE '\' OR LOWER(tags) LIKE ? ESCAPE '\')`
		pattern := "%" + escapeLike(filter.Search) + "%"
		args = append(args, pattern, pattern)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 30
	}
	if limit > 100 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query += ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing icons: %w", err)
	}
	defer rows.Close()

	icons := make([]model.Icon, 0, limit)
	for rows.Next() {
		icon, err := scanIcon(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning icon row: %w", err)
		}
		icons = append(icons, *icon)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating icons: %w", err)
	}

	return icons, nil
}

// Update rewrites the mutable metadata fields. Slug is written too — it
// only changes via explicit admin edits, which regenerate it through the
// same uniqueness machinery as Create.
func (db *DB) Update(ctx context.Context, icon *model.Icon) error {
	icon.UpdatedAt = time.Now()

	result, err := db.conn.ExecContext(ctx,
		`UPDATE icons
		 SET name = ?, slug = ?, description = ?, category = ?, size = ?, tags = ?,
		     is_approved = ?, updated_at = ?
		 WHERE id = ?`,
		icon.Name, icon.Slug, icon.Description, icon.Category, icon.Size,
		icon.Tags, icon.IsApproved, icon.UpdatedAt, icon.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict(fmt.Sprintf("icon slug %q already exists", icon.Slug))
		}
		return fmt.Errorf("sqlite: updating icon %s: %w", icon.ID, err)
	}

	return checkAffected(result, "icon", icon.ID)
}

// SetApproval flips the approval flag only.
func (db *DB) SetApproval(ctx context.Context, id string, approved bool) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE icons SET is_approved = ?, updated_at = ? WHERE id = ?`,
		approved, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting approval on icon %s: %w", id, err)
	}
	return checkAffected(result, "icon", id)
}

// IncrementDownloads bumps the counter by exactly one in a single UPDATE.
// The increment happens inside the database, never as a read-modify-write
// in Go, so concurrent downloads cannot lose updates.
func (db *DB) IncrementDownloads(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx,
		`UPDATE icons SET downloads = downloads + 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: incrementing downloads for icon %s: %w", id, err)
	}
	return checkAffected(result, "icon", id)
}

func (db *DB) Delete(ctx context.Context, id string) error {
	result, err := db.conn.ExecContext(ctx, `DELETE FROM icons WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting icon %s: %w", id, err)
	}
	return checkAffected(result, "icon", id)
}

func (db *DB) CountByCategory(ctx context.Context, categorySlug string) (int64, error) {
	var count int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM icons WHERE category = ?`, categorySlug,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting icons in category %q: %w", categorySlug, err)
	}
	return count, nil
}

func (db *DB) SlugExists(ctx context.Context, slug, excludeID string) (bool, error) {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM icons WHERE slug = ? AND id != ?`, slug, excludeID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking icon slug %q: %w", slug, err)
	}
	return count > 0, nil
}

func (db *DB) Totals(ctx context.Context) (icons, downloads int64, err error) {
	err = db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(downloads), 0) FROM icons`,
	).Scan(&icons, &downloads)
	if err != nil {
		return 0, 0, fmt.Errorf("sqlite: icon totals: %w", err)
	}
	return icons, downloads, nil
}

func (db *DB) UserStats(ctx context.Context, userID string) (repository.UserStats, error) {
	var stats repository.UserStats
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(downloads), 0) FROM icons WHERE user_id = ?`,
		userID,
	).Scan(&stats.Icons, &stats.Downloads)
	if err != nil {
		return repository.UserStats{}, fmt.Errorf("sqlite: user stats for %s: %w", userID, err)
	}
	return stats, nil
}

// scanIcon reads one icon row. Taking the Scan function makes it work for
// both sql.Row and sql.Rows.
func scanIcon(scan func(dest ...any) error) (*model.Icon, error) {
	var icon model.Icon
	err := scan(
		&icon.ID, &icon.UserID, &icon.Name, &icon.Slug, &icon.Description,
		&icon.Category, &icon.Size, &icon.Tags, &icon.FilePath,
		&icon.PreviewPath, &icon.FileType, &icon.FileSize, &icon.Downloads,
		&icon.IsApproved, &icon.CreatedAt, &icon.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &icon, nil
}

// checkAffected translates "0 rows affected" into NotFound.
func checkAffected(result sql.Result, resource, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if affected == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}
