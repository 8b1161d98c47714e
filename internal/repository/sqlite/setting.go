package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sakif/icon-gallery/internal/apperror"
	"github.com/sakif/icon-gallery/internal/repository"
)

// Compile-time check that *DB implements repository.SettingRepository.
var _ repository.SettingRepository = (*DB)(nil)

func (db *DB) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := db.conn.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE key = ?`, key,
	).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", apperror.NotFound("setting", key)
		}
		return "", fmt.Errorf("sqlite: getting setting %q: %w", key, err)
	}
	return value, nil
}

// SetSetting upserts the value for key in one statement. ON CONFLICT keeps
// it race-free without a read-check-write round trip.
func (db *DB) SetSetting(ctx context.Context, key, value string) error {
	now := time.Now()
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO settings (key, value, created_at, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, now, now,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting %q: %w", key, err)
	}
	return nil
}
