package sqlite

import (
	"database/sql"
	"errors"

	"github.com/ytqueue/ytqueue/internal/storage"
)

type SettingsRepository struct {
	db *sql.DB
}

func NewSettingsRepository(dbConn *sql.DB) *SettingsRepository {
	return &SettingsRepository{db: dbConn}
}

func (r *SettingsRepository) Get(key string) (string, error) {
	var value string

	err := r.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storage.ErrNotFound
	}

	if err != nil {
		return "", err
	}

	return value, nil
}

func (r *SettingsRepository) Set(key, value string) error {
	_, err := r.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)

	return err
}
