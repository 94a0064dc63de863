package sqlite

import (
	"database/sql"

	"github.com/ytqueue/ytqueue/internal/storage"
)

type HistoryRepository struct {
	db *sql.DB
}

func NewHistoryRepository(dbConn *sql.DB) *HistoryRepository {
	return &HistoryRepository{db: dbConn}
}

// Add records a completed download. Re-adding an existing URL replaces the
// row, which assigns a fresh id and moves the entry to the front. The store
// is then trimmed to the most recent entries.
func (r *HistoryRepository) Add(entry storage.HistoryEntry) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM history WHERE url = ?`, entry.URL); err != nil {
		return err
	}

	_, err = tx.Exec(
		`INSERT INTO history (url, title, file_path, downloaded_at, status) VALUES (?, ?, ?, ?, ?)`,
		entry.URL, entry.Title, entry.FilePath, entry.DownloadedAt, entry.Status,
	)
	if err != nil {
		return err
	}

	_, err = tx.Exec(
		`DELETE FROM history WHERE id NOT IN (SELECT id FROM history ORDER BY id DESC LIMIT ?)`,
		storage.MaxHistoryEntries,
	)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// All returns every entry, most recent first.
func (r *HistoryRepository) All() ([]storage.HistoryEntry, error) {
	rows, err := r.db.Query(
		`SELECT url, title, file_path, downloaded_at, status FROM history ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []storage.HistoryEntry

	for rows.Next() {
		var entry storage.HistoryEntry
		if err := rows.Scan(&entry.URL, &entry.Title, &entry.FilePath, &entry.DownloadedAt, &entry.Status); err != nil {
			return nil, err
		}

		entries = append(entries, entry)
	}

	return entries, rows.Err()
}

// Remove deletes the entry for the given URL, if present.
func (r *HistoryRepository) Remove(url string) error {
	_, err := r.db.Exec(`DELETE FROM history WHERE url = ?`, url)

	return err
}

// Clear empties the store.
func (r *HistoryRepository) Clear() error {
	_, err := r.db.Exec(`DELETE FROM history`)

	return err
}
