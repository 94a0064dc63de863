package storage

import "errors"

// ErrNotFound is returned when a requested record or setting is missing.
var ErrNotFound = errors.New("not found")

// MaxHistoryEntries caps the history store. Adding beyond the cap evicts
// the oldest entries.
const MaxHistoryEntries = 100

// HistoryEntry is a persisted record of a completed download.
type HistoryEntry struct {
	URL          string
	Title        string
	FilePath     string
	DownloadedAt string
	Status       string
}

// HistoryRepository stores completed downloads, most recent first, keyed by
// URL with update-in-place semantics: re-adding an existing URL updates that
// entry and moves it to the front.
type HistoryRepository interface {
	Add(entry HistoryEntry) error
	All() ([]HistoryEntry, error)
	Remove(url string) error
	Clear() error
}

// Well-known settings keys.
const (
	KeyDownloadFolder = "download_folder"
	KeyVideoQuality   = "video_quality"
	KeyOutputFormat   = "output_format"
)

// SettingsRepository is a key/value store for user preferences.
type SettingsRepository interface {
	Get(key string) (string, error)
	Set(key, value string) error
}
