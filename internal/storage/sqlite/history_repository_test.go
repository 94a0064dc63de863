package sqlite

import (
	"database/sql"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ytqueue/ytqueue/internal/storage"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := InitDB(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return db
}

func entryFor(i int) storage.HistoryEntry {
	return storage.HistoryEntry{
		URL:          fmt.Sprintf("https://youtu.be/video%06d", i),
		Title:        fmt.Sprintf("Video %d", i),
		FilePath:     fmt.Sprintf("/downloads/video%d.mp4", i),
		DownloadedAt: "2026-08-29T10:00:00Z",
		Status:       "completed",
	}
}

func TestHistoryAddAndAll(t *testing.T) {
	repo := NewHistoryRepository(newTestDB(t))

	require.NoError(t, repo.Add(entryFor(1)))
	require.NoError(t, repo.Add(entryFor(2)))
	require.NoError(t, repo.Add(entryFor(3)))

	entries, err := repo.All()
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// Most recent first.
	assert.Equal(t, "Video 3", entries[0].Title)
	assert.Equal(t, "Video 2", entries[1].Title)
	assert.Equal(t, "Video 1", entries[2].Title)
	assert.Equal(t, "/downloads/video3.mp4", entries[0].FilePath)
}

func TestHistoryAddMovesExistingURLToFront(t *testing.T) {
	repo := NewHistoryRepository(newTestDB(t))

	require.NoError(t, repo.Add(entryFor(1)))
	require.NoError(t, repo.Add(entryFor(2)))

	updated := entryFor(1)
	updated.Title = "Video 1 (redownloaded)"
	updated.FilePath = "/downloads/video1_v2.mp4"
	require.NoError(t, repo.Add(updated))

	entries, err := repo.All()
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "Video 1 (redownloaded)", entries[0].Title)
	assert.Equal(t, "/downloads/video1_v2.mp4", entries[0].FilePath)
	assert.Equal(t, "Video 2", entries[1].Title)
}

func TestHistoryCapEvictsOldest(t *testing.T) {
	repo := NewHistoryRepository(newTestDB(t))

	for i := 1; i <= storage.MaxHistoryEntries+1; i++ {
		require.NoError(t, repo.Add(entryFor(i)))
	}

	entries, err := repo.All()
	require.NoError(t, err)
	require.Len(t, entries, storage.MaxHistoryEntries)

	assert.Equal(t, fmt.Sprintf("Video %d", storage.MaxHistoryEntries+1), entries[0].Title)

	// The oldest entry fell off the end.
	for _, entry := range entries {
		assert.NotEqual(t, "Video 1", entry.Title)
	}
}

func TestHistoryRemove(t *testing.T) {
	repo := NewHistoryRepository(newTestDB(t))

	require.NoError(t, repo.Add(entryFor(1)))
	require.NoError(t, repo.Add(entryFor(2)))

	require.NoError(t, repo.Remove(entryFor(1).URL))

	entries, err := repo.All()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Video 2", entries[0].Title)

	// Removing an absent URL is a no-op.
	require.NoError(t, repo.Remove("https://youtu.be/notthere00"))
}

func TestHistoryClear(t *testing.T) {
	repo := NewHistoryRepository(newTestDB(t))

	require.NoError(t, repo.Add(entryFor(1)))
	require.NoError(t, repo.Clear())

	entries, err := repo.All()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestSettingsRoundTrip(t *testing.T) {
	repo := NewSettingsRepository(newTestDB(t))

	_, err := repo.Get(storage.KeyDownloadFolder)
	require.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, repo.Set(storage.KeyDownloadFolder, "/downloads"))

	value, err := repo.Get(storage.KeyDownloadFolder)
	require.NoError(t, err)
	assert.Equal(t, "/downloads", value)

	require.NoError(t, repo.Set(storage.KeyDownloadFolder, "/mnt/media"))

	value, err = repo.Get(storage.KeyDownloadFolder)
	require.NoError(t, err)
	assert.Equal(t, "/mnt/media", value)
}
