package queue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusPredicates(t *testing.T) {
	assert.False(t, StatusPending.IsTerminal())
	assert.False(t, StatusFetchingInfo.IsTerminal())
	assert.False(t, StatusDownloading.IsTerminal())
	assert.True(t, StatusCompleted.IsTerminal())
	assert.True(t, StatusErrored.IsTerminal())

	assert.False(t, StatusPending.IsActive())
	assert.True(t, StatusFetchingInfo.IsActive())
	assert.True(t, StatusDownloading.IsActive())
	assert.False(t, StatusCompleted.IsActive())
	assert.False(t, StatusErrored.IsActive())
}

func TestSnapshotCopiesItemState(t *testing.T) {
	now := time.Now()
	it := &item{
		key:         "k1",
		url:         "https://youtu.be/dQw4w9WgXcQ",
		title:       "Test Video",
		status:      StatusDownloading,
		progress:    42.5,
		speed:       "1.0 MB/s",
		etaSec:      30,
		submittedAt: now,
	}

	snap := it.snapshot()

	assert.Equal(t, "k1", snap.Key)
	assert.Equal(t, StatusDownloading, snap.Status)
	assert.Equal(t, 42.5, snap.ProgressPercent)
	assert.Equal(t, "1.0 MB/s", snap.Speed)
	assert.Equal(t, 30, snap.ETASec)
	assert.Equal(t, now, snap.SubmittedAt)

	// Later item mutation must not leak into a taken snapshot.
	it.status = StatusCompleted
	assert.Equal(t, StatusDownloading, snap.Status)
}
