package queue

import (
	"context"
	"time"

	"github.com/ytqueue/ytqueue/internal/engine"
)

// Status is the lifecycle state of a queued download.
type Status string

const (
	// StatusPending means the item was accepted but no work has started.
	StatusPending Status = "Pending"

	// StatusFetchingInfo means metadata retrieval is in flight.
	StatusFetchingInfo Status = "FetchingInfo"

	// StatusDownloading means content transfer is in flight.
	StatusDownloading Status = "Downloading"

	// StatusCompleted means the download finished and the file is on disk.
	StatusCompleted Status = "Completed"

	// StatusErrored means the pipeline failed or was cancelled.
	StatusErrored Status = "Errored"
)

func (s Status) String() string {
	return string(s)
}

// IsTerminal reports whether no further transitions can occur.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusErrored
}

// IsActive reports whether background work is running for the item.
func (s Status) IsActive() bool {
	return s == StatusFetchingInfo || s == StatusDownloading
}

// item is the queue-owned mutable record for one submitted download.
// Only the queue mutates it; callers see Snapshot copies.
type item struct {
	key          string
	url          string
	title        string
	status       Status
	progress     float64
	speed        string
	etaSec       int
	filePath     string
	errorMessage string
	submittedAt  time.Time

	cancelRequested bool
	cancelPipeline  context.CancelFunc
	handle          engine.Handle
}

// Snapshot is a read-only copy of an item's state handed to the
// presentation layer.
type Snapshot struct {
	Key             string    `json:"key"`
	URL             string    `json:"url"`
	Title           string    `json:"title"`
	Status          Status    `json:"status"`
	ProgressPercent float64   `json:"progress_percent"`
	Speed           string    `json:"speed,omitempty"`
	ETASec          int       `json:"eta_sec,omitempty"`
	FilePath        string    `json:"file_path,omitempty"`
	ErrorMessage    string    `json:"error_message,omitempty"`
	SubmittedAt     time.Time `json:"submitted_at"`
}

func (it *item) snapshot() Snapshot {
	return Snapshot{
		Key:             it.key,
		URL:             it.url,
		Title:           it.title,
		Status:          it.status,
		ProgressPercent: it.progress,
		Speed:           it.speed,
		ETASec:          it.etaSec,
		FilePath:        it.filePath,
		ErrorMessage:    it.errorMessage,
		SubmittedAt:     it.submittedAt,
	}
}
