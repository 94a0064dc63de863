package queue

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ytqueue/ytqueue/internal/engine"
	"github.com/ytqueue/ytqueue/internal/logctx"
	"github.com/ytqueue/ytqueue/internal/storage"
	"github.com/ytqueue/ytqueue/internal/telemetry"
	"github.com/ytqueue/ytqueue/internal/validate"
)

// ValidationError rejects a submission whose URL is not a recognized video
// URL. The item is never created.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Listener receives a snapshot on every state or progress change. It is
// invoked from the queue's owner goroutine, so implementations must not
// block for long.
type Listener func(Snapshot)

// Options configures a queue.
type Options struct {
	DownloadDir string
	Format      engine.Format
	Quality     engine.Quality

	// MaxParallel bounds concurrent pipelines. 0 disables the bound,
	// matching the historical unbounded fan-out.
	MaxParallel int
}

type eventKind int

const (
	eventMetadata eventKind = iota
	eventFailed
	eventProgress
	eventComplete
)

// event is the only way background pipelines touch queue state. The owner
// loop applies events one at a time, so items are never mutated from two
// goroutines at once and history writes are serialized.
type event struct {
	kind     eventKind
	key      string
	meta     *engine.Metadata
	progress engine.Progress
	success  bool
	message  string
}

// Queue owns the collection of in-flight and completed downloads. It is the
// single source of truth for item state and the sole writer to history.
type Queue struct {
	eng      engine.Engine
	history  storage.HistoryRepository
	opts     Options
	tel      *telemetry.Telemetry
	listener Listener

	mu         sync.RWMutex
	items      map[string]*item
	order      []string // live submissions, newest first
	rehydrated []string // history entries loaded at startup

	events  chan event
	sem     chan struct{}
	runCtx  context.Context
	started map[string]time.Time
}

// New creates a queue. The listener may be nil.
func New(eng engine.Engine, history storage.HistoryRepository, opts Options, tel *telemetry.Telemetry, listener Listener) *Queue {
	q := &Queue{
		eng:      eng,
		history:  history,
		opts:     opts,
		tel:      tel,
		listener: listener,
		items:    make(map[string]*item),
		events:   make(chan event, 64),
		started:  make(map[string]time.Time),
	}

	if opts.MaxParallel > 0 {
		q.sem = make(chan struct{}, opts.MaxParallel)
	}

	return q
}

// Start rehydrates history and launches the owner loop. It must be called
// once before Submit.
func (q *Queue) Start(ctx context.Context) error {
	q.runCtx = ctx

	if err := q.rehydrate(ctx); err != nil {
		return fmt.Errorf("failed to rehydrate history: %w", err)
	}

	go q.run(ctx)

	return nil
}

// rehydrate inserts persisted history entries directly as Completed items.
// No fetch or download is dispatched for them.
func (q *Queue) rehydrate(ctx context.Context) error {
	entries, err := q.history.All()
	if err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	for _, entry := range entries {
		it := &item{
			key:         uuid.NewString(),
			url:         entry.URL,
			title:       entry.Title,
			status:      StatusCompleted,
			progress:    100,
			filePath:    entry.FilePath,
			submittedAt: time.Now(),
		}

		q.items[it.key] = it
		q.rehydrated = append(q.rehydrated, it.key)
	}

	logctx.LoggerFromContext(ctx).Info("history rehydrated", "entry_count", len(entries))

	return nil
}

// Submit validates the URL and, when accepted, creates an item and
// dispatches its fetch-then-download pipeline. The returned key identifies
// the item immediately, before any background work completes. Submitting
// the same URL twice yields two independent items.
func (q *Queue) Submit(url string) (string, error) {
	ok, _, msg := validate.ValidateAndExtract(url)
	if !ok {
		return "", &ValidationError{Message: msg}
	}

	it := &item{
		key:         uuid.NewString(),
		url:         url,
		status:      StatusPending,
		submittedAt: time.Now(),
	}

	pipeCtx, cancel := context.WithCancel(q.runCtx)
	it.cancelPipeline = cancel

	q.mu.Lock()
	it.status = StatusFetchingInfo
	q.items[it.key] = it
	q.order = append([]string{it.key}, q.order...)
	q.started[it.key] = time.Now()
	snap := it.snapshot()
	q.mu.Unlock()

	q.notify(snap)

	go q.pipeline(pipeCtx, it.key, url)

	return it.key, nil
}

// pipeline runs the two ordered steps for one item on a background
// goroutine. All results flow back through the events channel.
func (q *Queue) pipeline(ctx context.Context, key, url string) {
	q.tel.IncrementActiveDownloads()
	defer q.tel.DecrementActiveDownloads()

	if q.sem != nil {
		select {
		case q.sem <- struct{}{}:
			defer func() { <-q.sem }()
		case <-ctx.Done():
			q.events <- event{kind: eventComplete, key: key, success: false, message: engine.CancelledMessage}

			return
		}
	}

	meta, err := q.eng.FetchInfo(ctx, url)
	if err != nil {
		q.events <- event{kind: eventFailed, key: key, message: err.Error()}

		return
	}

	q.events <- event{kind: eventMetadata, key: key, meta: meta}

	handle, err := q.eng.StartDownload(ctx, engine.Request{
		URL:       url,
		OutputDir: q.opts.DownloadDir,
		Format:    q.opts.Format,
		Quality:   q.opts.Quality,
		OnProgress: func(p engine.Progress) {
			q.events <- event{kind: eventProgress, key: key, progress: p}
		},
		OnComplete: func(success bool, message string) {
			q.events <- event{kind: eventComplete, key: key, success: success, message: message}
		},
	})
	if err != nil {
		q.events <- event{kind: eventFailed, key: key, message: err.Error()}

		return
	}

	q.attachHandle(key, handle)
}

// attachHandle stores the engine handle so Cancel can reach the transfer.
// A cancel request that raced the start is honored immediately.
func (q *Queue) attachHandle(key string, handle engine.Handle) {
	q.mu.Lock()
	it, exists := q.items[key]
	if exists {
		it.handle = handle
	}

	cancelled := exists && it.cancelRequested
	q.mu.Unlock()

	if cancelled {
		handle.Cancel()
	}
}

// run is the owner loop: the only goroutine that mutates item state past
// submission and the only History writer.
func (q *Queue) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-q.events:
			q.apply(ctx, ev)
		}
	}
}

func (q *Queue) apply(ctx context.Context, ev event) {
	logger := logctx.LoggerFromContext(ctx)

	q.mu.Lock()

	it, exists := q.items[ev.key]
	if !exists || it.status.IsTerminal() {
		q.mu.Unlock()

		return
	}

	switch ev.kind {
	case eventMetadata:
		it.title = ev.meta.Title
		it.status = StatusDownloading
		it.progress = 0

	case eventProgress:
		if it.status == StatusDownloading {
			it.progress = ev.progress.Percent()
			it.speed = ev.progress.SpeedString()
			it.etaSec = ev.progress.ETASec
		}

	case eventFailed:
		it.status = StatusErrored
		it.errorMessage = q.failureMessage(it, ev.message)

	case eventComplete:
		// Cancel-wins: once cancellation was requested, a late success
		// report from the engine must not complete the item.
		if !ev.success || it.cancelRequested {
			it.status = StatusErrored
			it.errorMessage = q.failureMessage(it, ev.message)

			break
		}

		it.status = StatusCompleted
		it.progress = 100
		it.filePath = q.resolveOutputPath(ev.message, it.title)
	}

	snap := it.snapshot()
	startedAt := q.started[ev.key]

	if snap.Status.IsTerminal() {
		delete(q.started, ev.key)
	}

	q.mu.Unlock()

	if snap.Status.IsTerminal() {
		q.recordOutcome(logger, snap, startedAt)
	}

	q.notify(snap)
}

// recordOutcome persists completed downloads and records metrics. A failed
// history write is logged and counted but never rolls the item back.
func (q *Queue) recordOutcome(logger *slog.Logger, snap Snapshot, startedAt time.Time) {
	duration := time.Duration(0)
	if !startedAt.IsZero() {
		duration = time.Since(startedAt)
	}

	switch {
	case snap.Status == StatusCompleted:
		entry := storage.HistoryEntry{
			URL:          snap.URL,
			Title:        snap.Title,
			FilePath:     snap.FilePath,
			DownloadedAt: time.Now().Format(time.RFC3339),
			Status:       "completed",
		}

		if err := q.history.Add(entry); err != nil {
			logger.Error("failed to write history entry", "url", snap.URL, "err", err)
			q.tel.RecordSystemError("history", "write_failed")
		}

		logger.Info("download completed", "key", snap.Key, "file_path", snap.FilePath)
		q.tel.RecordDownload("completed", duration)

	case engine.IsCancelMessage(snap.ErrorMessage):
		logger.Info("download cancelled", "key", snap.Key)
		q.tel.RecordDownload("cancelled", duration)

	default:
		logger.Error("download failed", "key", snap.Key, "err", snap.ErrorMessage)
		q.tel.RecordDownload("errored", duration)
	}
}

// failureMessage normalizes engine messages, folding every cancel-flavored
// failure into the one cancellation phrase.
func (q *Queue) failureMessage(it *item, message string) string {
	if it.cancelRequested || engine.IsCancelMessage(message) {
		return engine.CancelledMessage
	}

	if message == "" {
		return "Download failed"
	}

	return message
}

// knownExtensions is the fixed list tried when resolving the final output
// path; the engine may have remuxed or transcoded past the predicted name.
var knownExtensions = []string{".mp4", ".webm", ".mkv", ".mp3", ".m4a"}

// resolveOutputPath picks the path recorded in history. The engine's own
// report wins when it names a media file; otherwise the predicted
// title-based path is probed against the known extensions.
func (q *Queue) resolveOutputPath(engineMessage, title string) string {
	if looksLikeMediaPath(engineMessage) {
		return engineMessage
	}

	base := filepath.Join(q.opts.DownloadDir, title)

	for _, ext := range knownExtensions {
		candidate := base + ext
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}

	return base + ".mp4"
}

func looksLikeMediaPath(s string) bool {
	ext := filepath.Ext(s)
	for _, known := range knownExtensions {
		if ext == known {
			return true
		}
	}

	return false
}

// Cancel requests cancellation for one item. The item stays in the queue
// and reaches Errored through its pipeline's completion.
func (q *Queue) Cancel(key string) error {
	q.mu.Lock()

	it, exists := q.items[key]
	if !exists {
		q.mu.Unlock()

		return fmt.Errorf("item not found: %s", key)
	}

	if it.status.IsTerminal() {
		q.mu.Unlock()

		return nil
	}

	it.cancelRequested = true
	cancel := it.cancelPipeline
	handle := it.handle
	q.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	if handle != nil {
		handle.Cancel()
	}

	return nil
}

// CancelAll requests cancellation for every active item.
func (q *Queue) CancelAll() {
	q.mu.RLock()

	keys := make([]string, 0, len(q.order))
	for _, key := range q.order {
		if it := q.items[key]; it != nil && !it.status.IsTerminal() {
			keys = append(keys, key)
		}
	}
	q.mu.RUnlock()

	for _, key := range keys {
		_ = q.Cancel(key)
	}
}

// Get returns a snapshot of one item.
func (q *Queue) Get(key string) (Snapshot, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()

	it, exists := q.items[key]
	if !exists {
		return Snapshot{}, false
	}

	return it.snapshot(), true
}

// List returns snapshots of every item: live submissions newest first,
// history-rehydrated items after.
func (q *Queue) List() []Snapshot {
	q.mu.RLock()
	defer q.mu.RUnlock()

	snaps := make([]Snapshot, 0, len(q.order)+len(q.rehydrated))

	for _, key := range q.order {
		snaps = append(snaps, q.items[key].snapshot())
	}

	for _, key := range q.rehydrated {
		snaps = append(snaps, q.items[key].snapshot())
	}

	return snaps
}

func (q *Queue) notify(snap Snapshot) {
	if q.listener != nil {
		q.listener(snap)
	}
}
