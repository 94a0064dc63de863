package sqlite

import (
	"context"
	"database/sql"

	"github.com/ytqueue/ytqueue/internal/storage"
	"github.com/ytqueue/ytqueue/internal/telemetry"
)

// InstrumentedHistoryRepository wraps HistoryRepository with telemetry.
type InstrumentedHistoryRepository struct {
	repo      *HistoryRepository
	telemetry *telemetry.Telemetry
}

// NewInstrumentedHistoryRepository creates a new instrumented history repository.
func NewInstrumentedHistoryRepository(dbConn *sql.DB, tel *telemetry.Telemetry) *InstrumentedHistoryRepository {
	return &InstrumentedHistoryRepository{
		repo:      NewHistoryRepository(dbConn),
		telemetry: tel,
	}
}

func (r *InstrumentedHistoryRepository) Add(entry storage.HistoryEntry) error {
	return r.telemetry.InstrumentDBOperation(context.Background(), "history_add", func(ctx context.Context) error {
		return r.repo.Add(entry)
	})
}

func (r *InstrumentedHistoryRepository) All() ([]storage.HistoryEntry, error) {
	var result []storage.HistoryEntry

	var err error

	instrumentedErr := r.telemetry.InstrumentDBOperation(context.Background(), "history_all", func(ctx context.Context) error {
		result, err = r.repo.All()

		return err
	})

	if instrumentedErr != nil {
		return nil, instrumentedErr
	}

	return result, nil
}

func (r *InstrumentedHistoryRepository) Remove(url string) error {
	return r.telemetry.InstrumentDBOperation(context.Background(), "history_remove", func(ctx context.Context) error {
		return r.repo.Remove(url)
	})
}

func (r *InstrumentedHistoryRepository) Clear() error {
	return r.telemetry.InstrumentDBOperation(context.Background(), "history_clear", func(ctx context.Context) error {
		return r.repo.Clear()
	})
}
