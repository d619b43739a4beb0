package repository

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fetchmill/fetchmill/internal/domain"
	errs "github.com/fetchmill/fetchmill/internal/errors"
)

// RunStorage provides in-memory storage for runs. Run state is
// intentionally not persisted: the destination filesystem is the only
// durable output of a run.
type RunStorage struct {
	mu   sync.RWMutex
	runs map[uuid.UUID]*domain.Run
}

// NewRunStorage creates an empty RunStorage.
func NewRunStorage() *RunStorage {
	return &RunStorage{
		runs: make(map[uuid.UUID]*domain.Run),
	}
}

// CreateRun adds a new run.
func (r *RunStorage) CreateRun(ctx context.Context, run *domain.Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	r.runs[run.ID] = run
	r.mu.Unlock()

	slog.Debug("run created", "run_id", run.ID, "items", len(run.Descriptors))
	return nil
}

// GetRun retrieves a run by ID.
func (r *RunStorage) GetRun(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	run, exists := r.runs[id]
	r.mu.RUnlock()

	if !exists {
		return nil, errs.ErrRunNotFound
	}
	return run, nil
}

// UpdateRun updates an existing run.
func (r *RunStorage) UpdateRun(ctx context.Context, run *domain.Run) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	run.UpdatedAt = time.Now()
	r.runs[run.ID] = run
	r.mu.Unlock()

	slog.Debug("run updated", "run_id", run.ID, "status", run.Status)
	return nil
}

// ListRuns returns all runs.
func (r *RunStorage) ListRuns(ctx context.Context) ([]*domain.Run, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	runs := make([]*domain.Run, 0, len(r.runs))
	for _, run := range r.runs {
		runs = append(runs, run)
	}
	r.mu.RUnlock()

	return runs, nil
}
