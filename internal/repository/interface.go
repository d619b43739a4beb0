package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/fetchmill/fetchmill/internal/domain"
)

// RunRepo defines the interface for run storage operations.
type RunRepo interface {
	CreateRun(ctx context.Context, run *domain.Run) error
	GetRun(ctx context.Context, id uuid.UUID) (*domain.Run, error)
	UpdateRun(ctx context.Context, run *domain.Run) error
	ListRuns(ctx context.Context) ([]*domain.Run, error)
}
