package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fetchmill/fetchmill/internal/domain"
	errs "github.com/fetchmill/fetchmill/internal/errors"
)

func newRun() *domain.Run {
	return &domain.Run{
		ID:     uuid.New(),
		Status: domain.RunStatusPending,
		Descriptors: []domain.ResourceDescriptor{
			{URL: "http://example.com/a", Destination: "/tmp/a"},
		},
		CreatedAt: time.Now(),
	}
}

func TestRunStorage_CreateAndGet(t *testing.T) {
	s := NewRunStorage()
	run := newRun()

	require.NoError(t, s.CreateRun(context.Background(), run))

	got, err := s.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, domain.RunStatusPending, got.Status)
}

func TestRunStorage_GetUnknownRun(t *testing.T) {
	s := NewRunStorage()

	_, err := s.GetRun(context.Background(), uuid.New())
	assert.ErrorIs(t, err, errs.ErrRunNotFound)
}

func TestRunStorage_UpdateReplacesRun(t *testing.T) {
	s := NewRunStorage()
	run := newRun()
	require.NoError(t, s.CreateRun(context.Background(), run))

	updated := *run
	updated.Status = domain.RunStatusCompleted
	require.NoError(t, s.UpdateRun(context.Background(), &updated))

	got, err := s.GetRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusCompleted, got.Status)
	assert.False(t, got.UpdatedAt.IsZero())
}

func TestRunStorage_ListRuns(t *testing.T) {
	s := NewRunStorage()
	require.NoError(t, s.CreateRun(context.Background(), newRun()))
	require.NoError(t, s.CreateRun(context.Background(), newRun()))

	runs, err := s.ListRuns(context.Background())
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestRunStorage_CancelledContext(t *testing.T) {
	s := NewRunStorage()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Error(t, s.CreateRun(ctx, newRun()))
	_, err := s.GetRun(ctx, uuid.New())
	assert.Error(t, err)
}
