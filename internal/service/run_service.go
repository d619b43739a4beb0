package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fetchmill/fetchmill/internal/config"
	"github.com/fetchmill/fetchmill/internal/domain"
	"github.com/fetchmill/fetchmill/internal/engine"
	"github.com/fetchmill/fetchmill/internal/metrics"
	"github.com/fetchmill/fetchmill/internal/progress"
	"github.com/fetchmill/fetchmill/internal/repository"
	"github.com/fetchmill/fetchmill/internal/transport"
	"github.com/fetchmill/fetchmill/internal/validation"
)

// RunService accepts run submissions, executes them asynchronously on the
// engine, and tracks their state in the run repository.
type RunService struct {
	repo   repository.RunRepo
	cfg    *config.Config
	client *transport.Client
	logger *slog.Logger

	wg           sync.WaitGroup
	shutdownOnce sync.Once
	shutdownCh   chan struct{}
}

// NewRunService creates a RunService sharing one retrying transport
// client across runs.
func NewRunService(repo repository.RunRepo, cfg *config.Config, logger *slog.Logger) *RunService {
	if logger == nil {
		logger = slog.Default()
	}

	client := transport.NewClient(transport.Options{
		DialTimeout:  cfg.DialTimeout,
		MaxRetries:   cfg.MaxRetries,
		BackoffBase:  cfg.RetryBackoffBase,
		BackoffCap:   cfg.RetryBackoffCap,
		MaxTotalWait: cfg.RetryMaxTotalWait,
	}, logger)

	return &RunService{
		repo:       repo,
		cfg:        cfg,
		client:     client,
		logger:     logger,
		shutdownCh: make(chan struct{}),
	}
}

// CreateRun validates and registers a run, then starts executing it in
// the background.
func (s *RunService) CreateRun(ctx context.Context, req *domain.CreateRunRequest) (*domain.Run, error) {
	select {
	case <-s.shutdownCh:
		return nil, fmt.Errorf("service is shutting down")
	default:
	}

	if len(req.Items) > s.cfg.MaxRunItems {
		return nil, fmt.Errorf("run exceeds maximum of %d items", s.cfg.MaxRunItems)
	}

	descs := req.ToDescriptors(s.cfg.DownloadDir)
	if err := validation.ValidateDescriptors(descs); err != nil {
		return nil, err
	}

	run := &domain.Run{
		ID:          uuid.New(),
		Status:      domain.RunStatusPending,
		Descriptors: descs,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := s.repo.CreateRun(ctx, run); err != nil {
		return nil, fmt.Errorf("failed to store run: %w", err)
	}

	metrics.RunsTotal.Inc()
	s.logger.Info("run created", "run_id", run.ID, "items", len(descs))

	concurrency := req.MaxConcurrency
	if concurrency <= 0 {
		concurrency = s.cfg.MaxConcurrency
	}

	s.wg.Add(1)
	go s.execute(run, descs, concurrency, req.FailFast)

	return run, nil
}

// GetRun retrieves a run by ID.
func (s *RunService) GetRun(ctx context.Context, id uuid.UUID) (*domain.Run, error) {
	return s.repo.GetRun(ctx, id)
}

func (s *RunService) execute(run *domain.Run, descs []domain.ResourceDescriptor, concurrency int, failFast bool) {
	defer s.wg.Done()

	run = s.updateRun(run, func(r *domain.Run) {
		r.Status = domain.RunStatusRunning
	})

	eng := engine.New(engine.Options{
		MaxConcurrency: concurrency,
		FailFast:       failFast,
		PerTaskTimeout: s.cfg.PerTaskTimeout,
		TempDir:        s.cfg.TempDir,
	}, s.client, progress.NopSink{}, s.logger)

	outcomes, err := eng.Run(context.Background(), descs)
	if err != nil {
		s.logger.Error("run rejected by engine", "run_id", run.ID, "error", err)
		outcomes = nil
	}

	run = s.updateRun(run, func(r *domain.Run) {
		r.Status = domain.RunStatusCompleted
		r.Outcomes = outcomes
	})

	s.logger.Info("run completed", "run_id", run.ID, "outcomes", len(outcomes))
}

// updateRun replaces the stored run with a mutated copy so concurrent
// readers holding the previous pointer never observe a half-updated run.
func (s *RunService) updateRun(run *domain.Run, mutate func(*domain.Run)) *domain.Run {
	updated := *run
	mutate(&updated)
	if err := s.repo.UpdateRun(context.Background(), &updated); err != nil {
		s.logger.Error("failed to update run", "run_id", run.ID, "error", err)
	}
	return &updated
}

// Shutdown stops accepting runs and waits for in-flight runs to finish.
func (s *RunService) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down run service")
	s.shutdownOnce.Do(func() { close(s.shutdownCh) })

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("run service shutdown completed")
		return nil
	case <-ctx.Done():
		s.logger.Warn("run service shutdown timed out")
		return ctx.Err()
	}
}
