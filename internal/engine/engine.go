package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fetchmill/fetchmill/internal/domain"
	errs "github.com/fetchmill/fetchmill/internal/errors"
	"github.com/fetchmill/fetchmill/internal/metrics"
	"github.com/fetchmill/fetchmill/internal/progress"
	"github.com/fetchmill/fetchmill/internal/transport"
)

// Options configures one engine instance.
type Options struct {
	// MaxConcurrency bounds the number of in-flight tasks. Must be
	// positive.
	MaxConcurrency int

	// FailFast prevents queued tasks from starting once any task fails.
	// In-flight tasks always run to a terminal state.
	FailFast bool

	// PerTaskTimeout bounds one task's whole pipeline. Zero disables it.
	PerTaskTimeout time.Duration

	// TempDir hosts partial downloads and extraction staging. Created if
	// missing.
	TempDir string
}

// Engine schedules fetch-verify-extract pipelines over a bounded worker
// pool.
type Engine struct {
	opts   Options
	client *transport.Client
	sink   progress.Sink
	logger *slog.Logger
}

// New creates an engine. A nil sink discards progress events.
func New(opts Options, client *transport.Client, sink progress.Sink, logger *slog.Logger) *Engine {
	if sink == nil {
		sink = progress.NopSink{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{opts: opts, client: client, sink: sink, logger: logger}
}

// Run executes all descriptors and returns one outcome per descriptor in
// submission order, regardless of completion order. Individual task
// failures are reported in the outcomes, never as the returned error; the
// error is reserved for configuration-level problems detected before any
// task starts.
func (e *Engine) Run(ctx context.Context, descs []domain.ResourceDescriptor) ([]domain.TaskOutcome, error) {
	if e.opts.MaxConcurrency < 1 {
		return nil, fmt.Errorf("max concurrency must be positive: %d", e.opts.MaxConcurrency)
	}
	if err := os.MkdirAll(e.opts.TempDir, 0o755); err != nil {
		return nil, fmt.Errorf("create temp directory: %w", err)
	}

	outcomes := make([]domain.TaskOutcome, len(descs))

	var abort atomic.Bool
	g := new(errgroup.Group)
	g.SetLimit(e.opts.MaxConcurrency)

	// Admission is FIFO: g.Go blocks until a worker slot frees, so
	// descriptors start in submission order.
	for i, desc := range descs {
		if abort.Load() {
			outcomes[i] = e.skip(i, "skipped under fail-fast abort")
			continue
		}
		if ctx.Err() != nil {
			outcomes[i] = e.skip(i, "run cancelled before task started")
			continue
		}

		i, desc := i, desc
		g.Go(func() error {
			if abort.Load() {
				outcomes[i] = e.skip(i, "skipped under fail-fast abort")
				return nil
			}

			outcomes[i] = e.runTask(ctx, i, desc)
			if outcomes[i].State == domain.StateFailed && e.opts.FailFast {
				abort.Store(true)
			}
			return nil
		})
	}

	g.Wait()
	return outcomes, nil
}

func (e *Engine) skip(index int, reason string) domain.TaskOutcome {
	metrics.TasksSkipped.Inc()
	out := domain.TaskOutcome{
		Index: index,
		State: domain.StateSkipped,
		Err:   errs.Errorf(errs.KindCancelled, "%s", reason),
	}
	out.Finalize()
	return out
}
