package engine

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/fetchmill/fetchmill/internal/checksum"
	"github.com/fetchmill/fetchmill/internal/domain"
	errs "github.com/fetchmill/fetchmill/internal/errors"
	"github.com/fetchmill/fetchmill/internal/extract"
	"github.com/fetchmill/fetchmill/internal/metrics"
	"github.com/fetchmill/fetchmill/internal/progress"
	"github.com/fetchmill/fetchmill/internal/transport"
)

const copyBufferSize = 32 * 1024

// task tracks one descriptor through the pipeline. It is owned by exactly
// one worker goroutine for its whole lifetime; progress leaves it only
// through the sink.
type task struct {
	id    uuid.UUID
	index int
	desc  domain.ResourceDescriptor

	state    domain.TaskState
	verifier *checksum.Verifier
	bytes    int64
	total    int64
	started  time.Time
}

// runTask drives one task from admission to a terminal state:
// Fetching → Verifying → (Extracting) → Committing → Succeeded, or
// Failed(reason) from any non-terminal state.
func (e *Engine) runTask(ctx context.Context, index int, desc domain.ResourceDescriptor) domain.TaskOutcome {
	t := &task{
		id:      uuid.New(),
		index:   index,
		desc:    desc,
		state:   domain.StateQueued,
		started: time.Now(),
	}

	// In-flight tasks are never force-terminated by run cancellation;
	// only the per-task timeout can cut them short.
	taskCtx := context.WithoutCancel(ctx)
	if e.opts.PerTaskTimeout > 0 {
		var cancel context.CancelFunc
		taskCtx, cancel = context.WithTimeout(taskCtx, e.opts.PerTaskTimeout)
		defer cancel()
	}

	tmp := filepath.Join(e.opts.TempDir, t.id.String()+".partial")
	defer os.Remove(tmp)

	outcome := domain.TaskOutcome{Index: index}

	err := e.fetch(taskCtx, t, tmp)
	if err == nil {
		err = e.verify(t)
		outcome.Digest = t.verifier.SumHex()
	}
	if err == nil && desc.Extract != nil {
		var res *extract.Result
		res, err = e.extractAndCommit(t, tmp)
		if res != nil {
			outcome.ExtractedPaths = res.Paths
			outcome.ExtractedBytes = res.Bytes
		}
	} else if err == nil {
		err = e.commitFile(t, tmp)
	}

	outcome.BytesTransferred = t.bytes
	outcome.Elapsed = time.Since(t.started)
	metrics.TaskDuration.Observe(outcome.Elapsed.Seconds())

	if err != nil {
		t.state = domain.StateFailed
		outcome.State = domain.StateFailed
		outcome.Err = err
		outcome.Finalize()
		metrics.TasksFailed.Inc()
		e.logger.Error("task failed",
			"task_id", t.id,
			"url", desc.URL,
			"state", t.state,
			"error", err,
		)
		return outcome
	}

	t.state = domain.StateSucceeded
	outcome.State = domain.StateSucceeded
	metrics.TasksSucceeded.Inc()
	e.logger.Info("task succeeded",
		"task_id", t.id,
		"url", desc.URL,
		"bytes", t.bytes,
		"elapsed", outcome.Elapsed,
	)
	return outcome
}

// fetch opens the retrying stream and dual-writes every chunk to the temp
// file and the hash accumulator. Each retry attempt re-enters the consume
// closure, truncating the file and replacing the verifier so no state
// leaks across attempts.
func (e *Engine) fetch(ctx context.Context, t *task, tmp string) error {
	t.state = domain.StateFetching

	consume := func(resp *transport.Response) error {
		v, err := e.newVerifier(t.desc)
		if err != nil {
			return errs.Wrap(errs.KindChecksumMismatch, err)
		}
		t.verifier = v
		t.bytes = 0
		t.total = resp.ContentLength

		f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
		if err != nil {
			return errs.Wrap(errs.KindIO, err)
		}
		defer f.Close()

		if err := e.stream(ctx, t, f, resp.Body); err != nil {
			return err
		}
		if err := f.Close(); err != nil {
			return errs.Wrap(errs.KindIO, err)
		}
		return nil
	}

	return e.client.Fetch(ctx, t.desc.URL, t.desc.Header, consume)
}

// stream copies body chunks in transfer order into the file and the
// verifier, emitting one progress event per chunk.
func (e *Engine) stream(ctx context.Context, t *task, f *os.File, body io.Reader) error {
	buf := make([]byte, copyBufferSize)
	label := t.desc.DisplayName()

	for {
		select {
		case <-ctx.Done():
			return errs.Wrap(errs.KindTimeout, ctx.Err())
		default:
		}

		nr, rerr := body.Read(buf)
		if nr > 0 {
			if _, werr := f.Write(buf[:nr]); werr != nil {
				return errs.Wrap(errs.KindIO, werr)
			}
			t.verifier.Write(buf[:nr])
			t.bytes += int64(nr)
			metrics.BytesTransferred.Add(float64(nr))

			e.sink.Notify(progress.Event{
				TaskID:      t.id,
				Label:       label,
				Delta:       int64(nr),
				Transferred: t.bytes,
				Total:       t.total,
			})
		}
		if rerr == io.EOF {
			return nil
		}
		if rerr != nil {
			if ctx.Err() != nil {
				return errs.Wrap(errs.KindTimeout, ctx.Err())
			}
			// A short-circuited stream invalidates the digest; the
			// transport may restart the attempt from scratch.
			return errs.Wrap(errs.KindTransient, rerr)
		}
	}
}

func (e *Engine) newVerifier(desc domain.ResourceDescriptor) (*checksum.Verifier, error) {
	if desc.Checksum == nil {
		// Digest still computed as an output, never compared.
		return checksum.New(checksum.SHA256), nil
	}
	return checksum.NewExpected(desc.Checksum.Algorithm, desc.Checksum.Digest)
}

func (e *Engine) verify(t *task) error {
	t.state = domain.StateVerifying
	return t.verifier.Verify()
}

// extractAndCommit unpacks the verified temp file into a staging
// directory, then promotes the extracted entries into the target
// directory so no partial extraction is ever visible there.
func (e *Engine) extractAndCommit(t *task, tmp string) (*extract.Result, error) {
	t.state = domain.StateExtracting

	// Format inference works off the source filename, not the label.
	name := domain.FilenameFromURL(t.desc.URL)
	format, err := e.resolveFormat(t.desc, name)
	if err != nil {
		return nil, err
	}

	staging := filepath.Join(e.opts.TempDir, t.id.String()+".staging")
	defer os.RemoveAll(staging)

	res, err := extract.Extract(tmp, name, format, staging)
	if err != nil {
		return nil, err
	}

	t.state = domain.StateCommitting
	targetDir := t.desc.Extract.TargetDir
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		return res, errs.Wrap(errs.KindIO, err)
	}
	entries, err := os.ReadDir(staging)
	if err != nil {
		return res, errs.Wrap(errs.KindIO, err)
	}
	for _, entry := range entries {
		src := filepath.Join(staging, entry.Name())
		dst := filepath.Join(targetDir, entry.Name())
		if err := promote(src, dst); err != nil {
			return res, err
		}
	}

	for i, rel := range res.Paths {
		res.Paths[i] = filepath.Join(targetDir, rel)
	}
	return res, nil
}

func (e *Engine) resolveFormat(desc domain.ResourceDescriptor, name string) (extract.Format, error) {
	if desc.Extract.Format != "" {
		return extract.ParseFormat(desc.Extract.Format)
	}
	return extract.Detect(name)
}

// commitFile promotes the temp file to its destination. This is the only
// point at which the caller-visible filesystem changes.
func (e *Engine) commitFile(t *task, tmp string) error {
	t.state = domain.StateCommitting
	dest := t.desc.Destination
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return errs.Wrap(errs.KindIO, err)
	}
	return promote(tmp, dest)
}
