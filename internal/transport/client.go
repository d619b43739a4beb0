package transport

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	errs "github.com/fetchmill/fetchmill/internal/errors"
	"github.com/fetchmill/fetchmill/internal/metrics"
)

// Options configures the retrying transport.
type Options struct {
	// DialTimeout bounds connection establishment.
	// Default: 6s
	DialTimeout time.Duration

	// ResponseHeaderTimeout bounds the wait for response headers. The
	// body itself is unbounded here; the caller limits it through its
	// context.
	// Default: 30s
	ResponseHeaderTimeout time.Duration

	// MaxRetries is the number of attempts made after the first one.
	// Default: 3
	MaxRetries int

	// BackoffBase is the delay before the first retry.
	// Default: 500ms
	BackoffBase time.Duration

	// BackoffCap bounds a single backoff delay.
	// Default: 30s
	BackoffCap time.Duration

	// MaxTotalWait bounds the cumulative backoff delay across all
	// retries of one fetch. Zero means no bound.
	// Default: 2m
	MaxTotalWait time.Duration
}

// DefaultOptions returns options with sensible defaults.
func DefaultOptions() Options {
	return Options{
		DialTimeout:           6 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		MaxRetries:            3,
		BackoffBase:           500 * time.Millisecond,
		BackoffCap:            30 * time.Second,
		MaxTotalWait:          2 * time.Minute,
	}
}

// Response is the streaming result of a successful GET.
type Response struct {
	Body          io.Reader
	Status        int
	ContentLength int64
	ContentType   string
}

// Client wraps HTTP GET with a bounded retry/backoff policy for
// classified-transient failures.
type Client struct {
	hc     *http.Client
	opts   Options
	logger *slog.Logger

	// sleep is swapped out in tests for a fake clock.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewClient creates a retrying transport client.
func NewClient(opts Options, logger *slog.Logger) *Client {
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = DefaultOptions().BackoffBase
	}
	if opts.BackoffCap <= 0 {
		opts.BackoffCap = DefaultOptions().BackoffCap
	}
	if logger == nil {
		logger = slog.Default()
	}

	transport := &http.Transport{
		ResponseHeaderTimeout: opts.ResponseHeaderTimeout,
		MaxIdleConnsPerHost:   16,
		IdleConnTimeout:       90 * time.Second,
	}
	if opts.DialTimeout > 0 {
		transport.DialContext = defaultDialer(opts.DialTimeout)
	}

	return &Client{
		hc:     &http.Client{Transport: transport},
		opts:   opts,
		logger: logger,
		sleep:  sleepContext,
	}
}

// RetryableStatus reports whether an HTTP status code counts as a
// transient failure. This is the explicit classification boundary: 5xx,
// 429, and 408 retry; every other non-2xx status is permanent.
func RetryableStatus(code int) bool {
	return code >= 500 || code == http.StatusTooManyRequests || code == http.StatusRequestTimeout
}

// Fetch performs a GET against url and hands the streaming response to
// consume. Transient failures, whether during the request or surfaced by
// consume as KindTransient, are retried with exponential backoff and
// jitter; consume is re-invoked with a fresh stream on every attempt.
// On retry exhaustion the last cause is wrapped as KindTransportExhausted.
func (c *Client) Fetch(ctx context.Context, url string, header http.Header, consume func(*Response) error) error {
	var lastErr error
	var waited time.Duration
	var hint time.Duration

	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoffDelay(attempt, hint)
			if c.opts.MaxTotalWait > 0 && waited+delay > c.opts.MaxTotalWait {
				break
			}
			waited += delay

			c.logger.Debug("retrying fetch",
				"url", url,
				"attempt", attempt,
				"delay", delay,
			)
			metrics.RetryAttempts.Inc()

			if err := c.sleep(ctx, delay); err != nil {
				return errs.Wrap(errs.KindTimeout, err)
			}
		}
		hint = 0

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return errs.Wrap(errs.KindHTTP, err)
		}
		for k, vs := range header {
			for _, v := range vs {
				req.Header.Add(k, v)
			}
		}

		resp, err := c.hc.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return errs.Wrap(errs.KindTimeout, ctx.Err())
			}
			lastErr = err
			continue
		}

		if RetryableStatus(resp.StatusCode) {
			hint = retryAfterHint(resp)
			drain(resp.Body)
			lastErr = fmt.Errorf("server returned %s", resp.Status)
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			drain(resp.Body)
			return errs.Errorf(errs.KindHTTP, "server returned %s", resp.Status)
		}

		cerr := consume(&Response{
			Body:          resp.Body,
			Status:        resp.StatusCode,
			ContentLength: resp.ContentLength,
			ContentType:   resp.Header.Get("Content-Type"),
		})
		resp.Body.Close()

		if cerr == nil {
			return nil
		}
		if errs.IsTransient(cerr) {
			lastErr = cerr
			continue
		}
		return cerr
	}

	return errs.Wrap(errs.KindTransportExhausted, lastErr)
}

// backoffDelay computes the exponential delay for the given attempt with
// 0.5x-1.5x jitter. A Retry-After hint is honored verbatim when it exceeds
// the jittered delay; the server asked for that wait, so it is never
// shortened. Both are bounded by the cap.
func (c *Client) backoffDelay(attempt int, hint time.Duration) time.Duration {
	delay := c.opts.BackoffBase * time.Duration(1<<uint(attempt-1))
	delay = time.Duration(float64(delay) * (0.5 + rand.Float64()))
	if hint > delay {
		delay = hint
	}
	if delay > c.opts.BackoffCap {
		delay = c.opts.BackoffCap
	}
	return delay
}

// retryAfterHint parses a Retry-After header given in seconds.
func retryAfterHint(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// drain discards a bounded amount of an error body so the connection can
// be reused.
func drain(body io.ReadCloser) {
	io.Copy(io.Discard, io.LimitReader(body, 64*1024))
	body.Close()
}
