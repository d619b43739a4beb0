package progress

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Reporter periodically renders collector aggregates as a single status
// line. Rendering stays out of the engine; any other display can consume
// the same collector.
type Reporter struct {
	collector *Collector
	out       io.Writer
	interval  time.Duration

	mu      sync.Mutex
	stopCh  chan struct{}
	doneCh  chan struct{}
	started time.Time
	stopped bool
}

// NewReporter creates a reporter over the given collector. A nil out
// defaults to stdout.
func NewReporter(collector *Collector, out io.Writer, interval time.Duration) *Reporter {
	if out == nil {
		out = os.Stdout
	}
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Reporter{
		collector: collector,
		out:       out,
		interval:  interval,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start begins rendering until Stop is called.
func (r *Reporter) Start() {
	r.started = time.Now()
	go r.loop()
}

// Stop halts rendering and prints a final summary line.
func (r *Reporter) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()

	close(r.stopCh)
	<-r.doneCh
}

func (r *Reporter) loop() {
	defer close(r.doneCh)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	var lastTotal int64
	for {
		select {
		case <-r.stopCh:
			total := r.collector.TotalTransferred()
			elapsed := time.Since(r.started)
			fmt.Fprintf(r.out, "\rtransferred %s in %s (%s/s)          \n",
				formatBytes(total), formatDuration(elapsed), formatBytes(rate(total, elapsed)))
			return
		case <-ticker.C:
			total := r.collector.TotalTransferred()
			speed := rate(total-lastTotal, r.interval)
			lastTotal = total

			tasks := r.collector.Snapshot()
			var active int
			for _, tp := range tasks {
				if tp.Total < 0 || tp.Transferred < tp.Total {
					active++
				}
			}
			fmt.Fprintf(r.out, "\r%d task(s) | %s transferred | %s/s    ",
				active, formatBytes(total), formatBytes(speed))
		}
	}
}

func rate(n int64, d time.Duration) int64 {
	secs := d.Seconds()
	if secs <= 0 {
		return 0
	}
	return int64(float64(n) / secs)
}

func formatBytes(b int64) string {
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
	)
	switch {
	case b >= gb:
		return fmt.Sprintf("%.2f GB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.2f MB", float64(b)/float64(mb))
	case b >= kb:
		return fmt.Sprintf("%.2f KB", float64(b)/float64(kb))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %ds", m, s)
}
