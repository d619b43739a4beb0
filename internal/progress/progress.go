package progress

import (
	"sync"

	"github.com/google/uuid"
)

// Event is one byte-count delta emitted by a worker. It carries no
// ownership of task state; sinks only observe.
type Event struct {
	TaskID      uuid.UUID
	Label       string
	Delta       int64
	Transferred int64
	// Total is the content length when known, -1 otherwise.
	Total int64
}

// Sink receives progress events from workers. Implementations must be
// safe for concurrent Notify calls.
type Sink interface {
	Notify(Event)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) Notify(Event) {}

// TaskProgress is the aggregated view of one task.
type TaskProgress struct {
	Label       string
	Transferred int64
	Total       int64
}

// Collector funnels events from many workers through a single channel
// into one consumer goroutine, so workers never share mutable progress
// counters.
type Collector struct {
	events chan Event
	done   chan struct{}

	mu    sync.RWMutex
	tasks map[uuid.UUID]*TaskProgress
	total int64
}

// NewCollector starts a collector with the given channel buffer.
func NewCollector(buffer int) *Collector {
	c := &Collector{
		events: make(chan Event, buffer),
		done:   make(chan struct{}),
		tasks:  make(map[uuid.UUID]*TaskProgress),
	}
	go c.consume()
	return c
}

// Notify implements Sink by forwarding the event to the consumer.
func (c *Collector) Notify(ev Event) {
	c.events <- ev
}

func (c *Collector) consume() {
	defer close(c.done)
	for ev := range c.events {
		c.mu.Lock()
		tp, ok := c.tasks[ev.TaskID]
		if !ok {
			tp = &TaskProgress{Label: ev.Label, Total: ev.Total}
			c.tasks[ev.TaskID] = tp
		}
		tp.Transferred = ev.Transferred
		tp.Total = ev.Total
		c.total += ev.Delta
		c.mu.Unlock()
	}
}

// Snapshot returns a copy of the per-task aggregates.
func (c *Collector) Snapshot() []TaskProgress {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]TaskProgress, 0, len(c.tasks))
	for _, tp := range c.tasks {
		out = append(out, *tp)
	}
	return out
}

// TotalTransferred returns the byte count aggregated across all tasks.
func (c *Collector) TotalTransferred() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.total
}

// Close stops the consumer after draining pending events. No Notify may
// be in flight or issued after Close.
func (c *Collector) Close() {
	close(c.events)
	<-c.done
}
