// Package replay batches DOM mutation records for session replay capture.
//
// A [MutationBatch] collects records reported by a mutation observer and delivers them to a
// consumer in batches. Delivery is scheduled when the host becomes idle, but no later than the
// configured max delay, and then held back for one coalescing window so that bursts of changes
// end up in a single batch.
package replay

import (
	"sync"

	"github.com/teenjuna/replay/buffer"
	"github.com/teenjuna/replay/schedule"
)

// ProcessFunc consumes a delivered batch. The slice belongs to the consumer.
type ProcessFunc[Record any] = func(records []Record)

// MutationBatch accumulates opaque records and hands them to a [ProcessFunc].
//
// All methods are safe for concurrent use. The consumer is never called concurrently with
// itself, and it must not call [MutationBatch.Flush].
type MutationBatch[Record any] struct {
	cfg     *Config
	process ProcessFunc[Record]
	metrics *metrics

	// deliver is held from taking the pending records until the consumer returns, so batches
	// reach the consumer in the order they were taken.
	deliver sync.Mutex

	mu         sync.Mutex
	pending    buffer.Buffer[Record]
	cycle      uint64
	armed      uint64
	cancelIdle func()

	throttled      func()
	cancelThrottle func()
}

func New[Record any](
	process func(records []Record),
	configFuncs ...func(*Config),
) *MutationBatch[Record] {
	if process == nil {
		panic("process func can't be nil")
	}

	cfg := newConfig(configFuncs...)
	b := MutationBatch[Record]{
		cfg:     cfg,
		process: process,
		metrics: cfg.prometheus.metrics(),
		pending: buffer.Appending[Record](cfg.capacity),
	}
	b.throttled, b.cancelThrottle = schedule.Throttle(b.scheduledFlush, cfg.minDelay)

	return &b
}

// AddMutations appends records to the pending batch. Adding to an empty batch schedules a
// flush; adding to a non-empty one relies on the flush that is already scheduled.
func (b *MutationBatch[Record]) AddMutations(records ...Record) {
	if len(records) == 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pending.Size() == 0 {
		b.cycle++
		cycle := b.cycle
		b.armed = cycle
		b.cancelIdle = b.cfg.idler.RequestIdle(func() {
			b.idle(cycle)
		}, b.cfg.maxDelay)
	}

	b.pending.Push(records...)
	b.metrics.recordsAdded.Add(float64(len(records)))
	b.metrics.pending.Set(float64(b.pending.Size()))
}

// Flush delivers pending records right away, even if there are none, and cancels the
// scheduled flush.
func (b *MutationBatch[Record]) Flush() {
	b.flush(flushForced)
}

// Stop cancels the scheduled flush without delivering anything. Pending records stay in the
// batch until the next call to [MutationBatch.Flush]; records added to them meanwhile don't
// schedule a flush either.
func (b *MutationBatch[Record]) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.disarm()
	b.cfg.logger.Debug("mutation batch stopped", "pending", b.pending.Size())
}

// Pending returns the number of records waiting for delivery.
func (b *MutationBatch[Record]) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending.Size()
}

const (
	flushScheduled = "scheduled"
	flushForced    = "forced"
)

func (b *MutationBatch[Record]) idle(cycle uint64) {
	b.mu.Lock()
	armed := b.armed == cycle
	b.mu.Unlock()

	if armed {
		b.throttled()
	}
}

func (b *MutationBatch[Record]) scheduledFlush() {
	b.flush(flushScheduled)
}

func (b *MutationBatch[Record]) flush(kind string) {
	b.deliver.Lock()
	defer b.deliver.Unlock()

	b.mu.Lock()
	if kind == flushScheduled && b.armed == 0 {
		// Flushed or stopped after the timer had already fired.
		b.mu.Unlock()
		return
	}
	b.disarm()
	records := b.pending.Take()
	b.mu.Unlock()

	b.metrics.pending.Set(0)
	b.metrics.flushes.WithLabelValues(kind).Inc()
	b.metrics.recordsFlushed.Add(float64(len(records)))
	b.metrics.batchSize.Observe(float64(len(records)))
	b.cfg.logger.Debug("mutation batch flushed", "type", kind, "records", len(records))

	b.process(records)
}

// disarm must be called with mu held.
func (b *MutationBatch[Record]) disarm() {
	b.armed = 0
	if b.cancelIdle != nil {
		b.cancelIdle()
		b.cancelIdle = nil
	}
	b.cancelThrottle()
}
