// Package segment groups replay records into compressed segments.
//
// A [Collector] streams every record through a [deflate.Session] as soon as it arrives, so a
// segment is already compressed when it is flushed. A segment is flushed when it grows past the
// bytes limit, when it has been open for the duration limit, when the view changes and when the
// collector is closed. Finished segments are handed to a [Sink].
package segment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/teenjuna/replay/codec"
	"github.com/teenjuna/replay/deflate"
)

// ErrClosed is returned when using a closed [Collector].
var ErrClosed = errors.New("segment: collector is closed")

// Compressor opens compression sessions. [deflate.Client] implements it.
type Compressor interface {
	Segment() (*deflate.Session, error)
}

// Sink receives finished segments.
type Sink interface {
	Send(ctx context.Context, segment *Segment) error
}

// SinkFunc adapts a function to [Sink].
type SinkFunc func(ctx context.Context, segment *Segment) error

func (f SinkFunc) Send(ctx context.Context, segment *Segment) error {
	return f(ctx, segment)
}

// Collector builds segments out of records. All methods are safe for concurrent use.
type Collector struct {
	cfg        *Config
	codec      codec.Codec[Record]
	compressor Compressor
	sink       Sink
	metrics    *metrics

	mu          sync.Mutex
	context     Context
	current     *open
	reason      CreationReason
	indexInView int
	closed      bool
}

// open is the segment being collected.
type open struct {
	session  *deflate.Session
	metadata Metadata
	timer    *time.Timer
}

func New(
	compressor Compressor,
	sink Sink,
	context Context,
	configFuncs ...func(*Config),
) *Collector {
	if compressor == nil {
		panic("compressor can't be nil")
	}
	if sink == nil {
		panic("sink can't be nil")
	}

	cfg := newConfig(configFuncs...)
	return &Collector{
		cfg:        cfg,
		codec:      cfg.codec.Derive(),
		compressor: compressor,
		sink:       sink,
		metrics:    cfg.prometheus.metrics(),
		context:    context,
		reason:     ReasonInit,
	}
}

// Add writes record into the current segment, starting a new one if needed. The segment is
// flushed when its compressed size reaches the bytes limit.
//
// If the record can't be written, the current segment is dropped.
func (c *Collector) Add(ctx context.Context, record Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	data, err := c.codec.Encode(record)
	if err != nil {
		c.metrics.errors.Inc()
		return fmt.Errorf("encode record: %w", err)
	}

	prefix := ","
	if c.current == nil {
		if err := c.start(); err != nil {
			c.metrics.errors.Inc()
			return fmt.Errorf("start segment: %w", err)
		}
		prefix = `{"records":[`
	}

	size, err := c.current.session.Write(ctx, prefix+string(data))
	if err != nil {
		c.metrics.errors.Inc()
		c.drop(ctx)
		return fmt.Errorf("write record: %w", err)
	}
	c.current.metadata.add(record)
	c.metrics.records.Inc()

	if size >= c.cfg.bytesLimit {
		return c.flush(ctx, ReasonBytesLimit)
	}
	return nil
}

// Flush finishes the current segment, if any, and sends it to the sink. The next segment is
// created with reason as its creation reason.
func (c *Collector) Flush(ctx context.Context, reason CreationReason) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	return c.flush(ctx, reason)
}

// ChangeView flushes the current segment and attributes the following records to view.
func (c *Collector) ChangeView(ctx context.Context, view Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	err := c.flush(ctx, ReasonViewChange)
	c.context = view
	c.indexInView = 0
	return err
}

// Close flushes the current segment and rejects further records.
func (c *Collector) Close(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	c.closed = true
	return c.flush(ctx, ReasonBeforeUnload)
}

func (c *Collector) start() error {
	session, err := c.compressor.Segment()
	if err != nil {
		return err
	}

	current := &open{
		session:  session,
		metadata: newMetadata(c.context, c.reason, c.indexInView, c.cfg.source),
	}
	current.timer = time.AfterFunc(c.cfg.durationLimit, func() {
		c.expire(current)
	})

	c.current = current
	c.indexInView++
	return nil
}

func (c *Collector) expire(current *open) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Flushed before the timer fired.
	if c.current != current {
		return
	}
	if err := c.flush(context.Background(), ReasonDurationLimit); err != nil {
		c.cfg.logger.Warn("failed to flush expired segment", "error", err)
	}
}

func (c *Collector) flush(ctx context.Context, reason CreationReason) error {
	c.reason = reason

	current := c.current
	if current == nil {
		return nil
	}
	c.current = nil
	current.timer.Stop()

	tail, err := current.metadata.tail()
	if err != nil {
		c.metrics.errors.Inc()
		_ = current.session.Abort(ctx)
		return err
	}

	res, err := current.session.Flush(ctx, &tail)
	if err != nil {
		c.metrics.errors.Inc()
		return fmt.Errorf("flush segment: %w", err)
	}

	segment := Segment{
		Data:     res.Data,
		Metadata: current.metadata,
		RawSize:  res.SizeInBytes,
	}

	c.metrics.segments.WithLabelValues(string(reason)).Inc()
	c.metrics.compressedSize.Observe(float64(len(segment.Data)))
	c.metrics.rawSize.Observe(float64(segment.RawSize))
	c.cfg.logger.Debug("segment finished",
		"reason", reason,
		"records", segment.Metadata.RecordsCount,
		"compressed", len(segment.Data),
		"raw", segment.RawSize,
	)

	if err := c.sink.Send(ctx, &segment); err != nil {
		c.metrics.errors.Inc()
		return fmt.Errorf("send segment: %w", err)
	}
	return nil
}

// drop abandons the current segment after a failed write.
func (c *Collector) drop(ctx context.Context) {
	current := c.current
	c.current = nil
	current.timer.Stop()

	if err := current.session.Abort(ctx); err != nil {
		c.cfg.logger.Warn("failed to abort segment", "error", err)
	}
	c.cfg.logger.Warn("segment dropped",
		"records", current.metadata.RecordsCount,
		"index_in_view", current.metadata.IndexInView,
	)
}
