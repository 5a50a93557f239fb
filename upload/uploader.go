// Package upload delivers finished segments through a durable outbox.
//
// [Uploader.Send] only stores a segment, so the collector is never held up by the network.
// Workers claim stored segments, hand them to a [SendFunc] under a [retry.Policy] and delete
// them once they are delivered. Segments that run out of attempts are released back into the
// outbox for the policy's cooldown; segments that fail permanently are dropped.
package upload

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/teenjuna/replay/internal/sqlite"
	"github.com/teenjuna/replay/retry"
	"github.com/teenjuna/replay/segment"
)

var (
	ErrClosed = errors.New("uploader is closed")
)

// SendFunc delivers a segment. Returning an error marked with [retry.Permanent] drops the
// segment instead of retrying it.
type SendFunc = func(ctx context.Context, segment *segment.Segment) error

// Uploader is a [segment.Sink] that stores segments and uploads them in the background.
type Uploader struct {
	cfg     *Config
	send    SendFunc
	storage *sqlite.Storage
	metrics *metrics

	closing  atomic.Bool
	segments atomic.Int64
	pushed   chan struct{}

	ctx   context.Context
	stop  func()
	group *errgroup.Group
}

var _ segment.Sink = (*Uploader)(nil)

func New(send SendFunc, configFuncs ...func(*Config)) (*Uploader, error) {
	if send == nil {
		panic("send func can't be nil")
	}

	cfg := &Config{}
	cfg.Workers(1)
	cfg.Claim(1)
	cfg.Retry(retry.Exponential(3, time.Second, 30*time.Second).WithCooldown(time.Minute))
	cfg.Logger(slog.New(slog.DiscardHandler))
	cfg.Prometheus(Prometheus(nil))
	for _, cf := range configFuncs {
		if cf != nil {
			cf(cfg)
		}
	}

	storage, err := sqlite.New(func(c *sqlite.Config) {
		if cfg.file != "" {
			c.File(cfg.file)
		}
		c.Durable(cfg.durable)
		c.Workers(cfg.workers + 1)
		c.Claim(cfg.claim)
		c.Cooldown(cfg.retry.Cooldown())
	})
	if err != nil {
		return nil, fmt.Errorf("open outbox: %w", err)
	}

	stats, err := storage.Stats(context.Background())
	if err != nil {
		_ = storage.Close()
		return nil, fmt.Errorf("get outbox stats: %w", err)
	}

	var (
		parent, stop = context.WithCancel(context.Background())
		group, ctx   = errgroup.WithContext(parent)
	)

	u := Uploader{
		cfg:     cfg,
		send:    send,
		storage: storage,
		metrics: cfg.prometheus.metrics(),
		pushed:  make(chan struct{}, cfg.workers),
		ctx:     ctx,
		stop:    stop,
		group:   group,
	}
	u.segments.Store(int64(stats.Segments))
	u.metrics.segments.Set(float64(stats.Segments))

	for range cfg.workers {
		u.group.Go(u.uploadWorker)
	}

	if stats.Segments != 0 {
		cfg.logger.Info("resuming upload of stored segments", "segments", stats.Segments)
	}

	return &u, nil
}

// Send stores segment in the outbox and wakes up a worker.
func (u *Uploader) Send(ctx context.Context, segment *segment.Segment) error {
	if u.closing.Load() {
		return ErrClosed
	}

	metadata, err := json.Marshal(segment.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	if _, err := u.storage.Push(ctx, segment.Data, metadata, segment.RawSize); err != nil {
		if errors.Is(err, sqlite.ErrClosed) {
			return ErrClosed
		}
		return fmt.Errorf("store segment: %w", err)
	}

	u.metrics.segments.Set(float64(u.segments.Add(1)))
	notify(u.pushed)
	return nil
}

// Pending returns the number of segments in the outbox, including those being uploaded.
func (u *Uploader) Pending() int {
	return int(u.segments.Load())
}

// Close stops the workers and closes the outbox. Segments that weren't uploaded stay in a file
// outbox and are uploaded by the next uploader opening it.
func (u *Uploader) Close() error {
	if u.closing.Swap(true) {
		return ErrClosed
	}

	errs := make([]error, 0)

	u.stop()
	if err := u.group.Wait(); err != nil {
		errs = append(errs, fmt.Errorf("upload workers: %w", err))
	}

	if err := u.storage.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close outbox: %w", err))
	}

	return errors.Join(errs...)
}

func (u *Uploader) uploadWorker() error {
	var (
		tick = timer(0)
		wait = false
	)

	for {
		if wait {
			select {
			case <-u.ctx.Done():
				return nil
			case <-u.pushed:
			case <-tick:
			}
		}

		entries, err := u.storage.Claim(u.ctx)
		if err != nil {
			if u.ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("claim segments: %w", err)
		}
		if len(entries) == 0 {
			// Another worker may have claimed what this one was woken up for.
			stats, err := u.storage.Stats(u.ctx)
			if err != nil {
				if u.ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("get stats: %w", err)
			}

			tick = timer(time.Until(stats.NextCooldownEnd))
			wait = true
			continue
		}
		wait = false

		for _, entry := range entries {
			if err := u.upload(entry); err != nil {
				u.cfg.logger.Error("upload worker stopped", "error", err)
				return err
			}
		}
	}
}

func (u *Uploader) upload(entry sqlite.Entry) error {
	// Storage calls must survive the shutdown that interrupts the upload.
	storeCtx := context.WithoutCancel(u.ctx)

	var metadata segment.Metadata
	if err := json.Unmarshal(entry.Metadata, &metadata); err != nil {
		u.cfg.logger.Error("dropping segment with broken metadata", "id", entry.ID, "error", err)
		u.metrics.uploads.WithLabelValues("dropped").Inc()
		return u.delete(storeCtx, entry.ID)
	}

	var (
		seg = segment.Segment{
			Data:     entry.Data,
			Metadata: metadata,
			RawSize:  entry.RawSize,
		}
		policy  = u.cfg.retry.Derive()
		sent    bool
		sendErr error
	)
	for policy.Attempt(u.ctx) {
		u.metrics.attempts.Inc()
		started := time.Now()
		sendErr = u.send(u.ctx, &seg)
		u.metrics.uploadDuration.Observe(time.Since(started).Seconds())

		if sendErr == nil {
			sent = true
			break
		}
		if retry.IsPermanent(sendErr) {
			break
		}
		u.cfg.logger.Debug("segment upload failed", "id", entry.ID, "error", sendErr)
	}

	switch {
	case sent:
		u.metrics.uploads.WithLabelValues("ok").Inc()
		return u.delete(storeCtx, entry.ID)
	case retry.IsPermanent(sendErr):
		u.cfg.logger.Error("dropping segment", "id", entry.ID, "error", sendErr)
		u.metrics.uploads.WithLabelValues("dropped").Inc()
		return u.delete(storeCtx, entry.ID)
	}

	if err := u.storage.Release(storeCtx, entry.ID); err != nil {
		return fmt.Errorf("release segment: %w", err)
	}
	if u.ctx.Err() != nil {
		return nil
	}

	u.cfg.logger.Warn("segment upload postponed",
		"id", entry.ID,
		"claimed_times", entry.ClaimedTimes,
		"error", sendErr,
	)
	u.metrics.uploads.WithLabelValues("failed").Inc()
	// Without a cooldown the segment is claimable right away.
	notify(u.pushed)
	return nil
}

func (u *Uploader) delete(ctx context.Context, id sqlite.ID) error {
	if err := u.storage.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete segment: %w", err)
	}
	u.metrics.segments.Set(float64(u.segments.Add(-1)))
	return nil
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

func timer(d time.Duration) <-chan time.Time {
	if d <= 0 {
		return make(<-chan time.Time)
	}
	return time.After(d)
}
