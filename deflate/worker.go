package deflate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/klauspost/compress/zlib"
)

// WorkerConfig is a configuration of the [Worker].
type WorkerConfig struct {
	level      int
	logger     *slog.Logger
	prometheus *PrometheusConfig
}

// Level sets the zlib compression level.
func (c *WorkerConfig) Level(level int) *WorkerConfig {
	if level < zlib.HuffmanOnly || level > zlib.BestCompression {
		panic("level must be between -2 and 9")
	}
	c.level = level
	return c
}

func (c *WorkerConfig) Logger(logger *slog.Logger) *WorkerConfig {
	if logger == nil {
		panic("logger can't be nil")
	}
	c.logger = logger
	return c
}

func (c *WorkerConfig) Prometheus(prometheus *PrometheusConfig) *WorkerConfig {
	if prometheus == nil {
		panic("prometheus config can't be nil")
	}
	c.prometheus = prometheus
	return c
}

// Worker serves an [Encoder] over a [Channel]. Requests are handled one at a time in the order
// they are received, and every request gets exactly one response.
type Worker struct {
	cfg     *WorkerConfig
	channel Channel
	encoder *Encoder
	metrics *metrics
}

func NewWorker(channel Channel, configFuncs ...func(*WorkerConfig)) *Worker {
	if channel == nil {
		panic("channel can't be nil")
	}

	cfg := &WorkerConfig{}
	cfg.Level(zlib.DefaultCompression)
	cfg.Logger(slog.New(slog.DiscardHandler))
	cfg.Prometheus(Prometheus(nil))
	for _, cf := range configFuncs {
		if cf != nil {
			cf(cfg)
		}
	}

	return &Worker{
		cfg:     cfg,
		channel: channel,
		encoder: NewEncoder(cfg.level),
		metrics: cfg.prometheus.metrics(),
	}
}

// Run serves requests until ctx is done or the channel is closed. The encoder is released when
// Run returns, so a worker can be run only once.
func (w *Worker) Run(ctx context.Context) error {
	defer w.encoder.Close()

	for {
		req, err := w.channel.Receive(ctx)
		switch {
		case err == nil:
		case ctx.Err() != nil, errors.Is(err, ErrClosed), errors.Is(err, io.EOF):
			return nil
		default:
			return fmt.Errorf("receive request: %w", err)
		}

		res := w.handle(req)

		if err := w.channel.Send(ctx, res); err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrClosed) {
				return nil
			}
			return fmt.Errorf("send response %d: %w", res.ID, err)
		}
	}
}

func (w *Worker) handle(req Request) Response {
	started := time.Now()
	res := w.encoder.Handle(req)
	w.metrics.handleDuration.Observe(time.Since(started).Seconds())

	action := string(req.Action)
	if req.Action != ActionWrite && req.Action != ActionFlush {
		action = "unknown"
	}
	w.metrics.requests.WithLabelValues(action).Inc()

	if res.Error != "" {
		w.metrics.errors.Inc()
		w.cfg.logger.Warn("deflate request failed",
			"id", req.ID,
			"action", action,
			"error", res.Error,
		)
		return res
	}

	if req.Data != nil {
		w.metrics.bytesIn.Add(float64(len(*req.Data)))
	}
	if req.Action == ActionFlush {
		w.metrics.segments.Inc()
		w.metrics.bytesOut.Add(float64(len(res.Result)))
		w.cfg.logger.Debug("deflate segment finished",
			"id", req.ID,
			"compressed", len(res.Result),
			"uncompressed", *res.SizeInBytes,
		)
	}

	return res
}
