package replay

import (
	"log/slog"
	"time"

	"github.com/teenjuna/replay/schedule"
)

const (
	// DefaultMinDelay is the shortest time records are held before being flushed: one frame.
	DefaultMinDelay = 16 * time.Millisecond
	// DefaultMaxDelay is how long a scheduled flush waits for the host to become idle.
	DefaultMaxDelay = 100 * time.Millisecond
)

// Config is a configuration of the [MutationBatch].
//
// An instance is created by [New] and passed to the configuration functions. Every method
// panics on an invalid value.
type Config struct {
	minDelay   time.Duration
	maxDelay   time.Duration
	idler      schedule.Idler
	capacity   int
	logger     *slog.Logger
	prometheus *PrometheusConfig
}

// MinDelay sets the coalescing window: once a scheduled flush is triggered, records keep
// accumulating for this long before being delivered.
func (c *Config) MinDelay(delay time.Duration) *Config {
	if delay <= 0 {
		panic("min delay can't be <= 0")
	}
	c.minDelay = delay
	return c
}

// MaxDelay sets the deadline for the idle callback which triggers a scheduled flush.
func (c *Config) MaxDelay(delay time.Duration) *Config {
	if delay <= 0 {
		panic("max delay can't be <= 0")
	}
	c.maxDelay = delay
	return c
}

// Idler sets the source of idle periods. The default is [schedule.FrameIdler].
func (c *Config) Idler(idler schedule.Idler) *Config {
	if idler == nil {
		panic("idler can't be nil")
	}
	c.idler = idler
	return c
}

// Capacity sets the number of records preallocated for every new batch.
func (c *Config) Capacity(capacity int) *Config {
	if capacity < 0 {
		panic("capacity can't be < 0")
	}
	c.capacity = capacity
	return c
}

func (c *Config) Logger(logger *slog.Logger) *Config {
	if logger == nil {
		panic("logger can't be nil")
	}
	c.logger = logger
	return c
}

func (c *Config) Prometheus(prometheus *PrometheusConfig) *Config {
	if prometheus == nil {
		panic("prometheus config can't be nil")
	}
	c.prometheus = prometheus
	return c
}

func newConfig(configFuncs ...func(*Config)) *Config {
	cfg := &Config{}
	cfg.MinDelay(DefaultMinDelay)
	cfg.MaxDelay(DefaultMaxDelay)
	cfg.Idler(schedule.FrameIdler{})
	cfg.Capacity(64)
	cfg.Logger(slog.New(slog.DiscardHandler))
	cfg.Prometheus(Prometheus(nil))
	for _, cf := range configFuncs {
		if cf != nil {
			cf(cfg)
		}
	}
	if cfg.minDelay > cfg.maxDelay {
		panic("min delay can't be > max delay")
	}
	return cfg
}
