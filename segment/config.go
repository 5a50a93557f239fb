package segment

import (
	"log/slog"
	"time"

	"github.com/teenjuna/replay/codec"
	"github.com/teenjuna/replay/codec/json"
)

const (
	DefaultDurationLimit = 5 * time.Second
	DefaultBytesLimit    = 60_000
	DefaultSource        = "browser"
)

// Config is a configuration of the [Collector].
type Config struct {
	durationLimit time.Duration
	bytesLimit    int
	source        string
	codec         codec.Codec[Record]
	logger        *slog.Logger
	prometheus    *PrometheusConfig
}

// DurationLimit sets how long a segment may collect records before it is flushed.
func (c *Config) DurationLimit(limit time.Duration) *Config {
	if limit <= 0 {
		panic("duration limit can't be <= 0")
	}
	c.durationLimit = limit
	return c
}

// BytesLimit sets the compressed size at which a segment is flushed.
func (c *Config) BytesLimit(limit int) *Config {
	if limit <= 0 {
		panic("bytes limit can't be <= 0")
	}
	c.bytesLimit = limit
	return c
}

// Source sets the source reported in segment metadata.
func (c *Config) Source(source string) *Config {
	if source == "" {
		panic("source can't be empty")
	}
	c.source = source
	return c
}

// Codec sets the codec used to serialize records.
func (c *Config) Codec(codec codec.Codec[Record]) *Config {
	if codec == nil {
		panic("codec can't be nil")
	}
	c.codec = codec
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
	cfg.DurationLimit(DefaultDurationLimit)
	cfg.BytesLimit(DefaultBytesLimit)
	cfg.Source(DefaultSource)
	cfg.Codec(json.New[Record]())
	cfg.Logger(slog.New(slog.DiscardHandler))
	cfg.Prometheus(Prometheus(nil))
	for _, cf := range configFuncs {
		if cf != nil {
			cf(cfg)
		}
	}
	return cfg
}
