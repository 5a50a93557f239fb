package upload

import (
	"log/slog"
	"strings"

	"github.com/teenjuna/replay/retry"
)

// Config is a configuration of the [Uploader].
type Config struct {
	file       string
	durable    bool
	workers    int
	claim      int
	retry      retry.Policy
	logger     *slog.Logger
	prometheus *PrometheusConfig
}

// File sets the outbox database file. By default segments are kept in memory and lost when
// the uploader is closed.
func (c *Config) File(file string) *Config {
	file = strings.TrimSpace(file)
	if file == "" {
		panic("file can't be blank")
	}
	c.file = file
	return c
}

// Durable makes every stored segment wait for the disk.
func (c *Config) Durable(durable bool) *Config {
	c.durable = durable
	return c
}

// Workers sets the number of concurrent uploads.
func (c *Config) Workers(workers int) *Config {
	if workers < 1 {
		panic("workers can't be < 1")
	}
	c.workers = workers
	return c
}

// Claim sets how many segments a worker takes from the outbox at once.
func (c *Config) Claim(segments int) *Config {
	if segments < 1 {
		panic("claim can't be < 1")
	}
	c.claim = segments
	return c
}

// Retry sets the policy applied to every segment. Each segment gets its own derived copy.
func (c *Config) Retry(policy retry.Policy) *Config {
	if policy == nil {
		panic("retry policy can't be nil")
	}
	c.retry = policy
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
