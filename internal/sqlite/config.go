package sqlite

import (
	"strings"
	"time"
)

// Config is a configuration of the [Storage].
type Config struct {
	file     string
	workers  int
	claim    int
	cooldown time.Duration
	durable  bool
}

type ConfigFunc = func(c *Config)

// File sets the database file. ":memory:" keeps segments in a private in-memory database.
func (c *Config) File(file string) *Config {
	file = strings.TrimSpace(file)
	if file == "" {
		panic("file can't be blank")
	}
	if strings.Contains(file, "?") {
		panic("file can't contain ?")
	}
	c.file = file
	return c
}

// Workers sets how many connections may be open at once.
func (c *Config) Workers(workers int) *Config {
	if workers < 1 {
		panic("workers can't be < 1")
	}
	c.workers = workers
	return c
}

// Claim sets how many segments a single [Storage.Claim] returns at most.
func (c *Config) Claim(segments int) *Config {
	if segments < 1 {
		panic("claim can't be < 1")
	}
	c.claim = segments
	return c
}

// Cooldown sets how long a released segment can't be claimed.
func (c *Config) Cooldown(cooldown time.Duration) *Config {
	if cooldown < 0 {
		panic("cooldown can't be < 0")
	}
	c.cooldown = cooldown
	return c
}

// Durable makes every commit wait for the data to reach the disk. Has no effect in memory.
func (c *Config) Durable(durable bool) *Config {
	c.durable = durable
	return c
}
