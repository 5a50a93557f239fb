package retry

import (
	"context"
	"math/rand/v2"
	"time"
)

// DefaultJitter is the share of an interval by which a wait may randomly deviate.
const DefaultJitter = 0.1

// counter tracks attempts. Zero attempts means an unlimited number.
type counter struct {
	attempted int
	attempts  int
}

func newCounter(attempts int) counter {
	if attempts < 0 {
		panic("attempts can't be < 0")
	}
	return counter{attempts: attempts}
}

func (c *counter) infinite() bool {
	return c.attempts == 0
}

func (c *counter) exhausted() bool {
	return !c.infinite() && c.attempted >= c.attempts
}

func checkJitter(jitter float64) {
	if jitter < 0 {
		panic("jitter can't be < 0")
	}
	if jitter >= 1 {
		panic("jitter can't be >= 1")
	}
}

func checkCooldown(c counter, cooldown time.Duration) {
	if cooldown < 0 {
		panic("cooldown can't be < 0")
	}
	if c.infinite() && cooldown > 0 {
		panic("can't set cooldown with infinite attempts")
	}
}

// sleep waits for interval deviated by up to ±jitter of it. It returns false if ctx is done
// first.
func sleep(ctx context.Context, interval time.Duration, jitter float64) bool {
	if interval <= 0 {
		return ctx.Err() == nil
	}

	deviation := (rand.Float64()*2 - 1) * jitter * float64(interval)
	timer := time.NewTimer(interval + time.Duration(deviation))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
