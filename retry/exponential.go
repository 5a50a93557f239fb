package retry

import (
	"context"
	"time"
)

// ExponentialPolicy multiplies the wait by a base after every retry, up to a maximum.
type ExponentialPolicy struct {
	counter
	minInterval time.Duration
	maxInterval time.Duration
	interval    time.Duration
	base        float64
	jitter      float64
	cooldown    time.Duration
}

var _ Policy = (*ExponentialPolicy)(nil)

// Exponential returns a policy making up to attempts attempts. The first retry waits
// minInterval and every next one waits base times longer, but never more than maxInterval.
// Zero attempts means an unlimited number.
func Exponential(attempts int, minInterval, maxInterval time.Duration) *ExponentialPolicy {
	if minInterval <= 0 {
		panic("min interval can't be <= 0")
	}
	if minInterval >= maxInterval {
		panic("min interval can't be >= max interval")
	}
	return &ExponentialPolicy{
		counter:     newCounter(attempts),
		minInterval: minInterval,
		maxInterval: maxInterval,
		interval:    minInterval,
		base:        2,
		jitter:      DefaultJitter,
	}
}

func (p *ExponentialPolicy) WithBase(base float64) *ExponentialPolicy {
	if base <= 1 {
		panic("base can't be <= 1")
	}
	p.base = base
	return p
}

func (p *ExponentialPolicy) WithJitter(jitter float64) *ExponentialPolicy {
	checkJitter(jitter)
	p.jitter = jitter
	return p
}

func (p *ExponentialPolicy) WithCooldown(cooldown time.Duration) *ExponentialPolicy {
	checkCooldown(p.counter, cooldown)
	p.cooldown = cooldown
	return p
}

func (p *ExponentialPolicy) Attempt(ctx context.Context) bool {
	if p.exhausted() {
		return false
	}
	if p.attempted > 0 {
		if !sleep(ctx, p.interval, p.jitter) {
			return false
		}
		p.interval = min(time.Duration(float64(p.interval)*p.base), p.maxInterval)
	}
	if ctx.Err() != nil {
		return false
	}
	p.attempted++
	return true
}

func (p *ExponentialPolicy) Cooldown() time.Duration {
	return p.cooldown
}

func (p *ExponentialPolicy) Derive() Policy {
	return Exponential(p.attempts, p.minInterval, p.maxInterval).
		WithBase(p.base).
		WithJitter(p.jitter).
		WithCooldown(p.cooldown)
}
