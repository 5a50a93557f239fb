package retry

import (
	"context"
	"time"
)

// FixedPolicy waits the same interval before every retry.
type FixedPolicy struct {
	counter
	interval time.Duration
	jitter   float64
	cooldown time.Duration
}

var _ Policy = (*FixedPolicy)(nil)

// Fixed returns a policy making up to attempts attempts, interval apart. Zero attempts means an
// unlimited number.
func Fixed(attempts int, interval time.Duration) *FixedPolicy {
	if interval < 0 {
		panic("interval can't be < 0")
	}
	return &FixedPolicy{
		counter:  newCounter(attempts),
		interval: interval,
		jitter:   DefaultJitter,
	}
}

func (p *FixedPolicy) WithJitter(jitter float64) *FixedPolicy {
	checkJitter(jitter)
	p.jitter = jitter
	return p
}

func (p *FixedPolicy) WithCooldown(cooldown time.Duration) *FixedPolicy {
	checkCooldown(p.counter, cooldown)
	p.cooldown = cooldown
	return p
}

func (p *FixedPolicy) Attempt(ctx context.Context) bool {
	if p.exhausted() {
		return false
	}
	if p.attempted > 0 && !sleep(ctx, p.interval, p.jitter) {
		return false
	}
	if ctx.Err() != nil {
		return false
	}
	p.attempted++
	return true
}

func (p *FixedPolicy) Cooldown() time.Duration {
	return p.cooldown
}

func (p *FixedPolicy) Derive() Policy {
	return Fixed(p.attempts, p.interval).
		WithJitter(p.jitter).
		WithCooldown(p.cooldown)
}
