package retry

import (
	"context"
	"time"
)

// ImmediatePolicy retries without waiting.
type ImmediatePolicy struct {
	counter
	cooldown time.Duration
}

var _ Policy = (*ImmediatePolicy)(nil)

// Immediate returns a policy making up to attempts attempts back to back. Zero attempts means
// an unlimited number.
func Immediate(attempts int) *ImmediatePolicy {
	return &ImmediatePolicy{counter: newCounter(attempts)}
}

func (p *ImmediatePolicy) WithCooldown(cooldown time.Duration) *ImmediatePolicy {
	checkCooldown(p.counter, cooldown)
	p.cooldown = cooldown
	return p
}

func (p *ImmediatePolicy) Attempt(ctx context.Context) bool {
	if p.exhausted() || ctx.Err() != nil {
		return false
	}
	p.attempted++
	return true
}

func (p *ImmediatePolicy) Cooldown() time.Duration {
	return p.cooldown
}

func (p *ImmediatePolicy) Derive() Policy {
	return Immediate(p.attempts).WithCooldown(p.cooldown)
}
