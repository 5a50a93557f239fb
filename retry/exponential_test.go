package retry_test

import (
	"context"
	"testing"
	"time"

	"github.com/teenjuna/replay/internal/testing/require"
	"github.com/teenjuna/replay/retry"
)

func TestExponential(t *testing.T) {
	run(t, "With base, jitter and cooldown", func(t *testing.T) {
		p := retry.Exponential(5, time.Second, time.Minute).
			WithBase(3).
			WithJitter(0.2).
			WithCooldown(time.Second)
		require.Equal(t, p.Cooldown(), time.Second)
	})

	run(t, "With invalid interval", func(t *testing.T) {
		require.PanicWithError(t, "min interval can't be <= 0", func() {
			_ = retry.Exponential(0, 0, time.Minute)
		})
		require.PanicWithError(t, "min interval can't be >= max interval", func() {
			_ = retry.Exponential(0, time.Second, time.Second)
		})
	})

	run(t, "With invalid base", func(t *testing.T) {
		require.PanicWithError(t, "base can't be <= 1", func() {
			_ = retry.Exponential(0, time.Second, time.Minute).WithBase(1)
		})
	})
}

func TestExponentialAttempt(t *testing.T) {
	run(t, "Finite attempts", func(t *testing.T) {
		p := retry.Exponential(5, time.Second, time.Second*8)
		f := expectDelay(t, retry.DefaultJitter)
		f(0, func() { require.Equal(t, p.Attempt(t.Context()), true) })
		f(time.Second, func() { require.Equal(t, p.Attempt(t.Context()), true) })
		f(time.Second*2, func() { require.Equal(t, p.Attempt(t.Context()), true) })
		f(time.Second*4, func() { require.Equal(t, p.Attempt(t.Context()), true) })
		f(time.Second*8, func() { require.Equal(t, p.Attempt(t.Context()), true) })
		f(0, func() { require.Equal(t, p.Attempt(t.Context()), false) })
	})

	run(t, "Capped at max interval", func(t *testing.T) {
		p := retry.Exponential(0, time.Second, time.Second*5).WithBase(3).WithJitter(0)
		f := expectDelay(t, 0)
		f(0, func() { require.Equal(t, p.Attempt(t.Context()), true) })
		f(time.Second, func() { require.Equal(t, p.Attempt(t.Context()), true) })
		f(time.Second*3, func() { require.Equal(t, p.Attempt(t.Context()), true) })
		for range 100 {
			f(time.Second*5, func() { require.Equal(t, p.Attempt(t.Context()), true) })
		}
	})

	run(t, "Context cancel", func(t *testing.T) {
		ctx, cancel := context.WithCancel(t.Context())
		p := retry.Exponential(0, time.Second, time.Second*8)
		f := expectDelay(t, retry.DefaultJitter)
		f(0, func() { require.Equal(t, p.Attempt(ctx), true) })
		f(time.Second, func() { require.Equal(t, p.Attempt(ctx), true) })
		cancel()
		f(0, func() { require.Equal(t, p.Attempt(ctx), false) })
	})

	run(t, "Derive restarts the backoff", func(t *testing.T) {
		p1 := retry.Exponential(3, time.Second, time.Second*8).WithJitter(0).WithCooldown(time.Minute)
		f := expectDelay(t, 0)
		f(0, func() { require.Equal(t, p1.Attempt(t.Context()), true) })
		f(time.Second, func() { require.Equal(t, p1.Attempt(t.Context()), true) })
		f(time.Second*2, func() { require.Equal(t, p1.Attempt(t.Context()), true) })

		p2 := p1.Derive()
		f(0, func() { require.Equal(t, p2.Attempt(t.Context()), true) })
		f(time.Second, func() { require.Equal(t, p2.Attempt(t.Context()), true) })
		require.Equal(t, p2.Cooldown(), time.Minute)
	})
}
