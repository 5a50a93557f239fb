// Package schedule contains the timing primitives the mutation batch is built from: a
// trailing-edge throttle and an "idle or timeout" callback scheduler.
package schedule

import (
	"sync"
	"time"
)

// Throttle wraps fn so that calls made while a window of length wait is open collapse into a
// single call at the end of that window. The first call opens the window and never runs fn
// immediately.
//
// Calling cancel drops the open window together with its pending call. A window whose timer
// already fired but has not yet run fn is dropped too.
func Throttle(fn func(), wait time.Duration) (throttled func(), cancel func()) {
	if fn == nil {
		panic("fn can't be nil")
	}
	if wait < 0 {
		panic("wait can't be < 0")
	}
	t := &throttle{
		fn:   fn,
		wait: wait,
	}
	return t.call, t.cancel
}

type throttle struct {
	mu      sync.Mutex
	fn      func()
	wait    time.Duration
	timer   *time.Timer
	window  uint64
	waiting bool
	pending bool
}

func (t *throttle) call() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.pending = true
	if t.waiting {
		return
	}

	t.waiting = true
	t.window++
	window := t.window
	t.timer = time.AfterFunc(t.wait, func() {
		t.fire(window)
	})
}

func (t *throttle) fire(window uint64) {
	t.mu.Lock()
	if !t.waiting || t.window != window {
		t.mu.Unlock()
		return
	}
	pending := t.pending
	t.waiting = false
	t.pending = false
	t.timer = nil
	t.mu.Unlock()

	if pending {
		t.fn()
	}
}

func (t *throttle) cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
	t.window++
	t.waiting = false
	t.pending = false
}
