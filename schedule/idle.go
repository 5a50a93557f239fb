package schedule

import (
	"maps"
	"slices"
	"sync"
	"time"
)

// DefaultFrame is the duration of one rendering frame at 60Hz.
const DefaultFrame = 16 * time.Millisecond

// Idler runs callbacks when the host has nothing better to do, but never later than the
// provided timeout.
//
// The callback runs at most once. Calling cancel after the callback ran is a no-op.
type Idler interface {
	RequestIdle(fn func(), timeout time.Duration) (cancel func())
}

var (
	_ Idler = FrameIdler{}
	_ Idler = (*IdleLoop)(nil)
)

// FrameIdler is the fallback for hosts that can't report idleness: it treats the next frame
// boundary as the idle period.
type FrameIdler struct {
	// Frame is the frame duration. Zero means [DefaultFrame].
	Frame time.Duration
}

func (f FrameIdler) RequestIdle(fn func(), timeout time.Duration) func() {
	delay := f.Frame
	if delay <= 0 {
		delay = DefaultFrame
	}
	if timeout > 0 && timeout < delay {
		delay = timeout
	}
	timer := time.AfterFunc(delay, fn)
	return func() {
		timer.Stop()
	}
}

// IdleLoop is an [Idler] driven by the host: callbacks run on the next call to [IdleLoop.Idle]
// or when their timeout elapses, whichever comes first.
type IdleLoop struct {
	mu       sync.Mutex
	next     uint64
	requests map[uint64]*idleRequest
	closed   bool
}

type idleRequest struct {
	fn    func()
	timer *time.Timer
}

func NewIdleLoop() *IdleLoop {
	return &IdleLoop{
		requests: make(map[uint64]*idleRequest),
	}
}

func (l *IdleLoop) RequestIdle(fn func(), timeout time.Duration) func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return func() {}
	}

	id := l.next
	l.next++

	req := &idleRequest{fn: fn}
	if timeout > 0 {
		req.timer = time.AfterFunc(timeout, func() {
			l.run(id)
		})
	}
	l.requests[id] = req

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if req, ok := l.requests[id]; ok {
			req.stop()
			delete(l.requests, id)
		}
	}
}

// Idle signals that the host is idle and runs every registered callback in registration
// order. It returns the number of callbacks that ran.
func (l *IdleLoop) Idle() int {
	l.mu.Lock()
	ids := slices.Sorted(maps.Keys(l.requests))
	fns := make([]func(), 0, len(ids))
	for _, id := range ids {
		req := l.requests[id]
		req.stop()
		fns = append(fns, req.fn)
		delete(l.requests, id)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
	return len(fns)
}

// Pending returns the number of callbacks waiting for the host to become idle.
func (l *IdleLoop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.requests)
}

// Close cancels all registered callbacks. Requests made after Close never run.
func (l *IdleLoop) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.closed = true
	for id, req := range l.requests {
		req.stop()
		delete(l.requests, id)
	}
}

func (l *IdleLoop) run(id uint64) {
	l.mu.Lock()
	req, ok := l.requests[id]
	if ok {
		delete(l.requests, id)
	}
	l.mu.Unlock()

	if ok {
		req.fn()
	}
}

func (r *idleRequest) stop() {
	if r.timer != nil {
		r.timer.Stop()
	}
}
