package deflate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrTimeout is returned when the worker doesn't answer within [ClientConfig.Timeout].
	ErrTimeout = errors.New("deflate: request timed out")
	// ErrSegmentInProgress is returned when the compressor is used while a [Session] that hasn't
	// been flushed owns it.
	ErrSegmentInProgress = errors.New("deflate: segment in progress")
	// ErrSessionDone is returned when using a flushed or aborted [Session].
	ErrSessionDone = errors.New("deflate: session is done")
	// ErrOutOfSync is returned once a flush couldn't be posted. The worker's compressor may still
	// hold data of the previous segment, so the client refuses to start another one.
	ErrOutOfSync = errors.New("deflate: compressor was not reset")
	// ErrOutOfOrder is returned to requests that were skipped by a later response.
	ErrOutOfOrder = errors.New("deflate: response out of order")
)

// ClientConfig is a configuration of the [Client].
type ClientConfig struct {
	timeout time.Duration
	logger  *slog.Logger
}

// Timeout sets how long a request waits for its response. Zero disables the watchdog.
func (c *ClientConfig) Timeout(timeout time.Duration) *ClientConfig {
	if timeout < 0 {
		panic("timeout can't be < 0")
	}
	c.timeout = timeout
	return c
}

func (c *ClientConfig) Logger(logger *slog.Logger) *ClientConfig {
	if logger == nil {
		panic("logger can't be nil")
	}
	c.logger = logger
	return c
}

// Result is a finished segment.
type Result struct {
	// Data is the compressed segment.
	Data []byte
	// SizeInBytes is the uncompressed length of the segment.
	SizeInBytes int
}

// Client talks to a [Worker] through a [Port]. It assigns request ids, matches responses to
// waiting callers and enforces that only one segment uses the worker's compressor at a time.
//
// Client is safe for concurrent use; concurrent calls are pipelined and answered in the order
// they were posted.
type Client struct {
	cfg  *ClientConfig
	port Port

	// post is held while a request is registered and posted, so ids reach the port in
	// increasing order.
	post sync.Mutex

	mu          sync.Mutex
	nextID      int64
	outstanding []int64
	waiters     map[int64]chan reply
	session     *Session
	outOfSync   bool
	closed      bool

	done    chan struct{}
	stop    func()
	workers *errgroup.Group
}

func NewClient(port Port, configFuncs ...func(*ClientConfig)) *Client {
	if port == nil {
		panic("port can't be nil")
	}

	cfg := &ClientConfig{}
	cfg.Timeout(30 * time.Second)
	cfg.Logger(slog.New(slog.DiscardHandler))
	for _, cf := range configFuncs {
		if cf != nil {
			cf(cfg)
		}
	}

	var (
		ctx, stop   = context.WithCancel(context.Background())
		workers, gc = errgroup.WithContext(ctx)
	)

	c := Client{
		cfg:     cfg,
		port:    port,
		nextID:  1,
		waiters: make(map[int64]chan reply),
		done:    make(chan struct{}),
		stop:    stop,
		workers: workers,
	}
	c.workers.Go(func() error {
		return c.receiveWorker(gc)
	})

	return &c
}

// Write compresses data into the current segment and returns the compressed size of the
// segment so far.
func (c *Client) Write(ctx context.Context, data string) (int, error) {
	return c.write(ctx, nil, data)
}

// Flush finishes the current segment, writing data first when it isn't nil.
func (c *Client) Flush(ctx context.Context, data *string) (*Result, error) {
	return c.flush(ctx, nil, data)
}

// Pending returns the number of requests waiting for a response.
func (c *Client) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.outstanding)
}

// Segment opens a session which owns the compressor until it is flushed or aborted.
func (c *Client) Segment() (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if c.outOfSync {
		return nil, ErrOutOfSync
	}
	if c.session != nil {
		return nil, ErrSegmentInProgress
	}
	c.session = &Session{client: c}
	return c.session, nil
}

// Close stops receiving responses and fails every waiting request with [ErrClosed]. The port
// is closed too.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.closed = true
	close(c.done)
	c.mu.Unlock()

	c.stop()
	errs := []error{c.port.Close()}
	if err := c.workers.Wait(); err != nil {
		errs = append(errs, fmt.Errorf("receive worker: %w", err))
	}
	return errors.Join(errs...)
}

func (c *Client) write(ctx context.Context, owner *Session, data string) (int, error) {
	res, err := c.do(ctx, owner, false, func(id int64) Request {
		return writeRequest(id, data)
	})
	if err != nil {
		return 0, err
	}
	if res.Size == nil {
		return 0, fmt.Errorf("deflate: response %d to write has no size", res.ID)
	}
	return *res.Size, nil
}

func (c *Client) flush(ctx context.Context, owner *Session, data *string) (*Result, error) {
	res, err := c.do(ctx, owner, true, func(id int64) Request {
		return flushRequest(id, data)
	})
	if err != nil {
		return nil, err
	}
	if res.SizeInBytes == nil {
		return nil, fmt.Errorf("deflate: response %d to flush has no size", res.ID)
	}
	return &Result{Data: res.Result, SizeInBytes: *res.SizeInBytes}, nil
}

// do posts a request and waits for its response. A reset request is posted even if ctx is
// already done, since the compressor must not carry data into the next segment; if it still
// can't be posted the client goes out of sync.
func (c *Client) do(
	ctx context.Context,
	owner *Session,
	reset bool,
	request func(id int64) Request,
) (Response, error) {
	c.post.Lock()
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.post.Unlock()
		return Response{}, ErrClosed
	}
	if c.outOfSync {
		c.mu.Unlock()
		c.post.Unlock()
		return Response{}, ErrOutOfSync
	}
	if c.session != owner {
		c.mu.Unlock()
		c.post.Unlock()
		return Response{}, ErrSegmentInProgress
	}
	id := c.nextID
	c.nextID++
	wait := make(chan reply, 1)
	c.waiters[id] = wait
	c.outstanding = append(c.outstanding, id)
	c.mu.Unlock()

	postCtx := ctx
	if reset {
		postCtx = context.WithoutCancel(ctx)
	}
	err := c.port.Post(postCtx, request(id))
	if err != nil {
		c.mu.Lock()
		c.forgetLocked(id)
		if reset {
			c.outOfSync = true
		}
		c.mu.Unlock()
	}
	c.post.Unlock()
	if err != nil {
		if reset {
			c.cfg.logger.Error("deflate compressor was not reset", "id", id, "error", err)
		}
		return Response{}, fmt.Errorf("post request %d: %w", id, err)
	}

	var timeout <-chan time.Time
	if c.cfg.timeout > 0 {
		timer := time.NewTimer(c.cfg.timeout)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case r := <-wait:
		if r.err != nil {
			return Response{}, fmt.Errorf("request %d: %w", id, r.err)
		}
		if err := r.res.Err(); err != nil {
			return r.res, err
		}
		return r.res, nil
	case <-timeout:
		c.forget(id)
		return Response{}, fmt.Errorf("request %d: %w", id, ErrTimeout)
	case <-ctx.Done():
		c.forget(id)
		return Response{}, ctx.Err()
	case <-c.done:
		return Response{}, ErrClosed
	}
}

func (c *Client) receiveWorker(ctx context.Context) error {
	for {
		res, err := c.port.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, ErrClosed) {
				return nil
			}
			return fmt.Errorf("receive response: %w", err)
		}

		c.mu.Lock()
		wait, ok := c.waiters[res.ID]
		if ok {
			// Everything posted before this request should have been answered already.
			for _, skipped := range c.outstanding[:slices.Index(c.outstanding, res.ID)] {
				c.cfg.logger.Warn("deflate response out of order",
					"id", res.ID,
					"expected", skipped,
				)
				c.waiters[skipped] <- reply{err: ErrOutOfOrder}
				delete(c.waiters, skipped)
			}
			c.outstanding = c.outstanding[slices.Index(c.outstanding, res.ID):]
			c.forgetLocked(res.ID)
		}
		c.mu.Unlock()

		if !ok {
			c.cfg.logger.Warn("dropping deflate response for unknown request", "id", res.ID)
			continue
		}
		wait <- reply{res: res}
	}
}

type reply struct {
	res Response
	err error
}

func (c *Client) forget(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.forgetLocked(id)
}

func (c *Client) forgetLocked(id int64) {
	delete(c.waiters, id)
	if i := slices.Index(c.outstanding, id); i >= 0 {
		c.outstanding = slices.Delete(c.outstanding, i, i+1)
	}
}

func (c *Client) release(s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == s {
		c.session = nil
	}
}

// Session is a segment being compressed. It owns the worker's compressor from
// [Client.Segment] until [Session.Flush] or [Session.Abort].
//
// Session is not safe for concurrent use.
type Session struct {
	client *Client
	size   int
	err    error
	done   bool
}

// Write compresses data into the segment and returns its compressed size so far.
func (s *Session) Write(ctx context.Context, data string) (int, error) {
	if s.done {
		return 0, ErrSessionDone
	}
	if s.err != nil {
		return 0, s.err
	}
	size, err := s.client.write(ctx, s, data)
	if err != nil {
		s.err = err
		return 0, err
	}
	s.size = size
	return size, nil
}

// Size returns the compressed size reported by the last successful write.
func (s *Session) Size() int {
	return s.size
}

// Flush finishes the segment and releases the compressor. If a previous write failed, the
// compressor is reset but no result is returned: the segment may be missing data. Like
// [Session.Abort], the flush is posted even if ctx is done.
func (s *Session) Flush(ctx context.Context, data *string) (*Result, error) {
	if s.done {
		return nil, ErrSessionDone
	}
	defer s.end()

	res, err := s.client.flush(ctx, s, data)
	if err != nil {
		return nil, err
	}
	if s.err != nil {
		return nil, fmt.Errorf("segment is incomplete: %w", s.err)
	}
	return res, nil
}

// Abort resets the compressor, dropping whatever the segment holds, and releases it. The reset
// is posted even if ctx is done; if it can't be posted the client returns [ErrOutOfSync] from
// then on.
func (s *Session) Abort(ctx context.Context) error {
	if s.done {
		return ErrSessionDone
	}
	defer s.end()

	_, err := s.client.flush(ctx, s, nil)
	return err
}

func (s *Session) end() {
	s.done = true
	s.client.release(s)
}
