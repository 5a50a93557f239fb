package deflate

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/tinylib/msgp/msgp"
)

// Channel is the worker's end of a message channel: requests come in, responses go out.
type Channel interface {
	Receive(ctx context.Context) (Request, error)
	Send(ctx context.Context, res Response) error
}

// Port is the caller's end of a message channel. Post must not wait for the request to be
// processed.
type Port interface {
	Post(ctx context.Context, req Request) error
	Receive(ctx context.Context) (Response, error)
	Close() error
}

// Pipe returns both ends of an in-process channel. Messages are buffered without bound in both
// directions, so neither side ever blocks the other.
func Pipe() (Port, Channel) {
	var (
		requests  = newQueue[Request]()
		responses = newQueue[Response]()
	)
	return &pipePort{requests: requests, responses: responses},
		&pipeChannel{requests: requests, responses: responses}
}

type pipePort struct {
	requests  *queue[Request]
	responses *queue[Response]
}

func (p *pipePort) Post(_ context.Context, req Request) error {
	return p.requests.push(req)
}

func (p *pipePort) Receive(ctx context.Context) (Response, error) {
	return p.responses.pop(ctx)
}

func (p *pipePort) Close() error {
	p.requests.close()
	p.responses.close()
	return nil
}

type pipeChannel struct {
	requests  *queue[Request]
	responses *queue[Response]
}

func (p *pipeChannel) Receive(ctx context.Context) (Request, error) {
	return p.requests.pop(ctx)
}

func (p *pipeChannel) Send(_ context.Context, res Response) error {
	return p.responses.push(res)
}

type queue[T any] struct {
	mu     sync.Mutex
	items  []T
	signal chan struct{}
	closed bool
}

func newQueue[T any]() *queue[T] {
	return &queue[T]{
		signal: make(chan struct{}, 1),
	}
}

func (q *queue[T]) push(item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrClosed
	}
	q.items = append(q.items, item)
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return nil
}

// pop returns items in push order. Items pushed before close are still returned.
func (q *queue[T]) pop(ctx context.Context) (T, error) {
	for {
		q.mu.Lock()
		if len(q.items) != 0 {
			item := q.items[0]
			var zero T
			q.items[0] = zero
			q.items = q.items[1:]
			q.mu.Unlock()
			return item, nil
		}
		closed := q.closed
		q.mu.Unlock()

		if closed {
			var zero T
			return zero, ErrClosed
		}

		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-q.signal:
		}
	}
}

func (q *queue[T]) close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.signal)
	}
}

// Stream carries messages as MessagePack maps over a pair of byte streams, such as the stdin
// and stdout of a worker process.
//
// Reads are not interrupted by context cancellation; close the underlying reader to unblock a
// pending Receive.
type Stream struct {
	reader *msgp.Reader
	writer *msgp.Writer
	closer []io.Closer

	rmu sync.Mutex
	wmu sync.Mutex
}

// NewStream wraps r and w. Close closes those of them that implement [io.Closer].
func NewStream(r io.Reader, w io.Writer) *Stream {
	s := Stream{
		reader: msgp.NewReader(r),
		writer: msgp.NewWriter(w),
	}
	for _, v := range []any{r, w} {
		if c, ok := v.(io.Closer); ok {
			s.closer = append(s.closer, c)
		}
	}
	return &s
}

// WorkerChannel returns the worker's view of the stream.
func (s *Stream) WorkerChannel() Channel {
	return streamChannel{s}
}

// CallerPort returns the caller's view of the stream.
func (s *Stream) CallerPort() Port {
	return streamPort{s}
}

func (s *Stream) Close() error {
	errs := make([]error, 0, len(s.closer))
	for _, c := range s.closer {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}

func (s *Stream) read(ctx context.Context, v msgp.Decodable) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.rmu.Lock()
	defer s.rmu.Unlock()
	return v.DecodeMsg(s.reader)
}

func (s *Stream) write(ctx context.Context, v msgp.Encodable) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.wmu.Lock()
	defer s.wmu.Unlock()
	if err := v.EncodeMsg(s.writer); err != nil {
		return err
	}
	return s.writer.Flush()
}

type streamChannel struct {
	s *Stream
}

func (c streamChannel) Receive(ctx context.Context) (Request, error) {
	var req Request
	err := c.s.read(ctx, &req)
	return req, err
}

func (c streamChannel) Send(ctx context.Context, res Response) error {
	return c.s.write(ctx, &res)
}

type streamPort struct {
	s *Stream
}

func (p streamPort) Post(ctx context.Context, req Request) error {
	return p.s.write(ctx, &req)
}

func (p streamPort) Receive(ctx context.Context) (Response, error) {
	var res Response
	err := p.s.read(ctx, &res)
	return res, err
}

func (p streamPort) Close() error {
	return p.s.Close()
}
