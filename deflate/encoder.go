// Package deflate compresses session replay segments off the caller's goroutine.
//
// An [Encoder] owns a single zlib stream. Text written to it is compressed incrementally and
// the compressed size is reported after every write; a flush finishes the stream, returns the
// whole compressed segment and starts a new one. The [Worker] serves an encoder over a
// message [Channel], and the [Client] correlates requests with responses on the caller's side.
package deflate

import (
	"bytes"
	"fmt"

	"github.com/klauspost/compress/zlib"
)

// Encoder compresses consecutive segments through one reusable zlib writer.
//
// Encoder is not safe for concurrent use. It is meant to be owned by a single [Worker].
type Encoder struct {
	level  int
	stream *stream
	closed bool
}

type stream struct {
	writer  *zlib.Writer
	out     bytes.Buffer
	rawSize int
}

// NewEncoder returns an encoder compressing at the given zlib level. The compressor itself is
// created on first use.
func NewEncoder(level int) *Encoder {
	if level < zlib.HuffmanOnly || level > zlib.BestCompression {
		panic("level must be between -2 and 9")
	}
	return &Encoder{level: level}
}

// Write compresses data into the current segment and returns the number of compressed bytes
// the segment holds so far.
func (e *Encoder) Write(data string) (int, error) {
	s, err := e.open()
	if err != nil {
		return 0, err
	}
	if err := s.write(data); err != nil {
		e.discard()
		return 0, fmt.Errorf("write: %w", err)
	}
	return s.out.Len(), nil
}

// Flush writes data when it isn't nil, then finishes the current segment. The result is an
// independent zlib stream holding everything written since the previous flush, and
// sizeInBytes is the uncompressed length of that data.
func (e *Encoder) Flush(data *string) (result []byte, sizeInBytes int, err error) {
	s, err := e.open()
	if err != nil {
		return nil, 0, err
	}
	if data != nil {
		if err := s.write(*data); err != nil {
			e.discard()
			return nil, 0, fmt.Errorf("write: %w", err)
		}
	}
	if err := s.writer.Close(); err != nil {
		e.discard()
		return nil, 0, fmt.Errorf("finish stream: %w", err)
	}

	result = bytes.Clone(s.out.Bytes())
	sizeInBytes = s.rawSize

	s.out.Reset()
	s.writer.Reset(&s.out)
	s.rawSize = 0

	return result, sizeInBytes, nil
}

// Size returns the number of compressed bytes in the current segment.
func (e *Encoder) Size() int {
	if e.stream == nil {
		return 0
	}
	return e.stream.out.Len()
}

// Handle executes a single request and builds its response. Failures are reported in the
// response rather than returned.
func (e *Encoder) Handle(req Request) Response {
	switch req.Action {
	case ActionWrite:
		if req.Data == nil {
			return errorResponse(req.ID, ErrMissingData)
		}
		size, err := e.Write(*req.Data)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return writeResponse(req.ID, size)
	case ActionFlush:
		result, sizeInBytes, err := e.Flush(req.Data)
		if err != nil {
			return errorResponse(req.ID, err)
		}
		return flushResponse(req.ID, result, sizeInBytes)
	default:
		return errorResponse(req.ID, fmt.Errorf("%w %q", ErrUnknownAction, req.Action))
	}
}

// Close releases the compressor. Every later call fails with [ErrClosed].
func (e *Encoder) Close() error {
	if e.closed {
		return ErrClosed
	}
	e.closed = true
	e.stream = nil
	return nil
}

func (e *Encoder) open() (*stream, error) {
	if e.closed {
		return nil, ErrClosed
	}
	if e.stream != nil {
		return e.stream, nil
	}

	s := &stream{}
	writer, err := zlib.NewWriterLevel(&s.out, e.level)
	if err != nil {
		return nil, fmt.Errorf("create zlib writer: %w", err)
	}
	s.writer = writer
	e.stream = s

	return s, nil
}

// discard drops a stream that failed midway so that its partial output is never returned.
func (e *Encoder) discard() {
	e.stream = nil
}

func (s *stream) write(data string) error {
	if _, err := s.writer.Write([]byte(data)); err != nil {
		return err
	}
	s.rawSize += len(data)
	return s.writer.Flush()
}
