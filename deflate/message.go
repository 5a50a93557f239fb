package deflate

import (
	"errors"
	"fmt"
)

//go:generate msgp -file=message.go -o=message_gen.go -tests=false

//msgp:tag json
//msgp:clearomitted
//msgp:ignore ResponseError

var (
	// ErrClosed is returned when using a closed encoder, channel or client.
	ErrClosed = errors.New("deflate: closed")
	// ErrUnknownAction is reported for requests whose action is neither write nor flush.
	ErrUnknownAction = errors.New("deflate: unknown action")
	// ErrMissingData is reported for write requests without data.
	ErrMissingData = errors.New("deflate: write without data")
)

// Action is the operation requested from the worker.
type Action string

const (
	// ActionWrite appends data to the current segment.
	ActionWrite Action = "write"
	// ActionFlush finishes the current segment, optionally writing data first.
	ActionFlush Action = "flush"
)

// Request is a unit of work for the [Worker]. ID is assigned by the caller and echoed back in
// the [Response]; the worker never interprets it.
type Request struct {
	ID     int64   `json:"id"`
	Action Action  `json:"action"`
	Data   *string `json:"data,omitempty"`
}

// Response answers exactly one [Request].
//
// A write is answered with Size, the number of compressed bytes produced in the current
// segment so far. A flush is answered with Result, the complete compressed segment, and
// SizeInBytes, the number of uncompressed bytes written to it. A failed request is answered
// with Error.
type Response struct {
	ID          int64  `json:"id"`
	Size        *int   `json:"size,omitempty"`
	Result      []byte `json:"result,omitempty"`
	SizeInBytes *int   `json:"sizeInBytes,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Err returns a [*ResponseError] if the response reports a failure.
func (r *Response) Err() error {
	if r.Error == "" {
		return nil
	}
	return &ResponseError{ID: r.ID, Message: r.Error}
}

// ResponseError is a failure reported by the worker.
type ResponseError struct {
	ID      int64
	Message string
}

func (e *ResponseError) Error() string {
	return fmt.Sprintf("deflate: request %d: %s", e.ID, e.Message)
}

func writeRequest(id int64, data string) Request {
	return Request{ID: id, Action: ActionWrite, Data: &data}
}

func flushRequest(id int64, data *string) Request {
	return Request{ID: id, Action: ActionFlush, Data: data}
}

func writeResponse(id int64, size int) Response {
	return Response{ID: id, Size: &size}
}

func flushResponse(id int64, result []byte, sizeInBytes int) Response {
	return Response{ID: id, Result: result, SizeInBytes: &sizeInBytes}
}

func errorResponse(id int64, err error) Response {
	return Response{ID: id, Error: err.Error()}
}
