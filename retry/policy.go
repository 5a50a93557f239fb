// Package retry contains the [Policy] interface used by upload workers and several
// implementations of it.
package retry

import (
	"context"
	"errors"
	"time"
)

// Policy decides whether a failed segment upload is attempted again and how long to wait
// before that.
//
// Implementations are not considered thread-safe and each instance is used by a single worker.
type Policy interface {
	// Attempt blocks until the next attempt may start and reports whether it should be made.
	// The first call never blocks. False is returned when no attempts remain or ctx is done.
	Attempt(ctx context.Context) bool
	// Cooldown returns how long a segment that ran out of attempts stays unavailable for the
	// next claim.
	Cooldown() time.Duration
	// Derive returns a fresh Policy with the same settings and no attempts made.
	Derive() Policy
}

// Permanent marks err as not worth retrying. Upload workers stop attempting as soon as they see
// such an error.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked by [Permanent].
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

type permanentError struct {
	err error
}

func (e *permanentError) Error() string {
	return e.err.Error()
}

func (e *permanentError) Unwrap() error {
	return e.err
}
