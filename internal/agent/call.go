package agent

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// TimeoutError is returned when a collaborator does not answer within the
// configured timeout.
type TimeoutError struct {
	Collaborator string
	After        time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s did not answer within %s", e.Collaborator, e.After)
}

// Unwrap lets errors.Is(err, context.DeadlineExceeded) match.
func (e *TimeoutError) Unwrap() error { return context.DeadlineExceeded }

// call runs fn under the collaborator timeout. fn runs on its own goroutine
// so a collaborator that ignores cancellation cannot hold the request past
// the deadline; it must still return eventually for the goroutine to exit.
func (a *Agent) call(ctx context.Context, name string, fn func(context.Context) error) error {
	if a.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	done := make(chan error, 1)
	go func() { done <- fn(ctx) }()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}

	if err != nil && a.opts.Timeout > 0 && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		err = &TimeoutError{Collaborator: name, After: a.opts.Timeout}
	}
	a.recorder.CollaboratorCall(name, time.Since(start), err)
	return err
}
