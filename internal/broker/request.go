package broker

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/google/uuid"
)

var (
	// ErrCancelled settles a request discarded by Close, a closed announcement, or Cancel.
	ErrCancelled = errors.New("request cancelled")

	// ErrSuperseded settles a request replaced by a newer RequestInsert.
	ErrSuperseded = errors.New("request superseded")
)

// Request is a pending insert request. Its callback runs at most once; Done is closed
// when the request settles either way.
type Request struct {
	ID        string
	AutoClose bool

	settled atomic.Bool
	done    chan struct{}
	err     error
}

func newRequest(autoClose bool) *Request {
	return &Request{
		ID:        uuid.NewString(),
		AutoClose: autoClose,
		done:      make(chan struct{}),
	}
}

// Done returns a channel closed once the request is delivered or discarded.
func (r *Request) Done() <-chan struct{} {
	return r.done
}

// Err returns nil if the callback ran, otherwise why the request was discarded.
// Only meaningful after Done is closed.
func (r *Request) Err() error {
	select {
	case <-r.done:
		return r.err
	default:
		return nil
	}
}

// deliver runs fn and settles the request successfully. It reports false if the
// request had already settled.
func (r *Request) deliver(fn func()) bool {
	if !r.settled.CompareAndSwap(false, true) {
		return false
	}
	if fn != nil {
		fn()
	}
	close(r.done)
	return true
}

// cancel settles the request without running its callback.
func (r *Request) cancel(err error) bool {
	if !r.settled.CompareAndSwap(false, true) {
		return false
	}
	r.err = err
	close(r.done)
	return true
}

// Wait blocks until r settles or ctx is done.
func Wait(ctx context.Context, r *Request) error {
	select {
	case <-r.Done():
		return r.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RequestOption adjusts a single request.
type RequestOption func(*requestOptions)

type requestOptions struct {
	autoClose bool
}

// WithAutoClose overrides the controller's auto-close default for one request.
func WithAutoClose(v bool) RequestOption {
	return func(o *requestOptions) {
		o.autoClose = v
	}
}
