package broker

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRequestSettlesOnce(t *testing.T) {
	r := newRequest(true)
	assert.NotEmpty(t, r.ID)
	assert.NoError(t, r.Err(), "unsettled request reports no error")

	runs := 0
	assert.True(t, r.deliver(func() { runs++ }))
	assert.False(t, r.deliver(func() { runs++ }))
	assert.False(t, r.cancel(ErrCancelled))

	assert.Equal(t, 1, runs)
	assert.NoError(t, r.Err())
}

func TestRequestCancelPreventsDelivery(t *testing.T) {
	r := newRequest(false)
	assert.True(t, r.cancel(ErrSuperseded))
	assert.False(t, r.deliver(func() { t.Error("must not run") }))
	assert.ErrorIs(t, r.Err(), ErrSuperseded)
}

func TestWait(t *testing.T) {
	r := newRequest(false)
	go r.cancel(ErrCancelled)
	assert.ErrorIs(t, Wait(context.Background(), r), ErrCancelled)

	pending := newRequest(false)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, Wait(ctx, pending), context.DeadlineExceeded)
}
