package browser

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAwaitImmediate(t *testing.T) {
	err := Await(context.Background(), time.Second, func(ctx context.Context) (bool, error) {
		return true, nil
	})
	require.NoError(t, err)
}

func TestAwaitPollsUntilReady(t *testing.T) {
	var calls atomic.Int32
	err := Await(context.Background(), 2*time.Second, func(ctx context.Context) (bool, error) {
		return calls.Add(1) >= 3, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestAwaitTimeout(t *testing.T) {
	start := time.Now()
	err := Await(context.Background(), 150*time.Millisecond, func(ctx context.Context) (bool, error) {
		return false, nil
	})
	assert.ErrorIs(t, err, ErrWaitTimeout)
	assert.Less(t, time.Since(start), time.Second)
}

func TestAwaitParentCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Await(ctx, time.Second, func(ctx context.Context) (bool, error) {
		return false, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrWaitTimeout)
}

func TestAwaitConditionError(t *testing.T) {
	boom := errors.New("boom")
	err := Await(context.Background(), time.Second, func(ctx context.Context) (bool, error) {
		return false, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestAwaitSignal(t *testing.T) {
	ch := make(chan string, 1)
	go func() {
		time.Sleep(20 * time.Millisecond)
		ch <- "https://example.com/next"
	}()

	var got string
	require.NoError(t, Await(context.Background(), time.Second, Signal(ch, &got)))
	assert.Equal(t, "https://example.com/next", got)

	err := Await(context.Background(), 50*time.Millisecond, Signal(make(chan struct{}), nil))
	assert.ErrorIs(t, err, ErrWaitTimeout)
}

func TestAwaitTolerantRetriesAfterError(t *testing.T) {
	var calls atomic.Int32
	err := Await(context.Background(), 2*time.Second, Tolerant(func(ctx context.Context) (bool, error) {
		if calls.Add(1) < 3 {
			return false, errors.New("Execution context was destroyed")
		}
		return true, nil
	}))
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())

	err = Await(context.Background(), 150*time.Millisecond, Tolerant(func(ctx context.Context) (bool, error) {
		return false, errors.New("Execution context was destroyed")
	}))
	assert.ErrorIs(t, err, ErrWaitTimeout)
	assert.ErrorIs(t, selectorErr(err, ".x"), ErrElementTimeout)
}

func TestAwaitEither(t *testing.T) {
	ch := make(chan string, 1)
	var got string
	polled := 0
	poll := func(ctx context.Context) (bool, error) {
		polled++
		return polled >= 2, nil
	}

	require.NoError(t, Await(context.Background(), time.Second, Either(Signal(ch, &got), poll)))
	assert.Equal(t, 2, polled)
	assert.Empty(t, got)

	ch <- "https://example.com/2"
	require.NoError(t, Await(context.Background(), time.Second, Either(Signal(ch, &got), poll)))
	assert.Equal(t, "https://example.com/2", got)
}

func TestSelectorErr(t *testing.T) {
	assert.ErrorIs(t, selectorErr(ErrWaitTimeout, ".x"), ErrElementTimeout)
	assert.NoError(t, selectorErr(nil, ".x"))
}
