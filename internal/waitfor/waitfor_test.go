package waitfor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/juju/clock/testclock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUntil_ImmediatelySatisfied(t *testing.T) {
	calls := 0
	err := Until(context.Background(), nil, "element", func(context.Context) (bool, error) {
		calls++
		return true, nil
	}, nil, time.Second)

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestUntil_SatisfiedAfterNotifications(t *testing.T) {
	notify := make(chan struct{}, 3)
	var calls atomic.Int32

	for i := 0; i < 3; i++ {
		notify <- struct{}{}
	}

	err := Until(context.Background(), nil, "element", func(context.Context) (bool, error) {
		return calls.Add(1) == 3, nil
	}, notify, time.Second)

	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestUntil_Timeout(t *testing.T) {
	err := Until(context.Background(), nil, "[title=\"Details\"]", func(context.Context) (bool, error) {
		return false, nil
	}, nil, 20*time.Millisecond)

	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, 20*time.Millisecond, timeoutErr.Timeout)
	assert.Contains(t, err.Error(), "[title=\"Details\"] not found within")
}

func TestUntil_ConditionError(t *testing.T) {
	boom := errors.New("boom")
	notify := make(chan struct{}, 1)
	notify <- struct{}{}

	first := true
	err := Until(context.Background(), nil, "x", func(context.Context) (bool, error) {
		if first {
			first = false
			return false, nil
		}
		return false, boom
	}, notify, time.Second)

	assert.ErrorIs(t, err, boom)
}

func TestUntil_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Until(ctx, nil, "x", func(context.Context) (bool, error) {
		return false, nil
	}, nil, time.Second)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestUntil_ClosedNotifyWaitsForDeadline(t *testing.T) {
	notify := make(chan struct{})
	close(notify)

	err := Until(context.Background(), nil, "x", func(context.Context) (bool, error) {
		return false, nil
	}, notify, 20*time.Millisecond)

	var timeoutErr *TimeoutError
	assert.ErrorAs(t, err, &timeoutErr)
}

func TestTicker_PollsCondition(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	err := Until(ctx, nil, "x", func(context.Context) (bool, error) {
		return calls.Add(1) >= 3, nil
	}, Ticker(ctx, nil, 5*time.Millisecond), time.Second)

	require.NoError(t, err)
	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestUntil_DeadlineFollowsClock(t *testing.T) {
	clk := testclock.NewClock(time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC))

	result := make(chan error, 1)
	go func() {
		result <- Until(context.Background(), clk, "x", func(context.Context) (bool, error) {
			return false, nil
		}, nil, 15*time.Second)
	}()

	require.NoError(t, clk.WaitAdvance(14*time.Second, time.Second, 1))
	select {
	case err := <-result:
		t.Fatalf("wait ended before the deadline: %v", err)
	default:
	}

	require.NoError(t, clk.WaitAdvance(time.Second, time.Second, 1))
	select {
	case err := <-result:
		var timeoutErr *TimeoutError
		require.ErrorAs(t, err, &timeoutErr)
		assert.Equal(t, 15*time.Second, timeoutErr.Timeout)
	case <-time.After(time.Second):
		t.Fatal("wait did not time out after the clock passed the deadline")
	}
}

func TestTicker_FiresOnClock(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clk := testclock.NewClock(time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC))

	var calls atomic.Int32
	result := make(chan error, 1)
	go func() {
		result <- Until(ctx, clk, "x", func(context.Context) (bool, error) {
			return calls.Add(1) >= 2, nil
		}, Ticker(ctx, clk, 250*time.Millisecond), 15*time.Second)
	}()

	// The deadline timer and the ticker's next tick.
	require.NoError(t, clk.WaitAdvance(250*time.Millisecond, time.Second, 2))
	select {
	case err := <-result:
		require.NoError(t, err)
		assert.Equal(t, int32(2), calls.Load())
	case <-time.After(time.Second):
		t.Fatal("tick did not re-check the condition")
	}
}
