// Package waitfor provides a bounded wait for a condition to become true.
// The condition is re-checked whenever a notification source fires, which makes
// it usable with polling tickers as well as change notifications.
package waitfor

import (
	"context"
	"fmt"
	"time"

	"github.com/juju/clock"
)

// Condition reports whether the awaited state has been reached.
// Returning an error stops the wait immediately.
type Condition func(ctx context.Context) (bool, error)

// TimeoutError is returned when the condition is not met before the deadline.
type TimeoutError struct {
	What    string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s not found within %v", e.What, e.Timeout)
}

// Until checks cond once, then again each time notify fires, until cond reports
// true, cond fails, ctx is done, or timeout elapses on clk. A nil clk means the
// wall clock.
// A closed notify channel stops re-checking; the wait then only ends on the deadline.
func Until(ctx context.Context, clk clock.Clock, what string, cond Condition, notify <-chan struct{}, timeout time.Duration) error {
	ok, err := cond(ctx)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}

	if clk == nil {
		clk = clock.WallClock
	}
	timer := clk.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.Chan():
			return &TimeoutError{What: what, Timeout: timeout}
		case _, open := <-notify:
			if !open {
				notify = nil
				continue
			}
			ok, err := cond(ctx)
			if err != nil {
				return err
			}
			if ok {
				return nil
			}
		}
	}
}

// Ticker returns a notification source that fires every interval on clk until
// ctx is done, at which point the channel is closed. A nil clk means the wall clock.
func Ticker(ctx context.Context, clk clock.Clock, interval time.Duration) <-chan struct{} {
	if clk == nil {
		clk = clock.WallClock
	}
	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		for {
			select {
			case <-ctx.Done():
				return
			case <-clk.After(interval):
				select {
				case ch <- struct{}{}:
				default:
				}
			}
		}
	}()
	return ch
}
