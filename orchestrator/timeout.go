package orchestrator

import (
	"context"
	"time"
)

type timeoutResult struct {
	StatusCode int
	Message    string
}

// timeoutAfter delivers one timeoutResult when d elapses. The goroutine exits
// as soon as ctx is cancelled, so abandoning the channel never leaks a timer
// watcher for the rest of the process lifetime.
func timeoutAfter(ctx context.Context, d time.Duration) <-chan timeoutResult {
	ch := make(chan timeoutResult, 1)
	go func() {
		timer := time.NewTimer(d)
		defer timer.Stop()
		select {
		case <-ctx.Done():
		case <-timer.C:
			ch <- timeoutResult{StatusCode: 504, Message: "Task timed out!"}
		}
	}()
	return ch
}
