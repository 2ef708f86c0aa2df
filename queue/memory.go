package queue

import (
	"context"

	"github.com/threadcast/threadcast/errors"
)

// Memory is an in-process queue used by the local REPL and tests.
type Memory struct {
	ch chan *WorkItem
}

func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = 16
	}
	return &Memory{ch: make(chan *WorkItem, capacity)}
}

func (q *Memory) Enqueue(ctx context.Context, item *WorkItem) error {
	select {
	case q.ch <- item:
		return nil
	case <-ctx.Done():
		return errors.WithStack(ctx.Err())
	}
}

func (q *Memory) Dequeue(ctx context.Context) (*WorkItem, error) {
	select {
	case item := <-q.ch:
		return item, nil
	case <-ctx.Done():
		return nil, errors.WithStack(ctx.Err())
	}
}
