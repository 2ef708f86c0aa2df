package queue

import (
	"context"
	"log/slog"
	"time"
)

type (
	// Handler processes one batch of work items. It is invoked with every
	// well-formed item of a receive; malformed items never reach it.
	Handler func(ctx context.Context, items []WorkItem) error

	// Consumer long-polls the work queue and dispatches batches. Items are
	// deleted only after the handler returns, so a crashed worker redelivers
	// rather than loses requests.
	Consumer struct {
		logger  *slog.Logger
		queue   *SQSQueue
		handler Handler
		batch   int
		wait    time.Duration
	}
)

func NewConsumer(logger *slog.Logger, q *SQSQueue, handler Handler, batch int, wait time.Duration) *Consumer {
	if batch <= 0 {
		batch = 5
	}
	if wait <= 0 {
		wait = 20 * time.Second
	}
	return &Consumer{
		logger:  logger,
		queue:   q,
		handler: handler,
		batch:   batch,
		wait:    wait,
	}
}

// Run polls until the context is done. Receive errors back off briefly
// instead of spinning.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		received, err := c.queue.Receive(ctx, c.batch, c.wait)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.logger.Warn("failed to receive work items", "error", err)
			select {
			case <-time.After(time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
			continue
		}

		items := make([]WorkItem, 0, len(received))
		for _, r := range received {
			if r.Err != nil {
				// Malformed items would redeliver forever; drop them and
				// leave recovery to the deadletter policy on the queue.
				c.logger.Error("dropping malformed work item", "error", r.Err)
				if err := c.queue.Delete(ctx, r.ReceiptHandle); err != nil {
					c.logger.Warn("failed to delete malformed work item", "error", err)
				}
				continue
			}
			items = append(items, *r.Item)
		}
		if len(items) == 0 {
			continue
		}

		if err := c.handler(ctx, items); err != nil {
			c.logger.Error("work item batch failed, leaving batch for redelivery", "error", err, "items", len(items))
			continue
		}

		for _, r := range received {
			if r.Err != nil {
				continue
			}
			if err := c.queue.Delete(ctx, r.ReceiptHandle); err != nil {
				c.logger.Warn("failed to delete work item", "error", err)
			}
		}
	}
}
