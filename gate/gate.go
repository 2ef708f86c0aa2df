package gate

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/threadcast/threadcast/entity"
	"github.com/threadcast/threadcast/errors"
	"github.com/threadcast/threadcast/queue"
	"github.com/threadcast/threadcast/thread"
)

type (
	// Enqueuer hands a work item to the asynchronous worker.
	Enqueuer interface {
		Enqueue(ctx context.Context, item *queue.WorkItem) error
	}

	AdmitRequest struct {
		// Identity is the opaque subject resolved by the external
		// authenticator.
		Identity     string
		ThreadID     string
		Prompt       string
		IncludeAudio bool
	}

	// Gate validates request admissibility and hands off to the worker. It
	// returns before any processing happens; the echo message lets the UI
	// render the user's turn immediately.
	Gate struct {
		logger *slog.Logger
		store  thread.Store
		queue  Enqueuer
	}
)

func NewGate(logger *slog.Logger, store thread.Store, enqueuer Enqueuer) *Gate {
	return &Gate{
		logger: logger,
		store:  store,
		queue:  enqueuer,
	}
}

func (g *Gate) Admit(ctx context.Context, req AdmitRequest) (*entity.Message, error) {
	if req.Identity == "" {
		return nil, errors.Wrapf(errors.ErrUnauthenticated, "missing subject")
	}

	th, err := g.store.GetThread(ctx, req.Identity, req.ThreadID)
	if err != nil {
		return nil, err
	}
	if !th.Status.Admissible() {
		return nil, errors.Wrapf(errors.ErrThreadBusy, "thread %s is %s", req.ThreadID, th.Status)
	}

	item := &queue.WorkItem{
		Identity:  queue.Identity{Sub: req.Identity},
		Arguments: queue.Arguments{Input: queue.Input{ThreadID: req.ThreadID, Prompt: req.Prompt, IncludeAudio: req.IncludeAudio}},
		Prev: queue.Prev{Result: queue.Result{
			Persona:  th.Persona,
			Messages: th.Messages,
			SK:       "THREAD#" + th.ThreadID,
		}},
	}

	// Both must land before the gate returns. If one fails while the other
	// succeeded the thread can be left PENDING without a work item (or the
	// reverse); at-least-once delivery plus the store's conditional updates
	// keep that window recoverable rather than corrupting.
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		// MarkPending re-checks admissibility atomically; the status read
		// above is only a fast path.
		return g.store.MarkPending(egCtx, req.Identity, req.ThreadID)
	})
	eg.Go(func() error {
		return g.queue.Enqueue(egCtx, item)
	})
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	g.logger.Debug("admitted request", "thread_id", req.ThreadID, "include_audio", req.IncludeAudio)

	return &entity.Message{
		ID:        uuid.NewString(),
		Sender:    entity.SenderUser,
		Content:   req.Prompt,
		CreatedAt: time.Now().UTC(),
	}, nil
}
