package thread

import (
	"context"

	"github.com/threadcast/threadcast/entity"
)

type (
	// Store is the durable conversation log. Messages are append-only;
	// status transitions are conditional so that concurrent writers cannot
	// both claim a thread (the gate's check-then-act is not atomic on its
	// own).
	Store interface {
		CreateThread(ctx context.Context, userID, threadID string, persona entity.Persona) (*entity.Thread, error)
		GetThread(ctx context.Context, userID, threadID string) (*entity.Thread, error)
		GetMessages(ctx context.Context, userID, threadID string, order string, limit int) ([]entity.Message, error)
		AppendMessage(ctx context.Context, userID, threadID string, message entity.Message) error
		SetStatus(ctx context.Context, userID, threadID string, status entity.Status) error

		// MarkPending transitions NEW|COMPLETE -> PENDING in one
		// conditional write. It returns ErrThreadBusy when the thread is
		// already in flight and ErrThreadNotFound when it does not exist.
		MarkPending(ctx context.Context, userID, threadID string) error
	}
)
