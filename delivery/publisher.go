package delivery

import (
	"context"

	"github.com/threadcast/threadcast/entity"
)

// Publisher fans chunks out to live subscribers. Subscribers filter on the
// chunk's (userId, threadId) pair; the publisher itself stores nothing.
type Publisher interface {
	SendChunk(ctx context.Context, chunk entity.Chunk) error
}
