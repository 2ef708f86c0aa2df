package gate_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/threadcast/threadcast/entity"
	myerrors "github.com/threadcast/threadcast/errors"
	"github.com/threadcast/threadcast/gate"
	"github.com/threadcast/threadcast/queue"
	"github.com/threadcast/threadcast/thread"
)

type recordingQueue struct {
	items []*queue.WorkItem
	err   error
}

func (q *recordingQueue) Enqueue(ctx context.Context, item *queue.WorkItem) error {
	if q.err != nil {
		return q.err
	}
	q.items = append(q.items, item)
	return nil
}

func newStore(t *testing.T) thread.Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	store, err := thread.NewGormStore(slog.Default(), db)
	require.NoError(t, err)
	return store
}

func TestAdmitEnqueuesAndMarksPending(t *testing.T) {
	store := newStore(t)
	q := &recordingQueue{}
	g := gate.NewGate(slog.Default(), store, q)
	ctx := context.Background()

	persona := entity.Persona{Name: "jane", Prompt: "You are Jane.", ModelID: "anthropic.claude-v2", Voice: "Joanna"}
	_, err := store.CreateThread(ctx, "u1", "t1", persona)
	require.NoError(t, err)

	echo, err := g.Admit(ctx, gate.AdmitRequest{
		Identity:     "u1",
		ThreadID:     "t1",
		Prompt:       "Hello",
		IncludeAudio: true,
	})
	require.NoError(t, err)
	require.Equal(t, entity.SenderUser, echo.Sender)
	require.Equal(t, "Hello", echo.Content)
	require.NotEmpty(t, echo.ID)

	require.Len(t, q.items, 1)
	item := q.items[0]
	require.Equal(t, "u1", item.Identity.Sub)
	require.Equal(t, persona, item.Prev.Result.Persona)
	require.True(t, item.Arguments.Input.IncludeAudio)

	th, err := store.GetThread(ctx, "u1", "t1")
	require.NoError(t, err)
	require.Equal(t, entity.StatusPending, th.Status)
}

func TestAdmitRejectsMissingIdentity(t *testing.T) {
	g := gate.NewGate(slog.Default(), newStore(t), &recordingQueue{})

	_, err := g.Admit(context.Background(), gate.AdmitRequest{ThreadID: "t1", Prompt: "Hello"})
	require.ErrorIs(t, err, myerrors.ErrUnauthenticated)
}

func TestAdmitRejectsBusyThread(t *testing.T) {
	store := newStore(t)
	q := &recordingQueue{}
	g := gate.NewGate(slog.Default(), store, q)
	ctx := context.Background()

	_, err := store.CreateThread(ctx, "u1", "t1", entity.Persona{Name: "jane", Prompt: "p", ModelID: "m"})
	require.NoError(t, err)
	require.NoError(t, store.MarkPending(ctx, "u1", "t1"))

	_, err = g.Admit(ctx, gate.AdmitRequest{Identity: "u1", ThreadID: "t1", Prompt: "Hello"})
	require.ErrorIs(t, err, myerrors.ErrThreadBusy)
	require.Empty(t, q.items, "no work item may be produced for a busy thread")
}

func TestAdmitRejectsUnknownThread(t *testing.T) {
	g := gate.NewGate(slog.Default(), newStore(t), &recordingQueue{})

	_, err := g.Admit(context.Background(), gate.AdmitRequest{Identity: "u1", ThreadID: "missing", Prompt: "Hello"})
	require.ErrorIs(t, err, myerrors.ErrThreadNotFound)
}
