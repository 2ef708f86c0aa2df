package thread_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/threadcast/threadcast/entity"
	myerrors "github.com/threadcast/threadcast/errors"
	"github.com/threadcast/threadcast/thread"
)

func newTestStore(t *testing.T) *thread.GormStore {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	store, err := thread.NewGormStore(slog.Default(), db)
	require.NoError(t, err)
	return store
}

func newMessage(sender entity.Sender, content string) entity.Message {
	return entity.Message{
		ID:        uuid.NewString(),
		Sender:    sender,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

func TestCreateAndGetThread(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	persona := entity.Persona{Name: "jane", Prompt: "You are Jane.", ModelID: "anthropic.claude-v2", Voice: "Joanna"}
	created, err := store.CreateThread(ctx, "u1", "t1", persona)
	require.NoError(t, err)
	require.Equal(t, entity.StatusNew, created.Status)
	require.Greater(t, created.ExpiresAt, time.Now().Unix())

	got, err := store.GetThread(ctx, "u1", "t1")
	require.NoError(t, err)
	require.Equal(t, persona, got.Persona)
	require.Empty(t, got.Messages)
}

func TestGetThreadNotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.GetThread(context.Background(), "u1", "missing")
	require.ErrorIs(t, err, myerrors.ErrThreadNotFound)
}

func TestMarkPendingMutualExclusion(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateThread(ctx, "u1", "t1", entity.Persona{Name: "jane", Prompt: "p", ModelID: "m"})
	require.NoError(t, err)

	require.NoError(t, store.MarkPending(ctx, "u1", "t1"))

	// a second admit while PENDING must be rejected
	err = store.MarkPending(ctx, "u1", "t1")
	require.ErrorIs(t, err, myerrors.ErrThreadBusy)

	// PROCESSING is busy as well
	require.NoError(t, store.SetStatus(ctx, "u1", "t1", entity.StatusProcessing))
	require.ErrorIs(t, store.MarkPending(ctx, "u1", "t1"), myerrors.ErrThreadBusy)

	// COMPLETE admits again
	require.NoError(t, store.SetStatus(ctx, "u1", "t1", entity.StatusComplete))
	require.NoError(t, store.MarkPending(ctx, "u1", "t1"))
}

func TestMarkPendingNotFound(t *testing.T) {
	store := newTestStore(t)
	require.ErrorIs(t, store.MarkPending(context.Background(), "u1", "missing"), myerrors.ErrThreadNotFound)
}

func TestMessagesAreAppendOnly(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateThread(ctx, "u1", "t1", entity.Persona{Name: "jane", Prompt: "p", ModelID: "m"})
	require.NoError(t, err)

	require.NoError(t, store.AppendMessage(ctx, "u1", "t1", newMessage(entity.SenderUser, "Hello")))
	first, err := store.GetMessages(ctx, "u1", "t1", "ASC", 0)
	require.NoError(t, err)

	require.NoError(t, store.AppendMessage(ctx, "u1", "t1", newMessage(entity.SenderAssistant, "Hi there!")))
	second, err := store.GetMessages(ctx, "u1", "t1", "ASC", 0)
	require.NoError(t, err)

	// earlier reads are a prefix of later reads
	require.Equal(t, first, second[:len(first)])
	require.Equal(t, "Hi there!", second[len(second)-1].Content)
}

func TestGetMessagesOrderAndLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.CreateThread(ctx, "u1", "t1", entity.Persona{Name: "jane", Prompt: "p", ModelID: "m"})
	require.NoError(t, err)
	for _, content := range []string{"one", "two", "three"} {
		require.NoError(t, store.AppendMessage(ctx, "u1", "t1", newMessage(entity.SenderUser, content)))
	}

	desc, err := store.GetMessages(ctx, "u1", "t1", "desc", 2)
	require.NoError(t, err)
	require.Len(t, desc, 2)
	require.Equal(t, "three", desc[0].Content)

	_, err = store.GetMessages(ctx, "u1", "t1", "sideways", 0)
	require.ErrorIs(t, err, myerrors.ErrInvalidConfig)
}

func TestAppendMessageToMissingThread(t *testing.T) {
	store := newTestStore(t)
	err := store.AppendMessage(context.Background(), "u1", "missing", newMessage(entity.SenderUser, "Hello"))
	require.ErrorIs(t, err, myerrors.ErrThreadNotFound)
}
