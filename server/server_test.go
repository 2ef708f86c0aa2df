package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/threadcast/threadcast/config"
	"github.com/threadcast/threadcast/entity"
	"github.com/threadcast/threadcast/gate"
	"github.com/threadcast/threadcast/queue"
	"github.com/threadcast/threadcast/server"
	"github.com/threadcast/threadcast/thread"
)

type recordingQueue struct {
	items []*queue.WorkItem
}

func (q *recordingQueue) Enqueue(ctx context.Context, item *queue.WorkItem) error {
	q.items = append(q.items, item)
	return nil
}

func newTestServer(t *testing.T) (*server.Server, thread.Store, *recordingQueue) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	store, err := thread.NewGormStore(slog.Default(), db)
	require.NoError(t, err)

	q := &recordingQueue{}
	personas := map[string]entity.Persona{
		"jane": {Name: "jane", Prompt: "You are Jane.", ModelID: "anthropic.claude-v2", Voice: "Joanna"},
	}
	g := gate.NewGate(slog.Default(), store, q)
	return server.NewServer(slog.Default(), g, store, personas, config.NewRuntimeConfig()), store, q
}

func do(t *testing.T, h http.Handler, method, path, sub string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if sub != "" {
		req.Header.Set("X-User-Sub", sub)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateThreadAndPostMessage(t *testing.T) {
	srv, store, q := newTestServer(t)
	h := srv.Handler()

	rec := do(t, h, "POST", "/v1/threads", "u1", map[string]any{"threadId": "t1", "persona": "jane"})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created entity.Thread
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, "t1", created.ThreadID)
	require.Equal(t, entity.StatusNew, created.Status)

	rec = do(t, h, "POST", "/v1/threads/t1/messages", "u1", map[string]any{"prompt": "Hello", "includeAudio": true})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var echo entity.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &echo))
	require.Equal(t, entity.SenderUser, echo.Sender)
	require.Equal(t, "Hello", echo.Content)
	require.Len(t, q.items, 1)

	th, err := store.GetThread(context.Background(), "u1", "t1")
	require.NoError(t, err)
	require.Equal(t, entity.StatusPending, th.Status)
}

func TestPostMessageConflictsWhileBusy(t *testing.T) {
	srv, _, _ := newTestServer(t)
	h := srv.Handler()

	rec := do(t, h, "POST", "/v1/threads", "u1", map[string]any{"threadId": "t1", "persona": "jane"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, h, "POST", "/v1/threads/t1/messages", "u1", map[string]any{"prompt": "first"})
	require.Equal(t, http.StatusAccepted, rec.Code)

	rec = do(t, h, "POST", "/v1/threads/t1/messages", "u1", map[string]any{"prompt": "second"})
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestPostMessageRequiresIdentity(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := do(t, srv.Handler(), "POST", "/v1/threads/t1/messages", "", map[string]any{"prompt": "Hello"})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPostMessageUnknownThread(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := do(t, srv.Handler(), "POST", "/v1/threads/missing/messages", "u1", map[string]any{"prompt": "Hello"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateThreadUnknownPersona(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := do(t, srv.Handler(), "POST", "/v1/threads", "u1", map[string]any{"persona": "nobody"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetMessagesOrderAndLimit(t *testing.T) {
	srv, store, _ := newTestServer(t)
	h := srv.Handler()
	ctx := context.Background()

	rec := do(t, h, "POST", "/v1/threads", "u1", map[string]any{"threadId": "t1", "persona": "jane"})
	require.Equal(t, http.StatusCreated, rec.Code)

	for _, content := range []string{"one", "two", "three"} {
		require.NoError(t, store.AppendMessage(ctx, "u1", "t1", entity.Message{
			ID: content, Sender: entity.SenderUser, Content: content,
		}))
	}

	rec = do(t, h, "GET", "/v1/threads/t1/messages?order=desc&limit=2", "u1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var messages []entity.Message
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &messages))
	require.Len(t, messages, 2)
	require.Equal(t, "three", messages[0].Content)

	rec = do(t, h, "GET", "/v1/threads/t1/messages?limit=bogus", "u1", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListPersonas(t *testing.T) {
	srv, _, _ := newTestServer(t)

	rec := do(t, srv.Handler(), "GET", "/v1/personas", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var names []string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &names))
	require.Equal(t, []string{"jane"}, names)
}
