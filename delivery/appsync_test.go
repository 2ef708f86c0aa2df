package delivery_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/require"

	"github.com/threadcast/threadcast/delivery"
	"github.com/threadcast/threadcast/entity"
)

func staticCreds() aws.CredentialsProvider {
	return aws.CredentialsProviderFunc(func(ctx context.Context) (aws.Credentials, error) {
		return aws.Credentials{AccessKeyID: "AKID", SecretAccessKey: "SECRET"}, nil
	})
}

func TestAppSyncSendChunkSignsAndPosts(t *testing.T) {
	var gotBody []byte
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"data":{"sendChunk":{"userId":"u1","threadId":"t1","chunkType":"text"}}}`))
	}))
	defer server.Close()

	p := delivery.NewAppSync(slog.Default(), server.URL, "us-east-1", staticCreds(), delivery.WithHTTPClient(server.Client()))

	err := p.SendChunk(context.Background(), entity.Chunk{
		UserID:   "u1",
		ThreadID: "t1",
		Status:   entity.StatusProcessing,
		Type:     entity.ChunkTypeText,
		Content:  "Hi there",
	})
	require.NoError(t, err)

	var payload struct {
		Query     string `json:"query"`
		Variables struct {
			Input entity.Chunk `json:"input"`
		} `json:"variables"`
	}
	require.NoError(t, json.Unmarshal(gotBody, &payload))
	require.Contains(t, payload.Query, "sendChunk")
	require.Equal(t, "u1", payload.Variables.Input.UserID)
	require.Equal(t, "t1", payload.Variables.Input.ThreadID)
	require.Equal(t, entity.ChunkTypeText, payload.Variables.Input.Type)
	require.Equal(t, "Hi there", payload.Variables.Input.Content)
	require.Contains(t, gotAuth, "AWS4-HMAC-SHA256")
	require.Contains(t, gotAuth, "appsync")
}

func TestAppSyncSendChunkSurfacesGraphQLErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"errors":[{"message":"unauthorized"}]}`))
	}))
	defer server.Close()

	p := delivery.NewAppSync(slog.Default(), server.URL, "us-east-1", staticCreds(), delivery.WithHTTPClient(server.Client()))

	err := p.SendChunk(context.Background(), entity.Chunk{UserID: "u1", ThreadID: "t1", Type: entity.ChunkTypeText})
	require.ErrorContains(t, err, "unauthorized")
}
