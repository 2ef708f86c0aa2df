package delivery_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/threadcast/threadcast/delivery"
	"github.com/threadcast/threadcast/entity"
)

func TestWriterPrintsOnlyNewSuffix(t *testing.T) {
	var buf strings.Builder
	p := delivery.NewWriter(&buf)

	ctx := context.Background()
	for _, content := range []string{"Hi", "Hi there", "Hi there!"} {
		require.NoError(t, p.SendChunk(ctx, entity.Chunk{
			UserID: "u1", ThreadID: "t1",
			Status: entity.StatusProcessing, Type: entity.ChunkTypeText,
			Content: content,
		}))
	}
	require.NoError(t, p.SendChunk(ctx, entity.Chunk{
		UserID: "u1", ThreadID: "t1",
		Status: entity.StatusComplete, Type: entity.ChunkTypeStatus,
	}))

	require.Equal(t, "Hi there!\n[COMPLETE]\n", buf.String())
}
