package knowledge

import (
	"context"
	"log/slog"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type fakeRetrieveClient struct {
	lastInput *bedrockagentruntime.RetrieveInput
	out       *bedrockagentruntime.RetrieveOutput
	err       error
}

func (f *fakeRetrieveClient) Retrieve(ctx context.Context, params *bedrockagentruntime.RetrieveInput, optFns ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveOutput, error) {
	f.lastInput = params
	return f.out, f.err
}

func TestBedrockRetrieverJoinsPassages(t *testing.T) {
	client := &fakeRetrieveClient{
		out: &bedrockagentruntime.RetrieveOutput{
			RetrievalResults: []types.KnowledgeBaseRetrievalResult{
				{Content: &types.RetrievalResultContent{Text: aws.String("first passage")}},
				{Content: &types.RetrievalResultContent{Text: aws.String("second passage")}},
				{Content: nil},
			},
		},
	}
	r := NewBedrockRetriever(slog.Default(), client)

	got, err := r.Retrieve(context.Background(), "kb-123", "what is threadcast?")
	require.NoError(t, err)
	require.Equal(t, "first passage\nsecond passage", got)
	require.Equal(t, "kb-123", *client.lastInput.KnowledgeBaseId)
	require.Equal(t, "what is threadcast?", *client.lastInput.RetrievalQuery.Text)
}

func TestBedrockRetrieverPropagatesFailure(t *testing.T) {
	client := &fakeRetrieveClient{err: errors.New("throttled")}
	r := NewBedrockRetriever(slog.Default(), client)

	_, err := r.Retrieve(context.Background(), "kb-123", "query")
	require.Error(t, err)
}
