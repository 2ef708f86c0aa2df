package knowledge

import (
	"context"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"

	"github.com/threadcast/threadcast/errors"
)

type (
	// Retriever resolves supporting context for a query from a knowledge
	// base. Retrieval failures propagate as-is; the caller decides whether
	// they are fatal.
	Retriever interface {
		Retrieve(ctx context.Context, knowledgeBaseID, query string) (string, error)
	}

	retrieveClient interface {
		Retrieve(ctx context.Context, params *bedrockagentruntime.RetrieveInput, optFns ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.RetrieveOutput, error)
	}

	bedrockRetriever struct {
		logger *slog.Logger
		client retrieveClient
	}
)

var _ Retriever = (*bedrockRetriever)(nil)

func NewBedrockRetriever(logger *slog.Logger, client retrieveClient) Retriever {
	return &bedrockRetriever{
		logger: logger,
		client: client,
	}
}

// Retrieve queries the knowledge base and joins the retrieved passages into
// one context block, most relevant first.
func (r *bedrockRetriever) Retrieve(ctx context.Context, knowledgeBaseID, query string) (string, error) {
	out, err := r.client.Retrieve(ctx, &bedrockagentruntime.RetrieveInput{
		KnowledgeBaseId: &knowledgeBaseID,
		RetrievalQuery: &types.KnowledgeBaseQuery{
			Text: &query,
		},
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to retrieve from knowledge base %s", knowledgeBaseID)
	}

	passages := make([]string, 0, len(out.RetrievalResults))
	for _, result := range out.RetrievalResults {
		if result.Content == nil || result.Content.Text == nil {
			continue
		}
		passages = append(passages, *result.Content.Text)
	}

	r.logger.Debug("retrieved knowledge base context", "knowledge_base_id", knowledgeBaseID, "passages", len(passages))

	return strings.Join(passages, "\n"), nil
}
