package engine

import (
	"context"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/threadcast/threadcast/knowledge"
)

type (
	invokeClient interface {
		InvokeModelWithResponseStream(ctx context.Context, params *bedrockruntime.InvokeModelWithResponseStreamInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelWithResponseStreamOutput, error)
	}

	// Engine adapts the model inference capability: it assembles the full
	// prompt for a persona conversation and exposes generated text as an
	// incremental sequence of fragments.
	Engine struct {
		logger    *slog.Logger
		client    invokeClient
		retriever knowledge.Retriever
	}
)

func NewEngine(
	logger *slog.Logger,
	client invokeClient,
	retriever knowledge.Retriever,
) *Engine {
	return &Engine{
		logger:    logger,
		client:    client,
		retriever: retriever,
	}
}
