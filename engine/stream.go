package engine

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/threadcast/threadcast/entity"
	"github.com/threadcast/threadcast/errors"
)

type (
	// StreamRequest carries everything needed to drive one model stream for
	// a persona conversation.
	StreamRequest struct {
		Persona entity.Persona
		History []entity.Message
		Query   string
	}

	// OnFragment receives each generated text fragment. The stream is only
	// pulled as fast as the callback returns; returning an error stops the
	// stream.
	OnFragment func(ctx context.Context, fragment string) error
)

// Stream assembles the full prompt, invokes the model with streaming enabled
// and forwards each text fragment through onFragment. It returns when the
// model signals end-of-stream, the context is done, or onFragment fails.
func (e *Engine) Stream(ctx context.Context, req StreamRequest, onFragment OnFragment) error {
	spec, ok := models[req.Persona.ModelID]
	if !ok {
		return errors.Wrapf(errors.ErrModelNotSupported, "unknown model %q", req.Persona.ModelID)
	}

	var contextText string
	if req.Persona.KnowledgeBaseID != "" {
		var err error
		contextText, err = e.retriever.Retrieve(ctx, req.Persona.KnowledgeBaseID, req.Query)
		if err != nil {
			return errors.Wrapf(errors.ErrRetrievalFailed, "knowledge base %s: %v", req.Persona.KnowledgeBaseID, err)
		}
	}

	prompt, err := BuildPrompt(req.Persona, req.History, req.Query, contextText)
	if err != nil {
		return err
	}

	body, err := spec.marshalRequest(spec, prompt)
	if err != nil {
		return err
	}

	e.logger.Debug("invoking model stream", "model_id", req.Persona.ModelID, "prompt_len", len(prompt))

	out, err := e.client.InvokeModelWithResponseStream(ctx, &bedrockruntime.InvokeModelWithResponseStreamInput{
		ModelId:     aws.String(req.Persona.ModelID),
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return errors.Wrapf(err, "failed to invoke model %s", req.Persona.ModelID)
	}

	stream := out.GetStream()
	defer stream.Close()

	if err := pump(ctx, stream.Events(), spec, onFragment); err != nil {
		return err
	}

	return errors.WithStack(stream.Err())
}

// pump forwards fragments one at a time, awaiting the callback before
// pulling the next event. Cancellation stops the pull loop promptly.
func pump(ctx context.Context, events <-chan types.ResponseStream, spec modelSpec, onFragment OnFragment) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-events:
			if !ok {
				return nil
			}
			chunk, ok := event.(*types.ResponseStreamMemberChunk)
			if !ok || chunk.Value.Bytes == nil {
				continue
			}
			fragment, err := spec.decodeFragment(chunk.Value.Bytes)
			if err != nil {
				return err
			}
			if fragment == "" {
				continue
			}
			if err := onFragment(ctx, fragment); err != nil {
				return err
			}
		}
	}
}
