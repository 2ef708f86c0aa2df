package engine

import (
	"encoding/json"
	"sort"
	"strings"

	"github.com/samber/lo"

	"github.com/threadcast/threadcast/errors"
)

type modelSpec struct {
	maxTokens      int
	stopSequences  []string
	marshalRequest func(spec modelSpec, prompt string) ([]byte, error)
	decodeFragment func(payload []byte) (string, error)
}

// models is the table of model identifiers the engine accepts. Anything not
// listed here fails fast with ErrModelNotSupported before any invocation.
var models = map[string]modelSpec{
	"anthropic.claude-v2":         anthropicSpec,
	"anthropic.claude-v2:1":       anthropicSpec,
	"anthropic.claude-instant-v1": anthropicSpec,
	"amazon.titan-text-express-v1": {
		maxTokens:      512,
		stopSequences:  []string{"User:"},
		marshalRequest: marshalTitanRequest,
		decodeFragment: decodeTitanFragment,
	},
}

var anthropicSpec = modelSpec{
	maxTokens:      1024,
	stopSequences:  []string{"\nUser:", "\n\nHuman:"},
	marshalRequest: marshalAnthropicRequest,
	decodeFragment: decodeAnthropicFragment,
}

// SupportedModels lists the accepted model identifiers, sorted.
func SupportedModels() []string {
	ids := lo.Keys(models)
	sort.Strings(ids)
	return ids
}

func marshalAnthropicRequest(spec modelSpec, prompt string) ([]byte, error) {
	// The Claude completion API requires its own turn markers around the
	// transcript: a leading Human turn and a trailing open Assistant turn.
	body := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(prompt), "Assistant:"))

	raw, err := json.Marshal(struct {
		Prompt            string   `json:"prompt"`
		MaxTokensToSample int      `json:"max_tokens_to_sample"`
		StopSequences     []string `json:"stop_sequences"`
	}{
		Prompt:            "\n\nHuman: " + body + "\n\nAssistant:",
		MaxTokensToSample: spec.maxTokens,
		StopSequences:     spec.stopSequences,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal anthropic request")
	}
	return raw, nil
}

func decodeAnthropicFragment(payload []byte) (string, error) {
	var part struct {
		Completion string `json:"completion"`
	}
	if err := json.Unmarshal(payload, &part); err != nil {
		return "", errors.Wrapf(err, "failed to decode anthropic fragment")
	}
	return part.Completion, nil
}

func marshalTitanRequest(spec modelSpec, prompt string) ([]byte, error) {
	raw, err := json.Marshal(struct {
		InputText            string `json:"inputText"`
		TextGenerationConfig struct {
			MaxTokenCount int      `json:"maxTokenCount"`
			StopSequences []string `json:"stopSequences"`
		} `json:"textGenerationConfig"`
	}{
		InputText: prompt,
		TextGenerationConfig: struct {
			MaxTokenCount int      `json:"maxTokenCount"`
			StopSequences []string `json:"stopSequences"`
		}{
			MaxTokenCount: spec.maxTokens,
			StopSequences: spec.stopSequences,
		},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal titan request")
	}
	return raw, nil
}

func decodeTitanFragment(payload []byte) (string, error) {
	var part struct {
		OutputText string `json:"outputText"`
	}
	if err := json.Unmarshal(payload, &part); err != nil {
		return "", errors.Wrapf(err, "failed to decode titan fragment")
	}
	return part.OutputText, nil
}
