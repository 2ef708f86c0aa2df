package queue

import (
	_ "embed"
	"encoding/json"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/threadcast/threadcast/entity"
	"github.com/threadcast/threadcast/errors"
)

//go:embed data/workitem.schema.json
var workItemSchema string

var compiledWorkItemSchema = func() *jsonschema.Schema {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("workitem.schema.json", strings.NewReader(workItemSchema)); err != nil {
		panic(err)
	}
	return compiler.MustCompile("workitem.schema.json")
}()

type (
	// WorkItem is the durable representation of one user request: the
	// authenticated identity, the request arguments, and the snapshot of
	// thread and persona data resolved by the admitting step.
	WorkItem struct {
		Identity  Identity  `json:"identity"`
		Arguments Arguments `json:"arguments"`
		Prev      Prev      `json:"prev"`
	}

	Identity struct {
		Sub string `json:"sub"`
	}

	Arguments struct {
		Input Input `json:"input"`
	}

	Input struct {
		ThreadID     string `json:"threadId"`
		Prompt       string `json:"prompt"`
		IncludeAudio bool   `json:"includeAudio"`
	}

	Prev struct {
		Result Result `json:"result"`
	}

	Result struct {
		Persona entity.Persona `json:"persona"`
		// omitempty: a nil history must not serialize as "messages": null,
		// which would fail the schema's array type on redecode.
		Messages []entity.Message `json:"messages,omitempty"`
		SK       string           `json:"sk,omitempty"`
	}
)

// DecodeWorkItem validates the raw queue message against the work item
// schema before unmarshalling, so shape mismatches fail fast with
// ErrMalformedWorkItem instead of surfacing as zero values downstream.
func DecodeWorkItem(raw []byte) (*WorkItem, error) {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil, errors.Wrapf(errors.ErrMalformedWorkItem, "not json: %v", err)
	}
	if err := compiledWorkItemSchema.Validate(value); err != nil {
		return nil, errors.Wrapf(errors.ErrMalformedWorkItem, "schema mismatch: %v", err)
	}

	var item WorkItem
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, errors.Wrapf(errors.ErrMalformedWorkItem, "decode: %v", err)
	}
	return &item, nil
}
