package engine

import (
	_ "embed"
	"strings"
	"text/template"

	"github.com/threadcast/threadcast/entity"
	"github.com/threadcast/threadcast/errors"
	"github.com/threadcast/threadcast/internal/sliceutils"
)

var (
	//go:embed data/instructions/chat.md.tmpl
	chatInst     string
	chatInstTmpl = template.Must(template.New("chatInst").Parse(chatInst))
)

// maxHistoryTurns caps how much of the conversation is replayed into the
// transcript.
const maxHistoryTurns = 200

type chatPromptValues struct {
	System  string
	Context string
	History []entity.Message
	Query   string
}

// BuildPrompt renders the persona's system prompt, the conversation so far
// and the new user query as a running transcript ending in an open
// `Assistant:` turn.
func BuildPrompt(persona entity.Persona, history []entity.Message, query, contextText string) (string, error) {
	values := chatPromptValues{
		System:  strings.TrimSpace(persona.Prompt),
		Context: contextText,
		History: sliceutils.Cut(history, -maxHistoryTurns, len(history)),
		Query:   query,
	}

	var buf strings.Builder
	if err := chatInstTmpl.Execute(&buf, values); err != nil {
		return "", errors.Wrapf(err, "failed to execute prompt template")
	}

	return strings.TrimSpace(buf.String()) + "\nAssistant:", nil
}
