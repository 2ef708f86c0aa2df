package delivery

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/threadcast/threadcast/entity"
)

// Writer renders chunks to a stream, printing only the suffix each
// cumulative text chunk adds. Used by the local REPL.
type Writer struct {
	mu      sync.Mutex
	w       io.Writer
	printed map[string]int
}

var _ Publisher = (*Writer)(nil)

func NewWriter(w io.Writer) *Writer {
	return &Writer{
		w:       w,
		printed: make(map[string]int),
	}
}

func (p *Writer) SendChunk(_ context.Context, chunk entity.Chunk) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := chunk.UserID + "/" + chunk.ThreadID
	switch chunk.Type {
	case entity.ChunkTypeText:
		if n := p.printed[key]; n < len(chunk.Content) {
			fmt.Fprint(p.w, chunk.Content[n:])
			p.printed[key] = len(chunk.Content)
		}
	case entity.ChunkTypeAudio:
		fmt.Fprintf(p.w, "\n[audio] %s\n", chunk.Content)
	case entity.ChunkTypeStatus:
		fmt.Fprintf(p.w, "\n[%s]\n", chunk.Status)
		delete(p.printed, key)
	case entity.ChunkTypeError:
		fmt.Fprintf(p.w, "\n[error] %s\n", chunk.Content)
	}
	return nil
}
