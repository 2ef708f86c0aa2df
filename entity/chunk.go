package entity

// ChunkType discriminates the payload carried by a Chunk.
type ChunkType string

const (
	ChunkTypeText   ChunkType = "text"
	ChunkTypeAudio  ChunkType = "audio"
	ChunkTypeStatus ChunkType = "status"
	ChunkTypeError  ChunkType = "error"
)

// Chunk is an ephemeral unit of streamed output. Chunks are never persisted;
// they exist only to drive live subscribers, which filter on the
// (UserID, ThreadID) pair. Text chunks carry the cumulative response so far,
// not the delta, so a late subscriber can rebuild state from the latest one.
type Chunk struct {
	UserID   string    `json:"userId"`
	ThreadID string    `json:"threadId"`
	Status   Status    `json:"status"`
	Type     ChunkType `json:"chunkType"`
	Content  string    `json:"chunk"`
}
