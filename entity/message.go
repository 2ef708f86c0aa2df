package entity

import "time"

type Sender string

const (
	SenderUser      Sender = "User"
	SenderAssistant Sender = "Assistant"
)

// Message is one immutable turn in a conversation. Messages are append-only;
// the assistant's message is written once, in full, after its stream ends.
type Message struct {
	ID         string    `json:"id" dynamodbav:"id"`
	Sender     Sender    `json:"sender" dynamodbav:"sender"`
	Content    string    `json:"content" dynamodbav:"content"`
	AudioClips []string  `json:"audioClips,omitempty" dynamodbav:"audioClips,omitempty"`
	CreatedAt  time.Time `json:"createdAt" dynamodbav:"createdAt"`
}
