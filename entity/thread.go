package entity

import "time"

// Thread is one persisted conversation between a user and a persona. It is
// identified by the (UserID, ThreadID) pair and never deleted by the
// processing pipeline.
type Thread struct {
	UserID    string    `json:"userId" dynamodbav:"userId"`
	ThreadID  string    `json:"threadId" dynamodbav:"threadId"`
	Persona   Persona   `json:"persona" dynamodbav:"persona"`
	Messages  []Message `json:"messages" dynamodbav:"messages"`
	Status    Status    `json:"status" dynamodbav:"status"`
	CreatedAt time.Time `json:"createdAt" dynamodbav:"createdAt"`

	// ExpiresAt is a unix epoch used as the store's time-to-live attribute.
	ExpiresAt int64 `json:"expiresAt" dynamodbav:"expiresAt"`
}
