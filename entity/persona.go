package entity

// Persona is the immutable configuration attached to a thread at creation.
type Persona struct {
	Name            string `json:"name" yaml:"name" dynamodbav:"name"`
	Prompt          string `json:"prompt" yaml:"prompt" dynamodbav:"prompt"`
	ModelID         string `json:"modelId" yaml:"modelId" dynamodbav:"modelId"`
	KnowledgeBaseID string `json:"knowledgeBaseId,omitempty" yaml:"knowledgeBaseId,omitempty" dynamodbav:"knowledgeBaseId,omitempty"`
	Voice           string `json:"voice,omitempty" yaml:"voice,omitempty" dynamodbav:"voice,omitempty"`
}
