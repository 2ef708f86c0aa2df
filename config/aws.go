package config

import "os"

// AWSConfig names the external resources the runtime talks to. All of them
// are provisioned out of band; none are created by this code.
type AWSConfig struct {
	// Region used for every AWS client.
	// Default: us-east-1
	Region string

	// ThreadTable is the DynamoDB table holding threads, keyed by
	// (userId, threadId).
	ThreadTable string

	// QueueURL is the SQS queue carrying work items from the gate to the
	// worker.
	QueueURL string

	// AudioBucket receives synthesized audio clips.
	AudioBucket string

	// GraphQLEndpoint is the AppSync GraphQL URL used to publish chunks.
	GraphQLEndpoint string
}

func NewAWSConfig() *AWSConfig {
	return &AWSConfig{
		Region: "us-east-1",
	}
}

func NewAWSConfigFromEnv() *AWSConfig {
	c := NewAWSConfig()
	if v := os.Getenv("AWS_REGION"); v != "" {
		c.Region = v
	}
	c.ThreadTable = os.Getenv("THREAD_TABLE_NAME")
	c.QueueURL = os.Getenv("QUEUE_URL")
	c.AudioBucket = os.Getenv("AUDIO_BUCKET_NAME")
	c.GraphQLEndpoint = os.Getenv("GRAPHQL_ENDPOINT")
	return c
}
