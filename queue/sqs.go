package queue

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/threadcast/threadcast/errors"
)

type (
	sqsClient interface {
		SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
		ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
		DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
	}

	// Received pairs a decoded work item with the receipt handle needed to
	// delete it. A malformed body leaves Item nil and records the decode
	// error so the consumer can drop it without churning.
	Received struct {
		Item          *WorkItem
		ReceiptHandle string
		Err           error
	}

	// SQSQueue is the durable work queue between the gate and the worker.
	// Delivery is at-least-once; the conversation store's conditional
	// updates absorb redelivery.
	SQSQueue struct {
		logger *slog.Logger
		client sqsClient
		url    string
	}
)

func NewSQSQueue(logger *slog.Logger, client sqsClient, url string) *SQSQueue {
	return &SQSQueue{
		logger: logger,
		client: client,
		url:    url,
	}
}

func (q *SQSQueue) Enqueue(ctx context.Context, item *WorkItem) error {
	body, err := json.Marshal(item)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal work item")
	}

	if _, err := q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.url),
		MessageBody: aws.String(string(body)),
	}); err != nil {
		return errors.Wrapf(err, "failed to enqueue work item")
	}

	return nil
}

func (q *SQSQueue) Receive(ctx context.Context, max int, wait time.Duration) ([]Received, error) {
	if max <= 0 || max > 10 {
		max = 10
	}

	out, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.url),
		MaxNumberOfMessages: int32(max),
		WaitTimeSeconds:     int32(wait / time.Second),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to receive work items")
	}

	received := make([]Received, 0, len(out.Messages))
	for _, message := range out.Messages {
		r := Received{}
		if message.ReceiptHandle != nil {
			r.ReceiptHandle = *message.ReceiptHandle
		}
		if message.Body != nil {
			r.Item, r.Err = DecodeWorkItem([]byte(*message.Body))
		} else {
			r.Err = errors.Wrapf(errors.ErrMalformedWorkItem, "empty body")
		}
		received = append(received, r)
	}

	return received, nil
}

func (q *SQSQueue) Delete(ctx context.Context, receiptHandle string) error {
	if _, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.url),
		ReceiptHandle: aws.String(receiptHandle),
	}); err != nil {
		return errors.Wrapf(err, "failed to delete work item")
	}
	return nil
}
