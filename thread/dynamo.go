package thread

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/samber/lo"

	"github.com/threadcast/threadcast/entity"
	"github.com/threadcast/threadcast/errors"
)

type (
	dynamoClient interface {
		GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
		PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
		UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	}

	// DynamoStore keeps each thread as one item keyed by (userId, threadId),
	// with the message log as a list attribute appended via list_append so
	// concurrent appends cannot clobber each other.
	DynamoStore struct {
		logger    *slog.Logger
		client    dynamoClient
		table     string
		threadTTL time.Duration
	}
)

var _ Store = (*DynamoStore)(nil)

func NewDynamoStore(logger *slog.Logger, client dynamoClient, table string, threadTTL time.Duration) *DynamoStore {
	return &DynamoStore{
		logger:    logger,
		client:    client,
		table:     table,
		threadTTL: threadTTL,
	}
}

func (s *DynamoStore) key(userID, threadID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"userId":   &types.AttributeValueMemberS{Value: userID},
		"threadId": &types.AttributeValueMemberS{Value: threadID},
	}
}

func (s *DynamoStore) CreateThread(ctx context.Context, userID, threadID string, persona entity.Persona) (*entity.Thread, error) {
	now := time.Now().UTC()
	thread := &entity.Thread{
		UserID:    userID,
		ThreadID:  threadID,
		Persona:   persona,
		Messages:  []entity.Message{},
		Status:    entity.StatusNew,
		CreatedAt: now,
		ExpiresAt: now.Add(s.threadTTL).Unix(),
	}

	item, err := attributevalue.MarshalMap(thread)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal thread")
	}

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(s.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(userId)"),
	}); err != nil {
		if isConditionFailed(err) {
			return nil, errors.Wrapf(errors.ErrInvalidConfig, "thread %s already exists", threadID)
		}
		return nil, errors.Wrapf(err, "failed to create thread")
	}

	return thread, nil
}

func (s *DynamoStore) GetThread(ctx context.Context, userID, threadID string) (*entity.Thread, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.table),
		Key:            s.key(userID, threadID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get thread")
	}
	if len(out.Item) == 0 {
		return nil, errors.Wrapf(errors.ErrThreadNotFound, "thread %s", threadID)
	}

	var thread entity.Thread
	if err := attributevalue.UnmarshalMap(out.Item, &thread); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal thread")
	}

	return &thread, nil
}

func (s *DynamoStore) GetMessages(ctx context.Context, userID, threadID string, order string, limit int) ([]entity.Message, error) {
	order = strings.ToUpper(order)
	if order != "ASC" && order != "DESC" {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "invalid order %q", order)
	}

	thread, err := s.GetThread(ctx, userID, threadID)
	if err != nil {
		return nil, err
	}

	messages := thread.Messages
	if order == "DESC" {
		messages = lo.Reverse(append([]entity.Message{}, messages...))
	}
	if limit > 0 && limit < len(messages) {
		messages = messages[:limit]
	}

	return messages, nil
}

func (s *DynamoStore) AppendMessage(ctx context.Context, userID, threadID string, message entity.Message) error {
	item, err := attributevalue.MarshalMap(message)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal message")
	}

	if _, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(s.table),
		Key:                 s.key(userID, threadID),
		UpdateExpression:    aws.String("SET messages = list_append(if_not_exists(messages, :empty), :message)"),
		ConditionExpression: aws.String("attribute_exists(userId)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":empty":   &types.AttributeValueMemberL{Value: []types.AttributeValue{}},
			":message": &types.AttributeValueMemberL{Value: []types.AttributeValue{&types.AttributeValueMemberM{Value: item}}},
		},
	}); err != nil {
		if isConditionFailed(err) {
			return errors.Wrapf(errors.ErrThreadNotFound, "thread %s", threadID)
		}
		return errors.Wrapf(err, "failed to append message")
	}

	return nil
}

func (s *DynamoStore) SetStatus(ctx context.Context, userID, threadID string, status entity.Status) error {
	if _, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(s.table),
		Key:                       s.key(userID, threadID),
		UpdateExpression:          aws.String("SET #status = :status"),
		ConditionExpression:       aws.String("attribute_exists(userId)"),
		ExpressionAttributeNames:  map[string]string{"#status": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{":status": &types.AttributeValueMemberS{Value: string(status)}},
	}); err != nil {
		if isConditionFailed(err) {
			return errors.Wrapf(errors.ErrThreadNotFound, "thread %s", threadID)
		}
		return errors.Wrapf(err, "failed to set status")
	}

	return nil
}

func (s *DynamoStore) MarkPending(ctx context.Context, userID, threadID string) error {
	if _, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                aws.String(s.table),
		Key:                      s.key(userID, threadID),
		UpdateExpression:         aws.String("SET #status = :pending"),
		ConditionExpression:      aws.String("attribute_exists(userId) AND (#status = :new OR #status = :complete)"),
		ExpressionAttributeNames: map[string]string{"#status": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pending":  &types.AttributeValueMemberS{Value: string(entity.StatusPending)},
			":new":      &types.AttributeValueMemberS{Value: string(entity.StatusNew)},
			":complete": &types.AttributeValueMemberS{Value: string(entity.StatusComplete)},
		},
	}); err != nil {
		if !isConditionFailed(err) {
			return errors.Wrapf(err, "failed to mark thread pending")
		}
		// The condition hides which clause failed; one read classifies it.
		if _, getErr := s.GetThread(ctx, userID, threadID); getErr != nil {
			return getErr
		}
		return errors.Wrapf(errors.ErrThreadBusy, "thread %s", threadID)
	}
	return nil
}

func isConditionFailed(err error) bool {
	var conditionErr *types.ConditionalCheckFailedException
	return errors.As(err, &conditionErr)
}
