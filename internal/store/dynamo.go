package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoDB key prefixes for the single-table session design.
const (
	pkUserPrefix = "USER#"
	pkContactSep = "#CONTACT#"
	skKeyPrefix  = "KEY#"

	// DefaultSessionTTL is used when no TTL is configured.
	DefaultSessionTTL = 24 * time.Hour
)

// DynamoAPI is the subset of *dynamodb.Client the session store uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, in *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// DynamoSessions implements session.Store on DynamoDB. Items carry an
// expiresAt attribute for DynamoDB's native TTL, so no sweeper is needed.
type DynamoSessions struct {
	client    DynamoAPI
	tableName string
	ttl       time.Duration
	now       func() time.Time
}

// NewDynamoSessions creates a session store on tableName. A zero ttl uses
// DefaultSessionTTL.
func NewDynamoSessions(client DynamoAPI, tableName string, ttl time.Duration) *DynamoSessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &DynamoSessions{client: client, tableName: tableName, ttl: ttl, now: time.Now}
}

// sessionItem is the stored shape. Data holds the raw JSON blob.
type sessionItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	Data      string `dynamodbav:"data"`
	UpdatedAt int64  `dynamodbav:"updatedAt"`
	ExpiresAt int64  `dynamodbav:"expiresAt"`
}

func sessionKey(userID, contactID, key string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pkUserPrefix + userID + pkContactSep + contactID},
		"SK": &types.AttributeValueMemberS{Value: skKeyPrefix + key},
	}
}

func (s *DynamoSessions) ReadAllFor(ctx context.Context, userID, contactID, key string) (json.RawMessage, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(s.tableName),
		Key:            sessionKey(userID, contactID, key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("GetItem session %s: %w", key, err)
	}
	if out.Item == nil {
		return nil, nil
	}

	var item sessionItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshal session %s: %w", key, err)
	}

	// DynamoDB deletes expired items lazily; treat them as gone.
	if item.ExpiresAt > 0 && item.ExpiresAt < s.now().Unix() {
		return nil, nil
	}
	return json.RawMessage(item.Data), nil
}

func (s *DynamoSessions) WriteAllFor(ctx context.Context, userID, contactID, key string, data json.RawMessage) error {
	now := s.now()
	item, err := attributevalue.MarshalMap(sessionItem{
		Data:      string(data),
		UpdatedAt: now.Unix(),
	})
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", key, err)
	}
	for k, v := range sessionKey(userID, contactID, key) {
		item[k] = v
	}
	item["expiresAt"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(now.Add(s.ttl).Unix(), 10)}

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("PutItem session %s: %w", key, err)
	}
	return nil
}

func (s *DynamoSessions) DeleteAllFor(ctx context.Context, userID, contactID, key string) error {
	if _, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key:       sessionKey(userID, contactID, key),
	}); err != nil {
		return fmt.Errorf("DeleteItem session %s: %w", key, err)
	}
	return nil
}
