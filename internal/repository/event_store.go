// Package repository persists sessions as event streams in DynamoDB.
// One table holds every event: PK=SESSION#<id>, SK=VERSION#<n> zero-padded
// so version order and lexical order agree, plus a GSI keyed by event type.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

const (
	pkPrefix      = "SESSION#"
	skPrefixEvent = "VERSION#"
	gsiName       = "GSI1"
	gsiPKPrefix   = "TYPE#"
)

// ErrVersionConflict is returned when an append races another writer for the
// same session. Callers may reload and retry.
var ErrVersionConflict = errors.New("repository: event version conflict")

// StoredEvent is one persisted domain event.
type StoredEvent struct {
	SessionID string
	EventType string
	Data      json.RawMessage
	Version   int
	Timestamp time.Time
}

// EventStore is the append/replay interface the session repository consumes.
type EventStore interface {
	Append(ctx context.Context, sessionID string, events []StoredEvent) error
	Events(ctx context.Context, sessionID string, fromVersion int) ([]StoredEvent, error)
	LatestVersion(ctx context.Context, sessionID string) (int, error)
}

// dynamodbAPI is the minimal DynamoDB interface required by DynamoStore.
// Defined here for testability.
type dynamodbAPI interface {
	Query(ctx context.Context, in *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
}

// DynamoStore is the DynamoDB-backed event store.
type DynamoStore struct {
	api       dynamodbAPI
	tableName string
}

// NewDynamoStore creates a DynamoStore for the given table.
func NewDynamoStore(api dynamodbAPI, tableName string) (*DynamoStore, error) {
	if api == nil {
		return nil, errors.New("repository: api must not be nil")
	}
	if strings.TrimSpace(tableName) == "" {
		return nil, errors.New("repository: table name must not be empty")
	}
	return &DynamoStore{api: api, tableName: tableName}, nil
}

func sessionPK(sessionID string) string {
	return pkPrefix + sessionID
}

func versionSK(version int) string {
	return fmt.Sprintf("%s%010d", skPrefixEvent, version)
}

// Append writes the events in one transaction. Each put is conditional on
// the version key not existing, so two writers racing on the same stream
// cannot both succeed.
func (s *DynamoStore) Append(ctx context.Context, sessionID string, events []StoredEvent) error {
	if len(events) == 0 {
		return nil
	}

	current, err := s.LatestVersion(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("repository: Append latest version: %w", err)
	}
	if expected := events[0].Version - 1; current != expected {
		return fmt.Errorf("repository: Append expected version %d, found %d: %w", expected, current, ErrVersionConflict)
	}

	items := make([]types.TransactWriteItem, 0, len(events))
	for _, ev := range events {
		items = append(items, types.TransactWriteItem{
			Put: &types.Put{
				TableName:           aws.String(s.tableName),
				Item:                eventItem(ev),
				ConditionExpression: aws.String("attribute_not_exists(PK) AND attribute_not_exists(SK)"),
			},
		})
	}

	if _, err := s.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items}); err != nil {
		var canceled *types.TransactionCanceledException
		if errors.As(err, &canceled) {
			return fmt.Errorf("repository: Append: %w", ErrVersionConflict)
		}
		return fmt.Errorf("repository: Append: %w", err)
	}
	return nil
}

// Events returns the session's events with version >= fromVersion, in order.
func (s *DynamoStore) Events(ctx context.Context, sessionID string, fromVersion int) ([]StoredEvent, error) {
	out, err := s.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND SK >= :sk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: sessionPK(sessionID)},
			":sk": &types.AttributeValueMemberS{Value: versionSK(fromVersion)},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("repository: Events query: %w", err)
	}

	events := make([]StoredEvent, 0, len(out.Items))
	for _, item := range out.Items {
		ev, err := itemToEvent(item)
		if err != nil {
			return nil, fmt.Errorf("repository: Events decode: %w", err)
		}
		events = append(events, ev)
	}
	return events, nil
}

// LatestVersion returns the highest stored version, or 0 for a new stream.
func (s *DynamoStore) LatestVersion(ctx context.Context, sessionID string) (int, error) {
	out, err := s.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: sessionPK(sessionID)},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
		ConsistentRead:   aws.Bool(true),
	})
	if err != nil {
		return 0, fmt.Errorf("repository: LatestVersion query: %w", err)
	}
	if len(out.Items) == 0 {
		return 0, nil
	}
	version, err := intAttr(out.Items[0], "version")
	if err != nil {
		return 0, fmt.Errorf("repository: LatestVersion decode: %w", err)
	}
	return version, nil
}

// EventsByType queries the GSI for events of one type, newest last.
func (s *DynamoStore) EventsByType(ctx context.Context, eventType string, limit int) ([]StoredEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	out, err := s.api.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		IndexName:              aws.String(gsiName),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: gsiPKPrefix + eventType},
		},
		Limit: aws.Int32(int32(limit)),
	})
	if err != nil {
		return nil, fmt.Errorf("repository: EventsByType query: %w", err)
	}
	events := make([]StoredEvent, 0, len(out.Items))
	for _, item := range out.Items {
		ev, err := itemToEvent(item)
		if err != nil {
			return nil, fmt.Errorf("repository: EventsByType decode: %w", err)
		}
		events = append(events, ev)
	}
	return events, nil
}

func eventItem(ev StoredEvent) map[string]types.AttributeValue {
	ts := ev.Timestamp.UTC().Format(time.RFC3339Nano)
	return map[string]types.AttributeValue{
		"PK":        &types.AttributeValueMemberS{Value: sessionPK(ev.SessionID)},
		"SK":        &types.AttributeValueMemberS{Value: versionSK(ev.Version)},
		"sessionId": &types.AttributeValueMemberS{Value: ev.SessionID},
		"eventType": &types.AttributeValueMemberS{Value: ev.EventType},
		"eventData": &types.AttributeValueMemberS{Value: string(ev.Data)},
		"version":   &types.AttributeValueMemberN{Value: strconv.Itoa(ev.Version)},
		"timestamp": &types.AttributeValueMemberS{Value: ts},
		"GSI1PK":    &types.AttributeValueMemberS{Value: gsiPKPrefix + ev.EventType},
		"GSI1SK":    &types.AttributeValueMemberS{Value: ts},
	}
}

func itemToEvent(item map[string]types.AttributeValue) (StoredEvent, error) {
	sessionID, err := strAttr(item, "sessionId")
	if err != nil {
		return StoredEvent{}, err
	}
	eventType, err := strAttr(item, "eventType")
	if err != nil {
		return StoredEvent{}, err
	}
	data, err := strAttr(item, "eventData")
	if err != nil {
		return StoredEvent{}, err
	}
	version, err := intAttr(item, "version")
	if err != nil {
		return StoredEvent{}, err
	}
	tsRaw, err := strAttr(item, "timestamp")
	if err != nil {
		return StoredEvent{}, err
	}
	ts, err := time.Parse(time.RFC3339Nano, tsRaw)
	if err != nil {
		return StoredEvent{}, fmt.Errorf("parse timestamp: %w", err)
	}
	return StoredEvent{
		SessionID: sessionID,
		EventType: eventType,
		Data:      json.RawMessage(data),
		Version:   version,
		Timestamp: ts,
	}, nil
}

func strAttr(item map[string]types.AttributeValue, key string) (string, error) {
	v, ok := item[key]
	if !ok {
		return "", fmt.Errorf("repository: missing attribute %q", key)
	}
	s, ok := v.(*types.AttributeValueMemberS)
	if !ok {
		return "", fmt.Errorf("repository: attribute %q is not a string", key)
	}
	return s.Value, nil
}

func intAttr(item map[string]types.AttributeValue, key string) (int, error) {
	v, ok := item[key]
	if !ok {
		return 0, fmt.Errorf("repository: missing attribute %q", key)
	}
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0, fmt.Errorf("repository: attribute %q is not a number", key)
	}
	parsed, err := strconv.Atoi(n.Value)
	if err != nil {
		return 0, fmt.Errorf("repository: parse attribute %q: %w", key, err)
	}
	return parsed, nil
}
