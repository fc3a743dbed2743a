package repository

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/require"
)

type fakeDynamo struct {
	queryOut    *dynamodb.QueryOutput
	queryErr    error
	txErr       error
	lastQueryIn *dynamodb.QueryInput
	lastTxInput *dynamodb.TransactWriteItemsInput
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.lastQueryIn = in
	return f.queryOut, f.queryErr
}

func (f *fakeDynamo) TransactWriteItems(_ context.Context, in *dynamodb.TransactWriteItemsInput, _ ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error) {
	f.lastTxInput = in
	return &dynamodb.TransactWriteItemsOutput{}, f.txErr
}

func makeEventItem(sessionID, eventType string, version int) map[string]types.AttributeValue {
	ev := StoredEvent{
		SessionID: sessionID,
		EventType: eventType,
		Data:      json.RawMessage(`{"session_id":"` + sessionID + `"}`),
		Version:   version,
		Timestamp: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	return eventItem(ev)
}

func mustNewStore(t *testing.T, db *fakeDynamo) *DynamoStore {
	t.Helper()
	s, err := NewDynamoStore(db, "test-events")
	require.NoError(t, err)
	return s
}

func TestNewDynamoStore_Validation(t *testing.T) {
	_, err := NewDynamoStore(nil, "test-events")
	require.Error(t, err)

	_, err = NewDynamoStore(&fakeDynamo{}, "  ")
	require.Error(t, err)
}

func TestAppend_WritesConditionalPuts(t *testing.T) {
	db := &fakeDynamo{queryOut: &dynamodb.QueryOutput{}}
	s := mustNewStore(t, db)

	events := []StoredEvent{
		{SessionID: "sess-1", EventType: "SessionStarted", Data: json.RawMessage(`{}`), Version: 1, Timestamp: time.Now().UTC()},
		{SessionID: "sess-1", EventType: "MessageAdded", Data: json.RawMessage(`{}`), Version: 2, Timestamp: time.Now().UTC()},
	}
	require.NoError(t, s.Append(context.Background(), "sess-1", events))

	require.NotNil(t, db.lastTxInput)
	require.Len(t, db.lastTxInput.TransactItems, 2)
	put := db.lastTxInput.TransactItems[0].Put
	require.Equal(t, "test-events", *put.TableName)
	require.Equal(t, "attribute_not_exists(PK) AND attribute_not_exists(SK)", *put.ConditionExpression)

	pk := put.Item["PK"].(*types.AttributeValueMemberS)
	require.Equal(t, "SESSION#sess-1", pk.Value)
	sk := put.Item["SK"].(*types.AttributeValueMemberS)
	require.Equal(t, "VERSION#0000000001", sk.Value)
}

func TestAppend_StaleVersion(t *testing.T) {
	db := &fakeDynamo{queryOut: &dynamodb.QueryOutput{
		Items: []map[string]types.AttributeValue{makeEventItem("sess-1", "MessageAdded", 3)},
	}}
	s := mustNewStore(t, db)

	events := []StoredEvent{{SessionID: "sess-1", EventType: "MessageAdded", Data: json.RawMessage(`{}`), Version: 2, Timestamp: time.Now().UTC()}}
	err := s.Append(context.Background(), "sess-1", events)
	require.ErrorIs(t, err, ErrVersionConflict)
	require.Nil(t, db.lastTxInput)
}

func TestAppend_TransactionCanceled(t *testing.T) {
	db := &fakeDynamo{
		queryOut: &dynamodb.QueryOutput{},
		txErr:    &types.TransactionCanceledException{},
	}
	s := mustNewStore(t, db)

	events := []StoredEvent{{SessionID: "sess-1", EventType: "SessionStarted", Data: json.RawMessage(`{}`), Version: 1, Timestamp: time.Now().UTC()}}
	err := s.Append(context.Background(), "sess-1", events)
	require.ErrorIs(t, err, ErrVersionConflict)
}

func TestAppend_Empty(t *testing.T) {
	db := &fakeDynamo{}
	s := mustNewStore(t, db)
	require.NoError(t, s.Append(context.Background(), "sess-1", nil))
	require.Nil(t, db.lastQueryIn)
}

func TestEvents_HappyPath(t *testing.T) {
	db := &fakeDynamo{queryOut: &dynamodb.QueryOutput{
		Items: []map[string]types.AttributeValue{
			makeEventItem("sess-1", "SessionStarted", 1),
			makeEventItem("sess-1", "MessageAdded", 2),
		},
	}}
	s := mustNewStore(t, db)

	events, err := s.Events(context.Background(), "sess-1", 0)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "SessionStarted", events[0].EventType)
	require.Equal(t, 2, events[1].Version)

	require.NotNil(t, db.lastQueryIn)
	require.True(t, *db.lastQueryIn.ConsistentRead)
	pk := db.lastQueryIn.ExpressionAttributeValues[":pk"].(*types.AttributeValueMemberS)
	require.Equal(t, "SESSION#sess-1", pk.Value)
}

func TestEvents_QueryError(t *testing.T) {
	db := &fakeDynamo{queryErr: errors.New("throttled")}
	s := mustNewStore(t, db)
	_, err := s.Events(context.Background(), "sess-1", 0)
	require.Error(t, err)
}

func TestLatestVersion(t *testing.T) {
	db := &fakeDynamo{queryOut: &dynamodb.QueryOutput{
		Items: []map[string]types.AttributeValue{makeEventItem("sess-1", "MessageAdded", 5)},
	}}
	s := mustNewStore(t, db)

	version, err := s.LatestVersion(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Equal(t, 5, version)
	require.False(t, *db.lastQueryIn.ScanIndexForward)
	require.Equal(t, int32(1), *db.lastQueryIn.Limit)
}

func TestLatestVersion_EmptyStream(t *testing.T) {
	db := &fakeDynamo{queryOut: &dynamodb.QueryOutput{}}
	s := mustNewStore(t, db)
	version, err := s.LatestVersion(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Equal(t, 0, version)
}

func TestEventsByType_QueriesGSI(t *testing.T) {
	db := &fakeDynamo{queryOut: &dynamodb.QueryOutput{
		Items: []map[string]types.AttributeValue{makeEventItem("sess-1", "SessionStarted", 1)},
	}}
	s := mustNewStore(t, db)

	events, err := s.EventsByType(context.Background(), "SessionStarted", 0)
	require.NoError(t, err)
	require.Len(t, events, 1)

	require.Equal(t, "GSI1", *db.lastQueryIn.IndexName)
	require.Equal(t, int32(100), *db.lastQueryIn.Limit)
	pk := db.lastQueryIn.ExpressionAttributeValues[":pk"].(*types.AttributeValueMemberS)
	require.Equal(t, "TYPE#SessionStarted", pk.Value)
}

func TestItemToEvent_MissingAttribute(t *testing.T) {
	item := makeEventItem("sess-1", "SessionStarted", 1)
	delete(item, "eventType")
	_, err := itemToEvent(item)
	require.Error(t, err)
}
