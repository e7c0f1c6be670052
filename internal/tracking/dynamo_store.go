package tracking

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// DynamoStore persists tracking entries in DynamoDB, keyed by tracking
// number. Last-writer-wins is acceptable here: the projector is the only
// writer and per-shipment facts arrive in order on one partition.
type DynamoStore struct {
	client    *dynamodb.Client
	tableName string
}

// dynamoEntry is the DynamoDB item structure
type dynamoEntry struct {
	TrackingNumber string         `dynamodbav:"tracking_number"`
	ShipmentID     string         `dynamodbav:"shipment_id"`
	OrderID        string         `dynamodbav:"order_id"`
	Status         string         `dynamodbav:"status"`
	History        []dynamoChange `dynamodbav:"history"`
	UpdatedAt      string         `dynamodbav:"updated_at"`
}

type dynamoChange struct {
	Status   string `dynamodbav:"status"`
	Location string `dynamodbav:"location,omitempty"`
	Notes    string `dynamodbav:"notes,omitempty"`
	At       string `dynamodbav:"at"`
}

func NewDynamoStore(client *dynamodb.Client, tableName string) *DynamoStore {
	return &DynamoStore{client: client, tableName: tableName}
}

func (ds *DynamoStore) Put(ctx context.Context, e *Entry) error {
	item := dynamoEntry{
		TrackingNumber: e.TrackingNumber,
		ShipmentID:     e.ShipmentID,
		OrderID:        e.OrderID,
		Status:         e.Status,
		UpdatedAt:      e.UpdatedAt.Format(timeFormat),
	}
	for _, h := range e.History {
		item.History = append(item.History, dynamoChange{
			Status:   h.Status,
			Location: h.Location,
			Notes:    h.Notes,
			At:       h.At.Format(timeFormat),
		})
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("marshal tracking entry: %w", err)
	}

	_, err = ds.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(ds.tableName),
		Item:      av,
	})
	if err != nil {
		return fmt.Errorf("put tracking entry: %w", err)
	}
	return nil
}

func (ds *DynamoStore) Get(ctx context.Context, trackingNumber string) (*Entry, error) {
	result, err := ds.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(ds.tableName),
		Key: map[string]types.AttributeValue{
			"tracking_number": &types.AttributeValueMemberS{Value: trackingNumber},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get tracking entry: %w", err)
	}
	if result.Item == nil {
		return nil, ErrEntryNotFound
	}

	var item dynamoEntry
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("unmarshal tracking entry: %w", err)
	}
	return item.toEntry()
}

const timeFormat = "2006-01-02T15:04:05.999999999Z07:00"

func (item dynamoEntry) toEntry() (*Entry, error) {
	entry := &Entry{
		TrackingNumber: item.TrackingNumber,
		ShipmentID:     item.ShipmentID,
		OrderID:        item.OrderID,
		Status:         item.Status,
	}
	var err error
	if entry.UpdatedAt, err = parseTime(item.UpdatedAt); err != nil {
		return nil, err
	}
	for _, h := range item.History {
		at, err := parseTime(h.At)
		if err != nil {
			return nil, err
		}
		entry.History = append(entry.History, HistoryEntry{
			Status:   h.Status,
			Location: h.Location,
			Notes:    h.Notes,
			At:       at,
		})
	}
	return entry, nil
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(timeFormat, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse tracking timestamp %q: %w", value, err)
	}
	return t, nil
}
