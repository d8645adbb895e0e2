// Package store holds the DynamoDB-backed collaborators: the tenant
// configuration table, the per-region pricing table, and the append-only
// report table.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/PerformanceProfiler/serverless-performance-profiler/internal/models"
)

// ErrTenantNotFound marks a tenant id with no configuration row.
var ErrTenantNotFound = errors.New("tenant not found")

// GetItemAPI is the read subset of the DynamoDB client.
type GetItemAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
}

// PutItemAPI is the write subset of the DynamoDB client.
type PutItemAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// TenantStore reads tenant configuration records.
type TenantStore struct {
	client GetItemAPI
	table  string
}

func NewTenantStore(client GetItemAPI, table string) *TenantStore {
	return &TenantStore{client: client, table: table}
}

// Get returns the tenant's configuration or ErrTenantNotFound.
func (s *TenantStore) Get(ctx context.Context, tenantID string) (models.Tenant, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"tenantId": &types.AttributeValueMemberS{Value: tenantID},
		},
	})
	if err != nil {
		return models.Tenant{}, fmt.Errorf("error reading tenant %s: %w", tenantID, err)
	}
	if len(out.Item) == 0 {
		return models.Tenant{}, fmt.Errorf("%w: %s", ErrTenantNotFound, tenantID)
	}

	var tenant models.Tenant
	if err := attributevalue.UnmarshalMap(out.Item, &tenant); err != nil {
		return models.Tenant{}, fmt.Errorf("error decoding tenant %s: %w", tenantID, err)
	}
	tenant.ID = tenantID
	return tenant, nil
}

// PricingStore reads raw pricing rows; it implements pricing.Source.
type PricingStore struct {
	client GetItemAPI
	table  string
}

func NewPricingStore(client GetItemAPI, table string) *PricingStore {
	return &PricingStore{client: client, table: table}
}

// Get returns the raw pricing row for a region. Absence is not an error; the
// resolver substitutes defaults.
func (s *PricingStore) Get(ctx context.Context, region string) (models.PricingRecord, bool, error) {
	out, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.table),
		Key: map[string]types.AttributeValue{
			"region": &types.AttributeValueMemberS{Value: region},
		},
	})
	if err != nil {
		return models.PricingRecord{}, false, fmt.Errorf("error reading pricing for %s: %w", region, err)
	}
	if len(out.Item) == 0 {
		return models.PricingRecord{}, false, nil
	}

	var record models.PricingRecord
	if err := attributevalue.UnmarshalMap(out.Item, &record); err != nil {
		return models.PricingRecord{}, false, fmt.Errorf("error decoding pricing for %s: %w", region, err)
	}
	return record, true, nil
}

// reportRecord is the persisted shape of one function's metrics. recordKey
// combines timestamp and function name so records from the same request stay
// naturally distinct under the tenant partition.
type reportRecord struct {
	TenantID         string  `dynamodbav:"tenantId"`
	RecordKey        string  `dynamodbav:"recordKey"`
	FunctionName     string  `dynamodbav:"functionName"`
	Timestamp        int64   `dynamodbav:"timestamp"`
	Latency          float64 `dynamodbav:"latency"`
	Errors           float64 `dynamodbav:"errors"`
	Invocations      float64 `dynamodbav:"invocations"`
	ColdStarts       int     `dynamodbav:"coldStarts"`
	Cost             float64 `dynamodbav:"cost"`
	MemoryAllocation int32   `dynamodbav:"memoryAllocation"`
}

// ReportStore appends per-function metric records.
type ReportStore struct {
	client PutItemAPI
	table  string
}

func NewReportStore(client PutItemAPI, table string) *ReportStore {
	return &ReportStore{client: client, table: table}
}

// Put appends one function's metrics. There is no read-modify-write:
// identical requests produce independent records.
func (s *ReportStore) Put(ctx context.Context, tenantID string, generatedAt time.Time, m models.FunctionMetrics) error {
	record := reportRecord{
		TenantID:         tenantID,
		RecordKey:        fmt.Sprintf("%d#%s", generatedAt.Unix(), m.FunctionName),
		FunctionName:     m.FunctionName,
		Timestamp:        generatedAt.Unix(),
		Latency:          m.Latency,
		Errors:           m.Errors,
		Invocations:      m.Invocations,
		ColdStarts:       m.ColdStarts,
		Cost:             m.Cost,
		MemoryAllocation: m.MemoryAllocation,
	}

	item, err := attributevalue.MarshalMap(record)
	if err != nil {
		return fmt.Errorf("error encoding report for %s: %w", m.FunctionName, err)
	}

	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.table),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("error writing report for %s: %w", m.FunctionName, err)
	}
	return nil
}
