package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PerformanceProfiler/serverless-performance-profiler/internal/models"
)

type fakeDynamo struct {
	item    map[string]types.AttributeValue
	getErr  error
	putErr  error
	gotKeys []map[string]types.AttributeValue
	puts    []*dynamodb.PutItemInput
}

func (f *fakeDynamo) GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.gotKeys = append(f.gotKeys, params.Key)
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &dynamodb.GetItemOutput{Item: f.item}, nil
}

func (f *fakeDynamo) PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.puts = append(f.puts, params)
	if f.putErr != nil {
		return nil, f.putErr
	}
	return &dynamodb.PutItemOutput{}, nil
}

func TestTenantStoreGet(t *testing.T) {
	db := &fakeDynamo{item: map[string]types.AttributeValue{
		"tenantId": &types.AttributeValueMemberS{Value: "acme"},
		"roleArn":  &types.AttributeValueMemberS{Value: "arn:aws:iam::123456789012:role/profiler"},
		"region":   &types.AttributeValueMemberS{Value: "eu-central-1"},
	}}
	s := NewTenantStore(db, "tenants")

	tenant, err := s.Get(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "acme", tenant.ID)
	assert.Equal(t, "arn:aws:iam::123456789012:role/profiler", tenant.RoleArn)
	assert.Equal(t, "eu-central-1", tenant.Region)
}

func TestTenantStoreGetNotFound(t *testing.T) {
	s := NewTenantStore(&fakeDynamo{}, "tenants")

	_, err := s.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrTenantNotFound)
}

func TestTenantStoreGetPropagatesReadError(t *testing.T) {
	s := NewTenantStore(&fakeDynamo{getErr: errors.New("provisioned throughput exceeded")}, "tenants")

	_, err := s.Get(context.Background(), "acme")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrTenantNotFound)
}

func TestPricingStoreGet(t *testing.T) {
	db := &fakeDynamo{item: map[string]types.AttributeValue{
		"region":                  &types.AttributeValueMemberS{Value: "us-east-1"},
		"invocationCost":          &types.AttributeValueMemberS{Value: "0.0000002"},
		"durationCostPerGbSecond": &types.AttributeValueMemberS{Value: "0.00001667"},
	}}
	s := NewPricingStore(db, "pricing")

	record, found, err := s.Get(context.Background(), "us-east-1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "0.0000002", record.InvocationCost)
	assert.Equal(t, "0.00001667", record.DurationCostPerGBSecond)
}

func TestPricingStoreGetMissingIsNotAnError(t *testing.T) {
	s := NewPricingStore(&fakeDynamo{}, "pricing")

	_, found, err := s.Get(context.Background(), "mars-north-1")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestReportStorePut(t *testing.T) {
	db := &fakeDynamo{}
	s := NewReportStore(db, "reports")
	generatedAt := time.Unix(1700000000, 0)

	err := s.Put(context.Background(), "acme", generatedAt, models.FunctionMetrics{
		FunctionName:     "checkout",
		Latency:          312.5,
		Errors:           2,
		Invocations:      940,
		ColdStarts:       3,
		Cost:             0.000813,
		MemoryAllocation: 256,
	})
	require.NoError(t, err)
	require.Len(t, db.puts, 1)

	item := db.puts[0].Item
	assert.Equal(t, &types.AttributeValueMemberS{Value: "acme"}, item["tenantId"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "1700000000#checkout"}, item["recordKey"])
	assert.Equal(t, &types.AttributeValueMemberS{Value: "checkout"}, item["functionName"])
}

func TestReportStorePutPropagatesWriteError(t *testing.T) {
	s := NewReportStore(&fakeDynamo{putErr: errors.New("table missing")}, "reports")

	err := s.Put(context.Background(), "acme", time.Now(), models.FunctionMetrics{FunctionName: "fn"})
	assert.Error(t, err)
}
