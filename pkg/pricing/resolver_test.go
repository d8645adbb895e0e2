package pricing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/PerformanceProfiler/serverless-performance-profiler/internal/models"
)

type fakeSource struct {
	record models.PricingRecord
	found  bool
	err    error
	calls  int
}

func (f *fakeSource) Get(ctx context.Context, region string) (models.PricingRecord, bool, error) {
	f.calls++
	return f.record, f.found, f.err
}

func defaults() models.PricingProfile {
	return models.PricingProfile{
		InvocationCost:          DefaultInvocationCost,
		DurationCostPerGBSecond: DefaultDurationCostPerGBSecond,
	}
}

func TestResolveValidRecord(t *testing.T) {
	src := &fakeSource{
		record: models.PricingRecord{
			Region:                  "eu-west-1",
			InvocationCost:          "0.0000002",
			DurationCostPerGBSecond: "0.00001667",
		},
		found: true,
	}
	r := NewResolver(src, zap.NewNop())

	got := r.Resolve(context.Background(), "eu-west-1")
	assert.Equal(t, 0.0000002, got.InvocationCost)
	assert.Equal(t, 0.00001667, got.DurationCostPerGBSecond)
}

func TestResolveMissingRecordFallsBack(t *testing.T) {
	r := NewResolver(&fakeSource{found: false}, zap.NewNop())
	assert.Equal(t, defaults(), r.Resolve(context.Background(), "mars-north-1"))
}

func TestResolveLookupErrorFallsBack(t *testing.T) {
	r := NewResolver(&fakeSource{err: errors.New("throttled")}, zap.NewNop())
	assert.Equal(t, defaults(), r.Resolve(context.Background(), "us-east-1"))
}

func TestResolveMalformedValuesFallBack(t *testing.T) {
	for _, raw := range []string{"", "not-a-number", "NaN", "+Inf"} {
		src := &fakeSource{
			record: models.PricingRecord{InvocationCost: raw, DurationCostPerGBSecond: raw},
			found:  true,
		}
		r := NewResolver(src, zap.NewNop())
		assert.Equal(t, defaults(), r.Resolve(context.Background(), "us-east-1"), "raw=%q", raw)
	}
}

func TestResolvePerFieldFallback(t *testing.T) {
	src := &fakeSource{
		record: models.PricingRecord{
			InvocationCost:          "0.0000005",
			DurationCostPerGBSecond: "garbage",
		},
		found: true,
	}
	r := NewResolver(src, zap.NewNop())

	got := r.Resolve(context.Background(), "us-east-1")
	assert.Equal(t, 0.0000005, got.InvocationCost)
	assert.Equal(t, DefaultDurationCostPerGBSecond, got.DurationCostPerGBSecond)
}
