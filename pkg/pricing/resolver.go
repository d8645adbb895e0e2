// Package pricing resolves the per-region cost pair used by the cost
// estimator. Lookups are total: any failure falls back to the public Lambda
// on-demand prices so a missing or malformed pricing row can never fail a
// profiling request.
package pricing

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/PerformanceProfiler/serverless-performance-profiler/internal/models"
)

// Fallback prices in USD. These are the public Lambda on-demand rates and are
// used whenever the region has no usable pricing row.
const (
	DefaultInvocationCost          = 0.0000002
	DefaultDurationCostPerGBSecond = 0.0000166667
)

// Source reads the raw pricing row for a region. found is false when the
// region has no row at all.
type Source interface {
	Get(ctx context.Context, region string) (record models.PricingRecord, found bool, err error)
}

// Resolver turns a region into a usable PricingProfile.
type Resolver struct {
	source Source
	logger *zap.Logger
}

func NewResolver(source Source, logger *zap.Logger) *Resolver {
	return &Resolver{source: source, logger: logger}
}

// Resolve returns the pricing profile for a region. Each field falls back
// independently so one malformed value does not discard the other.
func (r *Resolver) Resolve(ctx context.Context, region string) models.PricingProfile {
	profile := models.PricingProfile{
		InvocationCost:          DefaultInvocationCost,
		DurationCostPerGBSecond: DefaultDurationCostPerGBSecond,
	}

	record, found, err := r.source.Get(ctx, region)
	if err != nil {
		r.logger.Warn("pricing lookup failed, using default prices",
			zap.String("region", region), zap.Error(err))
		return profile
	}
	if !found {
		r.logger.Warn("no pricing record for region, using default prices",
			zap.String("region", region))
		return profile
	}

	if v, err := parsePrice(record.InvocationCost); err != nil {
		r.logger.Warn("invocation cost unparseable, using default",
			zap.String("region", region), zap.Error(err))
	} else {
		profile.InvocationCost = v
	}

	if v, err := parsePrice(record.DurationCostPerGBSecond); err != nil {
		r.logger.Warn("duration cost unparseable, using default",
			zap.String("region", region), zap.Error(err))
	} else {
		profile.DurationCostPerGBSecond = v
	}

	return profile
}

// parsePrice parses a stored price string, rejecting NaN and infinities.
func parsePrice(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("error parsing price %q: %w", raw, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("price %q is not a finite number", raw)
	}
	return v, nil
}
