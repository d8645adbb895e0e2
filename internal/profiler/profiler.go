// Package profiler runs the request-scoped aggregation pipeline: tenant
// lookup, pricing resolution, credential delegation, one batched metric
// fetch, then a bounded per-function fan-out that correlates logs, reads
// configuration, estimates cost, and persists each result.
package profiler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/PerformanceProfiler/serverless-performance-profiler/internal/models"
	pkgaws "github.com/PerformanceProfiler/serverless-performance-profiler/pkg/aws"
	"github.com/PerformanceProfiler/serverless-performance-profiler/pkg/cost"
)

// DefaultRegion is assumed when a tenant's configuration omits one.
const DefaultRegion = "us-east-1"

// DefaultConcurrency caps in-flight per-function tasks so large function
// lists cannot overwhelm the log and configuration backends.
const DefaultConcurrency = 8

// TenantSource reads tenant configuration.
type TenantSource interface {
	Get(ctx context.Context, tenantID string) (models.Tenant, error)
}

// PricingResolver resolves the cost pair for a region; it is total.
type PricingResolver interface {
	Resolve(ctx context.Context, region string) models.PricingProfile
}

// Telemetry is a tenant-scoped view of the delegated telemetry backends.
type Telemetry interface {
	FetchMetrics(ctx context.Context, functionNames []string, window models.Window) (map[string][]float64, error)
	CountColdStarts(ctx context.Context, functionName string, window models.Window) int
	MemorySize(ctx context.Context, functionName string) int32
}

// TelemetryOpener exchanges a tenant's delegated role for a Telemetry session.
type TelemetryOpener interface {
	Open(ctx context.Context, tenant models.Tenant) (Telemetry, error)
}

// OpenerFunc adapts a function to TelemetryOpener.
type OpenerFunc func(ctx context.Context, tenant models.Tenant) (Telemetry, error)

func (f OpenerFunc) Open(ctx context.Context, tenant models.Tenant) (Telemetry, error) {
	return f(ctx, tenant)
}

// ReportSink appends per-function results.
type ReportSink interface {
	Put(ctx context.Context, tenantID string, generatedAt time.Time, m models.FunctionMetrics) error
}

// Profiler assembles one MetricsReport per request.
type Profiler struct {
	tenants     TenantSource
	pricing     PricingResolver
	telemetry   TelemetryOpener
	reports     ReportSink
	logger      *zap.Logger
	concurrency int
	now         func() time.Time
}

func New(tenants TenantSource, pricing PricingResolver, telemetry TelemetryOpener, reports ReportSink, logger *zap.Logger, concurrency int) *Profiler {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Profiler{
		tenants:     tenants,
		pricing:     pricing,
		telemetry:   telemetry,
		reports:     reports,
		logger:      logger,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// Profile produces exactly one FunctionMetrics per requested function, in
// request order. Per-function degradations (missing logs, failed config
// lookups) become fallback values; only tenant/credential resolution, the
// batched metric query, and persistence writes can fail the request.
func (p *Profiler) Profile(ctx context.Context, tenantID string, functionNames []string, window models.Window) (models.MetricsReport, error) {
	tenant, err := p.tenants.Get(ctx, tenantID)
	if err != nil {
		return models.MetricsReport{}, err
	}
	if tenant.Region == "" {
		tenant.Region = DefaultRegion
	}

	pricing := p.pricing.Resolve(ctx, tenant.Region)

	session, err := p.telemetry.Open(ctx, tenant)
	if err != nil {
		return models.MetricsReport{}, err
	}

	series, err := session.FetchMetrics(ctx, functionNames, window)
	if err != nil {
		return models.MetricsReport{}, err
	}

	p.logger.Debug("fanning out per-function pipeline",
		zap.String("tenant", tenantID),
		zap.Int("functions", len(functionNames)),
		zap.Int("concurrency", p.concurrency))

	generatedAt := p.now()
	results := make([]models.FunctionMetrics, len(functionNames))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, name := range functionNames {
		g.Go(func() error {
			m := models.FunctionMetrics{
				FunctionName: name,
				Latency:      pkgaws.FirstSample(series, pkgaws.LatencyQueryID(i)),
				Errors:       pkgaws.FirstSample(series, pkgaws.ErrorsQueryID(i)),
				Invocations:  pkgaws.FirstSample(series, pkgaws.InvocationsQueryID(i)),
			}
			m.ColdStarts = session.CountColdStarts(gctx, name, window)
			m.MemoryAllocation = session.MemorySize(gctx, name)
			m.Cost = cost.Estimate(m.Invocations, m.Latency, m.MemoryAllocation, pricing)

			if err := p.reports.Put(gctx, tenantID, generatedAt, m); err != nil {
				return fmt.Errorf("error persisting report for %s: %w", name, err)
			}

			// Each task owns exactly one slot, so the response keeps the
			// request's ordering no matter which task finishes first.
			results[i] = m
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return models.MetricsReport{}, err
	}
	if err := ctx.Err(); err != nil {
		return models.MetricsReport{}, err
	}

	return models.MetricsReport{TenantID: tenantID, Metrics: results}, nil
}

// IsAuthorizationError reports whether err should surface as a 4xx
// authorization failure rather than an infrastructure fault.
func IsAuthorizationError(err error) bool {
	return errors.Is(err, pkgaws.ErrDelegationRejected)
}
