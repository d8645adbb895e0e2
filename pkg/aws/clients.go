// Package aws wraps the AWS SDK clients this service talks to: STS for
// credential delegation and, through a per-tenant session, CloudWatch,
// CloudWatch Logs, and Lambda in the tenant's own account.
package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"go.uber.org/zap"

	"github.com/PerformanceProfiler/serverless-performance-profiler/internal/models"
)

// Session is the per-request view of a tenant's telemetry backends, bound to
// delegated credentials and the tenant's region. It lives for one request.
type Session struct {
	metrics *MetricFetcher
	logs    *LogCorrelator
	config  *ConfigFetcher
}

// NewSession builds the delegated client set from credentials and region.
func NewSession(creds aws.Credentials, region string, logger *zap.Logger) *Session {
	cfg := aws.Config{
		Region: region,
		Credentials: credentials.NewStaticCredentialsProvider(
			creds.AccessKeyID, creds.SecretAccessKey, creds.SessionToken),
	}

	return &Session{
		metrics: NewMetricFetcher(cloudwatch.NewFromConfig(cfg)),
		logs:    NewLogCorrelator(cloudwatchlogs.NewFromConfig(cfg), logger),
		config:  NewConfigFetcher(lambda.NewFromConfig(cfg), logger),
	}
}

func (s *Session) FetchMetrics(ctx context.Context, functionNames []string, window models.Window) (map[string][]float64, error) {
	return s.metrics.Fetch(ctx, functionNames, window)
}

func (s *Session) CountColdStarts(ctx context.Context, functionName string, window models.Window) int {
	return s.logs.CountColdStarts(ctx, functionName, window)
}

func (s *Session) MemorySize(ctx context.Context, functionName string) int32 {
	return s.config.MemorySize(ctx, functionName)
}

// Opener exchanges a tenant's delegated role for a telemetry Session.
type Opener struct {
	broker *CredentialBroker
	logger *zap.Logger
}

func NewOpener(broker *CredentialBroker, logger *zap.Logger) *Opener {
	return &Opener{broker: broker, logger: logger}
}

// Open assumes the tenant's role and returns a session scoped to the tenant's
// region. A rejected delegation surfaces as ErrDelegationRejected.
func (o *Opener) Open(ctx context.Context, tenant models.Tenant) (*Session, error) {
	if tenant.RoleArn == "" {
		return nil, fmt.Errorf("%w: tenant %s has no delegated role", ErrDelegationRejected, tenant.ID)
	}

	creds, err := o.broker.Assume(ctx, tenant.RoleArn, tenant.ID)
	if err != nil {
		return nil, err
	}

	return NewSession(creds, tenant.Region, o.logger), nil
}
