package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/PerformanceProfiler/serverless-performance-profiler/internal/models"
)

const (
	lambdaNamespace     = "AWS/Lambda"
	metricPeriodSeconds = 300

	// GetMetricData accepts at most 500 queries per call. Chunks are cut at
	// the nearest multiple of three so a function's trio never splits across
	// calls.
	maxQueriesPerCall = 498
)

// Query identifiers tie each series back to its (function, metric) pair.
// GetMetricData ids must start with a lowercase letter, so they are derived
// from the function's position, not its name.

func LatencyQueryID(i int) string     { return fmt.Sprintf("fn%d_latency", i) }
func ErrorsQueryID(i int) string      { return fmt.Sprintf("fn%d_errors", i) }
func InvocationsQueryID(i int) string { return fmt.Sprintf("fn%d_invocations", i) }

// MetricDataAPI is the CloudWatch subset the fetcher needs.
type MetricDataAPI interface {
	GetMetricData(ctx context.Context, params *cloudwatch.GetMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricDataOutput, error)
}

// MetricFetcher issues the batched latency/errors/invocations query for a
// request's whole function list.
type MetricFetcher struct {
	client MetricDataAPI
}

func NewMetricFetcher(client MetricDataAPI) *MetricFetcher {
	return &MetricFetcher{client: client}
}

// Fetch builds 3×N metric queries and runs them in as few GetMetricData calls
// as the per-call query limit allows, merging results by query id. Series are
// ordered newest first; a missing or empty series reads as zero downstream.
// Any call failure fails the whole fetch.
func (f *MetricFetcher) Fetch(ctx context.Context, functionNames []string, window models.Window) (map[string][]float64, error) {
	queries := buildQueries(functionNames)
	results := make(map[string][]float64, len(queries))

	for start := 0; start < len(queries); start += maxQueriesPerCall {
		end := min(start+maxQueriesPerCall, len(queries))
		if err := f.fetchBatch(ctx, queries[start:end], window, results); err != nil {
			return nil, err
		}
	}
	return results, nil
}

func (f *MetricFetcher) fetchBatch(ctx context.Context, queries []types.MetricDataQuery, window models.Window, results map[string][]float64) error {
	var nextToken *string
	for {
		out, err := f.client.GetMetricData(ctx, &cloudwatch.GetMetricDataInput{
			StartTime:         aws.Time(window.Start),
			EndTime:           aws.Time(window.End),
			MetricDataQueries: queries,
			ScanBy:            types.ScanByTimestampDescending,
			NextToken:         nextToken,
		})
		if err != nil {
			return fmt.Errorf("error fetching metric data: %w", err)
		}

		for _, r := range out.MetricDataResults {
			id := aws.ToString(r.Id)
			results[id] = append(results[id], r.Values...)
		}

		if aws.ToString(out.NextToken) == "" {
			return nil
		}
		nextToken = out.NextToken
	}
}

func buildQueries(functionNames []string) []types.MetricDataQuery {
	queries := make([]types.MetricDataQuery, 0, 3*len(functionNames))
	for i, name := range functionNames {
		queries = append(queries,
			metricQuery(LatencyQueryID(i), "Duration", string(types.StatisticAverage), name),
			metricQuery(ErrorsQueryID(i), "Errors", string(types.StatisticSum), name),
			metricQuery(InvocationsQueryID(i), "Invocations", string(types.StatisticSum), name),
		)
	}
	return queries
}

func metricQuery(id, metricName, stat, functionName string) types.MetricDataQuery {
	return types.MetricDataQuery{
		Id: aws.String(id),
		MetricStat: &types.MetricStat{
			Metric: &types.Metric{
				Namespace:  aws.String(lambdaNamespace),
				MetricName: aws.String(metricName),
				Dimensions: []types.Dimension{
					{
						Name:  aws.String("FunctionName"),
						Value: aws.String(functionName),
					},
				},
			},
			Period: aws.Int32(metricPeriodSeconds),
			Stat:   aws.String(stat),
		},
		ReturnData: aws.Bool(true),
	}
}

// FirstSample returns the most recent sample for a query id, or 0 when the
// series is absent or empty.
func FirstSample(results map[string][]float64, id string) float64 {
	if values := results[id]; len(values) > 0 {
		return values[0]
	}
	return 0
}
