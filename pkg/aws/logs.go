package aws

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"go.uber.org/zap"

	"github.com/PerformanceProfiler/serverless-performance-profiler/internal/models"
)

// coldStartMarker is the fragment the Lambda runtime appends to a REPORT line
// when an invocation paid an init penalty.
const coldStartMarker = "Init Duration"

// coldStartFilterPattern narrows server-side filtering to report lines that
// carry the marker; matches are still confirmed with IsColdStartEvent.
const coldStartFilterPattern = `"Init Duration"`

// IsColdStartEvent reports whether a log message marks a cold start.
func IsColdStartEvent(message string) bool {
	return strings.Contains(message, coldStartMarker)
}

// LogGroupForFunction returns the function's execution log group.
func LogGroupForFunction(functionName string) string {
	return "/aws/lambda/" + functionName
}

// FilterLogEventsAPI is the CloudWatch Logs subset the correlator needs.
type FilterLogEventsAPI interface {
	FilterLogEvents(ctx context.Context, params *cloudwatchlogs.FilterLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.FilterLogEventsOutput, error)
}

// LogCorrelator counts cold starts from a function's execution logs.
type LogCorrelator struct {
	client FilterLogEventsAPI
	logger *zap.Logger
}

func NewLogCorrelator(client FilterLogEventsAPI, logger *zap.Logger) *LogCorrelator {
	return &LogCorrelator{client: client, logger: logger}
}

// CountColdStarts counts init-duration report lines in the window. Every
// failure mode (missing log group, access denied, throttling) is absorbed to
// a count of 0 with a warning; a single function's logs never fail the batch.
func (c *LogCorrelator) CountColdStarts(ctx context.Context, functionName string, window models.Window) int {
	count := 0
	var nextToken *string

	for {
		out, err := c.client.FilterLogEvents(ctx, &cloudwatchlogs.FilterLogEventsInput{
			LogGroupName:  aws.String(LogGroupForFunction(functionName)),
			StartTime:     aws.Int64(window.Start.UnixMilli()),
			EndTime:       aws.Int64(window.End.UnixMilli()),
			FilterPattern: aws.String(coldStartFilterPattern),
			NextToken:     nextToken,
		})
		if err != nil {
			c.logger.Warn("cold start log query failed, counting 0",
				zap.String("function", functionName), zap.Error(err))
			return 0
		}

		for _, event := range out.Events {
			if IsColdStartEvent(aws.ToString(event.Message)) {
				count++
			}
		}

		if out.NextToken == nil {
			return count
		}
		nextToken = out.NextToken
	}
}
