package aws

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeLogEvents struct {
	calls   []*cloudwatchlogs.FilterLogEventsInput
	outputs []*cloudwatchlogs.FilterLogEventsOutput
	err     error
}

func (f *fakeLogEvents) FilterLogEvents(ctx context.Context, params *cloudwatchlogs.FilterLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.FilterLogEventsOutput, error) {
	f.calls = append(f.calls, params)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.outputs) == 0 {
		return &cloudwatchlogs.FilterLogEventsOutput{}, nil
	}
	out := f.outputs[0]
	f.outputs = f.outputs[1:]
	return out, nil
}

func reportLine(init bool) types.FilteredLogEvent {
	msg := "REPORT RequestId: 8f5 Duration: 102.2 ms Billed Duration: 103 ms"
	if init {
		msg += " Init Duration: 450.1 ms"
	}
	return types.FilteredLogEvent{Message: aws.String(msg)}
}

func TestCountColdStarts(t *testing.T) {
	client := &fakeLogEvents{outputs: []*cloudwatchlogs.FilterLogEventsOutput{
		{Events: []types.FilteredLogEvent{reportLine(true), reportLine(false), reportLine(true)}},
	}}
	c := NewLogCorrelator(client, zap.NewNop())

	got := c.CountColdStarts(context.Background(), "checkout", testWindow())
	assert.Equal(t, 2, got)

	require.Len(t, client.calls, 1)
	in := client.calls[0]
	assert.Equal(t, "/aws/lambda/checkout", aws.ToString(in.LogGroupName))
	assert.Equal(t, testWindow().Start.UnixMilli(), aws.ToInt64(in.StartTime))
	assert.Equal(t, testWindow().End.UnixMilli(), aws.ToInt64(in.EndTime))
	assert.Equal(t, `"Init Duration"`, aws.ToString(in.FilterPattern))
}

func TestCountColdStartsFollowsPagination(t *testing.T) {
	token := "next"
	client := &fakeLogEvents{outputs: []*cloudwatchlogs.FilterLogEventsOutput{
		{Events: []types.FilteredLogEvent{reportLine(true)}, NextToken: &token},
		{Events: []types.FilteredLogEvent{reportLine(true)}},
	}}
	c := NewLogCorrelator(client, zap.NewNop())

	got := c.CountColdStarts(context.Background(), "checkout", testWindow())
	assert.Equal(t, 2, got)
	require.Len(t, client.calls, 2)
	assert.Equal(t, &token, client.calls[1].NextToken)
}

func TestCountColdStartsAbsorbsFailure(t *testing.T) {
	c := NewLogCorrelator(&fakeLogEvents{err: errors.New("log group missing")}, zap.NewNop())

	got := c.CountColdStarts(context.Background(), "checkout", testWindow())
	assert.Zero(t, got)
}

func TestIsColdStartEvent(t *testing.T) {
	assert.True(t, IsColdStartEvent("REPORT ... Init Duration: 450.1 ms"))
	assert.False(t, IsColdStartEvent("REPORT ... Billed Duration: 103 ms"))
	assert.False(t, IsColdStartEvent(""))
}
