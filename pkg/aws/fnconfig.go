package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"go.uber.org/zap"
)

// DefaultMemorySizeMB is substituted when the configuration lookup fails;
// it is the smallest allocation Lambda offers.
const DefaultMemorySizeMB int32 = 128

// FunctionConfigAPI is the Lambda subset the fetcher needs.
type FunctionConfigAPI interface {
	GetFunctionConfiguration(ctx context.Context, params *lambda.GetFunctionConfigurationInput, optFns ...func(*lambda.Options)) (*lambda.GetFunctionConfigurationOutput, error)
}

// ConfigFetcher reads a function's memory allocation, the cost model's
// resource input.
type ConfigFetcher struct {
	client FunctionConfigAPI
	logger *zap.Logger
}

func NewConfigFetcher(client FunctionConfigAPI, logger *zap.Logger) *ConfigFetcher {
	return &ConfigFetcher{client: client, logger: logger}
}

// MemorySize returns the function's configured memory in MB. Any failure
// yields DefaultMemorySizeMB with a warning; it never propagates.
func (f *ConfigFetcher) MemorySize(ctx context.Context, functionName string) int32 {
	out, err := f.client.GetFunctionConfiguration(ctx, &lambda.GetFunctionConfigurationInput{
		FunctionName: aws.String(functionName),
	})
	if err != nil {
		f.logger.Warn("function configuration lookup failed, using default memory size",
			zap.String("function", functionName), zap.Error(err))
		return DefaultMemorySizeMB
	}
	if out.MemorySize == nil {
		return DefaultMemorySizeMB
	}
	return *out.MemorySize
}
