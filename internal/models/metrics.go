package models

// FunctionMetrics represents one function's aggregated telemetry for the
// requested window. Fields left at their zero value mean the corresponding
// backend had no data (or failed and was substituted with the documented
// fallback), never that the function was skipped.
type FunctionMetrics struct {
	FunctionName     string  `json:"functionName"`
	Latency          float64 `json:"latency"`          // average duration in ms, most recent 5-minute bucket
	Errors           float64 `json:"errors"`           // error count in window
	Invocations      float64 `json:"invocations"`      // invocation count in window
	ColdStarts       int     `json:"coldStarts"`       // invocations that paid an init penalty
	Cost             float64 `json:"cost"`             // estimated USD, 6-decimal precision
	MemoryAllocation int32   `json:"memoryAllocation"` // configured memory in MB
}

// MetricsReport is the response body for a profiling request. Metrics is
// ordered identically to the requested function-name list.
type MetricsReport struct {
	TenantID string            `json:"tenantId"`
	Metrics  []FunctionMetrics `json:"metrics"`
}

// PricingProfile is the resolved cost pair for a tenant's region.
type PricingProfile struct {
	InvocationCost          float64 // USD per invocation
	DurationCostPerGBSecond float64 // USD per GB-second of execution
}

// PricingRecord is the raw, unparsed pricing row as stored. Values are kept
// as strings so malformed rows degrade to defaults instead of failing reads.
type PricingRecord struct {
	Region                  string `dynamodbav:"region"`
	InvocationCost          string `dynamodbav:"invocationCost"`
	DurationCostPerGBSecond string `dynamodbav:"durationCostPerGbSecond"`
}
