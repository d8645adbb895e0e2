// Package cost implements the pure Lambda cost model: a request charge per
// invocation plus a compute charge per GB-second of execution.
package cost

import (
	"math"

	"github.com/PerformanceProfiler/serverless-performance-profiler/internal/models"
)

// mbPerGB normalizes configured memory (MB) to the GB-second billing unit.
const mbPerGB = 1024.0

// Estimate computes the estimated USD cost for a function over the window,
// rounded to 6 decimal places. Zero invocations cost exactly zero. Inputs are
// guaranteed non-negative by the fetchers' fallback contracts.
func Estimate(invocations, avgLatencyMS float64, memoryMB int32, pricing models.PricingProfile) float64 {
	if invocations == 0 {
		return 0
	}

	memoryFraction := float64(memoryMB) / mbPerGB
	totalDurationSeconds := avgLatencyMS / 1000 * invocations

	total := invocations*pricing.InvocationCost +
		totalDurationSeconds*memoryFraction*pricing.DurationCostPerGBSecond

	return math.Round(total*1e6) / 1e6
}
