package models

import "time"

// DefaultWindowDuration is the lookback applied when the caller does not
// supply a time range.
const DefaultWindowDuration = time.Hour

// Window is the half-open time range a profiling request covers.
type Window struct {
	Start time.Time
	End   time.Time
}

// DefaultWindow returns the last hour ending at now.
func DefaultWindow(now time.Time) Window {
	return Window{Start: now.Add(-DefaultWindowDuration), End: now}
}
