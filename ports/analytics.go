package ports

import "context"

// MetricRow is one row of named numeric metrics from the analytics
// collaborator, optionally attributed to a single video.
type MetricRow struct {
	VideoID string
	Values  map[string]float64
}

// Value returns the named metric and whether the row carries it.
func (r MetricRow) Value(metric string) (float64, bool) {
	v, ok := r.Values[metric]
	return v, ok
}

// AnalyticsSource is the boundary to the video platform's analytics API.
// Implementations own fetching, auth and retries; the analysis pipeline only
// sees rows. Dates use the calendar-day layout (core.DateLayout).
type AnalyticsSource interface {
	// VideoMetrics returns per-video rows for the given videos and window.
	VideoMetrics(ctx context.Context, videoIDs []string, startDate, endDate string, metrics []string) ([]MetricRow, error)

	// AggregateMetrics returns channel-level rows for the given window.
	AggregateMetrics(ctx context.Context, startDate, endDate string, metrics []string) ([]MetricRow, error)
}
