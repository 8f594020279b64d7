package analytics

import (
	"context"
	"fmt"

	"expstat/ports"
)

// StaticSource serves pre-parsed metric rows keyed by date window. It backs
// request-scoped analyses where the caller ships the analytics payload along
// with the experiment instead of the service fetching it.
type StaticSource struct {
	windows map[string][]ports.MetricRow
}

// NewStaticSource creates an empty source. Add windows before handing it to
// an analyzer.
func NewStaticSource() *StaticSource {
	return &StaticSource{windows: make(map[string][]ports.MetricRow)}
}

// AddWindow stores the rows for a date window.
func (s *StaticSource) AddWindow(startDate, endDate string, rows []ports.MetricRow) {
	s.windows[windowKey(startDate, endDate)] = rows
}

// VideoMetrics returns the stored rows for the window. Per-video filtering is
// left to the caller, which already selects rows by video ID.
func (s *StaticSource) VideoMetrics(_ context.Context, _ []string, startDate, endDate string, _ []string) ([]ports.MetricRow, error) {
	return s.rows(startDate, endDate)
}

// AggregateMetrics returns the stored rows for the window.
func (s *StaticSource) AggregateMetrics(_ context.Context, startDate, endDate string, _ []string) ([]ports.MetricRow, error) {
	return s.rows(startDate, endDate)
}

func (s *StaticSource) rows(startDate, endDate string) ([]ports.MetricRow, error) {
	rows, ok := s.windows[windowKey(startDate, endDate)]
	if !ok {
		return nil, fmt.Errorf("no analytics rows provided for window %s to %s", startDate, endDate)
	}
	return rows, nil
}

func windowKey(startDate, endDate string) string {
	return startDate + "/" + endDate
}
