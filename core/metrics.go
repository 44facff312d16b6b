package core

import (
	"context"
	"maps"
)

// Operation metrics are named banklink.<operation>.total and
// banklink.<operation>.duration_ms and tagged with operation and status.
func OperationCounterName(operation string) string {
	return "banklink." + normalizeOperation(operation) + ".total"
}

func OperationDurationName(operation string) string {
	return "banklink." + normalizeOperation(operation) + ".duration_ms"
}

// NopMetricsRecorder is used when no recorder is configured.
type NopMetricsRecorder struct{}

func (NopMetricsRecorder) IncCounter(context.Context, string, int64, map[string]string) {}

func (NopMetricsRecorder) ObserveHistogram(context.Context, string, float64, map[string]string) {}

func cloneTags(tags map[string]string) map[string]string {
	copied := maps.Clone(tags)
	if copied == nil {
		copied = map[string]string{}
	}
	return copied
}

var _ MetricsRecorder = NopMetricsRecorder{}
