package otelmetrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/metric/noop"
)

func TestRecorder_ReusesInstrumentsPerName(t *testing.T) {
	recorder := NewRecorder(noop.NewMeterProvider().Meter("test"))
	ctx := context.Background()

	recorder.IncCounter(ctx, "banklink.operation.success", 1, map[string]string{"operation": "link_bank_account"})
	recorder.IncCounter(ctx, "banklink.operation.success", 1, nil)
	recorder.IncCounter(ctx, "banklink.operation.failure", 1, nil)
	recorder.ObserveHistogram(ctx, "banklink.operation.duration_ms", 12.5, map[string]string{"operation": "resume_linkage"})

	if len(recorder.counters) != 2 {
		t.Fatalf("expected 2 counters, got %d", len(recorder.counters))
	}
	if len(recorder.histograms) != 1 {
		t.Fatalf("expected 1 histogram, got %d", len(recorder.histograms))
	}
}

func TestRecorder_IgnoresBlankNames(t *testing.T) {
	recorder := NewRecorder(noop.NewMeterProvider().Meter("test"))
	recorder.IncCounter(context.Background(), "  ", 1, nil)
	recorder.ObserveHistogram(context.Background(), "", 1, nil)
	if len(recorder.counters) != 0 || len(recorder.histograms) != 0 {
		t.Fatalf("expected no instruments for blank names")
	}
}

func TestAttributes_SortedByKey(t *testing.T) {
	attrs := attributes(map[string]string{"stage": "exchanged", "operation": "link"})
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if string(attrs[0].Key) != "operation" || attrs[0].Value.AsString() != "link" {
		t.Fatalf("unexpected first attribute: %#v", attrs[0])
	}
}

func TestRecorder_NilSafe(t *testing.T) {
	var recorder *Recorder
	recorder.IncCounter(context.Background(), "x", 1, nil)
	recorder.ObserveHistogram(context.Background(), "x", 1, nil)
}
