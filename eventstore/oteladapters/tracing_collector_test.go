package oteladapters_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/probelab/assesscore/eventstore/oteladapters"
)

func Test_TracingCollector_StartAndFinishSpan(t *testing.T) {
	// arrange
	collector, exporter := newCollectorWithExporter(t)

	// act
	ctx, spanCtx := collector.StartSpan(context.Background(), "eventstore.append", map[string]string{
		"aggregate_id": "session-1",
		"event_type":   "SessionCreated",
	})
	collector.FinishSpan(spanCtx, "success", map[string]string{"rows_affected": "1"})

	// assert
	assert.NotNil(t, ctx)
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	span := spans[0]
	assert.Equal(t, "eventstore.append", span.Name)
	assert.Equal(t, codes.Ok, span.Status.Code)
	assertSpanHasAttribute(t, span, "aggregate_id", "session-1")
	assertSpanHasAttribute(t, span, "event_type", "SessionCreated")
	assertSpanHasAttribute(t, span, "rows_affected", "1")
}

func Test_TracingCollector_StatusMapping(t *testing.T) {
	collector, exporter := newCollectorWithExporter(t)

	testCases := []struct {
		status              string
		expectedCode        codes.Code
		expectedDescription string
	}{
		{"ok", codes.Ok, ""},
		{"success", codes.Ok, ""},
		{"completed", codes.Ok, ""},
		{"idempotent", codes.Ok, ""},
		{"error", codes.Error, "operation failed"},
		{"failed", codes.Error, "operation failed"},
		{"canceled", codes.Error, "operation canceled"},
		{"cancelled", codes.Error, "operation canceled"},
		{"timeout", codes.Error, "operation timed out"},
		{"conflict", codes.Error, "version conflict"},
	}

	for _, tc := range testCases {
		t.Run(tc.status, func(t *testing.T) {
			// arrange
			exporter.Reset()

			// act
			_, spanCtx := collector.StartSpan(context.Background(), "test", nil)
			collector.FinishSpan(spanCtx, tc.status, nil)

			// assert
			spans := exporter.GetSpans()
			require.Len(t, spans, 1)
			assert.Equal(t, tc.expectedCode, spans[0].Status.Code)
			assert.Equal(t, tc.expectedDescription, spans[0].Status.Description)
		})
	}
}

func Test_TracingCollector_UnknownStatusBecomesAttribute(t *testing.T) {
	// arrange
	collector, exporter := newCollectorWithExporter(t)

	// act
	_, spanCtx := collector.StartSpan(context.Background(), "test", nil)
	collector.FinishSpan(spanCtx, "retrying", nil)

	// assert
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assertSpanHasAttribute(t, spans[0], "status", "retrying")
}

func Test_TracingCollector_FinishSpanIgnoresForeignSpanContext(t *testing.T) {
	// arrange
	collector, exporter := newCollectorWithExporter(t)

	// act + assert
	assert.NotPanics(t, func() {
		collector.FinishSpan(&foreignSpanContext{}, "success", nil)
	})
	assert.Empty(t, exporter.GetSpans())
}

func Test_TracingCollector_PropagatesParentContext(t *testing.T) {
	// arrange
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	tracer := provider.Tracer("test")
	collector := oteladapters.NewTracingCollector(tracer)

	parentCtx, parentSpan := tracer.Start(context.Background(), "command.handle")
	defer parentSpan.End()

	// act
	_, childSpanCtx := collector.StartSpan(parentCtx, "eventstore.query", nil)
	collector.FinishSpan(childSpanCtx, "success", nil)

	// assert
	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, parentSpan.SpanContext().SpanID(), spans[0].Parent.SpanID())
}

/*** Test helpers ***/

// foreignSpanContext implements eventstore.SpanContext without coming from
// the collector.
type foreignSpanContext struct{}

func (f *foreignSpanContext) SetStatus(string)         {}
func (f *foreignSpanContext) AddAttribute(_, _ string) {}

func newCollectorWithExporter(t *testing.T) (*oteladapters.TracingCollector, *tracetest.InMemoryExporter) {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	return oteladapters.NewTracingCollector(provider.Tracer("test")), exporter
}

func assertSpanHasAttribute(t *testing.T, span tracetest.SpanStub, key, expectedValue string) {
	t.Helper()

	for _, attr := range span.Attributes {
		if attr.Key == attribute.Key(key) && attr.Value.AsString() == expectedValue {
			return
		}
	}

	assert.Failf(t, "missing span attribute", "expected %s=%s on span %s", key, expectedValue, span.Name)
}
