package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// TestTraceContextPropagation checks that a handler span started with
// StartSpan joins the trace created by otelmux, including a caller's traceparent.
func TestTraceContextPropagation(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	prevProvider := otel.GetTracerProvider()
	prevPropagator := otel.GetTextMapPropagator()
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	defer func() {
		otel.SetTracerProvider(prevProvider)
		otel.SetTextMapPropagator(prevPropagator)
	}()

	r := mux.NewRouter()
	r.Use(otelmux.Middleware(ServiceName))
	r.HandleFunc("/api/v1/tasks/analyze", func(w http.ResponseWriter, r *http.Request) {
		_, span := StartSpan(r.Context(), "scoring.rank")
		EndSpan(span, nil)
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodPost)

	const parentTraceID = "4bf92f3577b34da6a3ce929d0e0e4736"

	tests := []struct {
		name        string
		traceParent string
	}{
		{name: "without existing trace"},
		{name: "with existing trace", traceParent: "00-" + parentTraceID + "-00f067aa0ba902b7-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exporter.Reset()

			req := httptest.NewRequest(http.MethodPost, "/api/v1/tasks/analyze", nil)
			if tt.traceParent != "" {
				req.Header.Set("traceparent", tt.traceParent)
			}
			rr := httptest.NewRecorder()
			r.ServeHTTP(rr, req)

			if rr.Code != http.StatusOK {
				t.Errorf("Expected status OK, got %d", rr.Code)
			}
			if err := tp.ForceFlush(context.Background()); err != nil {
				t.Errorf("Failed to flush tracer provider: %v", err)
			}

			spans := exporter.GetSpans()
			if len(spans) != 2 {
				t.Fatalf("Expected handler and server spans, got %d", len(spans))
			}
			inner, outer := spans[0], spans[1]
			if inner.SpanContext.TraceID() != outer.SpanContext.TraceID() {
				t.Error("Expected handler span to share the server span's trace")
			}
			if inner.Parent.SpanID() != outer.SpanContext.SpanID() {
				t.Error("Expected handler span to be a child of the server span")
			}
			if tt.traceParent != "" && outer.SpanContext.TraceID().String() != parentTraceID {
				t.Errorf("Expected trace id %s, got %s", parentTraceID, outer.SpanContext.TraceID())
			}
		})
	}
}
