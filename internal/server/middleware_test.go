package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func tracedRouter(spans *tracetest.SpanRecorder) http.Handler {
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))

	r := chi.NewRouter()
	r.Use(TracingMiddleware("test", otelhttp.WithTracerProvider(tp)))
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {})
	r.Route("/api/slots", func(r chi.Router) {
		r.Get("/find/{plate}", func(w http.ResponseWriter, r *http.Request) {})
	})
	return r
}

func TestTracingSpanNamedAfterRoute(t *testing.T) {
	spans := tracetest.NewSpanRecorder()
	router := tracedRouter(spans)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/slots/find/ABC123", nil))

	ended := spans.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, "GET /api/slots/find/{plate}", ended[0].Name())
}

func TestTracingSkipsHealth(t *testing.T) {
	spans := tracetest.NewSpanRecorder()
	router := tracedRouter(spans)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Empty(t, spans.Ended())
}
