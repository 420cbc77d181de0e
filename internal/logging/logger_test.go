package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInfoWritesJSONWithServiceFields(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "vehicle-park", "production")

	Info(context.Background(), "slot booked", "slot_id", 7)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "slot booked", record["msg"])
	assert.Equal(t, "vehicle-park", record["service"])
	assert.Equal(t, "production", record["environment"])
	assert.EqualValues(t, 7, record["slot_id"])
	assert.NotContains(t, record, "traceId")
}

func TestDebugSuppressedOutsideDevelopment(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "vehicle-park", "production")

	Debug(context.Background(), "noisy")
	assert.Empty(t, buf.String())

	InitWithWriter(&buf, "vehicle-park", "development")
	Debug(context.Background(), "noisy")
	assert.Contains(t, buf.String(), "noisy")
}

func TestWithContextAddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	InitWithWriter(&buf, "vehicle-park", "production")

	tp := sdktrace.NewTracerProvider()
	defer tp.Shutdown(context.Background())
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	Warn(ctx, "auto-park failed")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, span.SpanContext().TraceID().String(), record["traceId"])
	assert.Equal(t, span.SpanContext().SpanID().String(), record["spanId"])
}
