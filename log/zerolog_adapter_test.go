package log_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"go.pilab.hu/taskboard/log"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	return out
}

func TestZerologAdapter_FieldsAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewZerologAdapterWriter(&buf, zerolog.InfoLevel)

	logger.Debug(context.Background(), "hidden")
	assert.Zero(t, buf.Len(), "debug must be filtered at info level")

	logger.With(map[string]interface{}{"component": "test"}).
		Error(context.Background(), "boom", errors.New("bad"), map[string]interface{}{"project_id": "p1"})

	line := decodeLine(t, &buf)
	assert.Equal(t, "error", line["level"])
	assert.Equal(t, "boom", line["message"])
	assert.Equal(t, "bad", line["error"])
	assert.Equal(t, "p1", line["project_id"])
	assert.Equal(t, "test", line["component"])
	assert.NotContains(t, line, "trace_id")
}

func TestZerologAdapter_AddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	logger := log.NewZerologAdapterWriter(&buf, zerolog.DebugLevel)

	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "op")
	defer span.End()

	logger.Info(ctx, "traced")

	line := decodeLine(t, &buf)
	assert.Equal(t, span.SpanContext().TraceID().String(), line["trace_id"])
	assert.Equal(t, span.SpanContext().SpanID().String(), line["span_id"])
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, log.OrNop(nil))
	l := log.NewNop()
	assert.Equal(t, l, log.OrNop(l))
}
