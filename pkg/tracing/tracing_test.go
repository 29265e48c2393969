package tracing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.False(t, cfg.Enabled)
	assert.Equal(t, "coursebundler", cfg.ServiceName)
	assert.Equal(t, "http://localhost:14268/api/traces", cfg.JaegerURL)
	assert.Equal(t, 1.0, cfg.SampleRate)
}

func TestInit_DisabledIsNoop(t *testing.T) {
	tp, err := Init(DefaultConfig())
	require.NoError(t, err)
	assert.NoError(t, tp.Shutdown(context.Background()))
}

func TestSpanHelpers_WithoutProvider(t *testing.T) {
	ctx, span := StartSpan(context.Background(), "test.operation")
	require.NotNil(t, span)
	defer span.End()

	AddSpanAttributes(ctx, attribute.String("test.key", "value"), CourseIDKey.String("c1"))
	RecordError(ctx, errors.New("boom"))
	MeasureDuration(ctx, time.Now().Add(-5*time.Millisecond), "test.operation")

	assert.Equal(t, "", TraceIDFromContext(context.Background()))
}

func TestTraceConstructors(t *testing.T) {
	_, span := TraceHTTPRequest(context.Background(), "GET", "/api/v1/courses")
	assert.NotNil(t, span)
	span.End()

	_, span = TraceDatabaseOperation(context.Background(), "mongodb", "find", "courses")
	assert.NotNil(t, span)
	span.End()

	_, span = TraceExternalCall(context.Background(), "s3", "put_object")
	assert.NotNil(t, span)
	span.End()
}
