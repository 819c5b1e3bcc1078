package tracing

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestInitTracerDisabled(t *testing.T) {
	p, err := InitTracer(context.Background(), Config{ServiceName: "bustcall"})
	require.NoError(t, err)

	_, span := p.Tracer().Start(context.Background(), "noop")
	span.End()

	assert.NoError(t, p.Shutdown(context.Background()))
}

func TestSetErrorMarksSpan(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	p := NewProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr)), "test")

	ctx, span := p.Tracer().Start(context.Background(), "probe.assess")
	SetError(ctx, errors.New("backend unavailable"))
	AddEvent(ctx, "retry")
	span.End()

	ended := sr.Ended()
	require.Len(t, ended, 1)
	assert.Equal(t, codes.Error, ended[0].Status().Code)
	assert.Len(t, ended[0].Events(), 2) // exception + retry
}

func TestContextFromEnv(t *testing.T) {
	t.Setenv("TRACEPARENT", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")

	ctx := ContextFromEnv(context.Background())
	sc := trace.SpanContextFromContext(ctx)

	assert.True(t, sc.IsValid())
	assert.True(t, sc.IsRemote())
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", sc.TraceID().String())
}

func TestContextFromEnvWithoutParent(t *testing.T) {
	t.Setenv("TRACEPARENT", "")

	ctx := context.Background()
	assert.Equal(t, ctx, ContextFromEnv(ctx))
}
