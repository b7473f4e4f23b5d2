package tracer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Aleph-Alpha/flexquery/v1/logger"
)

func recorded(t *testing.T) (*Tracer, *tracetest.SpanRecorder) {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	tr := NewWithProvider(tp, logger.NewNop())
	t.Cleanup(func() { _ = tr.Shutdown(context.Background()) })
	return tr, rec
}

func TestStartSpan_RecordsAttributesAndErrors(t *testing.T) {
	tr, rec := recorded(t)

	_, span := tr.StartSpan(context.Background(), "postgres.find")
	tr.SetAttributes(span, map[string]interface{}{
		"table": "users",
		"limit": 10,
		"rows":  int64(3),
		"ratio": 0.5,
		"dry":   true,
		"other": []string{"a"},
	})
	tr.RecordErrorOnSpan(span, errors.New("boom"))
	span.End()

	spans := rec.Ended()
	require.Len(t, spans, 1)
	s := spans[0]
	assert.Equal(t, "postgres.find", s.Name())
	assert.Equal(t, codes.Error, s.Status().Code)
	assert.Equal(t, "boom", s.Status().Description)
	assert.Contains(t, s.Attributes(), attribute.String("table", "users"))
	assert.Contains(t, s.Attributes(), attribute.Int("limit", 10))
	assert.Contains(t, s.Attributes(), attribute.String("other", "[a]"))
	require.Len(t, s.Events(), 1)
}

func TestStartSpan_ChildOfContext(t *testing.T) {
	tr, rec := recorded(t)

	ctx, parent := tr.StartSpan(context.Background(), "parent")
	_, child := tr.StartSpan(ctx, "child")
	child.End()
	parent.End()

	spans := rec.Ended()
	require.Len(t, spans, 2)
	assert.Equal(t, parent.SpanContext().SpanID(), spans[0].Parent().SpanID())
}

func TestNilTracer(t *testing.T) {
	var tr *Tracer
	_, span := tr.StartSpan(context.Background(), "noop")
	tr.RecordErrorOnSpan(span, nil)
	span.End()
	assert.False(t, span.SpanContext().IsValid())
	assert.NoError(t, tr.Shutdown(context.Background()))
}

func TestNewClient(t *testing.T) {
	tr, err := NewClient(Config{ServiceName: "flexquery-test", AppEnv: "test"}, logger.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = tr.Shutdown(context.Background()) })

	_, span := tr.StartSpan(context.Background(), "op")
	defer span.End()
	assert.True(t, span.SpanContext().IsValid())
}
