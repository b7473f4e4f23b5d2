package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aleph-Alpha/flexquery/v1/flexquery"
	"github.com/Aleph-Alpha/flexquery/v1/memory"
	"github.com/Aleph-Alpha/flexquery/v1/observability"
	"github.com/Aleph-Alpha/flexquery/v1/predicate"
)

func TestObserveOperation(t *testing.T) {
	m := NewMetrics(Config{ServiceName: "test"})

	m.ObserveOperation(observability.OperationContext{
		Component: "postgres",
		Operation: "find",
		Resource:  "users",
		Duration:  20 * time.Millisecond,
		Size:      3,
	})
	m.ObserveOperation(observability.OperationContext{
		Component: "postgres",
		Operation: "find",
		Resource:  "users",
		Error:     errors.New("connection refused"),
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("postgres", "find", "users", statusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("postgres", "find", "users", statusError)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.operationDuration))
	assert.Equal(t, 1, testutil.CollectAndCount(m.operationRows))
}

func TestMetrics_AsFilterObserver(t *testing.T) {
	m := NewMetrics(Config{ServiceName: "test", Namespace: "flexquery"})

	d := flexquery.MustFromPredicate(func(args ...any) predicate.Q {
		return predicate.Lookup("a", 42)
	}, flexquery.WithName("answer"), flexquery.WithObserver(m))

	b, err := flexquery.Bind(d, memory.New("rows", []memory.Row{{"id": 1, "a": 42}}))
	require.NoError(t, err)
	b.Call()
	b.AsQ()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("flexquery", "call", "answer", statusSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operationsTotal.WithLabelValues("flexquery", "as_q", "answer", statusSuccess)))
}

func TestMetrics_Endpoint(t *testing.T) {
	m := NewMetrics(Config{ServiceName: "flexquery-test", Namespace: "fq"})
	m.RecordOperation("cli", "render", "users", time.Now(), nil)

	counter := m.CreateCounter("custom_total", "custom", []string{"kind"})
	counter.WithLabelValues("x").Inc()

	rec := httptest.NewRecorder()
	m.Server.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	assert.Contains(t, body, `fq_operations_total{component="cli",operation="render",resource="users",service="flexquery-test",status="success"} 1`)
	assert.Contains(t, body, `fq_custom_total{kind="x",service="flexquery-test"} 1`)
	assert.True(t, strings.Contains(body, "fq_operation_duration_seconds_bucket"))
}

func TestNewMetrics_Defaults(t *testing.T) {
	m := NewMetrics(Config{EnableDefaultCollectors: true})
	assert.Equal(t, DefaultMetricsAddress, m.Server.Addr)

	families, err := m.Registry.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	var _ MetricsCollector = m
}
