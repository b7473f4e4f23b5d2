package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus registry, the operation metrics and the HTTP
// server exposing them.
type Metrics struct {
	// Server exposes the /metrics endpoint.
	Server *http.Server

	// Registry is the isolated registry all metrics are registered with.
	Registry *prometheus.Registry

	registerer prometheus.Registerer
	namespace  string

	operationsTotal   *prometheus.CounterVec
	operationDuration *prometheus.HistogramVec
	operationRows     *prometheus.HistogramVec
}

// NewMetrics creates a dedicated registry, wraps it with a constant
// service label and registers the operation metrics:
//
//   - operations_total{component, operation, resource, status}
//   - operation_duration_seconds{component, operation}
//   - operation_rows{component, operation}
//
// Example:
//
//	m := metrics.NewMetrics(metrics.Config{
//	    Address:     ":9090",
//	    ServiceName: "flexquery",
//	})
//	filter := flexquery.MustFromPredicate(fn, flexquery.WithObserver(m))
func NewMetrics(cfg Config) *Metrics {
	registry := prometheus.NewRegistry()

	wrappedRegistry := prometheus.WrapRegistererWith(
		prometheus.Labels{"service": cfg.ServiceName},
		registry,
	)

	m := &Metrics{
		Registry:   registry,
		registerer: wrappedRegistry,
		namespace:  cfg.Namespace,
	}

	m.operationsTotal = createCounterVec(cfg.Namespace, "operations_total",
		"Total number of flexquery operations", []string{"component", "operation", "resource", "status"})
	m.operationDuration = createHistogramVec(cfg.Namespace, "operation_duration_seconds",
		"Duration of flexquery operations in seconds", []string{"component", "operation"}, prometheus.DefBuckets)
	m.operationRows = createHistogramVec(cfg.Namespace, "operation_rows",
		"Rows returned or affected by flexquery operations", []string{"component", "operation"}, prometheus.ExponentialBuckets(1, 4, 8))

	wrappedRegistry.MustRegister(
		m.operationsTotal,
		m.operationDuration,
		m.operationRows,
	)

	if cfg.EnableDefaultCollectors {
		wrappedRegistry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewBuildInfoCollector(),
		)
	}

	address := cfg.Address
	if address == "" {
		address = DefaultMetricsAddress
	}

	m.Server = &http.Server{
		Addr:    address,
		Handler: promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	}
	return m
}
