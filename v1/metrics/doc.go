// Package metrics exposes flexquery operation metrics to Prometheus.
//
// *Metrics implements observability.Observer, so it can be passed wherever a
// component accepts an observer:
//
//	m := metrics.NewMetrics(metrics.Config{ServiceName: "flexquery"})
//
//	adults := flexquery.MustFromPredicate(fn, flexquery.WithObserver(m))
//	users := pg.Manager(&User{}, registry).WithObserver(m)
//
// Every observed operation increments operations_total and records its
// duration in operation_duration_seconds. Operations that report a size, such
// as the number of rows a query returned, also feed operation_rows.
//
// All metrics live in a dedicated registry and carry a constant "service"
// label. With EnableDefaultCollectors the Go runtime, process and build info
// collectors are registered as well.
//
// # FX Module Integration
//
// FXModule provides *Metrics, MetricsCollector and observability.Observer and
// serves /metrics on Config.Address while the application runs.
//
// # Configuration
//
//	METRICS_ADDRESS=:9090
//	METRICS_ENABLE_DEFAULT_COLLECTORS=true
//	METRICS_NAMESPACE=flexquery
//	METRICS_SERVICE_NAME=flexquery
package metrics
