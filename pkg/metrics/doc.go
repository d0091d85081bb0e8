// Package metrics provides Prometheus-compatible metrics for the mock server.
//
// It implements the Prometheus text exposition format (text/plain;
// version=0.0.4) with counters, gauges and histograms. All metrics are safe
// for concurrent use.
//
// # Server Metrics
//
// NewServer registers the metrics recorded by the HTTP front:
//
//   - mockan_requests_total (method, route, status)
//   - mockan_request_duration_seconds (route)
//   - mockan_route_misses_total
//   - mockan_canceled_requests_total (route)
//   - mockan_routes
//   - mockan_start_time_seconds
//
// # Usage
//
//	m := metrics.NewServer()
//	m.ObserveRequest("GET", "v2/models/example/infer", 200, elapsed)
//	mux.Handle("/metrics", m.Registry.Handler())
//
// Custom metrics can also be created:
//
//	registry := metrics.NewRegistry()
//	counter := registry.NewCounter("my_counter", "Description of counter", "label1")
//	vec, _ := counter.WithLabels("value1")
//	_ = vec.Inc()
package metrics
