package metrics

import (
	"strconv"
	"time"
)

// Server holds the metrics recorded by the mock server.
//
// # Label Conventions
//
//   - method: uppercase HTTP method (GET, POST, ...)
//   - route: the normalized route path, or "unmatched" for misses so that
//     arbitrary request paths never create new series
//   - status: numeric status code
type Server struct {
	// Registry is the registry the metrics are registered with.
	Registry *Registry

	// RequestsTotal counts requests. Labels: method, route, status.
	RequestsTotal *Counter

	// RequestDuration tracks request latency in seconds, delay included.
	// Labels: route.
	RequestDuration *Histogram

	// RouteMissesTotal counts requests that matched no route.
	RouteMissesTotal *Counter

	// CanceledTotal counts requests whose client went away during the delay.
	// Labels: route.
	CanceledTotal *Counter

	// RoutesLoaded is the number of routes in the table.
	RoutesLoaded *Gauge

	// StartTime is the unix time the server was created.
	StartTime *Gauge
}

// UnmatchedRoute is the route label value used for requests without a route.
const UnmatchedRoute = "unmatched"

// NewServer registers the mock server metrics and the Go runtime gauges
// with a new registry.
func NewServer() *Server {
	reg := NewRegistry()
	m := &Server{
		Registry: reg,
		RequestsTotal: reg.NewCounter(
			"mockan_requests_total",
			"Total number of mock requests",
			"method", "route", "status",
		),
		RequestDuration: reg.NewHistogram(
			"mockan_request_duration_seconds",
			"Duration of mock requests in seconds, including the configured delay",
			DefaultBuckets,
			"route",
		),
		RouteMissesTotal: reg.NewCounter(
			"mockan_route_misses_total",
			"Number of requests that did not match any route",
		),
		CanceledTotal: reg.NewCounter(
			"mockan_canceled_requests_total",
			"Number of requests canceled by the client during the delay",
			"route",
		),
		RoutesLoaded: reg.NewGauge(
			"mockan_routes",
			"Number of routes in the route table",
		),
		StartTime: reg.NewGauge(
			"mockan_start_time_seconds",
			"Unix time the server was started",
		),
	}
	start := time.Now()
	m.StartTime.Set(float64(start.Unix()))
	RegisterRuntime(reg, start)
	return m
}

// ObserveRequest records one finished request. route is empty for misses.
func (m *Server) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = UnmatchedRoute
		_ = m.RouteMissesTotal.Inc()
	}
	if vec, err := m.RequestsTotal.WithLabels(method, route, strconv.Itoa(status)); err == nil {
		_ = vec.Inc()
	}
	if vec, err := m.RequestDuration.WithLabels(route); err == nil {
		vec.Observe(elapsed.Seconds())
	}
}

// ObserveCanceled records a request abandoned during its delay.
func (m *Server) ObserveCanceled(route string) {
	if m == nil {
		return
	}
	if vec, err := m.CanceledTotal.WithLabels(route); err == nil {
		_ = vec.Inc()
	}
}
