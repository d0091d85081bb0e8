package engine

import (
	"errors"
	"fmt"
	"time"

	"github.com/getmockd/mockan/pkg/config"
	"github.com/getmockd/mockan/pkg/store"
)

// Match is the result of a successful dispatch.
type Match struct {
	Route   Route
	Payload store.Payload
	Delay   time.Duration
}

// Dispatcher resolves request paths against a route table. It is safe for
// concurrent use and never blocks.
type Dispatcher struct {
	table   *RouteTable
	port    uint16
	hasPort bool
	source  string
}

// New builds the route table for spec and derives its default port.
// Several server definitions are not an error: the dispatcher then has no
// default port and a warning is logged.
func New(spec *config.Spec, payloads PayloadSource, opts ...BuildOption) (*Dispatcher, error) {
	o := newBuildOptions(opts)

	table, err := Build(spec.Entries, payloads, opts...)
	if err != nil {
		return nil, err
	}

	d := &Dispatcher{table: table, source: spec.Source}

	port, err := config.DefaultPort(spec.Servers)
	var multi *config.MultipleServersError
	switch {
	case err == nil:
		d.port, d.hasPort = port, true
	case errors.As(err, &multi):
		o.log.Warn("cannot derive a default port", "spec", spec.Source, "servers", multi.Count)
	default:
		o.log.Debug("no default port in spec", "spec", spec.Source, "reason", err)
	}

	o.log.Debug("route table built",
		"spec", spec.Source,
		"routes", table.Len(),
		"duplicates", o.duplicates.String(),
	)
	return d, nil
}

// NewDispatcher wraps an existing table. port 0 means no default port.
func NewDispatcher(table *RouteTable, port uint16) *Dispatcher {
	return &Dispatcher{table: table, port: port, hasPort: port != 0}
}

// Dispatch looks up requestPath. The lookup is exact after leading slashes
// are stripped.
func (d *Dispatcher) Dispatch(requestPath string) (Match, bool) {
	r, ok := d.table.Lookup(config.NormalizePath(requestPath))
	if !ok {
		return Match{}, false
	}
	return Match{Route: r, Payload: r.Payload, Delay: r.Delay}, true
}

// Resolve is Dispatch returning ErrRouteNotFound on a miss.
func (d *Dispatcher) Resolve(requestPath string) (Match, error) {
	m, ok := d.Dispatch(requestPath)
	if !ok {
		return Match{}, fmt.Errorf("%w: %s", ErrRouteNotFound, requestPath)
	}
	return m, nil
}

// DefaultPort returns the port derived from the spec's servers.
func (d *Dispatcher) DefaultPort() (uint16, bool) {
	return d.port, d.hasPort
}

// PortOr returns the default port, or fallback when the servers list names none.
func (d *Dispatcher) PortOr(fallback uint16) uint16 {
	if d.hasPort {
		return d.port
	}
	return fallback
}

// Routes returns the route table sorted by path.
func (d *Dispatcher) Routes() []Route {
	return d.table.Routes()
}

// Len returns the number of routes.
func (d *Dispatcher) Len() int {
	return d.table.Len()
}

// MaxDelay returns the longest configured delay.
func (d *Dispatcher) MaxDelay() time.Duration {
	return d.table.MaxDelay()
}

// Source returns the spec file the dispatcher was built from.
func (d *Dispatcher) Source() string {
	return d.source
}
