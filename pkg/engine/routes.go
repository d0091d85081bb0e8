package engine

import (
	"log/slog"
	"sort"
	"time"

	"github.com/getmockd/mockan/pkg/config"
	"github.com/getmockd/mockan/pkg/logging"
	"github.com/getmockd/mockan/pkg/store"
)

// PayloadSource resolves response source IDs to loaded payloads.
// *store.Store implements it.
type PayloadSource interface {
	Payload(id string) (store.Payload, bool)
}

// Route is one entry of the route table.
type Route struct {
	// Path is the normalized path, without a leading slash.
	Path string

	// Name is the name of the entry that declared the route.
	Name string

	// Delay is applied before the response is written.
	Delay time.Duration

	// Payload is the response body.
	Payload store.Payload

	// Source is where the payload was loaded from.
	Source config.ResponseSource
}

// RouteTable maps normalized paths to routes. It is immutable once built.
type RouteTable struct {
	routes map[string]Route
}

// Lookup returns the route registered for the normalized path p.
func (t *RouteTable) Lookup(p string) (Route, bool) {
	if t == nil {
		return Route{}, false
	}
	r, ok := t.routes[p]
	return r, ok
}

// Len returns the number of routes.
func (t *RouteTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.routes)
}

// Routes returns every route sorted by path.
func (t *RouteTable) Routes() []Route {
	if t == nil {
		return nil
	}
	out := make([]Route, 0, len(t.routes))
	for _, r := range t.routes {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// MaxDelay returns the longest configured delay.
func (t *RouteTable) MaxDelay() time.Duration {
	var longest time.Duration
	if t == nil {
		return longest
	}
	for _, r := range t.routes {
		longest = max(longest, r.Delay)
	}
	return longest
}

// DuplicatePolicy decides what Build does when two entries share a path.
type DuplicatePolicy int

const (
	// DuplicateLastWins keeps the entry declared last and logs a warning.
	DuplicateLastWins DuplicatePolicy = iota

	// DuplicateReject fails the build with a *DuplicateRouteError.
	DuplicateReject
)

func (p DuplicatePolicy) String() string {
	switch p {
	case DuplicateLastWins:
		return "last-wins"
	case DuplicateReject:
		return "reject"
	default:
		return "unknown"
	}
}

// BuildOption configures Build and New.
type BuildOption func(*buildOptions)

type buildOptions struct {
	duplicates DuplicatePolicy
	log        *slog.Logger
}

// WithDuplicatePolicy sets how duplicate paths are handled.
func WithDuplicatePolicy(p DuplicatePolicy) BuildOption {
	return func(o *buildOptions) {
		o.duplicates = p
	}
}

// WithBuildLogger sets the logger used to report overridden routes.
func WithBuildLogger(log *slog.Logger) BuildOption {
	return func(o *buildOptions) {
		if log != nil {
			o.log = log
		}
	}
}

func newBuildOptions(opts []BuildOption) *buildOptions {
	o := &buildOptions{duplicates: DuplicateLastWins, log: logging.Nop()}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Build indexes entries by normalized path and attaches their payloads.
// Every entry's response must resolve in payloads. Build performs no I/O.
func Build(entries []config.ServiceEntry, payloads PayloadSource, opts ...BuildOption) (*RouteTable, error) {
	o := newBuildOptions(opts)

	t := &RouteTable{routes: make(map[string]Route, len(entries))}
	for _, e := range entries {
		p := config.NormalizePath(e.Path)

		payload, ok := payloads.Payload(e.Response.ID())
		if !ok {
			return nil, &UnresolvedResponseError{Entry: e.Name, Path: p, Source: e.Response}
		}

		if prev, exists := t.routes[p]; exists {
			if o.duplicates == DuplicateReject {
				return nil, &DuplicateRouteError{Path: p, First: prev.Name, Second: e.Name}
			}
			o.log.Warn("duplicate route overridden",
				"path", "/"+p,
				"previous", prev.Name,
				"entry", e.Name,
			)
		}

		t.routes[p] = Route{
			Path:    p,
			Name:    e.Name,
			Delay:   e.Delay,
			Payload: payload,
			Source:  e.Response,
		}
	}
	return t, nil
}
