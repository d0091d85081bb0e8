// Admin endpoints, served on their own listener so no mock path is shadowed.

package engine

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/getmockd/mockan/pkg/httputil"
	"github.com/getmockd/mockan/pkg/metrics"
	"github.com/getmockd/mockan/pkg/requestlog"
)

// RouteInfo describes a route in the /routes response.
type RouteInfo struct {
	Path    string `json:"path"`
	Name    string `json:"name"`
	DelayMs int64  `json:"delayMs"`
	Source  string `json:"source"`
	Bytes   int    `json:"bytes"`
}

// RouteInfos converts routes for display.
func RouteInfos(routes []Route) []RouteInfo {
	out := make([]RouteInfo, 0, len(routes))
	for _, r := range routes {
		out = append(out, RouteInfo{
			Path:    "/" + r.Path,
			Name:    r.Name,
			DelayMs: r.Delay.Milliseconds(),
			Source:  r.Source.String(),
			Bytes:   len(r.Payload.Body),
		})
	}
	return out
}

type admin struct {
	dispatcher *Dispatcher
	metrics    *metrics.Server
	requests   requestlog.Store
	ready      func() bool
	started    time.Time
}

// NewAdminRouter returns the admin router. ready reports whether the mock
// listener is accepting requests; nil means always ready. The /requests
// endpoints are only routed when requests is non-nil.
func NewAdminRouter(d *Dispatcher, m *metrics.Server, requests requestlog.Store, ready func() bool) *mux.Router {
	a := &admin{dispatcher: d, metrics: m, requests: requests, ready: ready, started: time.Now()}

	r := mux.NewRouter()
	r.HandleFunc("/health", a.handleHealth).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/ready", a.handleReady).Methods(http.MethodGet, http.MethodHead)
	r.HandleFunc("/routes", a.handleRoutes).Methods(http.MethodGet)
	if m != nil {
		r.Handle("/metrics", m.Registry.Handler()).Methods(http.MethodGet)
	}
	if requests != nil {
		r.HandleFunc("/requests", a.handleListRequests).Methods(http.MethodGet)
		r.HandleFunc("/requests", a.handleClearRequests).Methods(http.MethodDelete)
		r.HandleFunc("/requests/{id}", a.handleGetRequest).Methods(http.MethodGet)
	}
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		httputil.WriteNotFound(w, "no admin endpoint "+req.URL.Path)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if requests != nil && req.URL.Path == "/requests" {
			httputil.WriteMethodNotAllowed(w, http.MethodGet, http.MethodDelete)
			return
		}
		httputil.WriteMethodNotAllowed(w, http.MethodGet)
	})
	return r
}

// handleHealth handles the liveness probe endpoint.
func (a *admin) handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(a.started).Round(time.Second).String(),
	})
}

// handleReady handles the readiness probe endpoint.
func (a *admin) handleReady(w http.ResponseWriter, _ *http.Request) {
	if a.ready != nil && !a.ready() {
		httputil.WriteServiceUnavailable(w, httputil.CodeNotReady, "mock listener is not running")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"routes": a.dispatcher.Len(),
	})
}

func (a *admin) handleRoutes(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, RouteInfos(a.dispatcher.Routes()))
}

// RequestList is the /requests response.
type RequestList struct {
	Requests []*requestlog.Entry `json:"requests"`
	Count    int                 `json:"count"`
	Total    int                 `json:"total"`
}

// handleListRequests lists recorded requests, newest first. Query
// parameters: method, path (prefix), route, status, misses, limit, offset.
func (a *admin) handleListRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := &requestlog.Filter{
		Method: q.Get("method"),
		Path:   q.Get("path"),
		Route:  q.Get("route"),
		Limit:  100,
	}
	var err error
	if f.Status, err = intParam(q.Get("status"), 0); err != nil {
		httputil.WriteBadRequest(w, "invalid status: "+err.Error())
		return
	}
	if f.Limit, err = intParam(q.Get("limit"), f.Limit); err != nil {
		httputil.WriteBadRequest(w, "invalid limit: "+err.Error())
		return
	}
	if f.Offset, err = intParam(q.Get("offset"), 0); err != nil {
		httputil.WriteBadRequest(w, "invalid offset: "+err.Error())
		return
	}
	if v := q.Get("misses"); v != "" {
		if f.Misses, err = strconv.ParseBool(v); err != nil {
			httputil.WriteBadRequest(w, "invalid misses: "+err.Error())
			return
		}
	}

	entries := a.requests.List(f)
	httputil.WriteJSON(w, http.StatusOK, RequestList{
		Requests: entries,
		Count:    len(entries),
		Total:    a.requests.Count(),
	})
}

func (a *admin) handleGetRequest(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	e, ok := a.requests.Get(id)
	if !ok {
		httputil.WriteNotFound(w, "no request "+id)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, e)
}

func (a *admin) handleClearRequests(w http.ResponseWriter, _ *http.Request) {
	n := a.requests.Count()
	a.requests.Clear()
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"cleared": n})
}

// intParam parses a non-negative integer query value.
func intParam(v string, def int) (int, error) {
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, strconv.ErrRange
	}
	return n, nil
}
