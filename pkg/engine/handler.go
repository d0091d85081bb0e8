package engine

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/getmockd/mockan/pkg/httputil"
	"github.com/getmockd/mockan/pkg/logging"
	"github.com/getmockd/mockan/pkg/metrics"
)

// Handler answers mock requests from a Dispatcher.
type Handler struct {
	dispatcher *Dispatcher
	log        *slog.Logger
	metrics    *metrics.Server
}

// NewHandler creates a Handler. log and m may be nil.
func NewHandler(d *Dispatcher, log *slog.Logger, m *metrics.Server) *Handler {
	if log == nil {
		log = logging.Nop()
	}
	return &Handler{dispatcher: d, log: log, metrics: m}
}

// ServeHTTP implements http.Handler. Any method is accepted.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	match, err := h.dispatcher.Resolve(r.URL.Path)
	if err != nil {
		h.log.Debug("no route", "path", r.URL.Path, "method", r.Method)
		httputil.WriteNotFound(w, err.Error())
		h.metrics.ObserveRequest(r.Method, "", http.StatusNotFound, time.Since(start))
		return
	}

	route := "/" + match.Route.Path
	info := infoFromContext(r.Context())
	if info != nil {
		info.route = route
		info.delay = match.Delay
	}
	if err := sleep(r.Context(), match.Delay); err != nil {
		h.log.Debug("client went away during delay",
			"path", route,
			"delay", match.Delay,
			"error", err,
		)
		h.metrics.ObserveCanceled(route)
		if info != nil {
			info.canceled = true
		}
		return
	}

	if match.Payload.IsZero() {
		h.log.Error("route has no payload", "path", route, "source", match.Route.Source.String())
		httputil.WriteInternalError(w, "route "+route+" has no response body")
		h.metrics.ObserveRequest(r.Method, route, http.StatusInternalServerError, time.Since(start))
		return
	}

	if err := httputil.WriteRawJSON(w, http.StatusOK, match.Payload.Body); err != nil && !errors.Is(err, context.Canceled) {
		h.log.Debug("write response failed", "path", route, "error", err)
	}
	h.metrics.ObserveRequest(r.Method, route, http.StatusOK, time.Since(start))
}

// sleep waits for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
