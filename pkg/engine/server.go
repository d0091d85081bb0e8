package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/getmockd/mockan/pkg/logging"
	"github.com/getmockd/mockan/pkg/metrics"
	"github.com/getmockd/mockan/pkg/requestlog"
)

// Server runs the mock listener and the optional admin listener.
type Server struct {
	dispatcher *Dispatcher
	host       string
	port       uint16
	adminPort  uint16

	readTimeout     time.Duration
	writeTimeout    time.Duration
	shutdownTimeout time.Duration
	h2c             bool

	log      *slog.Logger
	metrics  *metrics.Server
	requests requestlog.Store

	handler      http.Handler
	adminHandler http.Handler

	mu            sync.RWMutex
	running       bool
	httpServer    *http.Server
	adminServer   *http.Server
	listener      net.Listener
	adminListener net.Listener
	errCh         chan error
}

// ServerOption is a functional option for configuring a Server.
type ServerOption func(*Server)

// WithLogger sets the operational logger for the server.
func WithLogger(log *slog.Logger) ServerOption {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// WithHost sets the interface both listeners bind to. Empty means all.
func WithHost(host string) ServerOption {
	return func(s *Server) {
		s.host = host
	}
}

// WithAdminPort enables the admin listener. 0 disables it.
func WithAdminPort(port uint16) ServerOption {
	return func(s *Server) {
		s.adminPort = port
	}
}

// WithTimeouts sets the HTTP read and write timeouts. The write timeout
// covers the configured delay. Zero values keep the defaults.
func WithTimeouts(read, write time.Duration) ServerOption {
	return func(s *Server) {
		if read > 0 {
			s.readTimeout = read
		}
		if write > 0 {
			s.writeTimeout = write
		}
	}
}

// WithShutdownTimeout bounds Stop.
func WithShutdownTimeout(d time.Duration) ServerOption {
	return func(s *Server) {
		if d > 0 {
			s.shutdownTimeout = d
		}
	}
}

// WithH2C toggles HTTP/2 over cleartext on the mock listener. Enabled by
// default.
func WithH2C(enabled bool) ServerOption {
	return func(s *Server) {
		s.h2c = enabled
	}
}

// WithMetrics sets the metrics the server records. A fresh set is created
// when none is given.
func WithMetrics(m *metrics.Server) ServerOption {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithRequestLog records every mock request in store and serves the history
// on the admin /requests endpoints. Nil disables recording.
func WithRequestLog(store requestlog.Store) ServerOption {
	return func(s *Server) {
		s.requests = store
	}
}

// NewServer creates a Server for d listening on port. Port 0 picks a free
// port, which Addr reports once started.
func NewServer(d *Dispatcher, port uint16, opts ...ServerOption) *Server {
	s := &Server{
		dispatcher:      d,
		port:            port,
		readTimeout:     30 * time.Second,
		writeTimeout:    2 * time.Minute,
		shutdownTimeout: 10 * time.Second,
		h2c:             true,
		log:             logging.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.NewServer()
	}
	s.metrics.RoutesLoaded.Set(float64(d.Len()))

	mws := []Middleware{RequestID, AccessLog(s.log)}
	if s.requests != nil {
		mws = append(mws, RecordRequests(s.requests))
	}
	s.handler = Chain(NewHandler(d, s.log, s.metrics), mws...)
	if s.h2c {
		s.handler = h2c.NewHandler(s.handler, &http2.Server{})
	}
	s.adminHandler = Chain(NewAdminRouter(d, s.metrics, s.requests, s.IsRunning), RequestID)
	return s
}

// Handler returns the mock handler with its middleware.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// AdminHandler returns the admin handler.
func (s *Server) AdminHandler() http.Handler {
	return s.adminHandler
}

// Metrics returns the metrics recorded by the server.
func (s *Server) Metrics() *metrics.Server {
	return s.metrics
}

// Requests returns the request history, or nil when recording is off.
func (s *Server) Requests() requestlog.Store {
	return s.requests
}

// Start binds the listeners and serves in the background. Bind errors are
// returned; errors after that are reported on Err.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server is already running")
	}

	ln, err := net.Listen("tcp", net.JoinHostPort(s.host, strconv.Itoa(int(s.port))))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", s.port, err)
	}

	var adminLn net.Listener
	if s.adminPort > 0 {
		adminLn, err = net.Listen("tcp", net.JoinHostPort(s.host, strconv.Itoa(int(s.adminPort))))
		if err != nil {
			_ = ln.Close()
			return fmt.Errorf("listen on admin port %d: %w", s.adminPort, err)
		}
	}

	s.errCh = make(chan error, 2)
	s.listener = ln
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadTimeout:       s.readTimeout,
		ReadHeaderTimeout: s.readTimeout,
		WriteTimeout:      s.writeTimeout,
		ErrorLog:          slog.NewLogLogger(s.log.Handler(), slog.LevelDebug),
	}
	go s.serve("mock", s.httpServer, ln)

	if adminLn != nil {
		s.adminListener = adminLn
		s.adminServer = &http.Server{
			Handler:           s.adminHandler,
			ReadHeaderTimeout: s.readTimeout,
			ErrorLog:          slog.NewLogLogger(s.log.Handler(), slog.LevelDebug),
		}
		go s.serve("admin", s.adminServer, adminLn)
	}

	s.running = true
	s.log.Info("mock server started",
		"addr", ln.Addr().String(),
		"admin_addr", s.adminAddrLocked(),
		"routes", s.dispatcher.Len(),
		"h2c", s.h2c,
	)
	return nil
}

func (s *Server) serve(name string, srv *http.Server, ln net.Listener) {
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		s.log.Error("server error", "listener", name, "error", err)
		s.errCh <- fmt.Errorf("%s listener: %w", name, err)
	}
}

// Err reports listener failures after Start. It is nil before Start.
func (s *Server) Err() <-chan error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errCh
}

// Stop gracefully shuts down both listeners, waiting for in-flight requests
// up to the shutdown timeout.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()
	return s.Shutdown(ctx)
}

// Shutdown is Stop with a caller-supplied deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	var errs []error
	if s.adminServer != nil {
		if err := s.adminServer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("admin shutdown: %w", err))
		}
	}
	if err := s.httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("HTTP shutdown: %w", err))
	}

	s.running = false
	s.log.Info("mock server stopped")
	return errors.Join(errs...)
}

// IsRunning reports whether the server is accepting requests.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Addr returns the bound mock address, or "" before Start.
func (s *Server) Addr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// AdminAddr returns the bound admin address, or "" when disabled.
func (s *Server) AdminAddr() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.adminAddrLocked()
}

func (s *Server) adminAddrLocked() string {
	if s.adminListener == nil {
		return ""
	}
	return s.adminListener.Addr().String()
}
