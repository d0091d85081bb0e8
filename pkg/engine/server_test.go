package engine

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/http2"
)

func startServer(t *testing.T, opts ...ServerOption) *Server {
	t.Helper()
	d := newTestDispatcher(t, nil,
		entry("infer", "v2/models/example/infer", 20*time.Millisecond, inferBody),
		entry("health", "health", 0, `{"mock":true}`),
	)
	opts = append([]ServerOption{WithHost("127.0.0.1")}, opts...)
	srv := NewServer(d, 0, opts...)
	require.NoError(t, srv.Start())
	t.Cleanup(func() { _ = srv.Stop() })
	return srv
}

func freePort(t *testing.T) uint16 {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return uint16(port)
}

func TestServer_StartStop(t *testing.T) {
	t.Parallel()

	srv := startServer(t)
	require.True(t, srv.IsRunning())
	require.NotEmpty(t, srv.Addr())
	assert.Empty(t, srv.AdminAddr(), "admin listener is disabled by default")

	resp, err := http.Get("http://" + srv.Addr() + "/v2/models/example/infer")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, inferBody, string(body))
	assert.NotEmpty(t, resp.Header.Get(RequestIDHeader))

	assert.Error(t, srv.Start(), "second start fails")

	require.NoError(t, srv.Stop())
	assert.False(t, srv.IsRunning())
	require.NoError(t, srv.Stop(), "stop is idempotent")
}

func TestServer_MockPathsAreNotShadowed(t *testing.T) {
	t.Parallel()

	srv := startServer(t, WithAdminPort(freePort(t)))
	require.NotEmpty(t, srv.AdminAddr())

	// /health is a mock route on the mock port...
	resp, err := http.Get("http://" + srv.Addr() + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.JSONEq(t, `{"mock":true}`, string(body))

	// ...and the liveness probe on the admin port.
	resp, err = http.Get("http://" + srv.AdminAddr() + "/health")
	require.NoError(t, err)
	var health map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&health))
	resp.Body.Close()
	assert.Equal(t, "healthy", health["status"])
}

func TestServer_BindError(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	port := uint16(ln.Addr().(*net.TCPAddr).Port)

	d := newTestDispatcher(t, nil, entry("a", "a", 0, `{}`))
	srv := NewServer(d, port, WithHost("127.0.0.1"))
	err = srv.Start()
	require.Error(t, err)
	assert.False(t, srv.IsRunning())
}

func TestServer_H2C(t *testing.T) {
	t.Parallel()

	srv := startServer(t)
	client := &http.Client{Transport: &http2.Transport{
		AllowHTTP: true,
		DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, addr)
		},
	}}

	resp, err := client.Get("http://" + srv.Addr() + "/v2/models/example/infer")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, 2, resp.ProtoMajor)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_ShutdownWaitsForDelayedRequest(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t, nil, entry("slow", "slow", 300*time.Millisecond, `{}`))
	srv := NewServer(d, 0, WithHost("127.0.0.1"))
	require.NoError(t, srv.Start())

	done := make(chan int, 1)
	go func() {
		resp, err := http.Get("http://" + srv.Addr() + "/slow")
		if err != nil {
			done <- 0
			return
		}
		resp.Body.Close()
		done <- resp.StatusCode
	}()

	time.Sleep(100 * time.Millisecond)
	require.NoError(t, srv.Stop())
	assert.Equal(t, http.StatusOK, <-done)
}

func TestAdmin_Endpoints(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t, nil,
		entry("infer", "v2/models/example/infer", 1200*time.Millisecond, inferBody),
	)
	srv := NewServer(d, 0)
	admin := httptest.NewServer(srv.AdminHandler())
	t.Cleanup(admin.Close)

	get := func(path string) (*http.Response, string) {
		resp, err := http.Get(admin.URL + path)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return resp, string(body)
	}

	resp, body := get("/ready")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, "not started yet")
	assert.Contains(t, body, "not_ready")

	resp, body = get("/routes")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var routes []RouteInfo
	require.NoError(t, json.Unmarshal([]byte(body), &routes))
	require.Len(t, routes, 1)
	assert.Equal(t, "/v2/models/example/infer", routes[0].Path)
	assert.Equal(t, int64(1200), routes[0].DelayMs)
	assert.Equal(t, "inline body", routes[0].Source)

	resp, body = get("/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain"))
	assert.Contains(t, body, "mockan_routes 1")
	assert.Contains(t, body, "go_goroutines")

	resp, _ = get("/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	postResp, err := http.Post(admin.URL+"/routes", "application/json", nil)
	require.NoError(t, err)
	postResp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, postResp.StatusCode)
}

func TestAdmin_ReadyAfterStart(t *testing.T) {
	t.Parallel()

	srv := startServer(t)
	rec := httptest.NewRecorder()
	srv.AdminHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ready","routes":2}`, rec.Body.String())
}
