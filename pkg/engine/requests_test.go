package engine

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/mockan/pkg/requestlog"
)

func newRecordingServer(t *testing.T) (*Server, *requestlog.Memory) {
	t.Helper()
	d := newTestDispatcher(t, nil,
		entry("infer", "v2/models/example/infer", 10*time.Millisecond, inferBody),
		entry("health", "health", 0, `{"mock":true}`),
	)
	store := requestlog.NewMemory(10)
	return NewServer(d, 0, WithRequestLog(store)), store
}

func adminGet(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestRecordRequests_Hit(t *testing.T) {
	t.Parallel()

	srv, store := newRecordingServer(t)

	req := httptest.NewRequest(http.MethodPost, "/v2/models/example/infer?v=1", strings.NewReader(`{"inputs":[1,2]}`))
	req.Header.Set(RequestIDHeader, "req-1")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	entries := store.List(nil)
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, "req-1", e.RequestID)
	assert.Equal(t, http.MethodPost, e.Method)
	assert.Equal(t, "/v2/models/example/infer", e.Path)
	assert.Equal(t, "v=1", e.Query)
	assert.Equal(t, `{"inputs":[1,2]}`, e.Body)
	assert.EqualValues(t, len(`{"inputs":[1,2]}`), e.BodySize)
	assert.Equal(t, "/v2/models/example/infer", e.Route)
	assert.Equal(t, http.StatusOK, e.Status)
	assert.EqualValues(t, 10, e.DelayMs)
	assert.GreaterOrEqual(t, e.DurationMs, int64(10))
	assert.False(t, e.Canceled)
}

func TestRecordRequests_Miss(t *testing.T) {
	t.Parallel()

	srv, store := newRecordingServer(t)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	entries := store.List(&requestlog.Filter{Misses: true})
	require.Len(t, entries, 1)
	assert.Empty(t, entries[0].Route)
	assert.Equal(t, http.StatusNotFound, entries[0].Status)
	assert.Empty(t, entries[0].Body)
}

func TestRecordRequests_BodyStillReadable(t *testing.T) {
	t.Parallel()

	store := requestlog.NewMemory(1)
	var seen string
	h := Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		seen = string(b)
	}), RequestID, RecordRequests(store))

	body := strings.Repeat("a", requestlog.MaxBodySize+50)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(body)))

	assert.Equal(t, body, seen)
	e := store.List(nil)[0]
	assert.True(t, strings.HasSuffix(e.Body, "...(truncated)"))
	assert.EqualValues(t, len(body), e.BodySize)
}

func TestRecordRequests_NilLogger(t *testing.T) {
	t.Parallel()

	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})
	h := RecordRequests(nil)(next)
	assert.NotNil(t, h)
}

func TestAdmin_Requests(t *testing.T) {
	t.Parallel()

	srv, store := newRecordingServer(t)
	for _, target := range []string{"/health", "/nope", "/v2/models/example/infer"} {
		srv.Handler().ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, target, nil))
	}
	require.Equal(t, 3, store.Count())

	rec := adminGet(t, srv.AdminHandler(), "/requests")
	require.Equal(t, http.StatusOK, rec.Code)
	var list RequestList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 3, list.Count)
	assert.Equal(t, 3, list.Total)
	assert.Equal(t, "/v2/models/example/infer", list.Requests[0].Path, "newest first")

	rec = adminGet(t, srv.AdminHandler(), "/requests?status=404")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "/nope", list.Requests[0].Path)

	rec = adminGet(t, srv.AdminHandler(), "/requests?limit=1&offset=1")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Equal(t, 1, list.Count)
	assert.Equal(t, "/nope", list.Requests[0].Path)

	id := list.Requests[0].ID
	rec = adminGet(t, srv.AdminHandler(), "/requests/"+id)
	require.Equal(t, http.StatusOK, rec.Code)
	var e requestlog.Entry
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	assert.Equal(t, id, e.ID)

	rec = adminGet(t, srv.AdminHandler(), "/requests/unknown")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	del := httptest.NewRecorder()
	srv.AdminHandler().ServeHTTP(del, httptest.NewRequest(http.MethodDelete, "/requests", nil))
	require.Equal(t, http.StatusOK, del.Code)
	assert.JSONEq(t, `{"cleared":3}`, del.Body.String())
	assert.Equal(t, 0, store.Count())
}

func TestAdmin_RequestsBadQuery(t *testing.T) {
	t.Parallel()

	srv, _ := newRecordingServer(t)
	for _, q := range []string{"status=abc", "limit=-1", "offset=x", "misses=maybe"} {
		rec := adminGet(t, srv.AdminHandler(), "/requests?"+q)
		assert.Equal(t, http.StatusBadRequest, rec.Code, q)
		assert.Contains(t, rec.Body.String(), `"bad_request"`, q)
	}
}

func TestAdmin_RequestsDisabled(t *testing.T) {
	t.Parallel()

	d := newTestDispatcher(t, nil, entry("health", "health", 0, `{}`))
	srv := NewServer(d, 0)
	assert.Nil(t, srv.Requests())

	rec := adminGet(t, srv.AdminHandler(), "/requests")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdmin_RequestsMethodNotAllowed(t *testing.T) {
	t.Parallel()

	srv, _ := newRecordingServer(t)
	rec := httptest.NewRecorder()
	srv.AdminHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/requests", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.ElementsMatch(t, []string{http.MethodGet, http.MethodDelete}, rec.Header().Values("Allow"))
}
