package httputil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestWriteJSON(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusOK, map[string]int{"routes": 3})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"routes":3}`, rec.Body.String())
}

func TestWriteJSON_NilBody(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteJSON(rec, http.StatusAccepted, nil)
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestWriteRawJSON(t *testing.T) {
	t.Parallel()

	body := []byte(`{"status":"ok","prediction":[0.1,0.9]}`)
	rec := httptest.NewRecorder()
	require.NoError(t, WriteRawJSON(rec, http.StatusOK, body))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "38", rec.Header().Get("Content-Length"))
	// Bytes are passed through unchanged.
	assert.Equal(t, string(body), rec.Body.String())
}

func TestWriteErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		write  func(w http.ResponseWriter)
		status int
		code   string
	}{
		{"not found", func(w http.ResponseWriter) { WriteNotFound(w, "no route for /x") }, http.StatusNotFound, CodeNotFound},
		{"internal", func(w http.ResponseWriter) { WriteInternalError(w, "boom") }, http.StatusInternalServerError, CodeInternal},
		{"unavailable", func(w http.ResponseWriter) { WriteServiceUnavailable(w, CodeNotReady, "starting") }, http.StatusServiceUnavailable, CodeNotReady},
		{"method", func(w http.ResponseWriter) { WriteMethodNotAllowed(w, http.MethodGet) }, http.StatusMethodNotAllowed, CodeMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := httptest.NewRecorder()
			tt.write(rec)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeError(t, rec).Error)
		})
	}
}

func TestWriteMethodNotAllowed_AllowHeader(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteMethodNotAllowed(rec, http.MethodGet, http.MethodHead)
	assert.Equal(t, []string{"GET", "HEAD"}, rec.Header().Values("Allow"))
}
