package store

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getmockd/mockan/pkg/config"
)

func writeResponse(t *testing.T, dir, name, content string) config.ResponseSource {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return config.FileSource(path)
}

// =============================================================================
// Loading
// =============================================================================

func TestLoad_FilesAndInline(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	example := writeResponse(t, dir, "example.json", `{"status":"ok","prediction":[0.1,0.9]}`)
	yml := writeResponse(t, dir, "health.yaml", "status: ok\nchecks: [db, cache]\n")
	inline := config.InlineSource([]byte(`[1,2,3]`))

	st, err := Load(context.Background(), []config.ResponseSource{example, yml, inline})
	require.NoError(t, err)
	assert.Equal(t, 3, st.Len())

	p, ok := st.Payload(example.ID())
	require.True(t, ok)
	assert.Equal(t, example.ID(), p.ID)
	assert.JSONEq(t, `{"status":"ok","prediction":[0.1,0.9]}`, string(p.Body))

	p, ok = st.Payload(yml.ID())
	require.True(t, ok)
	assert.JSONEq(t, `{"status":"ok","checks":["db","cache"]}`, string(p.Body))

	p, ok = st.Payload(inline.ID())
	require.True(t, ok)
	assert.Equal(t, `[1,2,3]`, string(p.Body))
}

func TestLoad_DeduplicatesSources(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	a := writeResponse(t, dir, "a.json", `{"a":1}`)

	st, err := Load(context.Background(), []config.ResponseSource{
		a, a,
		config.InlineSource([]byte(`{}`)),
		config.InlineSource([]byte(`{}`)),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, st.Len())
	assert.ElementsMatch(t, []string{a.ID(), config.InlineSource([]byte(`{}`)).ID()}, st.IDs())
}

func TestLoad_Empty(t *testing.T) {
	t.Parallel()

	st, err := Load(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, st.Len())
	assert.Empty(t, st.IDs())
}

// =============================================================================
// Failures
// =============================================================================

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	invalid := writeResponse(t, dir, "invalid.json", `{"status": ok}`)
	empty := writeResponse(t, dir, "empty.json", "  \n")
	badYAML := writeResponse(t, dir, "bad.yml", "a: [unclosed\n")
	concatenated := writeResponse(t, dir, "stream.json", "{\"a\":1}\n{\"b\":2}\n")
	missing := config.FileSource(filepath.Join(dir, "missing.json"))

	tests := []struct {
		name    string
		source  config.ResponseSource
		wantErr error
	}{
		{name: "invalid json", source: invalid, wantErr: ErrInvalidJSON},
		{name: "empty file", source: empty, wantErr: ErrEmptyBody},
		{name: "missing file", source: missing, wantErr: os.ErrNotExist},
		{name: "invalid inline", source: config.InlineSource([]byte(`{"a":`)), wantErr: ErrInvalidJSON},
		{name: "zero source", source: config.ResponseSource{}, wantErr: ErrEmptySource},
		{name: "two inline objects", source: config.InlineSource([]byte(`{"a":1}{"b":2}`)), wantErr: ErrInvalidJSON},
		{name: "two inline numbers", source: config.InlineSource([]byte("1 2")), wantErr: ErrInvalidJSON},
		{name: "two values in file", source: concatenated, wantErr: ErrInvalidJSON},
		{name: "bad yaml", source: badYAML},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			st, err := Load(context.Background(), []config.ResponseSource{tt.source})
			assert.Nil(t, st)

			var loadErr *ResponseLoadError
			require.True(t, errors.As(err, &loadErr))
			assert.Equal(t, tt.source, loadErr.Source)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			if tt.source.IsFile() {
				assert.Contains(t, err.Error(), tt.source.File)
			}
		})
	}
}

func TestLoad_OneBadSourceAbortsAll(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	sources := []config.ResponseSource{
		writeResponse(t, dir, "a.json", `{}`),
		writeResponse(t, dir, "b.json", `not json`),
		writeResponse(t, dir, "c.json", `{}`),
	}

	st, err := Load(context.Background(), sources, WithConcurrency(1))
	assert.Nil(t, st)
	assert.ErrorIs(t, err, ErrInvalidJSON)
}

func TestLoad_MaxPayloadBytes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	big := writeResponse(t, dir, "big.json", `["`+strings.Repeat("x", 64)+`"]`)

	_, err := Load(context.Background(), []config.ResponseSource{big}, WithMaxPayloadBytes(32))
	assert.ErrorIs(t, err, ErrPayloadTooLarge)

	_, err = Load(context.Background(), []config.ResponseSource{config.InlineSource([]byte(`"` + strings.Repeat("y", 40) + `"`))}, WithMaxPayloadBytes(32))
	assert.ErrorIs(t, err, ErrPayloadTooLarge)

	st, err := Load(context.Background(), []config.ResponseSource{big}, WithMaxPayloadBytes(1024))
	require.NoError(t, err)
	assert.Equal(t, 1, st.Len())
}

func TestLoad_CanceledContext(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Load(ctx, []config.ResponseSource{writeResponse(t, dir, "a.json", `{}`)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStore_NilSafe(t *testing.T) {
	t.Parallel()

	var st *Store
	_, ok := st.Payload("file:/a.json")
	assert.False(t, ok)
	assert.Zero(t, st.Len())
	assert.Nil(t, st.IDs())
	assert.True(t, Payload{}.IsZero())
}
