package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/ohler55/ojg/oj"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/getmockd/mockan/pkg/config"
	"github.com/getmockd/mockan/pkg/logging"
)

// DefaultMaxPayloadBytes is the default size ceiling for one response body.
const DefaultMaxPayloadBytes int64 = 10 << 20

// Payload is a validated JSON response body. The body is shared by every
// request that matches the route and must not be modified.
type Payload struct {
	// ID is the identifier of the source the body was loaded from.
	ID string

	// Body is the JSON text returned to clients.
	Body []byte
}

// IsZero reports whether p carries no body.
func (p Payload) IsZero() bool {
	return len(p.Body) == 0
}

// Store maps response source identifiers to payloads. It is read-only once
// Load returns.
type Store struct {
	payloads map[string]Payload
}

// Option configures Load.
type Option func(*options)

type options struct {
	log         *slog.Logger
	concurrency int
	maxBytes    int64
}

// WithLogger sets the logger used to report loaded sources.
func WithLogger(log *slog.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.log = log
		}
	}
}

// WithConcurrency limits how many files are read at once. Values below one
// are ignored.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithMaxPayloadBytes sets the size ceiling for a single response body.
// Values below one are ignored.
func WithMaxPayloadBytes(n int64) Option {
	return func(o *options) {
		if n > 0 {
			o.maxBytes = n
		}
	}
}

// Load reads and validates every source. Sources sharing an ID are loaded
// once. The first failure aborts loading and is returned as a
// *ResponseLoadError.
func Load(ctx context.Context, sources []config.ResponseSource, opts ...Option) (*Store, error) {
	o := options{
		log:         logging.Nop(),
		concurrency: runtime.GOMAXPROCS(0),
		maxBytes:    DefaultMaxPayloadBytes,
	}
	for _, opt := range opts {
		opt(&o)
	}

	unique := make([]config.ResponseSource, 0, len(sources))
	seen := make(map[string]bool, len(sources))
	for _, src := range sources {
		if src.IsZero() {
			return nil, &ResponseLoadError{Source: src, Err: ErrEmptySource}
		}
		id := src.ID()
		if seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, src)
	}

	bodies := make([][]byte, len(unique))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i, src := range unique {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			body, err := loadSource(src, o.maxBytes)
			if err != nil {
				return &ResponseLoadError{Source: src, Err: err}
			}
			bodies[i] = body
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s := &Store{payloads: make(map[string]Payload, len(unique))}
	for i, src := range unique {
		id := src.ID()
		s.payloads[id] = Payload{ID: id, Body: bodies[i]}
	}
	o.log.Debug("response store loaded", "sources", len(sources), "payloads", len(s.payloads))
	return s, nil
}

// Payload returns the payload loaded for the source with the given ID.
func (s *Store) Payload(id string) (Payload, bool) {
	if s == nil {
		return Payload{}, false
	}
	p, ok := s.payloads[id]
	return p, ok
}

// Len returns the number of distinct payloads.
func (s *Store) Len() int {
	if s == nil {
		return 0
	}
	return len(s.payloads)
}

// IDs returns the identifiers of all payloads in sorted order.
func (s *Store) IDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, 0, len(s.payloads))
	for id := range s.payloads {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// loadSource returns the validated JSON body of src.
func loadSource(src config.ResponseSource, maxBytes int64) ([]byte, error) {
	if !src.IsFile() {
		if int64(len(src.Inline)) > maxBytes {
			return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, maxBytes)
		}
		return validJSON(src.Inline)
	}

	data, err := readFile(src.File, maxBytes)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(src.File)) {
	case ".yaml", ".yml":
		return yamlToJSON(data)
	default:
		return validJSON(data)
	}
}

// readFile reads at most maxBytes from path.
func readFile(path string, maxBytes int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, maxBytes)
	}
	return data, nil
}

// validJSON checks that data is a single well-formed JSON value.
func validJSON(data []byte) ([]byte, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, ErrEmptyBody
	}
	if err := oj.Validate(data); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidJSON, err)
	}
	// oj.Validate accepts a stream of values; a body must hold exactly one.
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: more than one JSON value", ErrInvalidJSON)
	}
	return data, nil
}

// yamlToJSON decodes a YAML document and re-encodes it as JSON.
func yamlToJSON(data []byte) ([]byte, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, ErrEmptyBody
	}
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("YAML is not representable as JSON: %w", err)
	}
	return body, nil
}
