package config

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
)

// OpenAPI vendor extensions read from operations.
const (
	// ExtDelayMs is the per-operation delay in milliseconds.
	ExtDelayMs = "x-delay-ms"

	// ExtLegacyDelayMs is the unprefixed delay key accepted for older specs.
	ExtLegacyDelayMs = "delay-ms"

	// ExtResponseFile names a response file relative to the spec.
	ExtResponseFile = "x-response-file"
)

// operationOrder is the order in which operations are considered when
// picking the one that defines a path's delay and response.
var operationOrder = []string{
	http.MethodGet,
	http.MethodPost,
	http.MethodPut,
	http.MethodPatch,
	http.MethodDelete,
	http.MethodHead,
	http.MethodOptions,
	http.MethodTrace,
}

// OpenAPILoader loads OpenAPI 3 documents.
type OpenAPILoader struct {
	log *slog.Logger
}

// NewOpenAPILoader creates an OpenAPILoader.
func NewOpenAPILoader(opts ...LoaderOption) *OpenAPILoader {
	o := buildLoaderOptions(opts)
	return &OpenAPILoader{log: o.log}
}

// Format returns FormatOpenAPI.
func (l *OpenAPILoader) Format() Format {
	return FormatOpenAPI
}

// Load parses and validates the OpenAPI document at path and converts its
// paths into service entries.
func (l *OpenAPILoader) Load(ctx context.Context, path string) (*Spec, error) {
	data, err := readSpecFile(path)
	if err != nil {
		return nil, err
	}

	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true
	loader.Context = ctx

	doc, err := loader.LoadFromDataWithPath(data, &url.URL{Path: filepath.ToSlash(path)})
	if err != nil {
		return nil, &SpecLoadError{Path: path, Message: "invalid OpenAPI document", Err: err}
	}

	if err := doc.Validate(ctx,
		openapi3.DisableExamplesValidation(),
		openapi3.AllowExtraSiblingFields(ExtLegacyDelayMs),
	); err != nil {
		return nil, &SpecLoadError{Path: path, Message: "invalid OpenAPI document", Err: err}
	}

	if doc.Paths == nil || doc.Paths.Len() == 0 {
		return nil, &SpecLoadError{Path: path, Err: ErrNoPaths}
	}

	baseDir := filepath.Dir(path)
	pathItems := doc.Paths.Map()
	keys := make([]string, 0, len(pathItems))
	for k := range pathItems {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	spec := &Spec{
		Entries: make([]ServiceEntry, 0, len(keys)),
		Format:  FormatOpenAPI,
		Source:  path,
	}

	for _, rawPath := range keys {
		method, op := primaryOperation(pathItems[rawPath])
		if op == nil {
			l.log.Warn("skipping path without operations", "spec", path, "path", rawPath)
			continue
		}
		name := method + " " + rawPath

		delay, err := operationDelay(op)
		if err != nil {
			return nil, &SpecLoadError{Path: path, Entry: name, Err: err}
		}

		src, err := operationResponse(op, baseDir)
		if err != nil {
			return nil, &SpecLoadError{Path: path, Entry: name, Err: err}
		}

		spec.Entries = append(spec.Entries, ServiceEntry{
			Name:     name,
			Path:     normalizeEntryPath(rawPath),
			Delay:    delay,
			Response: src,
		})
	}
	if len(spec.Entries) == 0 {
		return nil, &SpecLoadError{Path: path, Message: "no path declares an operation", Err: ErrNoPaths}
	}

	for i, s := range doc.Servers {
		if s == nil {
			continue
		}
		server, err := openAPIServer(s)
		if err != nil {
			return nil, &SpecLoadError{Path: path, Entry: fmt.Sprintf("servers[%d]", i), Err: err}
		}
		spec.Servers = append(spec.Servers, server)
	}

	return spec, nil
}

// primaryOperation returns the operation that defines a path's behavior:
// GET if present, otherwise the first operation in operationOrder.
func primaryOperation(item *openapi3.PathItem) (string, *openapi3.Operation) {
	if item == nil {
		return "", nil
	}
	for _, method := range operationOrder {
		if op := item.GetOperation(method); op != nil {
			return method, op
		}
	}
	return "", nil
}

// operationDelay reads the delay extension of op. A missing extension means
// no delay; anything other than a non-negative integer is an error.
func operationDelay(op *openapi3.Operation) (time.Duration, error) {
	raw, ok := op.Extensions[ExtDelayMs]
	if !ok {
		raw, ok = op.Extensions[ExtLegacyDelayMs]
	}
	if !ok || raw == nil {
		return 0, nil
	}
	ms, err := delayMillis(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", ExtDelayMs, err)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

// delayMillis converts a decoded JSON number into whole milliseconds.
func delayMillis(v any) (int64, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case uint64:
		f = float64(n)
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("delay must be an integer number of milliseconds, got %q", n.String())
		}
		f = float64(i)
	default:
		return 0, fmt.Errorf("delay must be an integer number of milliseconds, got %T", v)
	}
	if f < 0 || f != math.Trunc(f) || f > float64(MaxDelayMillis) {
		return 0, fmt.Errorf("delay must be a non-negative integer number of milliseconds, got %v", v)
	}
	return int64(f), nil
}

// operationResponse determines where the response body of op comes from:
// the x-response-file extension, or the first 2xx JSON example.
func operationResponse(op *openapi3.Operation, baseDir string) (ResponseSource, error) {
	if raw, ok := op.Extensions[ExtResponseFile]; ok {
		file, isString := raw.(string)
		if !isString || strings.TrimSpace(file) == "" {
			return ResponseSource{}, fmt.Errorf("%s must be a non-empty string", ExtResponseFile)
		}
		return FileSource(ResolvePath(baseDir, file)), nil
	}

	if op.Responses != nil {
		responses := op.Responses.Map()
		codes := make([]string, 0, len(responses))
		for code := range responses {
			if strings.HasPrefix(code, "2") {
				codes = append(codes, code)
			}
		}
		sort.Strings(codes)

		for _, code := range codes {
			ref := responses[code]
			if ref == nil || ref.Value == nil {
				continue
			}
			example, ok := jsonExample(ref.Value.Content)
			if !ok {
				continue
			}
			body, err := json.Marshal(example)
			if err != nil {
				return ResponseSource{}, fmt.Errorf("response %s example: %w", code, err)
			}
			return InlineSource(body), nil
		}
	}

	return ResponseSource{}, fmt.Errorf("no response: set %s or add a JSON example to a 2xx response", ExtResponseFile)
}

// jsonExample returns the example of the first JSON media type in content.
func jsonExample(content openapi3.Content) (any, bool) {
	if len(content) == 0 {
		return nil, false
	}
	mimes := make([]string, 0, len(content))
	for mime := range content {
		if strings.Contains(mime, "json") {
			mimes = append(mimes, mime)
		}
	}
	sort.Strings(mimes)
	// application/json takes precedence over vendor types.
	if mt := content.Get("application/json"); mt != nil {
		mimes = append([]string{"application/json"}, mimes...)
	}

	for _, mime := range mimes {
		mt := content.Get(mime)
		if mt == nil {
			continue
		}
		if mt.Example != nil {
			return mt.Example, true
		}
		names := make([]string, 0, len(mt.Examples))
		for name := range mt.Examples {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			ref := mt.Examples[name]
			if ref != nil && ref.Value != nil && ref.Value.Value != nil {
				return ref.Value.Value, true
			}
		}
	}
	return nil, false
}

// openAPIServer converts a server object. The port comes from the "port"
// variable's default, or from an explicit port in the URL when there is no
// such variable.
func openAPIServer(s *openapi3.Server) (Server, error) {
	server := Server{URL: s.URL}

	if v, ok := s.Variables["port"]; ok && v != nil {
		port, err := parsePort(v.Default)
		if err != nil {
			return Server{}, fmt.Errorf("port variable: %w", err)
		}
		server.Port = port
		if u, err := url.Parse(strings.ReplaceAll(s.URL, "{port}", v.Default)); err == nil {
			server.Host = u.Hostname()
		}
		return server, nil
	}

	u, err := url.Parse(s.URL)
	if err != nil {
		// Templated URLs without a port variable cannot be resolved; they
		// simply carry no port.
		return server, nil //nolint:nilerr // unparseable URL means no port
	}
	server.Host = u.Hostname()
	if p := u.Port(); p != "" {
		port, err := parsePort(p)
		if err != nil {
			return Server{}, err
		}
		server.Port = port
	}
	return server, nil
}
