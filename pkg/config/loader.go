package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/getmockd/mockan/pkg/logging"
	"gopkg.in/yaml.v3"
)

// Loader reads a specification file into a normalized Spec.
type Loader interface {
	// Load reads and normalizes the file at path.
	Load(ctx context.Context, path string) (*Spec, error)

	// Format returns the format this loader handles.
	Format() Format
}

// LoaderOption configures the loaders returned by NewLoader.
type LoaderOption func(*loaderOptions)

type loaderOptions struct {
	log *slog.Logger
}

// WithLogger sets the logger used to report skipped or ignored input.
func WithLogger(log *slog.Logger) LoaderOption {
	return func(o *loaderOptions) {
		if log != nil {
			o.log = log
		}
	}
}

func buildLoaderOptions(opts []LoaderOption) loaderOptions {
	o := loaderOptions{log: logging.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewLoader returns the loader for format. FormatAuto is not a concrete
// format; use Load to sniff the file first.
func NewLoader(format Format, opts ...LoaderOption) (Loader, error) {
	switch format {
	case FormatOpenAPI:
		return NewOpenAPILoader(opts...), nil
	case FormatServiceMap:
		return NewServiceMapLoader(opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(format))
	}
}

// Load reads the specification at path. With FormatAuto the format is
// detected from the document content.
func Load(ctx context.Context, path string, format Format, opts ...LoaderOption) (*Spec, error) {
	if format == FormatAuto {
		data, err := readSpecFile(path)
		if err != nil {
			return nil, err
		}
		format, err = DetectFormat(data)
		if err != nil {
			return nil, &SpecLoadError{Path: path, Err: err}
		}
	}

	loader, err := NewLoader(format, opts...)
	if err != nil {
		return nil, &SpecLoadError{Path: path, Err: err}
	}
	return loader.Load(ctx, path)
}

// DetectFormat inspects the top-level keys of a YAML or JSON document.
// A document with an "openapi" key is an OpenAPI document and one with a
// "services" key a service map. Swagger 2.0 documents are rejected.
func DetectFormat(data []byte) (Format, error) {
	var probe struct {
		OpenAPI  string    `yaml:"openapi"`
		Swagger  string    `yaml:"swagger"`
		Services yaml.Node `yaml:"services"`
	}
	// YAML is a superset of JSON, so this handles both.
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return FormatUnknown, fmt.Errorf("%w: %w", ErrUnknownFormat, err)
	}

	switch {
	case probe.OpenAPI != "":
		return FormatOpenAPI, nil
	case probe.Swagger != "":
		return FormatUnknown, fmt.Errorf("%w: swagger %s (convert to OpenAPI 3 first)", ErrUnsupportedFormat, probe.Swagger)
	case probe.Services.Kind != 0:
		return FormatServiceMap, nil
	default:
		return FormatUnknown, ErrUnknownFormat
	}
}

// readSpecFile reads a specification file, mapping the common failure modes
// to sentinel errors wrapped in a SpecLoadError.
func readSpecFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &SpecLoadError{Path: path, Err: ErrFileNotFound}
		}
		if os.IsPermission(err) {
			return nil, &SpecLoadError{Path: path, Err: ErrPermissionDenied}
		}
		return nil, &SpecLoadError{Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &SpecLoadError{Path: path, Message: "path is a directory, not a file"}
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsPermission(err) {
			return nil, &SpecLoadError{Path: path, Err: ErrPermissionDenied}
		}
		return nil, &SpecLoadError{Path: path, Err: err}
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, &SpecLoadError{Path: path, Message: "read failed", Err: err}
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, &SpecLoadError{Path: path, Err: ErrEmptyFile}
	}
	return data, nil
}

// ResolvePath resolves targetPath relative to basePath. Absolute paths are
// returned unchanged and a leading "~/" expands to the home directory.
func ResolvePath(basePath, targetPath string) string {
	if filepath.IsAbs(targetPath) {
		return targetPath
	}
	if strings.HasPrefix(targetPath, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, targetPath[2:])
		}
	}
	return filepath.Join(basePath, targetPath)
}

// parsePort parses a port number in the range 1-65535. "0" parses to 0,
// meaning no port.
func parsePort(s string) (uint16, error) {
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid port %q: must be a number between 0 and 65535", s)
	}
	return uint16(n), nil
}
