package config

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strings"
	"time"
)

// Format identifies the shape of a specification file.
type Format string

// Supported specification formats.
const (
	FormatAuto       Format = "auto"
	FormatOpenAPI    Format = "openapi"
	FormatServiceMap Format = "servicemap"
	FormatUnknown    Format = ""
)

// ParseFormat parses a format name as accepted on the command line.
// Returns FormatUnknown if the name is not recognized.
func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto
	case "openapi", "oas", "oas3":
		return FormatOpenAPI
	case "servicemap", "service-map", "services":
		return FormatServiceMap
	default:
		return FormatUnknown
	}
}

// Spec is the normalized form of a specification file, independent of the
// format it was read from.
type Spec struct {
	// Entries lists the services in registration order. Later entries win
	// over earlier ones with the same path unless the builder is strict.
	Entries []ServiceEntry

	// Servers holds the server definitions found in the file. At most one is
	// supported for default port derivation; see DefaultPort.
	Servers []Server

	// Format is the format the spec was loaded from.
	Format Format

	// Source is the path of the file the spec was loaded from.
	Source string
}

// ResponseSources returns the response source of every entry, in entry order.
// Duplicates are not removed.
func (s *Spec) ResponseSources() []ResponseSource {
	if s == nil {
		return nil
	}
	sources := make([]ResponseSource, 0, len(s.Entries))
	for _, e := range s.Entries {
		sources = append(sources, e.Response)
	}
	return sources
}

// Server describes one server definition of a spec.
type Server struct {
	// URL is the server URL as written in an OpenAPI document. Empty for
	// service maps.
	URL string

	// Host is the host part, if known.
	Host string

	// Port is the bind port. Zero means the definition carries no port.
	Port uint16
}

// MaxDelayMillis is the longest delay, in milliseconds, that fits in a
// time.Duration.
const MaxDelayMillis = math.MaxInt64 / int64(time.Millisecond)

// ServiceEntry is one mocked endpoint.
type ServiceEntry struct {
	// Name identifies the entry in logs and errors. For service maps it is
	// the service key, for OpenAPI documents "METHOD /path".
	Name string

	// Path is the normalized URL path (no leading or trailing slash).
	Path string

	// Delay is the artificial latency applied before responding.
	Delay time.Duration

	// Response is where the response body comes from.
	Response ResponseSource
}

// ResponseSource names a response body: either a file on disk or an inline
// body. Exactly one of File and Inline is set.
type ResponseSource struct {
	// File is the path of the response file, already resolved against the
	// directory of the spec that referenced it.
	File string

	// Inline is a response body carried directly by the spec.
	Inline []byte
}

// FileSource returns a ResponseSource reading from path.
func FileSource(path string) ResponseSource {
	return ResponseSource{File: path}
}

// InlineSource returns a ResponseSource carrying body.
func InlineSource(body []byte) ResponseSource {
	return ResponseSource{Inline: body}
}

// IsFile reports whether the source refers to a file.
func (s ResponseSource) IsFile() bool {
	return s.File != ""
}

// IsZero reports whether the source is empty.
func (s ResponseSource) IsZero() bool {
	return s.File == "" && len(s.Inline) == 0
}

// ID returns a stable identifier for the source. Two sources with the same
// ID resolve to the same payload.
func (s ResponseSource) ID() string {
	if s.File != "" {
		return "file:" + s.File
	}
	sum := sha256.Sum256(s.Inline)
	return "inline:" + hex.EncodeToString(sum[:])
}

// String returns a human-readable description used in errors.
func (s ResponseSource) String() string {
	if s.File != "" {
		return s.File
	}
	if s.IsZero() {
		return "<none>"
	}
	return "inline body"
}

// NormalizePath strips every leading slash from p. It is the normalization
// shared by the route table builder and the dispatcher, so request paths and
// registered paths compare equal.
func NormalizePath(p string) string {
	return strings.TrimLeft(p, "/")
}

// normalizeEntryPath is the stricter normalization loaders apply to declared
// paths: leading and trailing slashes are both removed.
func normalizeEntryPath(p string) string {
	return strings.TrimRight(NormalizePath(strings.TrimSpace(p)), "/")
}
