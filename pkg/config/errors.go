package config

import (
	"errors"
	"strconv"
)

// Sentinel errors for spec loading and default port derivation.
var (
	ErrFileNotFound      = errors.New("specification file not found")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrEmptyFile         = errors.New("specification file is empty")
	ErrUnknownFormat     = errors.New("unable to detect specification format")
	ErrUnsupportedFormat = errors.New("unsupported specification format")
	ErrNoPaths           = errors.New("specification defines no paths")
	ErrNoServer          = errors.New("no server configured")
	ErrNoPort            = errors.New("server defines no port")
)

// SpecLoadError is returned when a specification file is missing, unreadable
// or malformed. It is always fatal at startup.
type SpecLoadError struct {
	// Path is the specification file.
	Path string

	// Entry is the service or OpenAPI path the error relates to, if any.
	Entry string

	// Message describes the problem.
	Message string

	// Err is the underlying cause.
	Err error
}

func (e *SpecLoadError) Error() string {
	msg := "load spec " + e.Path
	if e.Entry != "" {
		msg += " (" + e.Entry + ")"
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SpecLoadError) Unwrap() error {
	return e.Err
}

// MultipleServersError is returned by DefaultPort when a spec declares more
// than one server. Callers treat it as "no default port", not as a crash.
type MultipleServersError struct {
	Count int
}

func (e *MultipleServersError) Error() string {
	return "only one server definition is supported, found " + strconv.Itoa(e.Count)
}
