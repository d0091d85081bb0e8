package store

import (
	"errors"

	"github.com/getmockd/mockan/pkg/config"
)

// Sentinel errors wrapped by ResponseLoadError.
var (
	ErrEmptySource     = errors.New("response source is empty")
	ErrEmptyBody       = errors.New("response body is empty")
	ErrInvalidJSON     = errors.New("response body is not valid JSON")
	ErrPayloadTooLarge = errors.New("response body exceeds size limit")
)

// ResponseLoadError is returned when a response source cannot be read or
// does not parse. It is always fatal at startup.
type ResponseLoadError struct {
	Source config.ResponseSource
	Err    error
}

func (e *ResponseLoadError) Error() string {
	return "load response " + e.Source.String() + ": " + e.Err.Error()
}

func (e *ResponseLoadError) Unwrap() error {
	return e.Err
}
