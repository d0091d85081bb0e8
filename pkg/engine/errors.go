package engine

import (
	"errors"
	"fmt"

	"github.com/getmockd/mockan/pkg/config"
)

// ErrRouteNotFound is returned when a request path matches no route.
var ErrRouteNotFound = errors.New("route not found")

// DuplicateRouteError is returned by Build in strict mode when two entries
// declare the same normalized path.
type DuplicateRouteError struct {
	Path   string
	First  string
	Second string
}

func (e *DuplicateRouteError) Error() string {
	return fmt.Sprintf("duplicate route /%s: declared by %q and %q", e.Path, e.First, e.Second)
}

// UnresolvedResponseError is returned by Build when an entry's response
// source has no loaded payload.
type UnresolvedResponseError struct {
	Entry  string
	Path   string
	Source config.ResponseSource
}

func (e *UnresolvedResponseError) Error() string {
	return fmt.Sprintf("route /%s (%s): response %s was not loaded", e.Path, e.Entry, e.Source)
}
