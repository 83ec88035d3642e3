package typeset

import (
	"errors"
	"fmt"
)

// Sentinel errors for the typeset package.
var (
	// ErrInvalidRequest is matched by every *InvalidRequestError.
	ErrInvalidRequest = errors.New("typeset: invalid request")

	// ErrRenderBackend is matched by every *RenderBackendError.
	ErrRenderBackend = errors.New("typeset: render backend failure")

	// ErrClosed is returned by RenderBatch after Close.
	ErrClosed = errors.New("typeset: engine closed")
)

// InvalidRequestError reports a RenderRequest field that cannot be served.
// Retrying the same request fails the same way.
type InvalidRequestError struct {
	Field  string
	Reason string
	Err    error // underlying parse error, if any
}

func (e *InvalidRequestError) Error() string {
	return fmt.Sprintf("typeset: invalid request: %s: %s", e.Field, e.Reason)
}

// Is reports whether target is ErrInvalidRequest.
func (e *InvalidRequestError) Is(target error) bool {
	return target == ErrInvalidRequest
}

func (e *InvalidRequestError) Unwrap() error {
	return e.Err
}

func invalid(field, reason string) *InvalidRequestError {
	return &InvalidRequestError{Field: field, Reason: reason}
}

// RenderBackendError reports a failure to load glyph data, rasterize or
// encode the output.
type RenderBackendError struct {
	Op  string // "font", "rasterize"
	Err error
}

func (e *RenderBackendError) Error() string {
	return fmt.Sprintf("typeset: %s: %v", e.Op, e.Err)
}

// Is reports whether target is ErrRenderBackend.
func (e *RenderBackendError) Is(target error) bool {
	return target == ErrRenderBackend
}

func (e *RenderBackendError) Unwrap() error {
	return e.Err
}
