package repos

import (
	"fmt"
	"net/http"
)

// InvalidInputError is returned before any upstream call when a request
// parameter is missing or malformed.
type InvalidInputError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e InvalidInputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// UpstreamError carries the status code and message of a failed upstream
// call so that it can be forwarded to the caller verbatim.
type UpstreamError struct {
	Op      string
	Status  int
	Message string
}

// Error implements the error interface.
func (e UpstreamError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("upstream error (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("%s: upstream error (%d): %s", e.Op, e.Status, e.Message)
}

// NotFound reports whether the upstream said the object does not exist.
func (e UpstreamError) NotFound() bool {
	return e.Status == http.StatusNotFound || e.Status == http.StatusUnprocessableEntity
}

// RefNotResolvedError is returned when a ref is neither a SHA, a branch nor a tag.
type RefNotResolvedError struct {
	Ref string
}

// Error implements the error interface.
func (e RefNotResolvedError) Error() string {
	return fmt.Sprintf("could not resolve ref %q", e.Ref)
}

// BinaryContentError is returned when a file expected to be text contains a NUL byte.
type BinaryContentError struct {
	Path string
}

// Error implements the error interface.
func (e BinaryContentError) Error() string {
	return fmt.Sprintf("%s is a binary file and cannot be served as text", e.Path)
}

// RangeError is returned when a requested start line lies beyond the file.
type RangeError struct {
	Start      int
	TotalLines int
}

// Error implements the error interface.
func (e RangeError) Error() string {
	return fmt.Sprintf("start line %d is beyond end of file (%d lines)", e.Start, e.TotalLines)
}

// MissingCredentialError is returned when no upstream token is configured
// for an owner. It indicates a deployment problem, not a bad request.
type MissingCredentialError struct {
	Owner string
}

// Error implements the error interface.
func (e MissingCredentialError) Error() string {
	return fmt.Sprintf("no upstream credential configured for owner %q", e.Owner)
}
