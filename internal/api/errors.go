package api

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
)

// Error is a non-2xx response from the petitions API.
//
// Message carries the server's explanation: the custom reason phrase when the
// server set one, otherwise the response body.
type Error struct {
	Method  string
	Path    string
	Status  int
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, e.Message)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
}

// TransportError wraps a failure to reach the API at all.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// lastTierPattern matches the API's refusal to remove a petition's only tier.
var lastTierPattern = regexp.MustCompile(`(?i)\bonly (one|remaining|support tier)\b`)

// StatusOf returns the HTTP status carried by err, or 0 when err is not an *Error.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsNotFound returns true if the API answered 404.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool {
	return StatusOf(err) == http.StatusNotFound
}

// IsUnauthorized returns true if the API rejected the session token.
func IsUnauthorized(err error) bool {
	return StatusOf(err) == http.StatusUnauthorized
}

// IsTransport returns true if the request never produced a response.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsLastTierRejection returns true if the API refused to delete a support
// tier because the petition would be left without any.
func IsLastTierRejection(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusForbidden && lastTierPattern.MatchString(apiErr.Message)
}

// reasonOrBody picks the most specific explanation for a failed response.
// The API reports validation detail through a custom reason phrase, which
// net/http exposes as the remainder of resp.Status.
func reasonOrBody(status string, code int, body []byte) string {
	reason := strings.TrimSpace(strings.TrimPrefix(status, fmt.Sprintf("%d", code)))
	if reason != "" && reason != http.StatusText(code) {
		return reason
	}
	return strings.TrimSpace(string(body))
}
