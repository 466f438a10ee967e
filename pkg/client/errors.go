package client

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// HTTPError represents a non-2xx HTTP response from the API.
type HTTPError struct {
	StatusCode int
	// Message is the displayable error: the body's "error" field, else its
	// "detail" field, else the raw body text, else "Status <code>".
	Message string
	// Fields holds per-field validation messages when the body is a JSON object.
	Fields map[string][]string
	// Body is the raw JSON body, nil when the body was not a JSON object.
	Body json.RawMessage
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// NetworkError means the request never produced an HTTP response: connection
// failure, DNS failure, expired deadline or cancellation.
type NetworkError struct {
	Method string
	URL    string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error: %s %s: %v", e.Method, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsStatus returns true if err (or any wrapped error) is an HTTPError with the given status code.
func IsStatus(err error, code int) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == code
	}
	return false
}

// IsNetwork reports whether err (or any wrapped error) is a NetworkError.
func IsNetwork(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// ErrorKind classifies API failures.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindNetwork
	KindAuth
	KindValidation
	KindServer
	KindUnknown
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindNetwork:
		return "network"
	case KindAuth:
		return "auth"
	case KindValidation:
		return "validation"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// Kind classifies err.
func Kind(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	if IsNetwork(err) {
		return KindNetwork
	}
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		return KindUnknown
	}
	switch {
	case httpErr.StatusCode == http.StatusUnauthorized:
		return KindAuth
	case httpErr.StatusCode >= 400 && httpErr.StatusCode < 500:
		return KindValidation
	case httpErr.StatusCode >= 500:
		return KindServer
	default:
		return KindUnknown
	}
}

// UserMessage returns a message suitable for display to the user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if IsNetwork(err) {
		return "Network error"
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Message
	}
	return err.Error()
}

// FieldErrors returns the per-field validation messages carried by err, if any.
func FieldErrors(err error) map[string][]string {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Fields
	}
	return nil
}

// newHTTPError builds an HTTPError from a response status and body.
func newHTTPError(status int, body []byte) *HTTPError {
	e := &HTTPError{StatusCode: status}
	trimmed := bytes.TrimSpace(body)

	var obj map[string]json.RawMessage
	if len(trimmed) > 0 && trimmed[0] == '{' && json.Unmarshal(trimmed, &obj) == nil {
		e.Body = json.RawMessage(trimmed)
		e.Message = stringField(obj, "error")
		if e.Message == "" {
			e.Message = stringField(obj, "detail")
		}
		e.Fields = fieldErrors(obj)
	}
	var str string
	if e.Message == "" && len(trimmed) > 0 && trimmed[0] == '"' && json.Unmarshal(trimmed, &str) == nil {
		e.Message = strings.TrimSpace(str)
	}
	if e.Message == "" && len(trimmed) > 0 {
		e.Message = string(trimmed)
	}
	if e.Message == "" {
		e.Message = fmt.Sprintf("Status %d", status)
	}
	return e
}

func stringField(obj map[string]json.RawMessage, key string) string {
	raw, ok := obj[key]
	if !ok {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	return ""
}

// fieldErrors extracts DRF-style {"field": ["msg", ...]} validation errors.
func fieldErrors(obj map[string]json.RawMessage) map[string][]string {
	out := make(map[string][]string)
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if k == "error" || k == "detail" {
			continue
		}
		var list []string
		if json.Unmarshal(obj[k], &list) == nil {
			if len(list) > 0 {
				out[k] = list
			}
			continue
		}
		var s string
		if json.Unmarshal(obj[k], &s) == nil && s != "" {
			out[k] = []string{s}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
