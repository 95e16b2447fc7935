package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrorClass is the coarse category of a failed request
type ErrorClass int

const (
	ClassNone ErrorClass = iota
	ClassNetwork
	ClassAuth
	ClassValidation
	ClassNotFound
	ClassServer
	ClassOther
)

func (c ErrorClass) String() string {
	switch c {
	case ClassNetwork:
		return "network"
	case ClassAuth:
		return "auth"
	case ClassValidation:
		return "validation"
	case ClassNotFound:
		return "not_found"
	case ClassServer:
		return "server"
	case ClassOther:
		return "other"
	default:
		return "none"
	}
}

// NetworkError means no HTTP response was received
type NetworkError struct {
	Method string
	Path   string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("failed to send request %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPError is a non-2xx response
type HTTPError struct {
	Method string
	Path   string
	Status int
	Body   []byte
}

func (e *HTTPError) Error() string {
	msg := e.Message()
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("%s %s failed (status %d): %s", e.Method, e.Path, e.Status, msg)
}

// Class maps the status code onto the error taxonomy
func (e *HTTPError) Class() ErrorClass {
	switch {
	case e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden:
		return ClassAuth
	case e.Status == http.StatusBadRequest:
		return ClassValidation
	case e.Status == http.StatusNotFound:
		return ClassNotFound
	case e.Status >= 500:
		return ClassServer
	default:
		return ClassOther
	}
}

// Message extracts the server's human-readable message, if any. It looks at
// the usual single-message keys and then at non-field errors.
func (e *HTTPError) Message() string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(e.Body, &obj); err != nil {
		text := strings.TrimSpace(string(e.Body))
		if text != "" && len(text) < 200 && !strings.HasPrefix(text, "<") {
			return text
		}
		return ""
	}
	for _, key := range []string{"error", "detail", "message"} {
		var s string
		if raw, ok := obj[key]; ok && json.Unmarshal(raw, &s) == nil && s != "" {
			return s
		}
	}
	if msgs := e.FieldErrors()["non_field_errors"]; len(msgs) > 0 {
		return msgs[0]
	}
	return ""
}

// FieldErrors decodes a 400 body of the form {"field": ["msg", ...]}.
// Returns nil for other statuses or shapes.
func (e *HTTPError) FieldErrors() map[string][]string {
	if e.Status != http.StatusBadRequest {
		return nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(e.Body, &obj); err != nil {
		return nil
	}
	fields := map[string][]string{}
	for key, raw := range obj {
		var list []string
		if err := json.Unmarshal(raw, &list); err == nil {
			fields[key] = list
			continue
		}
		var single string
		if err := json.Unmarshal(raw, &single); err == nil && key != "error" && key != "detail" {
			fields[key] = []string{single}
		}
	}
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// FieldErrorer is implemented by errors that carry per-field messages
type FieldErrorer interface {
	FieldErrors() map[string][]string
}

// FieldErrors returns per-field messages from err, or nil
func FieldErrors(err error) map[string][]string {
	var fe FieldErrorer
	if errors.As(err, &fe) {
		return fe.FieldErrors()
	}
	return nil
}

// FormatFieldErrors renders field messages one per line, sorted by field
func FormatFieldErrors(fields map[string][]string) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&sb, "  %s: %s\n", k, strings.Join(fields[k], " "))
	}
	return sb.String()
}

// ClassOf classifies any error returned by the client
func ClassOf(err error) ErrorClass {
	if err == nil {
		return ClassNone
	}
	var herr *HTTPError
	if errors.As(err, &herr) {
		return herr.Class()
	}
	var nerr *NetworkError
	if errors.As(err, &nerr) {
		return ClassNetwork
	}
	return ClassOther
}

// StatusOf returns the HTTP status carried by err, or 0
func StatusOf(err error) int {
	var herr *HTTPError
	if errors.As(err, &herr) {
		return herr.Status
	}
	return 0
}

// IsUnauthorized reports whether err is a 401 response
func IsUnauthorized(err error) bool {
	return StatusOf(err) == http.StatusUnauthorized
}
