package minutesapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// ServerError is a non-2xx response whose body decoded as a JSON object.
type ServerError struct {
	Op         string
	StatusCode int
	StatusText string

	// Detail is the service's own description, empty when absent.
	Detail string

	// Message is an extra note some critique failures carry.
	Message string
}

func (e *ServerError) Error() string {
	msg := e.Detail
	if msg == "" {
		msg = e.StatusText
	}
	return fmt.Sprintf("%s: service returned %d: %s", e.Op, e.StatusCode, msg)
}

// Reason is the detail when present, otherwise the status text.
func (e *ServerError) Reason() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.StatusText
}

// TransportError means the request did not complete or its body could not be
// decoded.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

type errorBody struct {
	Detail  json.RawMessage `json:"detail"`
	Message json.RawMessage `json:"message"`
}

// decodeServerError maps a non-2xx body to a ServerError. Bodies that are
// not JSON at all, or are JSON null, are treated as a transport failure.
// Any other JSON value that is not an object carries no detail, so the
// status text is used.
func decodeServerError(resp *http.Response, body []byte) (*ServerError, error) {
	trimmed := bytes.TrimSpace(body)
	if !json.Valid(trimmed) {
		return nil, fmt.Errorf("parsing error body (HTTP %d): invalid JSON", resp.StatusCode)
	}
	if bytes.Equal(trimmed, []byte("null")) {
		return nil, fmt.Errorf("parsing error body (HTTP %d): null body", resp.StatusCode)
	}

	var eb errorBody
	if isJSONObject(trimmed) {
		if err := json.Unmarshal(trimmed, &eb); err != nil {
			return nil, fmt.Errorf("parsing error body (HTTP %d): %w", resp.StatusCode, err)
		}
	}
	return &ServerError{
		StatusCode: resp.StatusCode,
		StatusText: statusText(resp),
		Detail:     rawText(eb.Detail),
		Message:    rawText(eb.Message),
	}, nil
}

func isJSONObject(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// rawText returns a JSON string's value, or the compact JSON of anything else
// (FastAPI validation errors put a list in detail). Null yields "".
func rawText(raw json.RawMessage) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		return s
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return string(trimmed)
	}
	return buf.String()
}

// statusText is the reason phrase of the response, e.g. "Bad Request".
func statusText(resp *http.Response) string {
	text := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))
	text = strings.TrimSpace(text)
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}
