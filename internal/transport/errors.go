package transport

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// HTTPError is returned for every non-2xx response.
type HTTPError struct {
	Method string
	Path   string
	Status int
	Header http.Header
	// Body is the decoded error payload. Text bodies are wrapped as
	// {"message": text}; empty or malformed bodies become {"status": code}.
	Body any
	// Raw holds the undecoded JSON body, nil for non-JSON responses.
	Raw       []byte
	Message   string
	RequestID string
}

func newHTTPError(method, path, requestID string, resp *http.Response, payload any, isJSON bool, raw []byte) *HTTPError {
	e := &HTTPError{
		Method:    method,
		Path:      path,
		Status:    resp.StatusCode,
		Header:    resp.Header,
		RequestID: requestID,
	}

	e.Body = payload
	if isJSON && payload != nil {
		e.Raw = raw
	}
	if e.Body == nil {
		e.Body = map[string]any{"status": resp.StatusCode}
	}

	e.Message = messageOf(payload)
	if e.Message == "" {
		e.Message = http.StatusText(resp.StatusCode)
	}
	return e
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: http %d: %s", e.Method, e.Path, e.Status, e.Message)
}

// APIError returns the decoded error payload.
func (e *HTTPError) APIError() any { return e.Body }

// HTTPStatus returns the response status code.
func (e *HTTPError) HTTPStatus() int { return e.Status }

// RawBody returns the undecoded JSON body, preserving key order.
func (e *HTTPError) RawBody() []byte { return e.Raw }

// CorrelationID prefers the server's id and falls back to the request id.
func (e *HTTPError) CorrelationID() string {
	for _, h := range []string{"X-Correlation-ID", RequestIDHeader} {
		if v := strings.TrimSpace(e.Header.Get(h)); v != "" {
			return v
		}
	}
	return e.RequestID
}

func messageOf(payload any) string {
	switch p := payload.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(p)
	case map[string]any:
		for _, key := range []string{"detail", "message"} {
			if s, ok := p[key].(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
		if inner, ok := p["error"].(map[string]any); ok {
			if s, ok := inner["message"].(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	return string(b)
}
