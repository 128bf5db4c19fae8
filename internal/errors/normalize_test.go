package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFailure mimics the transport's non-2xx error.
type fakeFailure struct {
	status        int
	body          any
	raw           []byte
	correlationID string
	panics        bool
}

func (f *fakeFailure) Error() string { return fmt.Sprintf("http %d", f.status) }

func (f *fakeFailure) APIError() any {
	if f.panics {
		panic("boom")
	}
	return f.body
}

func (f *fakeFailure) HTTPStatus() int { return f.status }

func (f *fakeFailure) RawBody() []byte { return f.raw }

func (f *fakeFailure) CorrelationID() string { return f.correlationID }

func TestNormalize_Total(t *testing.T) {
	deep := any(map[string]any{"message": "bottom"})
	for range 20 {
		deep = map[string]any{"apiError": deep}
	}

	inputs := map[string]any{
		"nil":                nil,
		"empty string":       "",
		"blank string":       "   \n",
		"int":                42,
		"bool":               true,
		"float":              3.5,
		"list":               []any{1, "two"},
		"error number":       map[string]any{"error": 5},
		"error empty string": map[string]any{"error": ""},
		"error list":         map[string]any{"error": []any{"a"}},
		"fields string":      map[string]any{"fields": "x"},
		"fields nested":      map[string]any{"error": map[string]any{"fields": map[string]any{"a": map[string]any{"b": 1}}}},
		"bad raw json":       json.RawMessage(`{bad`),
		"raw bytes text":     []byte("not json"),
		"raw empty":          []byte(""),
		"raw trailing":       []byte(`{"message":"a"} {"x":1}`),
		"unmarshalable":      struct{ C chan int }{C: make(chan int)},
		"func":               func() {},
		"status not number":  map[string]any{"response": map[string]any{"status": "abc"}},
		"huge status":        map[string]any{"status": 99999, "message": "x"},
		"deep apiError":      deep,
		"nil map":            map[string]any(nil),
		"empty map":          map[string]any{},
		"nil canonical":      (*CanonicalError)(nil),
		"empty canonical":    &CanonicalError{},
		"nil body failure":   &fakeFailure{status: 502},
		"panicking failure":  &fakeFailure{status: 500, panics: true},
		"detail list junk":   map[string]any{"detail": []any{1, nil, map[string]any{"loc": 5}}},
		"string map":         map[string]string{"detail": "nope"},
		"typed struct":       struct{ Message string }{Message: "typed"},
	}

	for name, input := range inputs {
		t.Run(name, func(t *testing.T) {
			var ce *CanonicalError
			require.NotPanics(t, func() { ce = Normalize(input) })
			require.NotNil(t, ce)
			assert.NotEmpty(t, strings.TrimSpace(string(ce.Code)))
			assert.NotEmpty(t, strings.TrimSpace(ce.Message))
		})
	}
}

func TestNormalize_Envelope(t *testing.T) {
	body := map[string]any{
		"success": false,
		"error": map[string]any{
			"code":    "VALIDATION_ERROR",
			"message": "bad input",
			"fields":  map[string]any{"email": []any{"must be valid"}},
		},
	}

	ce := Normalize(body)
	assert.Equal(t, ErrCodeValidation, ce.Code)
	assert.Equal(t, "bad input", ce.Message)
	assert.Equal(t, []string{"must be valid"}, ce.FieldErrors.Get("email"))
	assert.False(t, ce.Retryable)
	assert.Equal(t, "must be valid", FriendlyMessage(ce, nil))

	raw := []byte(`{"success":false,"error":{"code":"VALIDATION_ERROR","message":"bad input","fields":{"email":["must be valid"]}}}`)
	assert.Equal(t, "must be valid", Resolve(raw, nil))
}

func TestNormalize_EnvelopeHTTPStatus(t *testing.T) {
	ce := Normalize(map[string]any{
		"success": false,
		"error":   map[string]any{"code": "PAYOUT_DESTINATION_MISSING", "message": "no account", "http_status": 409},
	})
	assert.Equal(t, ErrCodePayoutDestinationMissing, ce.Code)
	assert.Equal(t, 409, ce.HTTPStatus)
}

func TestNormalize_FieldErrorPriority(t *testing.T) {
	tests := []struct {
		name  string
		error map[string]any
		want  map[string][]string
	}{
		{
			name: "fields wins over errors",
			error: map[string]any{
				"fields": map[string]any{"a": "from fields"},
				"errors": map[string]any{"b": "from errors"},
			},
			want: map[string][]string{"a": {"from fields"}},
		},
		{
			name: "errors when fields null",
			error: map[string]any{
				"fields": nil,
				"errors": map[string]any{"b": []any{"from errors"}},
			},
			want: map[string][]string{"b": {"from errors"}},
		},
		{
			name: "validation_errors last",
			error: map[string]any{
				"fields":            "not an object",
				"validation_errors": map[string]any{"c": []any{"", "third"}},
			},
			want: map[string][]string{"c": {"third"}},
		},
		{
			name: "field_errors fallback",
			error: map[string]any{
				"field_errors": map[string]any{"d": "snake"},
			},
			want: map[string][]string{"d": {"snake"}},
		},
		{
			name: "errors as list",
			error: map[string]any{
				"errors": []any{map[string]any{"field": "title", "message": "required"}},
			},
			want: map[string][]string{"title": {"required"}},
		},
		{
			name: "scalar values stringified",
			error: map[string]any{
				"fields": map[string]any{"budget": []any{100.0, true}},
			},
			want: map[string][]string{"budget": {"100", "true"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.error["code"] = "VALIDATION_ERROR"
			ce := Normalize(map[string]any{"error": tt.error})
			assert.Equal(t, tt.want, ce.FieldErrors.Map())
		})
	}
}

func TestNormalize_FieldOrderFollowsRawBody(t *testing.T) {
	raw := []byte(`{"error":{"code":"VALIDATION_ERROR","message":"bad","fields":{"password":["too short"],"email":["taken"]}}}`)

	ce := Normalize(&fakeFailure{status: 422, raw: raw, body: map[string]any{}})
	require.Len(t, ce.FieldErrors, 2)
	assert.Equal(t, "password", ce.FieldErrors[0].Field)
	assert.Equal(t, "too short", FriendlyMessage(ce, nil))

	// Without the raw body field names are sorted.
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	ce = Normalize(decoded)
	assert.Equal(t, "email", ce.FieldErrors[0].Field)
}

func TestNormalize_CodeExtraction(t *testing.T) {
	tests := []struct {
		name   string
		input  any
		want   ErrorCode
		status int
	}{
		{name: "code", input: map[string]any{"code": "FORBIDDEN", "message": "x"}, want: ErrCodeForbidden},
		{name: "error_code", input: map[string]any{"error_code": "E1", "message": "x"}, want: "E1"},
		{name: "type", input: map[string]any{"type": "T1", "message": "x"}, want: "T1"},
		{name: "reason", input: map[string]any{"reason": "R1", "message": "x"}, want: "R1"},
		{name: "numeric code", input: map[string]any{"code": 1234, "message": "x"}, want: "1234"},
		{name: "status only", input: map[string]any{"status": 418, "message": "teapot"}, want: "HTTP_418", status: 418},
		{name: "nothing", input: map[string]any{"message": "x"}, want: ErrCodeInternal},
		{name: "string status", input: map[string]any{"status_code": "503", "detail": "down"}, want: "HTTP_503", status: 503},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce := Normalize(tt.input)
			assert.Equal(t, tt.want, ce.Code)
			assert.Equal(t, tt.status, ce.HTTPStatus)
		})
	}
}

func TestNormalize_MessageExtraction(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  string
	}{
		{name: "message", input: map[string]any{"message": "m", "detail": "d"}, want: "m"},
		{name: "detail", input: map[string]any{"message": "", "detail": "d"}, want: "d"},
		{name: "description", input: map[string]any{"description": "desc"}, want: "desc"},
		{name: "title", input: map[string]any{"title": "Bad Request"}, want: "Bad Request"},
		{name: "string error", input: map[string]any{"error": "invalid_grant"}, want: "invalid_grant"},
		{name: "raw string", input: "Task already assigned", want: "Task already assigned"},
		{name: "nested message", input: map[string]any{"error": map[string]any{"code": "X"}}, want: FallbackMessage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input).Message)
		})
	}
}

func TestNormalize_FastAPIDetailList(t *testing.T) {
	raw := []byte(`{"detail":[{"loc":["body","email"],"msg":"field required","type":"value_error.missing"},{"loc":["body","password"],"msg":"too short"}]}`)

	ce := Normalize(&fakeFailure{status: 422, raw: raw})
	assert.Equal(t, ErrorCode("HTTP_422"), ce.Code)
	assert.Equal(t, 422, ce.HTTPStatus)
	assert.Equal(t, "field required", ce.Message)
	require.Len(t, ce.FieldErrors, 2)
	assert.Equal(t, "email", ce.FieldErrors[0].Field)
	assert.Equal(t, []string{"too short"}, ce.FieldErrors.Get("password"))
}

func TestNormalize_NetworkTakesPriority(t *testing.T) {
	tests := []struct {
		name  string
		input any
	}{
		{name: "deadline", input: context.DeadlineExceeded},
		{name: "canceled wrapped", input: fmt.Errorf("list tasks: %w", context.Canceled)},
		{name: "url error", input: &url.Error{Op: "Get", URL: "http://x", Err: errors.New("boom")}},
		{name: "errno", input: fmt.Errorf("read: %w", syscall.ECONNRESET)},
		{name: "message vocabulary", input: errors.New("Network request failed")},
		{name: "abort marker with other fields", input: map[string]any{
			"name":   "AbortError",
			"status": 500,
			"error":  map[string]any{"code": "FORBIDDEN", "message": "nope"},
		}},
		{name: "connection code", input: map[string]any{"code": "ECONNABORTED", "message": "aborted"}},
		{name: "timeout string", input: "request timed out"},
		{name: "wrapped in apiError", input: map[string]any{"apiError": map[string]any{"name": "TimeoutError"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce := Normalize(tt.input)
			assert.Equal(t, ErrCodeNetwork, ce.Code)
			assert.Equal(t, NetworkMessage, ce.Message)
			assert.True(t, ce.Retryable)
			assert.Equal(t, NetworkMessage, FriendlyMessage(ce, nil))
		})
	}
}

func TestNormalize_NetworkMessageWinsOverStatus(t *testing.T) {
	tests := []struct {
		name  string
		input any
	}{
		{"status 503", map[string]any{"message": "Network request failed", "status": 503}},
		{"status 500", map[string]any{"status": 500, "message": "Upstream network unavailable"}},
		{"http_status with code", map[string]any{"http_status": 502, "code": "BAD_GATEWAY", "message": "request timed out"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce := Normalize(tt.input)
			assert.Equal(t, ErrCodeNetwork, ce.Code)
			assert.Equal(t, NetworkMessage, FriendlyMessage(ce, nil))
		})
	}
}

func TestNormalize_ResponseBodyVocabularyIgnored(t *testing.T) {
	ce := Normalize(&fakeFailure{status: 500, body: map[string]any{"message": "Upstream network unavailable"}})
	assert.Equal(t, ErrorCode("HTTP_500"), ce.Code)
	assert.Equal(t, "Upstream network unavailable", ce.Message)
	assert.Equal(t, 500, ce.HTTPStatus)
	assert.True(t, ce.Retryable)
}

func TestNormalize_NotFoundTextBody(t *testing.T) {
	ce := Normalize(&fakeFailure{status: 404, body: map[string]any{"message": "<html>Not Found</html>"}})
	assert.Equal(t, 404, ce.HTTPStatus)
	assert.Equal(t, notFoundMessage, FriendlyMessage(ce, nil))

	ce = Normalize(&fakeFailure{status: 404, body: map[string]any{"status": 404}})
	assert.Equal(t, 404, ce.HTTPStatus)
	assert.Equal(t, ErrorCode("HTTP_404"), ce.Code)
	assert.Equal(t, FallbackMessage, ce.Message)
	assert.Equal(t, notFoundMessage, FriendlyMessage(ce, nil))
}

func TestNormalize_WrappedFailure(t *testing.T) {
	failure := &fakeFailure{
		status:        403,
		correlationID: "req-1",
		body: map[string]any{
			"success": false,
			"error":   map[string]any{"code": "FORBIDDEN", "message": "not yours"},
		},
	}

	ce := Normalize(fmt.Errorf("accept offer: %w", failure))
	assert.Equal(t, ErrCodeForbidden, ce.Code)
	assert.Equal(t, "not yours", ce.Message)
	assert.Equal(t, 403, ce.HTTPStatus)
	assert.Equal(t, "req-1", ce.CorrelationID)
	assert.ErrorIs(t, ce, failure)
}

func TestNormalize_APIErrorObject(t *testing.T) {
	ce := Normalize(map[string]any{
		"message":  "Request failed",
		"status":   429,
		"apiError": map[string]any{"error": map[string]any{"code": "RATE_LIMIT_EXCEEDED", "message": "slow down"}},
	})
	assert.Equal(t, ErrCodeRateLimitExceeded, ce.Code)
	assert.Equal(t, 429, ce.HTTPStatus)
	assert.True(t, ce.Retryable)
}

func TestNormalize_ResponseWrapper(t *testing.T) {
	ce := Normalize(map[string]any{
		"response": map[string]any{
			"status": 401,
			"data":   map[string]any{"detail": "Not authenticated"},
		},
	})
	assert.Equal(t, 401, ce.HTTPStatus)
	assert.Equal(t, "Not authenticated", ce.Message)
	assert.Equal(t, unauthorizedMessage, FriendlyMessage(ce, nil))
}

func TestNormalize_CorrelationAndRetryable(t *testing.T) {
	ce := Normalize(map[string]any{
		"correlation_id": "corr-9",
		"error":          map[string]any{"code": "CONFLICT", "message": "busy", "retryable": true},
	})
	assert.Equal(t, "corr-9", ce.CorrelationID)
	assert.True(t, ce.Retryable)

	ce = Normalize(map[string]any{"error": map[string]any{"code": "X", "correlationId": "c2", "message": "m"}})
	assert.Equal(t, "c2", ce.CorrelationID)
	assert.False(t, ce.Retryable)
}

func TestNormalize_GoErrors(t *testing.T) {
	plainErr := errors.New("decode task: unexpected field")
	ce := Normalize(plainErr)
	assert.Equal(t, ErrCodeInternal, ce.Code)
	assert.Equal(t, "decode task: unexpected field", ce.Message)
	assert.ErrorIs(t, ce, plainErr)

	orig := Validation("email", "required")
	got := Normalize(fmt.Errorf("signup: %w", orig))
	assert.Equal(t, ErrCodeValidation, got.Code)
	assert.NotSame(t, orig, got)
}

func TestNormalize_Details(t *testing.T) {
	raw := []byte(`{"error":{"code":"X","message":"m","meta":{"a":1}}}`)
	ce := Normalize(raw)
	details, ok := ce.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "X", details["code"])
	assert.Contains(t, details, "meta")
}

func TestNormalize_PanicRecovered(t *testing.T) {
	ce := Normalize(&fakeFailure{status: 500, panics: true})
	assert.Equal(t, ErrCodeInternal, ce.Code)
	assert.Equal(t, FallbackMessage, ce.Message)
}
