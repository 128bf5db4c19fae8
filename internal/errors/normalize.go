package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// WrappedFailure is implemented by transport errors that carry the parsed body
// of a non-2xx response. Normalize unwraps these before classifying.
type WrappedFailure interface {
	error
	APIError() any
	HTTPStatus() int
}

// rawBodyCarrier exposes the undecoded JSON body so field order survives.
type rawBodyCarrier interface {
	RawBody() []byte
}

type correlationCarrier interface {
	CorrelationID() string
}

const maxUnwrapDepth = 8

var (
	codeKeys          = []string{"code", "error_code", "type", "reason"}
	messageKeys       = []string{"message", "detail", "description", "error", "title"}
	fieldErrorKeys    = []string{"fields", "errors", "validation_errors", "field_errors"}
	statusKeys        = []string{"http_status", "status", "status_code", "statusCode"}
	correlationIDKeys = []string{"correlation_id", "correlationId", "request_id"}
)

// hints carries context recovered from outer layers into nested bodies.
type hints struct {
	status        int
	correlationID string
	cause         error
	// fromResponse is set once a body was reached through a WrappedFailure,
	// i.e. an HTTP response actually arrived.
	fromResponse bool
}

// Normalize turns any failure value into exactly one CanonicalError. It
// accepts Go errors, transport failures, decoded or raw JSON bodies, strings
// and nil, and never panics: anything unexpected yields the generic fallback.
func Normalize(input any) (out *CanonicalError) {
	defer func() {
		if r := recover(); r != nil {
			out = Internal(0)
		}
	}()

	out = normalize(input, hints{}, 0)
	if out == nil {
		return Internal(0)
	}
	if strings.TrimSpace(string(out.Code)) == "" {
		out.Code = ErrCodeInternal
	}
	if strings.TrimSpace(out.Message) == "" {
		out.Message = FallbackMessage
	}
	return out
}

func normalize(input any, h hints, depth int) *CanonicalError {
	if depth > maxUnwrapDepth {
		return fallbackFor(h)
	}

	if input == nil {
		return fallbackFor(h)
	}

	if err, ok := input.(error); ok {
		if ce, unwrapped := unwrapError(err, h, depth); unwrapped {
			return ce
		}
	}

	value := coerce(input)
	obj, isObj := asObject(value)

	if isObj {
		if inner, ok := obj.lookup("apiError"); ok && inner != nil {
			nh := h
			if s := statusOf(obj); s > 0 {
				nh.status = s
			}
			return normalize(inner, nh, depth+1)
		}
	}

	if err, ok := input.(error); ok {
		if isNetworkError(err) {
			return Network(err)
		}
		nh := h
		nh.cause = err
		return fromObject(plainObject{"message": err.Error()}, nh)
	}

	if isObj && isNetworkObject(obj, h.fromResponse) {
		return Network(h.cause)
	}

	switch v := value.(type) {
	case string:
		if !h.fromResponse && looksLikeNetworkMessage(v) {
			return Network(h.cause)
		}
		return fromString(v, h)
	case nil:
		return fallbackFor(h)
	}

	if !isObj {
		return fallbackFor(h)
	}

	if h.status == 0 {
		h.status = statusOf(obj)
	}
	if h.correlationID == "" {
		h.correlationID, _ = firstString(obj, correlationIDKeys)
	}

	data, nested := payloadOf(obj)
	if s, ok := data.(string); ok {
		return fromString(s, h)
	}
	if dataObj, ok := asObject(data); ok {
		if ce, ok := fromPayload(dataObj, h); ok {
			return ce
		}
	}
	if nested {
		if ce, ok := fromPayload(obj, h); ok {
			return ce
		}
	}

	return fallbackFor(h)
}

// fromPayload applies the envelope, error-member and message-field rules to
// one candidate body.
func fromPayload(o object, h hints) (*CanonicalError, bool) {
	if inner, ok := o.lookup("error"); ok && inner != nil {
		switch e := inner.(type) {
		case string:
			if strings.TrimSpace(e) != "" {
				return fromError(inner, o, h), true
			}
		default:
			if _, isInnerObj := asObject(e); isInnerObj {
				return fromError(inner, o, h), true
			}
			return fromObject(o, h), true
		}
	}

	if _, ok := firstString(o, []string{"message", "detail", "description", "title"}); ok {
		return fromObject(o, h), true
	}
	if _, ok := fastAPIDetail(o); ok {
		return fromObject(o, h), true
	}
	return nil, false
}

// unwrapError handles errors that already carry canonical or wrapped state.
func unwrapError(err error, h hints, depth int) (*CanonicalError, bool) {
	var ce *CanonicalError
	if errors.As(err, &ce) && ce != nil {
		return ce.clone(), true
	}

	var wf WrappedFailure
	if !errors.As(err, &wf) || wf == nil {
		return nil, false
	}

	nh := h
	nh.status = wf.HTTPStatus()
	nh.cause = err
	nh.fromResponse = true
	if cc, ok := wf.(correlationCarrier); ok {
		nh.correlationID = cc.CorrelationID()
	}

	body := wf.APIError()
	if rb, ok := wf.(rawBodyCarrier); ok {
		if raw := rb.RawBody(); len(raw) > 0 {
			if decoded, decErr := decodeOrdered(raw); decErr == nil {
				body = decoded
			}
		}
	}
	if body == nil {
		return fallbackFor(nh), true
	}
	return normalize(body, nh, depth+1), true
}

// payloadOf picks the error body out of common client wrapper shapes.
// nested is false when obj itself is the payload.
func payloadOf(obj object) (payload any, nested bool) {
	if resp, ok := obj.lookup("response"); ok {
		if respObj, ok := asObject(resp); ok {
			if data, ok := respObj.lookup("data"); ok && data != nil {
				return data, true
			}
		}
	}
	for _, key := range []string{"data", "body"} {
		if v, ok := obj.lookup(key); ok && v != nil {
			return v, true
		}
	}
	return obj, false
}

// fromError normalizes an envelope's error member, falling back to its
// parent for the correlation id.
func fromError(inner any, parent object, h hints) *CanonicalError {
	if h.correlationID == "" {
		h.correlationID, _ = firstString(parent, correlationIDKeys)
	}
	if s, ok := inner.(string); ok {
		return fromString(s, h)
	}
	obj, _ := asObject(inner)
	return fromObject(obj, h)
}

func fromString(s string, h hints) *CanonicalError {
	s = strings.TrimSpace(s)
	if s == "" {
		return fallbackFor(h)
	}
	return &CanonicalError{
		Code:          statusCode(h.status),
		Message:       s,
		HTTPStatus:    h.status,
		CorrelationID: h.correlationID,
		Retryable:     defaultRetryable(statusCode(h.status), h.status),
		Cause:         h.cause,
	}
}

// fromObject builds a CanonicalError from a backend error object.
func fromObject(raw object, h hints) *CanonicalError {
	if raw == nil {
		return fallbackFor(h)
	}

	status := statusOf(raw)
	if status == 0 {
		status = h.status
	}

	code := statusCode(status)
	if c, ok := firstCode(raw); ok {
		code = ErrorCode(c)
	}

	message, ok := firstString(raw, messageKeys)
	fieldErrors := fieldErrorsOf(raw)
	if !ok {
		if detailMsg, detailFields, isDetail := fastAPIDetailFields(raw); isDetail {
			message = detailMsg
			if fieldErrors == nil {
				fieldErrors = detailFields
			}
		}
	}
	if strings.TrimSpace(message) == "" {
		message = FallbackMessage
	}

	correlationID, _ := firstString(raw, correlationIDKeys)
	if correlationID == "" {
		correlationID = h.correlationID
	}

	retryable := defaultRetryable(code, status)
	if v, ok := raw.lookup("retryable"); ok {
		if b, isBool := v.(bool); isBool {
			retryable = b
		}
	}

	return &CanonicalError{
		Code:          code,
		Message:       message,
		HTTPStatus:    status,
		FieldErrors:   fieldErrors,
		Details:       plain(raw),
		CorrelationID: correlationID,
		Retryable:     retryable,
		Cause:         h.cause,
	}
}

// fallbackFor is the generic error for a body with nothing usable. A known
// status still yields HTTP_<status> so status buckets keep working.
func fallbackFor(h hints) *CanonicalError {
	ce := Internal(h.status)
	ce.Code = statusCode(h.status)
	ce.Retryable = defaultRetryable(ce.Code, h.status)
	ce.CorrelationID = h.correlationID
	ce.Cause = h.cause
	return ce
}

func statusCode(status int) ErrorCode {
	if status > 0 {
		return ErrorCode("HTTP_" + strconv.Itoa(status))
	}
	return ErrCodeInternal
}

func defaultRetryable(code ErrorCode, status int) bool {
	switch strings.ToUpper(string(code)) {
	case string(ErrCodeNetwork), string(ErrCodeRateLimit), string(ErrCodeRateLimitExceeded):
		return true
	}
	return status == 429 || status >= 500
}

func firstCode(obj object) (string, bool) {
	for _, key := range codeKeys {
		v, ok := obj.lookup(key)
		if !ok || v == nil {
			continue
		}
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				return s, true
			}
		case json.Number:
			return t.String(), true
		case float64:
			if t == math.Trunc(t) && !math.IsInf(t, 0) {
				return strconv.FormatInt(int64(t), 10), true
			}
		case int:
			return strconv.Itoa(t), true
		}
	}
	return "", false
}

func stringValue(obj object, key string) (string, bool) {
	v, ok := obj.lookup(key)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", false
	}
	return s, true
}

func firstString(obj object, keys []string) (string, bool) {
	for _, key := range keys {
		if s, ok := stringValue(obj, key); ok {
			return s, true
		}
	}
	return "", false
}

// statusOf finds a plausible HTTP status on obj or its response member.
func statusOf(obj object) int {
	for _, key := range statusKeys {
		if v, ok := obj.lookup(key); ok {
			if s, ok := toStatus(v); ok {
				return s
			}
		}
	}
	if resp, ok := obj.lookup("response"); ok {
		if respObj, ok := asObject(resp); ok {
			if v, ok := respObj.lookup("status"); ok {
				if s, ok := toStatus(v); ok {
					return s
				}
			}
		}
	}
	return 0
}

func toStatus(v any) (int, bool) {
	var n int64
	switch t := v.(type) {
	case int:
		n = int64(t)
	case int32:
		n = int64(t)
	case int64:
		n = t
	case float64:
		if t != math.Trunc(t) || math.IsInf(t, 0) || math.IsNaN(t) {
			return 0, false
		}
		n = int64(t)
	case json.Number:
		parsed, err := t.Int64()
		if err != nil {
			return 0, false
		}
		n = parsed
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, false
		}
		n = parsed
	default:
		return 0, false
	}
	if n < 100 || n > 599 {
		return 0, false
	}
	return int(n), true
}

// fieldErrorsOf returns the first field-error member that is a JSON object.
func fieldErrorsOf(obj object) FieldErrors {
	for _, key := range fieldErrorKeys {
		v, ok := obj.lookup(key)
		if !ok || v == nil {
			continue
		}
		if fe, ok := asObject(v); ok {
			return toFieldErrors(fe)
		}
		if list, ok := v.([]any); ok {
			if fe := listFieldErrors(list); fe != nil {
				return fe
			}
		}
	}
	return nil
}

func toFieldErrors(obj object) FieldErrors {
	keys := obj.orderedKeys()
	out := make(FieldErrors, 0, len(keys))
	for _, key := range keys {
		v, _ := obj.lookup(key)
		out = append(out, FieldError{Field: key, Messages: messagesOf(v)})
	}
	return out
}

// messagesOf accepts a string, a list of strings, or scalars. Blank entries
// and nested structures are skipped.
func messagesOf(v any) []string {
	switch t := v.(type) {
	case string:
		if strings.TrimSpace(t) == "" {
			return nil
		}
		return []string{t}
	case []any:
		var out []string
		for _, item := range t {
			out = append(out, messagesOf(item)...)
		}
		return out
	case []string:
		var out []string
		for _, item := range t {
			if strings.TrimSpace(item) != "" {
				out = append(out, item)
			}
		}
		return out
	case json.Number:
		return []string{t.String()}
	case float64, bool, int, int64:
		return []string{fmt.Sprint(t)}
	default:
		return nil
	}
}

// listFieldErrors converts [{"loc": [...], "msg": "..."}] or
// [{"field": "...", "message": "..."}] lists into FieldErrors.
func listFieldErrors(list []any) FieldErrors {
	var out FieldErrors
	for _, item := range list {
		obj, ok := asObject(item)
		if !ok {
			continue
		}
		field := fieldNameOf(obj)
		msg, ok := firstString(obj, []string{"msg", "message"})
		if field == "" || !ok {
			continue
		}
		if idx := indexOfField(out, field); idx >= 0 {
			out[idx].Messages = append(out[idx].Messages, msg)
			continue
		}
		out = append(out, FieldError{Field: field, Messages: []string{msg}})
	}
	return out
}

func indexOfField(fe FieldErrors, field string) int {
	for i := range fe {
		if fe[i].Field == field {
			return i
		}
	}
	return -1
}

func fieldNameOf(obj object) string {
	if s, ok := firstString(obj, []string{"field", "name"}); ok {
		return s
	}
	loc, ok := obj.lookup("loc")
	if !ok {
		return ""
	}
	parts, ok := loc.([]any)
	if !ok {
		return ""
	}
	for i := len(parts) - 1; i >= 0; i-- {
		if s, ok := parts[i].(string); ok && s != "body" && s != "query" && s != "path" {
			return s
		}
	}
	return ""
}

// fastAPIDetail reports whether obj carries a validation "detail" list.
func fastAPIDetail(obj object) ([]any, bool) {
	v, ok := obj.lookup("detail")
	if !ok {
		return nil, false
	}
	list, ok := v.([]any)
	return list, ok && len(list) > 0
}

func fastAPIDetailFields(obj object) (string, FieldErrors, bool) {
	list, ok := fastAPIDetail(obj)
	if !ok {
		return "", nil, false
	}
	fe := listFieldErrors(list)
	if _, msg, ok := fe.First(); ok {
		return msg, fe, true
	}
	for _, item := range list {
		if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
			return s, fe, true
		}
	}
	return "", fe, len(fe) > 0
}
