// Package errors defines the canonical error shape every failed backend call
// converges to, plus the normalizer and friendly-message resolver built on it.
package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorCode is a stable, machine-readable error identifier.
type ErrorCode string

const (
	// ErrCodeNetwork indicates the request never produced an HTTP response.
	ErrCodeNetwork ErrorCode = "NETWORK_ERROR"
	// ErrCodeUnauthorized indicates missing or expired credentials.
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	// ErrCodeAuthRequired is the backend alias of ErrCodeUnauthorized.
	ErrCodeAuthRequired ErrorCode = "AUTH_REQUIRED"
	// ErrCodeForbidden indicates the caller lacks permission.
	ErrCodeForbidden ErrorCode = "FORBIDDEN"
	// ErrCodeNotFound indicates a resource was not found.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeResourceNotFound is the backend's generic not-found code.
	ErrCodeResourceNotFound ErrorCode = "RESOURCE_NOT_FOUND"
	// ErrCodeValidation indicates invalid input data.
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
	// ErrCodeRateLimit indicates the caller was throttled.
	ErrCodeRateLimit ErrorCode = "RATE_LIMIT"
	// ErrCodeRateLimitExceeded is the backend alias of ErrCodeRateLimit.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrCodeInternal is the sentinel used when nothing better is known.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"

	// ErrCodeInvalidCredentials is returned by login on an email/password mismatch.
	ErrCodeInvalidCredentials ErrorCode = "AUTH_INVALID_CREDENTIALS"
	// ErrCodeEmailExists is returned by signup when the email is taken.
	ErrCodeEmailExists ErrorCode = "AUTH_EMAIL_EXISTS"
	// ErrCodePayoutDestinationMissing is returned when a tasker has no payout account.
	ErrCodePayoutDestinationMissing ErrorCode = "PAYOUT_DESTINATION_MISSING"
	// ErrCodePayoutInsufficientBalance is returned when a payout exceeds the wallet balance.
	ErrCodePayoutInsufficientBalance ErrorCode = "PAYOUT_INSUFFICIENT_BALANCE"
)

// FallbackMessage is shown whenever no better human message is available.
const FallbackMessage = "Something went wrong. Please try again."

// NetworkMessage is the fixed message attached to NETWORK_ERROR.
const NetworkMessage = "Network error. Check your connection and try again."

// FieldError holds the validation messages reported for one input field.
type FieldError struct {
	Field    string
	Messages []string
}

// FieldErrors is an ordered list of field validation messages. Order follows
// the backend body when it was available, otherwise field names sorted.
type FieldErrors []FieldError

// Get returns the messages recorded for field.
func (f FieldErrors) Get(field string) []string {
	for _, fe := range f {
		if fe.Field == field {
			return fe.Messages
		}
	}
	return nil
}

// First returns the first field and its first non-empty message.
// ok is false when the first field carries no usable message.
func (f FieldErrors) First() (field, message string, ok bool) {
	if len(f) == 0 {
		return "", "", false
	}
	for _, m := range f[0].Messages {
		if strings.TrimSpace(m) != "" {
			return f[0].Field, m, true
		}
	}
	return f[0].Field, "", false
}

// Map flattens the list into a map, losing order.
func (f FieldErrors) Map() map[string][]string {
	if len(f) == 0 {
		return nil
	}
	out := make(map[string][]string, len(f))
	for _, fe := range f {
		out[fe.Field] = append([]string(nil), fe.Messages...)
	}
	return out
}

// FieldErrorsFromMap builds FieldErrors sorted by field name.
func FieldErrorsFromMap(m map[string][]string) FieldErrors {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make(FieldErrors, 0, len(keys))
	for _, k := range keys {
		out = append(out, FieldError{Field: k, Messages: append([]string(nil), m[k]...)})
	}
	return out
}

// CanonicalError is the single normalized error shape. Code and Message are
// always non-empty when produced by Normalize. Values are built fresh per
// failure and never mutated afterwards.
type CanonicalError struct {
	// Code categorizes the error
	Code ErrorCode
	// Message is a human-readable message from the backend or a fallback
	Message string
	// HTTPStatus is the response status, 0 when no response was received
	HTTPStatus int
	// FieldErrors carries per-field validation messages (optional)
	FieldErrors FieldErrors
	// Details is the raw structured error payload (optional)
	Details any
	// CorrelationID links the failure to backend logs (optional)
	CorrelationID string
	// Retryable hints that repeating the call may succeed
	Retryable bool
	// Cause is the underlying Go error, when the input was one
	Cause error
}

// Error implements the error interface.
func (e *CanonicalError) Error() string {
	if e == nil {
		return FallbackMessage
	}
	msg := string(e.Code) + ": " + e.Message
	if e.HTTPStatus > 0 {
		msg = fmt.Sprintf("%s (http %d)", msg, e.HTTPStatus)
	}
	return msg
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *CanonicalError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches another *CanonicalError by code, so sentinel comparisons like
// errors.Is(err, &CanonicalError{Code: ErrCodeNotFound}) work.
func (e *CanonicalError) Is(target error) bool {
	var other *CanonicalError
	if !errors.As(target, &other) || other == nil || e == nil {
		return false
	}
	return other.Code != "" && strings.EqualFold(string(other.Code), string(e.Code))
}

// clone returns a deep-enough copy so callers never share FieldErrors backing arrays.
func (e *CanonicalError) clone() *CanonicalError {
	cp := *e
	if len(e.FieldErrors) > 0 {
		cp.FieldErrors = make(FieldErrors, len(e.FieldErrors))
		for i, fe := range e.FieldErrors {
			cp.FieldErrors[i] = FieldError{Field: fe.Field, Messages: append([]string(nil), fe.Messages...)}
		}
	}
	return &cp
}

// New creates a CanonicalError with the given code and message, applying the
// same defaults Normalize does.
func New(code ErrorCode, message string) *CanonicalError {
	if strings.TrimSpace(string(code)) == "" {
		code = ErrCodeInternal
	}
	if strings.TrimSpace(message) == "" {
		message = FallbackMessage
	}
	return &CanonicalError{Code: code, Message: message}
}

// Validation creates a VALIDATION_ERROR for a single field.
func Validation(field, message string) *CanonicalError {
	ce := New(ErrCodeValidation, message)
	ce.FieldErrors = FieldErrors{{Field: field, Messages: []string{ce.Message}}}
	return ce
}

// Network creates a NETWORK_ERROR wrapping cause.
func Network(cause error) *CanonicalError {
	return &CanonicalError{
		Code:      ErrCodeNetwork,
		Message:   NetworkMessage,
		Retryable: true,
		Cause:     cause,
	}
}

// Internal creates the generic INTERNAL_ERROR fallback with an optional status.
func Internal(status int) *CanonicalError {
	return &CanonicalError{
		Code:       ErrCodeInternal,
		Message:    FallbackMessage,
		HTTPStatus: status,
		Retryable:  status >= 500,
	}
}

// GetCode returns the ErrorCode from an error, or empty string if not a CanonicalError.
func GetCode(err error) ErrorCode {
	var ce *CanonicalError
	if errors.As(err, &ce) && ce != nil {
		return ce.Code
	}
	return ""
}

// IsCode reports whether err is a CanonicalError with the given code (case-insensitive).
func IsCode(err error, code ErrorCode) bool {
	return strings.EqualFold(string(GetCode(err)), string(code))
}

// IsNetwork checks if an error is a NETWORK_ERROR.
func IsNetwork(err error) bool {
	return IsCode(err, ErrCodeNetwork)
}

// IsUnauthorized checks for UNAUTHORIZED/AUTH_REQUIRED or an HTTP 401.
func IsUnauthorized(err error) bool {
	var ce *CanonicalError
	if !errors.As(err, &ce) || ce == nil {
		return false
	}
	return IsCode(err, ErrCodeUnauthorized) || IsCode(err, ErrCodeAuthRequired) || ce.HTTPStatus == 401
}
