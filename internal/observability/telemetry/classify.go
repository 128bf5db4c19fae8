package telemetry

import (
	"encoding/json"
	goerrors "errors"
	"reflect"
	"strings"

	apperrors "github.com/taskup/taskup-client/internal/errors"
)

// Classify returns a low-cardinality error class suitable for metric tags:
// network, http_4xx, http_5xx, decode, or the innermost error type name.
func Classify(err error) string {
	if err == nil {
		return ""
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if goerrors.As(err, &syntaxErr) || goerrors.As(err, &typeErr) {
		return "decode"
	}

	ce := apperrors.Normalize(err)
	switch {
	case ce.Code == apperrors.ErrCodeNetwork:
		return "network"
	case ce.HTTPStatus >= 500:
		return "http_5xx"
	case ce.HTTPStatus >= 400:
		return "http_4xx"
	}

	return typeName(err)
}

// typeName unwraps to the innermost error and snake-cases its type.
func typeName(err error) string {
	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return "unknown"
	}

	name := strings.ToLower(strings.ReplaceAll(t.String(), "*", ""))
	name = strings.ReplaceAll(name, ".", "_")
	if name == "" {
		return "unknown"
	}
	return name
}
