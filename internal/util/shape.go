package util //nolint:revive // package name util hosts shared formatting and response-shape helpers

import (
	"encoding/json"
	"fmt"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"
)

// ValidatePath reports whether expr is a valid JMESPath expression.
// An empty expression is valid.
func ValidatePath(expr string) error {
	if strings.TrimSpace(expr) == "" {
		return nil
	}
	_, err := jmespath.Compile(expr)
	return err
}

// Extract evaluates a JMESPath expression against a decoded JSON value.
// Evaluation errors and null results both yield nil.
func Extract(expr string, data any) any {
	if data == nil || strings.TrimSpace(expr) == "" {
		return nil
	}
	out, err := jmespath.Search(expr, data)
	if err != nil {
		return nil
	}
	return out
}

// ExtractString returns the trimmed result when the expression selects a
// non-empty string.
func ExtractString(expr string, data any) (string, bool) {
	s, ok := Extract(expr, data).(string)
	if !ok {
		return "", false
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// Remarshal converts a decoded JSON value into dst through a JSON round trip.
func Remarshal(src, dst any) error {
	raw, err := json.Marshal(src)
	if err != nil {
		return fmt.Errorf("remarshal: %w", err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("remarshal: %w", err)
	}
	return nil
}
