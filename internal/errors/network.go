package errors

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"
)

// networkCodes are low-level connection codes some clients attach as "code".
var networkCodes = map[string]struct{}{
	"ECONNABORTED": {},
	"ECONNRESET":   {},
	"ECONNREFUSED": {},
	"ENETUNREACH":  {},
	"EHOSTUNREACH": {},
	"ETIMEDOUT":    {},
}

// networkNames are error names emitted by fetch-style clients on abort.
var networkNames = map[string]struct{}{
	"aborterror":   {},
	"timeouterror": {},
}

// networkVocabulary is matched case-insensitively against error messages.
var networkVocabulary = []string{
	"network",
	"fetch",
	"offline",
	"timeout",
	"timed out",
	"connection reset",
	"connection refused",
	"no such host",
	"broken pipe",
}

var networkErrnos = []error{
	syscall.ECONNRESET,
	syscall.ECONNREFUSED,
	syscall.ECONNABORTED,
	syscall.ENETUNREACH,
	syscall.EHOSTUNREACH,
	syscall.ETIMEDOUT,
	syscall.EPIPE,
}

// isNetworkError reports whether err means no HTTP response was received.
func isNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	for _, errno := range networkErrnos {
		if errors.Is(err, errno) {
			return true
		}
	}

	// *url.Error, *net.OpError and *net.DNSError all satisfy net.Error.
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return looksLikeNetworkMessage(err.Error())
}

// isNetworkObject applies the same heuristics to a decoded object. Abort and
// connection markers always win. Message vocabulary wins over any status
// field, except in bodies of a response that actually arrived.
func isNetworkObject(obj object, fromResponse bool) bool {
	if code, ok := stringValue(obj, "code"); ok {
		if _, hit := networkCodes[strings.ToUpper(code)]; hit {
			return true
		}
	}
	if name, ok := stringValue(obj, "name"); ok {
		if _, hit := networkNames[strings.ToLower(name)]; hit {
			return true
		}
	}
	if fromResponse {
		return false
	}
	if msg, ok := stringValue(obj, "message"); ok {
		return looksLikeNetworkMessage(msg)
	}
	return false
}

func looksLikeNetworkMessage(msg string) bool {
	msg = strings.ToLower(msg)
	if msg == "" {
		return false
	}
	for _, word := range networkVocabulary {
		if strings.Contains(msg, word) {
			return true
		}
	}
	return false
}
