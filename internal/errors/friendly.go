package errors

import "strings"

// Translator maps a message key to localized text. Implementations return
// the key itself (or "") when no translation exists.
type Translator func(key string) string

type friendlyEntry struct {
	key string
	def string
}

const (
	unauthorizedMessage = "Please sign in again to continue."
	forbiddenMessage    = "You do not have permission to perform this action."
	notFoundMessage     = "The requested resource was not found."
	validationMessage   = "Please double-check the highlighted fields and try again."
	rateLimitMessage    = "Too many requests. Please wait a moment and try again."
)

var (
	friendlyNetwork      = friendlyEntry{"errors.network", NetworkMessage}
	friendlyUnauthorized = friendlyEntry{"errors.unauthorized", unauthorizedMessage}
	friendlyForbidden    = friendlyEntry{"errors.forbidden", forbiddenMessage}
	friendlyNotFound     = friendlyEntry{"errors.not_found", notFoundMessage}
	friendlyValidation   = friendlyEntry{"errors.validation", validationMessage}
	friendlyRateLimit    = friendlyEntry{"errors.rate_limited", rateLimitMessage}
	friendlyServer       = friendlyEntry{"errors.server", FallbackMessage}
	friendlyUnknown      = friendlyEntry{"errors.unknown", FallbackMessage}
)

// friendlyCodes is keyed by upper-cased code.
var friendlyCodes = map[ErrorCode]friendlyEntry{
	ErrCodeNetwork:            friendlyNetwork,
	ErrCodeUnauthorized:       friendlyUnauthorized,
	ErrCodeAuthRequired:       friendlyUnauthorized,
	ErrCodeForbidden:          friendlyForbidden,
	ErrCodeNotFound:           friendlyNotFound,
	ErrCodeResourceNotFound:   friendlyNotFound,
	ErrCodeValidation:         friendlyValidation,
	ErrCodeRateLimit:          friendlyRateLimit,
	ErrCodeRateLimitExceeded:  friendlyRateLimit,
	ErrCodeInternal:           friendlyServer,
	ErrCodeInvalidCredentials: {"errors.invalid_credentials", "Invalid email or password"},
	ErrCodeEmailExists:        {"errors.email_exists", "Email already in use"},
	ErrCodePayoutDestinationMissing: {
		"errors.payout_destination_missing",
		"Add a payout account before requesting a payout.",
	},
	ErrCodePayoutInsufficientBalance: {
		"errors.payout_insufficient_balance",
		"Your available balance is too low for this payout.",
	},
}

// FriendlyMessage returns one short, non-empty string suitable for display.
// Priority: first field error, known code, HTTP status bucket, the error's own
// message, then the generic fallback. t may be nil.
func FriendlyMessage(err *CanonicalError, t Translator) (msg string) {
	defer func() {
		if r := recover(); r != nil || strings.TrimSpace(msg) == "" {
			msg = FallbackMessage
		}
	}()

	if err == nil {
		return friendlyUnknown.resolve(t)
	}

	if _, m, ok := err.FieldErrors.First(); ok {
		return m
	}

	if entry, ok := friendlyCodes[ErrorCode(strings.ToUpper(strings.TrimSpace(string(err.Code))))]; ok {
		return entry.resolve(t)
	}

	if entry, ok := statusBucket(err.HTTPStatus); ok {
		return entry.resolve(t)
	}

	if strings.TrimSpace(err.Message) != "" {
		return err.Message
	}
	return FallbackMessage
}

// Resolve normalizes input and returns its friendly message.
func Resolve(input any, t Translator) string {
	return FriendlyMessage(Normalize(input), t)
}

func statusBucket(status int) (friendlyEntry, bool) {
	switch {
	case status == 401:
		return friendlyUnauthorized, true
	case status == 403:
		return friendlyForbidden, true
	case status == 404:
		return friendlyNotFound, true
	case status == 429:
		return friendlyRateLimit, true
	case status >= 500:
		return friendlyServer, true
	}
	return friendlyEntry{}, false
}

func (e friendlyEntry) resolve(t Translator) string {
	if t == nil {
		return e.def
	}
	s := t(e.key)
	if strings.TrimSpace(s) == "" || s == e.key {
		return e.def
	}
	return s
}
