// Package session owns the signed-in identity: the bearer token, the cached
// profile, and the loading/authenticated/anonymous state machine.
package session

import (
	"context"
	"strings"

	apperrors "github.com/taskup/taskup-client/internal/errors"
)

// Status is the session lifecycle state.
type Status string

const (
	StatusLoading       Status = "loading"
	StatusAuthenticated Status = "authenticated"
	StatusAnonymous     Status = "anonymous"
)

// Role is the account role the backend assigns.
type Role string

const (
	RoleClient Role = "client"
	RoleTasker Role = "tasker"
	RoleAdmin  Role = "admin"
)

// ParseSignupRole accepts the roles a user may pick at signup. An empty
// value means client.
func ParseSignupRole(s string) (Role, bool) {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case "", RoleClient:
		return RoleClient, true
	case RoleTasker:
		return RoleTasker, true
	}
	return "", false
}

// UserProfile is the cached account summary.
type UserProfile struct {
	ID       string `json:"id,omitempty"`
	Email    string `json:"email"`
	FullName string `json:"full_name,omitempty"`
	Role     Role   `json:"role,omitempty"`
	Language string `json:"language,omitempty"`
}

// Session is an immutable snapshot. Token is empty exactly when User is nil.
type Session struct {
	Status Status
	Token  string
	User   *UserProfile
}

// Authenticated reports whether the snapshot carries credentials.
func (s Session) Authenticated() bool {
	return s.Status == StatusAuthenticated && s.Token != ""
}

// Result is what auth actions hand back to a screen.
type Result struct {
	OK bool
	// Message is the user-facing text; set on failure and on some successes.
	Message string
	Error   *apperrors.CanonicalError
}

// SignupInput is the registration form.
type SignupInput struct {
	FullName string
	Email    string
	Password string
	// Role is client or tasker; empty means client.
	Role Role
	// Language defaults to en.
	Language string
}

// Tracker receives auth telemetry. *telemetry.Tracker satisfies it.
type Tracker interface {
	Event(ctx context.Context, name string, props map[string]string)
	Error(ctx context.Context, err error, props map[string]string)
}

type nopTracker struct{}

func (nopTracker) Event(context.Context, string, map[string]string) {}

func (nopTracker) Error(context.Context, error, map[string]string) {}

func cloneProfile(p *UserProfile) *UserProfile {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}
