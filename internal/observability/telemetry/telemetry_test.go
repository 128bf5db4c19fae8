package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	apperrors "github.com/taskup/taskup-client/internal/errors"
)

type countingSink struct {
	mu    sync.Mutex
	names []string
	tags  []map[string]string
}

func (c *countingSink) Count(name string, _ int64, tags map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names = append(c.names, name)
	c.tags = append(c.tags, tags)
}

func (c *countingSink) Gauge(string, float64, map[string]string) {}

func (c *countingSink) Timing(string, time.Duration, map[string]string) {}

func TestTracker_Event(t *testing.T) {
	sink := &countingSink{}
	tr := New(Options{Metrics: sink, Source: "cli"})

	tr.Event(context.Background(), "auth.login_success", map[string]string{"role": "client"})
	tr.Event(context.Background(), "", nil)

	assert.Equal(t, []string{"client.event"}, sink.names)
	assert.Equal(t, map[string]string{"event": "auth.login_success", "role": "client", "source": "cli"}, sink.tags[0])
}

func TestTracker_SourceNotOverridden(t *testing.T) {
	sink := &countingSink{}
	tr := New(Options{Metrics: sink, Source: "cli", Production: true})

	tr.Event(context.Background(), "auth.signup_failed", map[string]string{"source": "script"})
	assert.Equal(t, "script", sink.tags[0]["source"])
}

func TestTracker_Error(t *testing.T) {
	sink := &countingSink{}
	tr := New(Options{Metrics: sink})

	tr.Error(context.Background(), apperrors.Network(errors.New("dial")), map[string]string{"endpoint": "/api/auth/login"})
	tr.Error(context.Background(), nil, nil)

	assert.Equal(t, []string{"client.error"}, sink.names)
	assert.Equal(t, "network", sink.tags[0]["error_class"])
	assert.Equal(t, "/api/auth/login", sink.tags[0]["endpoint"])
}

func TestTracker_NilSafe(t *testing.T) {
	var tr *Tracker
	tr.Event(context.Background(), "x", nil)
	tr.Error(context.Background(), errors.New("x"), nil)
}

type customErr struct{}

func (customErr) Error() string { return "custom" }

func TestClassify(t *testing.T) {
	var syntaxErr error
	syntaxErr = json.Unmarshal([]byte("{"), &struct{}{})

	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "network", err: context.DeadlineExceeded, want: "network"},
		{name: "4xx", err: &apperrors.CanonicalError{Code: "FORBIDDEN", HTTPStatus: 403}, want: "http_4xx"},
		{name: "5xx", err: &apperrors.CanonicalError{Code: "X", HTTPStatus: 502}, want: "http_5xx"},
		{name: "decode", err: fmt.Errorf("load tasks: %w", syntaxErr), want: "decode"},
		{name: "custom type", err: fmt.Errorf("wrap: %w", customErr{}), want: "telemetry_customerr"},
		{name: "errors.New", err: errors.New("boom"), want: "errors_errorstring"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
