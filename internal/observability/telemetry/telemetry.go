// Package telemetry records client-side product events and failures as
// structured log lines and StatsD counters.
package telemetry

import (
	"context"
	"log/slog"
	"maps"

	"github.com/taskup/taskup-client/internal/observability/statsd"
)

// Options configures a Tracker.
type Options struct {
	Logger  *slog.Logger
	Metrics statsd.Sink
	// Production suppresses the per-event debug log lines.
	Production bool
	// Source tags every event, e.g. "cli".
	Source string
}

// Tracker is safe for concurrent use. A nil Tracker drops everything.
type Tracker struct {
	logger     *slog.Logger
	metrics    statsd.Sink
	production bool
	source     string
}

// New builds a Tracker.
func New(opts Options) *Tracker {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = statsd.Nop{}
	}
	return &Tracker{
		logger:     logger.With("component", "telemetry"),
		metrics:    metrics,
		production: opts.Production,
		source:     opts.Source,
	}
}

// Event records a named product event such as "auth.login_success".
func (t *Tracker) Event(ctx context.Context, name string, props map[string]string) {
	if t == nil || name == "" {
		return
	}
	tags := t.tags(props)
	tags["event"] = name
	t.metrics.Count("client.event", 1, tags)

	if !t.production {
		t.logger.DebugContext(ctx, "telemetry event", "event", name, "props", tags)
	}
}

// Error records a failure with its error class.
func (t *Tracker) Error(ctx context.Context, err error, props map[string]string) {
	if t == nil || err == nil {
		return
	}
	tags := t.tags(props)
	tags["error_class"] = Classify(err)
	t.metrics.Count("client.error", 1, tags)

	if !t.production {
		t.logger.DebugContext(ctx, "telemetry error", "error", err, "props", tags)
	}
}

func (t *Tracker) tags(props map[string]string) map[string]string {
	tags := make(map[string]string, len(props)+2)
	maps.Copy(tags, props)
	if t.source != "" {
		if _, ok := tags["source"]; !ok {
			tags["source"] = t.source
		}
	}
	return tags
}
