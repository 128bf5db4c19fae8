package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/taskup/taskup-client/config"
	"github.com/taskup/taskup-client/internal/api"
	"github.com/taskup/taskup-client/internal/featureflags"
	"github.com/taskup/taskup-client/internal/locale"
	"github.com/taskup/taskup-client/internal/observability/statsd"
	"github.com/taskup/taskup-client/internal/observability/telemetry"
	"github.com/taskup/taskup-client/internal/session"
	"github.com/taskup/taskup-client/internal/transport"
)

// App holds the wired client components.
type App struct {
	Config    config.AppConfig
	Logger    *slog.Logger
	Storage   *Storage
	Metrics   statsd.Sink
	Telemetry *telemetry.Tracker
	Transport *transport.Client
	Locale    *locale.Store
	Session   *session.Store
	API       *api.Client
	Flags     *featureflags.Store

	closers []func() error
}

// AppOptions overrides pieces of the default wiring, mainly for tests.
type AppOptions struct {
	Config config.AppConfig
	Logger *slog.Logger
	// Storage replaces the configured backend when set.
	Storage *Storage
	// Preferences feeds locale detection; nil reads the process locale env.
	Preferences []string
	// Source tags telemetry events.
	Source string
}

// NewApp wires transport, storage, locale, session, API, flags and
// telemetry. The session is not restored; call Session.Restore or Start.
func NewApp(ctx context.Context, opts AppOptions) (*App, error) {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Config: cfg, Logger: logger}

	metrics, err := newMetrics(cfg.Observability.Metrics, logger)
	if err != nil {
		return nil, err
	}
	app.Metrics = metrics
	if c, ok := metrics.(*statsd.Client); ok {
		app.closers = append(app.closers, c.Close)
	}

	storage := opts.Storage
	if storage == nil {
		storage, err = NewStorage(ctx, cfg.Storage, logger)
		if err != nil {
			return nil, errors.Join(err, app.Close())
		}
	}
	app.Storage = storage
	app.closers = append(app.closers, storage.Close)

	app.Transport, err = transport.New(transport.Options{
		BaseURL:   cfg.API.BaseURL,
		Logger:    logger,
		Debug:     cfg.API.DebugLogging,
		UserAgent: cfg.API.UserAgent,
		CookieJar: cfg.API.CookiesEnabled,
		Metrics:   metrics,
	})
	if err != nil {
		return nil, errors.Join(fmt.Errorf("create transport: %w", err), app.Close())
	}

	source := opts.Source
	if source == "" {
		source = "client"
	}
	app.Telemetry = telemetry.New(telemetry.Options{
		Logger:     logger,
		Metrics:    metrics,
		Production: cfg.IsProduction(),
		Source:     source,
	})

	prefs := opts.Preferences
	if prefs == nil {
		prefs = locale.PreferencesFromEnv()
	}
	app.Locale = locale.New(ctx, locale.Options{
		Storage:     storage.KV,
		Key:         cfg.Storage.LocaleKey,
		Default:     cfg.Locale.Locale(),
		Preferences: prefs,
		Logger:      logger,
	})

	app.Session, err = session.New(session.Options{
		API:        app.Transport,
		Storage:    storage.KV,
		Translator: app.Locale.T,
		Logger:     logger,
		Telemetry:  app.Telemetry,
		TokenKey:   cfg.Storage.TokenKey,
		ProfileKey: cfg.Storage.ProfileKey,
	})
	if err != nil {
		return nil, errors.Join(fmt.Errorf("create session: %w", err), app.Close())
	}

	authed := app.Transport.WithTokenSource(app.Session)
	app.API, err = api.New(api.Options{Doer: authed, Logger: logger})
	if err != nil {
		return nil, errors.Join(fmt.Errorf("create api client: %w", err), app.Close())
	}

	app.Flags = featureflags.New(ctx, featureflags.Options{
		Doer:   authed,
		Cache:  storage.KV,
		Logger: logger,
	})

	return app, nil
}

//nolint:ireturn // callers only need the Sink surface.
func newMetrics(cfg config.ObservabilityMetricsConfig, logger *slog.Logger) (statsd.Sink, error) {
	if !cfg.IsEnabled() {
		return statsd.Nop{}, nil
	}
	client, err := statsd.NewClient(statsd.Config{
		Enabled: true,
		Address: cfg.StatsdAddress,
		Prefix:  cfg.Prefix,
		Logger:  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create statsd client: %w", err)
	}
	return client, nil
}

// Close releases storage and metrics connections in reverse order.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
