package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/taskup/taskup-client/config"
	"github.com/taskup/taskup-client/internal/bootstrap"
	apperrors "github.com/taskup/taskup-client/internal/errors"
)

type commandFn func(cc *commandContext, args []string) error

type command struct {
	name        string
	description string
	// needsSession restores the stored session before run.
	needsSession bool
	run          commandFn
}

type commandContext struct {
	Ctx    context.Context
	Logger *slog.Logger
	App    *bootstrap.App
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

// friendlyError carries a message already resolved for the user.
type friendlyError struct{ msg string }

func (e *friendlyError) Error() string { return e.msg }

const defaultCommandTimeout = 30 * time.Second

type runEnv struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// Config, when set, skips environment loading.
	Config *config.AppConfig
	// Storage overrides the configured backend.
	Storage     *bootstrap.Storage
	Preferences []string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], runEnv{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr})
	stop()
	os.Exit(code) //nolint:forbidigo // CLI must propagate command status to the shell
}

func run(ctx context.Context, args []string, env runEnv) int {
	if len(args) < 1 {
		_ = printUsage(env.Stdout)
		return 2
	}

	cmdName := args[0]
	cmd, ok := commands()[cmdName]
	if !ok {
		_ = writef(env.Stderr, "unknown command %q\n\n", cmdName)
		_ = printUsage(env.Stderr)
		return 2
	}

	var cfg config.AppConfig
	if env.Config != nil {
		cfg = *env.Config
	} else {
		loaded, err := bootstrap.LoadConfig()
		if err != nil {
			_ = writef(env.Stderr, "load config: %v\n", err)
			return 1
		}
		cfg = loaded
	}
	logger := bootstrap.InitLogger(cfg)

	app, err := bootstrap.NewApp(ctx, bootstrap.AppOptions{
		Config:      cfg,
		Logger:      logger,
		Storage:     env.Storage,
		Preferences: env.Preferences,
		Source:      "cli",
	})
	if err != nil {
		logger.ErrorContext(ctx, "initialize client", "error", err)
		_ = writef(env.Stderr, "%s\n", apperrors.FallbackMessage)
		return 1
	}
	defer func() {
		if cerr := app.Close(); cerr != nil {
			logger.Warn("close client failed", "error", cerr)
		}
	}()

	cmdCtx, cancel := context.WithTimeout(ctx, defaultCommandTimeout)
	defer cancel()

	cc := &commandContext{
		Ctx:    cmdCtx,
		Logger: logger,
		App:    app,
		Stdin:  env.Stdin,
		Stdout: env.Stdout,
		Stderr: env.Stderr,
	}
	if cmd.needsSession {
		app.Session.Restore(cmdCtx)
	}
	if runErr := cmd.run(cc, args[1:]); runErr != nil {
		logger.DebugContext(cmdCtx, "command failed", "command", cmdName, "error", runErr)
		_ = writef(env.Stderr, "%s\n", cc.friendly(runErr))
		return 1
	}
	return 0
}

// friendly renders err for the terminal in the active locale.
func (cc *commandContext) friendly(err error) string {
	var fe *friendlyError
	if errors.As(err, &fe) {
		return fe.msg
	}
	if isUsageError(err) {
		return err.Error()
	}
	return apperrors.Resolve(err, cc.App.Locale.T)
}

func (cc *commandContext) t(key string) string { return cc.App.Locale.T(key) }

func commands() map[string]command {
	return map[string]command{
		"login": {
			name:        "login",
			description: "Sign in with email and password",
			run:         runLogin,
		},
		"signup": {
			name:        "signup",
			description: "Create an account (client or tasker)",
			run:         runSignup,
		},
		"logout": {
			name:        "logout",
			description: "Sign out and forget the stored token",
			run:         runLogout,
		},
		"whoami": {
			name:         "whoami",
			description:  "Show the signed-in user",
			needsSession: true,
			run:          runWhoami,
		},
		"forgot-password": {
			name:        "forgot-password",
			description: "Request a password reset email",
			run:         runForgotPassword,
		},
		"tasks": {
			name:         "tasks",
			description:  "List tasks",
			needsSession: true,
			run:          runTasks,
		},
		"task": {
			name:         "task",
			description:  "Show one task with its offers and messages",
			needsSession: true,
			run:          runTask,
		},
		"messages": {
			name:         "messages",
			description:  "List messages on a task",
			needsSession: true,
			run:          runMessages,
		},
		"wallet": {
			name:         "wallet",
			description:  "Show wallet balances",
			needsSession: true,
			run:          runWallet,
		},
		"payout": {
			name:         "payout",
			description:  "Request a payout of the given amount in minor units",
			needsSession: true,
			run:          runPayout,
		},
		"locale": {
			name:        "locale",
			description: "Show or change the interface language",
			run:         runLocale,
		},
		"flags": {
			name:         "flags",
			description:  "Show backend feature flags",
			needsSession: true,
			run:          runFlags,
		},
	}
}

func printUsage(w io.Writer) error {
	if err := writef(w, "Usage: taskup <command> [flags]\n\n"); err != nil {
		return err
	}
	if err := writef(w, "Available commands:\n"); err != nil {
		return err
	}
	cmds := commands()
	names := make([]string, 0, len(cmds))
	for name := range cmds {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		if err := writef(w, "  %-18s %s\n", name, cmds[name].description); err != nil {
			return err
		}
	}
	return nil
}

func writef(w io.Writer, format string, args ...any) error {
	_, err := fmt.Fprintf(w, format, args...)
	return err
}

func writeln(w io.Writer, args ...any) error {
	_, err := fmt.Fprintln(w, args...)
	return err
}
