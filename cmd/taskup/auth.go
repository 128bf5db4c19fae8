package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/taskup/taskup-client/internal/session"
)

// usageError marks bad command-line input; it is printed verbatim.
type usageError struct{ error }

func usagef(format string, args ...any) error {
	return usageError{fmt.Errorf(format, args...)}
}

func isUsageError(err error) bool {
	var ue usageError
	return errors.As(err, &ue) || errors.Is(err, flag.ErrHelp)
}

func newFlagSet(name string, cc *commandContext) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(cc.Stderr)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return usageError{err}
	}
	return nil
}

// readSecret takes the value from the flag or, when empty, the first line of stdin.
func readSecret(cc *commandContext, value, prompt string) (string, error) {
	if value != "" {
		return value, nil
	}
	if cc.Stdin == nil {
		return "", usagef("%s is required", prompt)
	}
	_ = writef(cc.Stderr, "%s: ", prompt)
	line, err := bufio.NewReader(cc.Stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read %s: %w", prompt, err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", usagef("%s is required", prompt)
	}
	return line, nil
}

func runLogin(cc *commandContext, args []string) error {
	fs := newFlagSet("login", cc)
	email := fs.String("email", "", "Account email")
	password := fs.String("password", "", "Account password (read from stdin when omitted)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if strings.TrimSpace(*email) == "" {
		return usagef("--email is required")
	}
	pw, err := readSecret(cc, *password, "password")
	if err != nil {
		return err
	}

	res := cc.App.Session.Login(cc.Ctx, *email, pw)
	if !res.OK {
		return &friendlyError{msg: res.Message}
	}
	return printSignedIn(cc, cc.t("auth.signed_in"))
}

func runSignup(cc *commandContext, args []string) error {
	fs := newFlagSet("signup", cc)
	var in session.SignupInput
	var role string
	fs.StringVar(&in.FullName, "name", "", "Full name")
	fs.StringVar(&in.Email, "email", "", "Account email")
	fs.StringVar(&in.Password, "password", "", "Account password (read from stdin when omitted)")
	fs.StringVar(&role, "role", "client", "client or tasker")
	fs.StringVar(&in.Language, "language", "", "Preferred language (defaults to the active locale)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if strings.TrimSpace(in.Email) == "" {
		return usagef("--email is required")
	}
	pw, err := readSecret(cc, in.Password, "password")
	if err != nil {
		return err
	}
	in.Password = pw
	in.Role = session.Role(role)
	if in.Language == "" {
		in.Language = string(cc.App.Locale.Active())
	}

	res := cc.App.Session.Signup(cc.Ctx, in)
	if !res.OK {
		return &friendlyError{msg: res.Message}
	}
	return printSignedIn(cc, cc.t("auth.signup_success"))
}

func printSignedIn(cc *commandContext, headline string) error {
	snap := cc.App.Session.Snapshot()
	if snap.User == nil {
		return writeln(cc.Stdout, headline)
	}
	return writef(cc.Stdout, "%s: %s (%s)\n", headline, snap.User.Email, snap.User.Role)
}

func runLogout(cc *commandContext, _ []string) error {
	cc.App.Session.Logout(cc.Ctx)
	return writeln(cc.Stdout, cc.t("auth.signed_out"))
}

func runWhoami(cc *commandContext, _ []string) error {
	snap := cc.App.Session.Snapshot()
	if !snap.Authenticated() || snap.User == nil {
		return &friendlyError{msg: cc.t("auth.not_signed_in")}
	}

	tw := tabwriter.NewWriter(cc.Stdout, 0, 0, 2, ' ', 0)
	u := snap.User
	for _, row := range [][2]string{
		{"ID", u.ID},
		{"Email", u.Email},
		{"Name", u.FullName},
		{"Role", string(u.Role)},
		{"Language", u.Language},
	} {
		if row[1] == "" {
			continue
		}
		if err := writef(tw, "%s\t%s\n", row[0], row[1]); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func runForgotPassword(cc *commandContext, args []string) error {
	fs := newFlagSet("forgot-password", cc)
	email := fs.String("email", "", "Account email")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if strings.TrimSpace(*email) == "" {
		return usagef("--email is required")
	}
	res := cc.App.Session.ForgotPassword(cc.Ctx, *email)
	if !res.OK {
		return &friendlyError{msg: res.Message}
	}
	return writeln(cc.Stdout, res.Message)
}
