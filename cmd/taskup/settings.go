package main

import (
	"text/tabwriter"

	"github.com/taskup/taskup-client/internal/locale"
)

func runLocale(cc *commandContext, args []string) error {
	store := cc.App.Locale
	if len(args) == 0 {
		active := store.Active()
		if err := writef(cc.Stdout, "%s (%s)\n\n", active, locale.Name(active)); err != nil {
			return err
		}
		for _, l := range locale.SupportedLocales {
			mark := " "
			if l == active {
				mark = "*"
			}
			if err := writef(cc.Stdout, "%s %s  %s\n", mark, l, locale.Name(l)); err != nil {
				return err
			}
		}
		return nil
	}

	if !store.SetLocale(cc.Ctx, locale.Locale(args[0])) {
		return &friendlyError{msg: store.T("locale.unsupported")}
	}
	return writef(cc.Stdout, "%s: %s\n", store.T("locale.changed"), locale.Name(store.Active()))
}

func runFlags(cc *commandContext, _ []string) error {
	flags := cc.App.Flags
	flags.Refresh(cc.Ctx)

	if err := writef(cc.Stdout, "%s: %s\n", cc.t("flags.environment"), flags.Environment()); err != nil {
		return err
	}
	names := flags.Names()
	if len(names) == 0 {
		return writeln(cc.Stdout, cc.t("flags.none"))
	}
	if err := writef(cc.Stdout, "%s:\n", cc.t("flags.title")); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cc.Stdout, 0, 0, 2, ' ', 0)
	for _, name := range names {
		state := "off"
		if flags.Enabled(name) {
			state = "on"
		}
		if err := writef(tw, "  %s\t%s\n", name, state); err != nil {
			return err
		}
	}
	return tw.Flush()
}
