package main

import (
	"context"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/taskup/taskup-client/internal/api"
	"github.com/taskup/taskup-client/internal/pagination"
	"github.com/taskup/taskup-client/internal/util"
)

const maxListPages = 10

func runTasks(cc *commandContext, args []string) error {
	fs := newFlagSet("tasks", cc)
	status := fs.String("status", "", "Filter by status (open, assigned, in_progress, ...)")
	category := fs.String("category", "", "Filter by category")
	limit := fs.Int("limit", pagination.DefaultLimit, "Page size")
	all := fs.Bool("all", false, "Keep loading pages until the list is exhausted")
	if err := parseFlags(fs, args); err != nil {
		return err
	}

	filter := api.TaskFilter{Status: api.TaskStatus(strings.TrimSpace(*status)), Category: strings.TrimSpace(*category)}
	pager := pagination.NewPager[api.Task](func(ctx context.Context, req pagination.Request) ([]api.Task, error) {
		page, err := cc.App.API.ListTasks(ctx, req, filter)
		return page.Items, err
	}, *limit)

	if _, err := pager.Reload(cc.Ctx); err != nil {
		return err
	}
	for n := 1; *all && pager.HasMore() && n < maxListPages; n++ {
		if _, err := pager.LoadMore(cc.Ctx); err != nil {
			return err
		}
	}

	tasks := pager.Items()
	if len(tasks) == 0 {
		return writeln(cc.Stdout, cc.t("tasks.empty"))
	}
	tw := tabwriter.NewWriter(cc.Stdout, 0, 0, 2, ' ', 0)
	if err := writef(tw, "ID\tSTATUS\tTITLE\tBUDGET\n"); err != nil {
		return err
	}
	for _, t := range tasks {
		if err := writef(tw, "%s\t%s\t%s\t%s\n", t.ID, t.Status, util.Truncate(t.Title, 48), budget(t)); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if pager.HasMore() {
		return writeln(cc.Stdout, cc.t("tasks.more"))
	}
	return nil
}

// budget renders the whole-unit budget range of a task.
func budget(t api.Task) string {
	cur := t.Currency
	if cur == "" {
		cur = "NOK"
	}
	switch {
	case t.BudgetMin != nil && t.BudgetMax != nil && *t.BudgetMin != *t.BudgetMax:
		return strconv.FormatInt(*t.BudgetMin, 10) + "-" + strconv.FormatInt(*t.BudgetMax, 10) + " " + cur
	case t.BudgetMin != nil:
		return strconv.FormatInt(*t.BudgetMin, 10) + " " + cur
	case t.BudgetMax != nil:
		return strconv.FormatInt(*t.BudgetMax, 10) + " " + cur
	default:
		return "-"
	}
}

func requireArg(args []string, name string) (string, error) {
	if len(args) < 1 || strings.TrimSpace(args[0]) == "" {
		return "", usagef("%s is required", name)
	}
	return strings.TrimSpace(args[0]), nil
}

func runTask(cc *commandContext, args []string) error {
	id, err := requireArg(args, "task id")
	if err != nil {
		return err
	}
	detail, err := cc.App.API.TaskDetail(cc.Ctx, id)
	if err != nil {
		return err
	}

	t := detail.Task
	if err := writef(cc.Stdout, "%s  [%s]\n", t.Title, t.Status); err != nil {
		return err
	}
	if t.Description != "" {
		if err := writeln(cc.Stdout, t.Description); err != nil {
			return err
		}
	}
	if err := writef(cc.Stdout, "Budget: %s\n\n%s:\n", budget(t), cc.t("tasks.offers")); err != nil {
		return err
	}

	switch {
	case detail.OffersErr != nil:
		if err := writef(cc.Stdout, "  %s\n", cc.friendly(detail.OffersErr)); err != nil {
			return err
		}
	case len(detail.Offers) == 0:
		if err := writef(cc.Stdout, "  %s\n", cc.t("tasks.no_offers")); err != nil {
			return err
		}
	default:
		for _, o := range detail.Offers {
			if err := writef(cc.Stdout, "  %s  %s  %s\n", o.ID, util.FormatAmount(o.AmountCents, o.Currency), o.Status); err != nil {
				return err
			}
		}
	}

	if err := writef(cc.Stdout, "\n%s:\n", cc.t("messages.title")); err != nil {
		return err
	}
	if detail.MessagesErr != nil {
		return writef(cc.Stdout, "  %s\n", cc.friendly(detail.MessagesErr))
	}
	return printMessages(cc, detail.Messages.Items)
}

func runMessages(cc *commandContext, args []string) error {
	id, err := requireArg(args, "task id")
	if err != nil {
		return err
	}
	fs := newFlagSet("messages", cc)
	page := fs.Int("page", 1, "Page number")
	if err := parseFlags(fs, args[1:]); err != nil {
		return err
	}
	res, err := cc.App.API.ListMessages(cc.Ctx, id, pagination.Request{Page: *page})
	if err != nil {
		return err
	}
	return printMessages(cc, res.Items)
}

func printMessages(cc *commandContext, msgs []api.Message) error {
	if len(msgs) == 0 {
		return writef(cc.Stdout, "  %s\n", cc.t("messages.empty"))
	}
	for _, m := range msgs {
		stamp := ""
		if !m.CreatedAt.IsZero() {
			stamp = m.CreatedAt.Format("2006-01-02 15:04")
		}
		if err := writef(cc.Stdout, "  %s %s: %s\n", stamp, m.SenderID, m.Content); err != nil {
			return err
		}
	}
	return nil
}

func runWallet(cc *commandContext, _ []string) error {
	w, err := cc.App.API.GetWallet(cc.Ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cc.Stdout, 0, 0, 2, ' ', 0)
	if err := writef(tw, "%s\t%s\n", cc.t("wallet.available"), util.FormatAmount(w.AvailableBalance, w.Currency)); err != nil {
		return err
	}
	if err := writef(tw, "%s\t%s\n", cc.t("wallet.escrow"), util.FormatAmount(w.EscrowBalance, w.Currency)); err != nil {
		return err
	}
	return tw.Flush()
}

func runPayout(cc *commandContext, args []string) error {
	raw, err := requireArg(args, "amount in minor units")
	if err != nil {
		return err
	}
	amount, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return usagef("invalid amount %q", raw)
	}
	res, err := cc.App.API.RequestPayout(cc.Ctx, amount)
	if err != nil {
		return err
	}
	return writef(cc.Stdout, "payout %s: %s\n", res.PayoutID, res.PayoutStatus)
}
