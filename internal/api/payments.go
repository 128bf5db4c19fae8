package api

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	apperrors "github.com/taskup/taskup-client/internal/errors"
	"github.com/taskup/taskup-client/internal/pagination"
)

// ListPayments returns one page of the user's payments.
func (c *Client) ListPayments(ctx context.Context, page pagination.Request) (pagination.Page[Payment], error) {
	return getPage[Payment](ctx, c, "list payments", "/api/payments", page, nil)
}

// GetWallet returns the user's balances.
func (c *Client) GetWallet(ctx context.Context) (Wallet, error) {
	var w Wallet
	if err := c.getObject(ctx, "get wallet", "/api/payments/wallet", nil, &w); err != nil {
		return Wallet{}, err
	}
	return w, nil
}

// ListTransactions returns the wallet ledger.
func (c *Client) ListTransactions(ctx context.Context) ([]Transaction, error) {
	return getList[Transaction](ctx, c, "list transactions", "/api/payments/transactions", nil)
}

// RequestPayout withdraws amountCents from the available balance. The
// backend answers PAYOUT_DESTINATION_MISSING or PAYOUT_INSUFFICIENT_BALANCE
// when it cannot.
func (c *Client) RequestPayout(ctx context.Context, amountCents int64) (PayoutResult, error) {
	if amountCents <= 0 {
		return PayoutResult{}, apperrors.Validation("amount_cents", "Enter an amount greater than zero.")
	}
	resp, err := c.do(ctx, "request payout", http.MethodPost, "/api/payments/payout-request",
		url.Values{"amount_cents": {strconv.FormatInt(amountCents, 10)}}, nil)
	if err != nil {
		return PayoutResult{}, err
	}
	var out PayoutResult
	if err := decodeObject("request payout", resp, &out); err != nil {
		return PayoutResult{}, err
	}
	return out, nil
}

// OpenDisputeInput raises a dispute against the other party of a task.
type OpenDisputeInput struct {
	TaskID        string `json:"task_id"`
	AgainstUserID string `json:"against_user_id"`
	Reason        string `json:"reason"`
	Description   string `json:"description,omitempty"`
}

// ListDisputes returns disputes visible to the user.
func (c *Client) ListDisputes(ctx context.Context) ([]Dispute, error) {
	return getList[Dispute](ctx, c, "list disputes", "/api/disputes", nil)
}

// OpenDispute raises a dispute.
func (c *Client) OpenDispute(ctx context.Context, in OpenDisputeInput) (Dispute, error) {
	switch {
	case strings.TrimSpace(in.TaskID) == "":
		return Dispute{}, apperrors.Validation("task_id", "This field is required.")
	case strings.TrimSpace(in.AgainstUserID) == "":
		return Dispute{}, apperrors.Validation("against_user_id", "This field is required.")
	case strings.TrimSpace(in.Reason) == "":
		return Dispute{}, apperrors.Validation("reason", "Tell us what went wrong.")
	}
	resp, err := c.do(ctx, "open dispute", http.MethodPost, "/api/disputes", nil, in)
	if err != nil {
		return Dispute{}, err
	}
	var d Dispute
	if err := decodeObject("open dispute", resp, &d); err != nil {
		return Dispute{}, err
	}
	return d, nil
}

// ResolveDispute closes a dispute (admin and support roles).
func (c *Client) ResolveDispute(ctx context.Context, id, resolution, note string) error {
	seg, err := pathID("dispute_id", id)
	if err != nil {
		return err
	}
	if strings.TrimSpace(resolution) == "" {
		return apperrors.Validation("resolution", "This field is required.")
	}
	_, err = c.do(ctx, "resolve dispute", http.MethodPost, "/api/disputes/"+seg+"/resolve", nil,
		map[string]string{"resolution": resolution, "note": note})
	return err
}
