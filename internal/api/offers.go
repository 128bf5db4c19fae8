package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	apperrors "github.com/taskup/taskup-client/internal/errors"
)

// CreateOfferInput is a tasker's bid.
type CreateOfferInput struct {
	TaskID      string `json:"task_id"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency,omitempty"`
	Message     string `json:"message,omitempty"`
}

// Validate checks the bid before it is sent.
func (in CreateOfferInput) Validate() error {
	if strings.TrimSpace(in.TaskID) == "" {
		return apperrors.Validation("task_id", "This field is required.")
	}
	if in.AmountCents <= 0 {
		return apperrors.Validation("amount_cents", "Enter an amount greater than zero.")
	}
	return nil
}

// ListOffers returns the offers on a task.
func (c *Client) ListOffers(ctx context.Context, taskID string) ([]Offer, error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return nil, apperrors.Validation("task_id", "This field is required.")
	}
	return getList[Offer](ctx, c, "list offers", "/api/offers", url.Values{"task_id": {taskID}})
}

// CreateOffer places a bid.
func (c *Client) CreateOffer(ctx context.Context, in CreateOfferInput) (Offer, error) {
	if err := in.Validate(); err != nil {
		return Offer{}, err
	}
	resp, err := c.do(ctx, "create offer", http.MethodPost, "/api/offers", nil, in)
	if err != nil {
		return Offer{}, err
	}
	var offer Offer
	if err := decodeObject("create offer", resp, &offer); err != nil {
		return Offer{}, err
	}
	return offer, nil
}

// AcceptOffer assigns a task to the offer's tasker.
func (c *Client) AcceptOffer(ctx context.Context, taskID, offerID string) error {
	seg, err := pathID("task_id", taskID)
	if err != nil {
		return err
	}
	offerID = strings.TrimSpace(offerID)
	if offerID == "" {
		return apperrors.Validation("offer_id", "This field is required.")
	}
	_, err = c.do(ctx, "accept offer", http.MethodPost, "/api/tasks/"+seg+"/accept-offer", nil,
		map[string]string{"offer_id": offerID})
	return err
}
