package api

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/taskup/taskup-client/internal/pagination"
)

// TaskDetail is everything the task screen shows.
type TaskDetail struct {
	Task     Task
	Offers   []Offer
	Messages pagination.Page[Message]
	// OffersErr and MessagesErr hold failures of the secondary loads; the
	// screen still renders the task.
	OffersErr   error
	MessagesErr error
}

// TaskDetail loads a task with its offers and first page of messages in
// parallel. Only a failure to load the task itself is returned.
func (c *Client) TaskDetail(ctx context.Context, id string) (TaskDetail, error) {
	var detail TaskDetail
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		task, err := c.GetTask(gctx, id)
		if err != nil {
			return err
		}
		detail.Task = task
		return nil
	})

	g.Go(func() error {
		offers, err := c.ListOffers(gctx, id)
		if err != nil {
			detail.OffersErr = err
			return nil
		}
		detail.Offers = offers
		return nil
	})

	g.Go(func() error {
		page, err := c.ListMessages(gctx, id, pagination.Request{Page: 1})
		if err != nil {
			detail.MessagesErr = err
			return nil
		}
		detail.Messages = page
		return nil
	})

	if err := g.Wait(); err != nil {
		return TaskDetail{}, err
	}
	if detail.OffersErr != nil || detail.MessagesErr != nil {
		c.logger.DebugContext(ctx, "task detail partially loaded",
			"task_id", id, "offers_error", detail.OffersErr, "messages_error", detail.MessagesErr)
	}
	return detail, nil
}
