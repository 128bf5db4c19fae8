package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	apperrors "github.com/taskup/taskup-client/internal/errors"
	"github.com/taskup/taskup-client/internal/pagination"
)

// SendMessageInput is a chat message to post.
type SendMessageInput struct {
	TaskID     string `json:"task_id"`
	ReceiverID string `json:"receiver_id"`
	Content    string `json:"content"`
}

// ListMessages returns one page of a task thread.
func (c *Client) ListMessages(ctx context.Context, taskID string, page pagination.Request) (pagination.Page[Message], error) {
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return pagination.Page[Message]{}, apperrors.Validation("task_id", "This field is required.")
	}
	return getPage[Message](ctx, c, "list messages", "/api/messages", page, url.Values{"task_id": {taskID}})
}

// SendMessage posts a message.
func (c *Client) SendMessage(ctx context.Context, in SendMessageInput) (Message, error) {
	in.Content = strings.TrimSpace(in.Content)
	switch {
	case strings.TrimSpace(in.TaskID) == "":
		return Message{}, apperrors.Validation("task_id", "This field is required.")
	case strings.TrimSpace(in.ReceiverID) == "":
		return Message{}, apperrors.Validation("receiver_id", "This field is required.")
	case in.Content == "":
		return Message{}, apperrors.Validation("content", "Write a message first.")
	}

	resp, err := c.do(ctx, "send message", http.MethodPost, "/api/messages", nil, in)
	if err != nil {
		return Message{}, err
	}
	var msg Message
	if err := decodeObject("send message", resp, &msg); err != nil {
		return Message{}, err
	}
	return msg, nil
}
