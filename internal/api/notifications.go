package api

import (
	"context"
	"net/http"
	"strings"

	apperrors "github.com/taskup/taskup-client/internal/errors"
)

// ListNotifications returns the signed-in user's notifications.
func (c *Client) ListNotifications(ctx context.Context) ([]Notification, error) {
	return getList[Notification](ctx, c, "list notifications", "/api/notifications", nil)
}

// MarkNotificationRead marks one notification as read.
func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	seg, err := pathID("notification_id", id)
	if err != nil {
		return err
	}
	_, err = c.do(ctx, "mark notification read", http.MethodPost, "/api/notifications/"+seg+"/read", nil, nil)
	return err
}

// RegisterDevice registers a push token for this device.
func (c *Client) RegisterDevice(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return apperrors.Validation("token", "This field is required.")
	}
	_, err := c.do(ctx, "register device", http.MethodPost, "/api/notifications/register-device", nil,
		map[string]string{"token": token})
	return err
}

// UnreadCount counts unread notifications.
func UnreadCount(items []Notification) int {
	n := 0
	for _, it := range items {
		if !it.IsRead {
			n++
		}
	}
	return n
}
