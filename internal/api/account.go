package api

import (
	"context"
	"encoding/json"
	"net/http"
)

// ExportAccount downloads the user's data export as raw JSON.
func (c *Client) ExportAccount(ctx context.Context) (json.RawMessage, error) {
	resp, err := c.do(ctx, "export account", http.MethodGet, "/api/auth/account/export", nil, nil)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(resp.Raw), nil
}

// DeleteAccount permanently deletes the signed-in account. Callers should
// log out afterwards.
func (c *Client) DeleteAccount(ctx context.Context) error {
	_, err := c.do(ctx, "delete account", http.MethodPost, "/api/auth/account/delete", nil, nil)
	return err
}
