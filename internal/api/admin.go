package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	apperrors "github.com/taskup/taskup-client/internal/errors"
	"github.com/taskup/taskup-client/internal/pagination"
)

// AdminResources are the listable admin collections.
var AdminResources = []string{"users", "tasks", "offers", "disputes", "payments"}

// AdminList returns one page of an admin collection as loose records.
func (c *Client) AdminList(ctx context.Context, resource string, page pagination.Request) (pagination.Page[map[string]any], error) {
	resource = strings.ToLower(strings.TrimSpace(resource))
	if !slices.Contains(AdminResources, resource) {
		return pagination.Page[map[string]any]{}, apperrors.Validation("resource",
			fmt.Sprintf("Unknown collection. Choose one of: %s.", strings.Join(AdminResources, ", ")))
	}
	return getPage[map[string]any](ctx, c, "admin list "+resource, "/api/admin/"+resource, page, nil)
}

// AdminMetrics returns the platform counters.
func (c *Client) AdminMetrics(ctx context.Context) (map[string]any, error) {
	var out map[string]any
	if err := c.getObject(ctx, "admin metrics", "/api/admin/metrics", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SetUserKYC records a KYC decision.
func (c *Client) SetUserKYC(ctx context.Context, userID, status string) error {
	seg, err := pathID("user_id", userID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(status) == "" {
		return apperrors.Validation("kyc_status", "This field is required.")
	}
	_, err = c.do(ctx, "set user kyc", http.MethodPost, "/api/admin/users/"+seg+"/kyc",
		url.Values{"kyc_status": {status}}, nil)
	return err
}

// SetUserRisk overrides a user's risk score.
func (c *Client) SetUserRisk(ctx context.Context, userID string, score float64, note string) error {
	seg, err := pathID("user_id", userID)
	if err != nil {
		return err
	}
	q := url.Values{"risk_score": {strconv.FormatFloat(score, 'f', -1, 64)}}
	if note != "" {
		q.Set("note", note)
	}
	_, err = c.do(ctx, "set user risk", http.MethodPost, "/api/admin/users/"+seg+"/risk", q, nil)
	return err
}

// FlagUser adds a moderation flag.
func (c *Client) FlagUser(ctx context.Context, userID, note string) error {
	seg, err := pathID("user_id", userID)
	if err != nil {
		return err
	}
	if strings.TrimSpace(note) == "" {
		return apperrors.Validation("note", "This field is required.")
	}
	_, err = c.do(ctx, "flag user", http.MethodPost, "/api/admin/users/"+seg+"/flags",
		url.Values{"note": {note}}, nil)
	return err
}
