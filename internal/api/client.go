// Package api provides typed wrappers over the taskup REST endpoints. Calls
// go through a ports.APIDoer, normally a transport client bound to the
// session's token source.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	apperrors "github.com/taskup/taskup-client/internal/errors"
	"github.com/taskup/taskup-client/internal/pagination"
	"github.com/taskup/taskup-client/internal/ports"
	"github.com/taskup/taskup-client/internal/transport"
	"github.com/taskup/taskup-client/internal/util"
)

// Lists come back bare, under "items", or inside a "data" wrapper.
const (
	listExpr   = "items || data.items || data || results || @"
	objectExpr = "data || @"
)

// Options configures a Client.
type Options struct {
	Doer   ports.APIDoer
	Logger *slog.Logger
}

// Client exposes the backend resources.
type Client struct {
	doer   ports.APIDoer
	logger *slog.Logger
}

// New builds a Client.
func New(opts Options) (*Client, error) {
	if opts.Doer == nil {
		return nil, errors.New("api: Doer is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{doer: opts.Doer, logger: logger.With("component", "api")}, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body any) (*transport.Response, error) {
	resp, err := c.doer.Do(ctx, transport.Request{Method: method, Path: path, Query: query, Body: body})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return resp, nil
}

// getObject fetches path and decodes the selected object into out.
func (c *Client) getObject(ctx context.Context, op, path string, query url.Values, out any) error {
	resp, err := c.do(ctx, op, http.MethodGet, path, query, nil)
	if err != nil {
		return err
	}
	return decodeObject(op, resp, out)
}

func decodeObject(op string, resp *transport.Response, out any) error {
	data := util.Extract(objectExpr, resp.Body)
	if _, ok := data.(map[string]any); !ok {
		return fmt.Errorf("%s: %w", op, errUnexpectedShape)
	}
	if err := util.Remarshal(data, out); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

var errUnexpectedShape = errors.New("unexpected response shape")

// getList fetches path and decodes the selected array. A body with no
// array decodes to an empty list.
func getList[T any](ctx context.Context, c *Client, op, path string, query url.Values) ([]T, error) {
	resp, err := c.do(ctx, op, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	return decodeList[T](op, resp)
}

func decodeList[T any](op string, resp *transport.Response) ([]T, error) {
	arr, ok := util.Extract(listExpr, resp.Body).([]any)
	if !ok {
		return []T{}, nil
	}
	out := make([]T, 0, len(arr))
	if err := util.Remarshal(arr, &out); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

// getPage fetches one page of a list endpoint.
func getPage[T any](ctx context.Context, c *Client, op, path string, req pagination.Request, extra url.Values) (pagination.Page[T], error) {
	req = req.Normalize()
	query := req.Query()
	for k, vs := range extra {
		for _, v := range vs {
			if v != "" {
				query.Add(k, v)
			}
		}
	}
	items, err := getList[T](ctx, c, op, path, query)
	if err != nil {
		return pagination.Page[T]{}, err
	}
	return pagination.FromItems(items, req), nil
}

// pathID escapes an id for use as a path segment.
func pathID(field, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", apperrors.Validation(field, "This field is required.")
	}
	return url.PathEscape(id), nil
}
