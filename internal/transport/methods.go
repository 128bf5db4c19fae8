package transport

import (
	"context"
	"net/http"
	"net/url"
)

// CallOption adjusts a Request built by the verb helpers.
type CallOption func(*Request)

// WithToken sets an explicit bearer token for one call.
func WithToken(token string) CallOption {
	return func(r *Request) { r.Token = token }
}

// WithQuery sets the query string.
func WithQuery(q url.Values) CallOption {
	return func(r *Request) { r.Query = q }
}

// WithHeader adds a request header.
func WithHeader(key, value string) CallOption {
	return func(r *Request) {
		if r.Header == nil {
			r.Header = http.Header{}
		}
		r.Header.Add(key, value)
	}
}

func (c *Client) call(ctx context.Context, method, path string, body any, opts []CallOption) (*Response, error) {
	req := Request{Method: method, Path: path, Body: body}
	for _, opt := range opts {
		if opt != nil {
			opt(&req)
		}
	}
	return c.Do(ctx, req)
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, path string, opts ...CallOption) (*Response, error) {
	return c.call(ctx, http.MethodGet, path, nil, opts)
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any, opts ...CallOption) (*Response, error) {
	return c.call(ctx, http.MethodPost, path, body, opts)
}

// Put issues a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any, opts ...CallOption) (*Response, error) {
	return c.call(ctx, http.MethodPut, path, body, opts)
}

// Patch issues a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body any, opts ...CallOption) (*Response, error) {
	return c.call(ctx, http.MethodPatch, path, body, opts)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, opts ...CallOption) (*Response, error) {
	return c.call(ctx, http.MethodDelete, path, nil, opts)
}
