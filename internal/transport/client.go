// Package transport performs single HTTP calls against the taskup API and
// turns non-2xx responses into structured failures.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/taskup/taskup-client/internal/observability/statsd"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/oauth2"
)

// DefaultMaxBodyBytes caps how much of a response body is read into memory.
const DefaultMaxBodyBytes = 8 << 20

// RequestIDHeader carries the client-generated id for each call.
const RequestIDHeader = "X-Request-ID"

// ErrNoToken is returned by token sources that have no credentials yet.
// Transport treats it as "send the request anonymously".
var ErrNoToken = errors.New("no access token")

// ErrBodyTooLarge is returned when a response body exceeds the configured cap.
var ErrBodyTooLarge = errors.New("response body too large")

// Options configures a Client.
type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     *slog.Logger
	// Debug enables per-request debug logs. Bodies are never logged.
	Debug     bool
	UserAgent string
	// CookieJar attaches a public-suffix aware jar when HTTPClient has none.
	CookieJar bool
	Metrics   statsd.Sink
	// TokenSource supplies the bearer token when a request carries none.
	TokenSource oauth2.TokenSource
	// MaxBodyBytes caps response bodies; 0 means DefaultMaxBodyBytes.
	MaxBodyBytes int64
}

// Client issues one-shot JSON requests. It performs no retries and applies
// no timeouts of its own; deadlines come from the caller's context.
type Client struct {
	baseURL   string
	http      *http.Client
	logger    *slog.Logger
	debug     bool
	userAgent string
	metrics   statsd.Sink
	tokens    oauth2.TokenSource
	maxBody   int64
}

// Request describes a single API call.
type Request struct {
	Method string
	// Path is joined to the base URL; a missing leading slash is added.
	Path  string
	Query url.Values
	// Body is JSON encoded unless it is already []byte or json.RawMessage.
	Body any
	// Token overrides the client's token source for this call.
	Token  string
	Header http.Header
}

// Response is a successful (2xx) result.
type Response struct {
	Status int
	Header http.Header
	// Body is the decoded JSON value, {"message": text} for text payloads,
	// or nil when empty.
	Body any
	Raw  []byte
}

// Decode unmarshals the raw JSON payload into v.
func (r *Response) Decode(v any) error {
	if r == nil || len(bytes.TrimSpace(r.Raw)) == 0 {
		return errors.New("decode response: empty body")
	}
	if err := json.Unmarshal(r.Raw, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// New builds a Client for the given base URL.
func New(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("transport base url is required")
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q must use http or https", base)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("base url %q has no host", base)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	if opts.CookieJar && hc.Jar == nil {
		jar, jarErr := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if jarErr != nil {
			return nil, fmt.Errorf("create cookie jar: %w", jarErr)
		}
		cp := *hc
		cp.Jar = jar
		hc = &cp
	}

	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}

	return &Client{
		baseURL:   base,
		http:      hc,
		logger:    logger.With("component", "transport"),
		debug:     opts.Debug,
		userAgent: strings.TrimSpace(opts.UserAgent),
		metrics:   opts.Metrics,
		tokens:    opts.TokenSource,
		maxBody:   maxBody,
	}, nil
}

// WithTokenSource returns a copy of c that resolves tokens from ts.
func (c *Client) WithTokenSource(ts oauth2.TokenSource) *Client {
	cp := *c
	cp.tokens = ts
	return &cp
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Do performs the request. Network failures are returned untouched; non-2xx
// responses are returned as *HTTPError.
func (c *Client) Do(ctx context.Context, r Request) (*Response, error) {
	method := strings.ToUpper(strings.TrimSpace(r.Method))
	if method == "" {
		method = http.MethodGet
	}
	path := normalizePath(r.Path)

	req, err := c.buildRequest(ctx, method, path, r)
	if err != nil {
		return nil, err
	}
	requestID := req.Header.Get(RequestIDHeader)

	start := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.observe(method, path, requestID, 0, elapsed, err)
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err == nil && int64(len(raw)) > c.maxBody {
		err = fmt.Errorf("%s %s: %w (limit %d bytes)", method, path, ErrBodyTooLarge, c.maxBody)
	}
	if err != nil {
		c.observe(method, path, requestID, resp.StatusCode, elapsed, err)
		return nil, err
	}
	c.observe(method, path, requestID, resp.StatusCode, elapsed, nil)

	payload, isJSON := parseBody(resp.Header.Get("Content-Type"), raw)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, newHTTPError(method, path, requestID, resp, payload, isJSON, raw)
	}

	return &Response{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   payload,
		Raw:    raw,
	}, nil
}

func (c *Client) buildRequest(ctx context.Context, method, path string, r Request) (*http.Request, error) {
	target := c.baseURL + path
	if len(r.Query) > 0 {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		target += sep + r.Query.Encode()
	}

	var body io.Reader
	if r.Body != nil {
		encoded, err := encodeBody(r.Body)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	for k, vals := range r.Header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if req.Header.Get(RequestIDHeader) == "" {
		req.Header.Set(RequestIDHeader, uuid.NewString())
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	if tok := c.resolveToken(r.Token); tok != nil {
		tok.SetAuthHeader(req)
	}

	return req, nil
}

// resolveToken prefers the per-call token, then the bound source. A source
// that fails sends the request anonymously; the backend decides with a 401.
func (c *Client) resolveToken(explicit string) *oauth2.Token {
	if s := strings.TrimSpace(explicit); s != "" {
		return &oauth2.Token{AccessToken: s, TokenType: "Bearer"}
	}
	if c.tokens == nil {
		return nil
	}
	tok, err := c.tokens.Token()
	if err != nil {
		if !errors.Is(err, ErrNoToken) {
			c.logger.Warn("token source failed; sending request without credentials", "error", err)
		}
		return nil
	}
	if tok == nil || tok.AccessToken == "" {
		return nil
	}
	return tok
}

func encodeBody(v any) ([]byte, error) {
	switch b := v.(type) {
	case json.RawMessage:
		return b, nil
	case []byte:
		return b, nil
	}
	encoded, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}
	return encoded, nil
}

func normalizePath(p string) string {
	p = strings.TrimSpace(p)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}

// parseBody decodes JSON payloads and wraps other content as
// {"message": text}. isJSON is false when a JSON content type carried a
// malformed body.
func parseBody(contentType string, raw []byte) (payload any, isJSON bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, false
	}
	if isJSONContentType(contentType) {
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, false
		}
		return v, true
	}
	return map[string]any{"message": strings.TrimSpace(string(raw))}, false
}

func isJSONContentType(ct string) bool {
	if ct == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return strings.Contains(strings.ToLower(ct), "json")
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func (c *Client) observe(method, path, requestID string, status int, elapsed time.Duration, err error) {
	if c.metrics != nil {
		tags := map[string]string{
			"method": method,
			"status": statusClass(status),
			"result": resultOf(status, err),
		}
		c.metrics.Timing("api.request", elapsed, tags)
		c.metrics.Count("api.request.count", 1, tags)
	}

	if !c.debug {
		return
	}
	attrs := []any{
		"method", method,
		"path", path,
		"request_id", requestID,
		"duration_ms", elapsed.Milliseconds(),
	}
	if err != nil {
		c.logger.Debug("api request failed", append(attrs, "error", err)...)
		return
	}
	c.logger.Debug("api request", append(attrs, "status", status)...)
}

func resultOf(status int, err error) string {
	switch {
	case err != nil:
		return "network_error"
	case status >= 200 && status < 300:
		return "ok"
	default:
		return "http_error"
	}
}

func statusClass(status int) string {
	if status <= 0 {
		return "network"
	}
	return strconv.Itoa(status/100) + "xx"
}
