package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"notifer/internal/config"
	"notifer/internal/logging"
	"notifer/internal/payload"
)

const (
	// DefaultBaseURL is the hosted notifer endpoint.
	DefaultBaseURL = "https://app.notifer.io"
	// DefaultTimeout bounds connect plus read for one send.
	DefaultTimeout = 30 * time.Second

	tokenHeader  = "X-Topic-Token"
	maxErrorBody = 4096
	maxReplyBody = 1 << 20
)

// Response is the endpoint's reply to an accepted notification.
type Response struct {
	ID       string   `json:"id"`
	Topic    string   `json:"topic"`
	Message  string   `json:"message"`
	Priority int      `json:"priority"`
	Tags     []string `json:"tags"`
}

// Sender is the transport surface the dispatcher depends on.
type Sender interface {
	Send(ctx context.Context, topic string, req payload.Request, token string) (*Response, error)
}

// Options configures a Client.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	ProxyURL  string
	UserAgent string
	Logger    *slog.Logger
}

// Client posts notifications over HTTP. It is safe for concurrent use.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	logger    *slog.Logger
}

// NewClient builds a client. An explicit ProxyURL wins over HTTP_PROXY,
// HTTPS_PROXY and NO_PROXY from the environment; with neither the client
// connects directly.
func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = http.ProxyFromEnvironment
	if proxy := strings.TrimSpace(opts.ProxyURL); proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &Client{
		baseURL:   base,
		userAgent: opts.UserAgent,
		http:      &http.Client{Timeout: timeout, Transport: transport},
		logger:    logging.NewComponentLogger(opts.Logger, "transport"),
	}, nil
}

// NewClientFromConfig builds a client from the [api] section.
func NewClientFromConfig(cfg *config.Config, logger *slog.Logger) (*Client, error) {
	return NewClient(Options{
		BaseURL:   cfg.API.BaseURL,
		Timeout:   cfg.RequestTimeout(),
		ProxyURL:  cfg.API.ProxyURL,
		UserAgent: cfg.API.UserAgent,
		Logger:    logger,
	})
}

// BaseURL returns the endpoint root without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Ping issues an unauthenticated GET against the endpoint root and returns
// the HTTP status. Only network failures are errors.
func (c *Client) Ping(ctx context.Context) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return 0, fmt.Errorf("build ping request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, &Error{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	return resp.StatusCode, nil
}

// Endpoint returns the URL a notification for topic is posted to.
func (c *Client) Endpoint(topic string) string {
	return c.baseURL + "/" + url.PathEscape(topic)
}

// Send posts req to the topic. Any 2xx status is success; everything else is
// an *Error.
func (c *Client) Send(ctx context.Context, topic string, req payload.Request, token string) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode notification: %w", err)
	}

	endpoint := c.Endpoint(topic)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build notifer request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(tokenHeader, token)
	if c.userAgent != "" {
		httpReq.Header.Set("User-Agent", c.userAgent)
	}

	c.logger.Debug("posting notification", slog.String("url", endpoint), slog.Int("bytes", len(body)))

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &Error{Kind: KindNetwork, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.logger.Warn("notification rejected",
			slog.Int("status", resp.StatusCode),
			slog.String(logging.FieldTopic, topic),
		)
		return nil, &Error{
			Kind:       KindStatus,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
		}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBody))
	if err != nil {
		return nil, &Error{Kind: KindNetwork, StatusCode: resp.StatusCode, Err: err}
	}
	var out Response
	if len(bytes.TrimSpace(raw)) == 0 {
		return &out, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &Error{
			Kind:       KindDecode,
			StatusCode: resp.StatusCode,
			Body:       truncate(strings.TrimSpace(string(raw)), maxErrorBody),
			Err:        err,
		}
	}
	return &out, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

var _ Sender = (*Client)(nil)

// IsTimeout reports whether err came from the per-call deadline.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
