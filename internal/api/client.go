package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/five82/agentlog/internal/logfeed"
	"github.com/five82/agentlog/internal/stream"
)

// LogFetcher defines the bulk-load half of the log service API.
// This interface is implemented by *Client and can be used for testing.
type LogFetcher interface {
	FetchLogs(ctx context.Context, limit int) ([]logfeed.Entry, error)
}

// Ensure Client implements LogFetcher at compile time.
var _ LogFetcher = (*Client)(nil)

// Client talks to the agentlog HTTP API.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	stream    *http.Client
	userAgent string
}

const (
	defaultServerURL = "127.0.0.1:7490"
	defaultUserAgent = "agentlog/0.1"
	requestTimeout   = 5 * time.Second

	// DefaultLimit is the bulk-load size used when none is configured.
	DefaultLimit = 50

	logsPath   = "/api/logs"
	streamPath = "/api/logs/stream"
	wsPath     = "/api/logs/ws"
)

// NewClient builds a Client using the provided host:port or URL.
func NewClient(serverURL string) (*Client, error) {
	base, err := parseBaseURL(serverURL)
	if err != nil {
		return nil, err
	}
	return &Client{
		baseURL: base,
		http: &http.Client{
			Timeout: requestTimeout,
		},
		// Streams stay open indefinitely; cancellation comes from the context.
		stream:    &http.Client{},
		userAgent: defaultUserAgent,
	}, nil
}

// BaseURL returns the normalized service URL.
func (c *Client) BaseURL() string {
	if c == nil {
		return ""
	}
	return c.baseURL.String()
}

// FetchLogs retrieves the most recent entries, oldest first.
func (c *Client) FetchLogs(ctx context.Context, limit int) ([]logfeed.Entry, error) {
	if c == nil {
		return nil, fmt.Errorf("client is nil")
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	values := url.Values{}
	values.Set("limit", strconv.Itoa(limit))
	rel := &url.URL{Path: logsPath, RawQuery: values.Encode()}

	var payload []logfeed.Entry
	if err := c.doURL(ctx, http.MethodGet, rel, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// SSE returns a stream.Source reading the server-sent events endpoint.
func (c *Client) SSE() stream.Source {
	return &sseSource{client: c}
}

// WebSocket returns a stream.Source reading the WebSocket endpoint.
func (c *Client) WebSocket() stream.Source {
	return &wsSource{client: c}
}

// Source returns the push source for the named transport. Opened with the
// zero entry it only sends entries that arrive from then on.
func (c *Client) Source(transport string) (stream.Source, error) {
	return c.source(transport, false)
}

// ResumeSource is like Source, but the zero entry is sent as cursor 0, so
// the server replays everything it stored. Use it after a bulk load that
// came back empty, so entries stored in between are not lost.
func (c *Client) ResumeSource(transport string) (stream.Source, error) {
	return c.source(transport, true)
}

func (c *Client) source(transport string, fromStart bool) (stream.Source, error) {
	switch strings.ToLower(strings.TrimSpace(transport)) {
	case "", "sse":
		return &sseSource{client: c, fromStart: fromStart}, nil
	case "websocket", "ws":
		return &wsSource{client: c, fromStart: fromStart}, nil
	default:
		return nil, fmt.Errorf("unknown transport %q", transport)
	}
}

func (c *Client) doURL(ctx context.Context, method string, rel *url.URL, dest any) error {
	reqURL := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, reqURL.String(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("api %s returned status %d", rel.Path, resp.StatusCode)
	}
	if dest == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(dest); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func parseBaseURL(serverURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(serverURL)
	if trimmed == "" {
		trimmed = defaultServerURL
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("parse server_url %q: %w", serverURL, err)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("parse server_url %q: missing host", serverURL)
	}
	u.Path = ""
	u.RawQuery = ""
	u.Fragment = ""
	return u, nil
}

// decodeEntry turns one wire payload into an entry. Payloads that decode but
// do not describe a usable entry are reported as malformed too.
func decodeEntry(data []byte) (logfeed.Entry, error) {
	var entry logfeed.Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return logfeed.Entry{}, fmt.Errorf("%w: %v", stream.ErrMalformed, err)
	}
	if err := entry.Validate(); err != nil {
		return logfeed.Entry{}, fmt.Errorf("%w: %v", stream.ErrMalformed, err)
	}
	return entry, nil
}
