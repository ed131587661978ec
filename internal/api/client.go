package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
)

// DefaultBaseURL is the production auth backend base URL.
const DefaultBaseURL = "https://api.pagefold.com"

// DefaultTimeout bounds every request. Timeouts surface as network-classified
// errors; there is no retry here.
const DefaultTimeout = 10 * time.Second

const defaultUserAgent = "pagefold-auth-client/1.0"

// TokenSource supplies the bearer token for outgoing requests. Token storage
// lives with the caller; the client only reads.
type TokenSource interface {
	// Token returns the current credential and whether one is set.
	Token() (string, bool)
}

// Client executes requests against the auth backend. It owns base-URL
// resolution, header injection, and failure classification; it holds no
// session state of its own.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	tokens     TokenSource
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(client *Client) {
		client.httpClient.Timeout = timeout
	}
}

// WithTokenSource sets the bearer token supplier.
func WithTokenSource(ts TokenSource) ClientOption {
	return func(client *Client) {
		client.tokens = ts
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) ClientOption {
	return func(client *Client) {
		client.userAgent = ua
	}
}

// NewClient creates a new auth backend client.
// It reads AUTHC_BASE_URL from the environment if baseURL is empty.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("AUTHC_BASE_URL")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	c := &Client{
		baseURL:   baseURL,
		userAgent: defaultUserAgent,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BaseURL returns the resolved backend base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do executes method against path (relative to the base URL) with an optional
// JSON body and returns the raw "data" payload of the success envelope. Every
// failure is an *Error carrying one of the six classifications.
func (c *Client) Do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, newError(KindInputInvalid, 0, "unencodable request body", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, newError(KindNetwork, 0, "creating request", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
	if c.tokens != nil {
		if token, ok := c.tokens.Token(); ok {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("path", path).Msg("api: request failed")
		return nil, newError(KindNetwork, 0, "request failed", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newError(KindNetwork, resp.StatusCode, "reading response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, respBody)
	}

	var envelope Response[json.RawMessage]
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return nil, newError(KindDecode, resp.StatusCode, "malformed response envelope", err)
	}
	if !envelope.Success {
		return nil, newError(KindDecode, resp.StatusCode, envelope.Message, nil)
	}

	return envelope.Data, nil
}

// classifyStatus maps a non-200 response to a classification. The body's
// error.code is consulted first so a backend that reports rejected sign-in
// codes as 400 still classifies as auth_failed rather than input_invalid.
func classifyStatus(status int, body []byte) *Error {
	code := gjson.GetBytes(body, "error.code").String()
	message := gjson.GetBytes(body, "error.message").String()
	if message == "" {
		message = gjson.GetBytes(body, "message").String()
	}

	switch {
	case code == "invalid_code" || code == "auth_failed":
		return newError(KindAuthFailed, status, message, nil)
	case status == http.StatusUnauthorized:
		return newError(KindUnauthenticated, status, message, nil)
	case status == http.StatusForbidden:
		return newError(KindAuthFailed, status, message, nil)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return newError(KindInputInvalid, status, message, nil)
	case status >= 500:
		return newError(KindServer, status, message, nil)
	default:
		return newError(KindServer, status, fmt.Sprintf("unexpected status %d", status), nil)
	}
}
