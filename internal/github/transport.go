// Package github talks to the GitHub GraphQL API: the project item listing,
// item hydration, the custom-field catalog and the mutations used to commit
// pending changes. It maps GraphQL responses onto ghtrack's work item model.
package github

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"
	"unicode/utf8"
)

// API configuration constants.
const (
	// DefaultAPIEndpoint is the GitHub GraphQL endpoint.
	DefaultAPIEndpoint = "https://api.github.com/graphql"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// MaxPageSize is the largest page GitHub serves for a connection.
	MaxPageSize = 100

	// maxResponseSize bounds the body read from a single response.
	maxResponseSize = 50 * 1024 * 1024
)

// Transport sends one GraphQL request and decodes its "data" into out.
// A non-empty "errors" list is returned as ResponseErrors.
type Transport interface {
	Do(ctx context.Context, query string, variables map[string]any, out any) error
}

// HTTPTransport is the Transport used against api.github.com.
type HTTPTransport struct {
	Token      string       // GitHub token
	Endpoint   string       // GraphQL endpoint (default: https://api.github.com/graphql)
	HTTPClient *http.Client // Optional custom HTTP client
}

// NewTransport creates an HTTP transport authenticated with token.
func NewTransport(token string) *HTTPTransport {
	return &HTTPTransport{
		Token:    token,
		Endpoint: DefaultAPIEndpoint,
		HTTPClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
}

// WithHTTPClient returns a new transport with a custom HTTP client.
func (t *HTTPTransport) WithHTTPClient(httpClient *http.Client) *HTTPTransport {
	return &HTTPTransport{
		Token:      t.Token,
		Endpoint:   t.Endpoint,
		HTTPClient: httpClient,
	}
}

// WithEndpoint returns a new transport with a custom endpoint (for testing or GitHub Enterprise).
func (t *HTTPTransport) WithEndpoint(endpoint string) *HTTPTransport {
	return &HTTPTransport{
		Token:      t.Token,
		Endpoint:   endpoint,
		HTTPClient: t.HTTPClient,
	}
}

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors ResponseErrors  `json:"errors"`
}

// Do performs the request. It does not retry; failed changes are retried
// by the caller on the next save.
func (t *HTTPTransport) Do(ctx context.Context, query string, variables map[string]any, out any) error {
	body, err := json.Marshal(request{Query: query, Variables: variables})
	if err != nil {
		return &TransportError{Op: "marshal request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.Endpoint, bytes.NewReader(body))
	if err != nil {
		return &TransportError{Op: "create request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+t.Token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("GraphQL-Features", "sub_issues,issue_types")

	client := t.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return &TransportError{Op: "send request", Err: err}
	}
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	_ = resp.Body.Close()
	if err != nil {
		return &TransportError{Op: "read response", StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &TransportError{Op: "API error", StatusCode: resp.StatusCode, Err: errors.New(truncate(string(respBody), 512))}
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return &TransportError{Op: "decode response", StatusCode: resp.StatusCode, Err: err}
	}
	if len(env.Errors) > 0 {
		return env.Errors
	}
	if len(env.Data) == 0 || bytes.Equal(env.Data, []byte("null")) {
		return unexpected("missing data")
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &TransportError{Op: "decode data", StatusCode: resp.StatusCode, Err: err}
	}
	return nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
