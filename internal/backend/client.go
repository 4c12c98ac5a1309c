// Copyright (c) 2026 Blood Bridge. All rights reserved.

/*
Package backend is the typed client for the Blood Bridge REST API.

A [Client] comes in two flavours sharing one implementation:

  - public: a plain transport, for endpoints the API serves anonymously.
  - secure: the transport of a [session.Transport] bound to the current
    request, so every call carries a fresh ID token and 401/403 are handled
    centrally. Obtain one through a [Binder].

Statuses the interceptor does not own come back as [*StatusError].
*/
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bloodbridge/portal/internal/platform/constants"
)

// Client calls the REST API.
type Client struct {
	base       *url.URL
	httpClient *http.Client
}

// New builds a public client for baseURL. A nil transport uses http.DefaultTransport.
func New(baseURL string, transport http.RoundTripper) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("backend: invalid base URL %q", baseURL)
	}
	return &Client{
		base:       parsed,
		httpClient: &http.Client{Transport: transport, Timeout: constants.OutboundTimeout},
	}, nil
}

// WithTransport returns a client for the same API using transport.
func (c *Client) WithTransport(transport http.RoundTripper) *Client {
	return &Client{
		base:       c.base,
		httpClient: &http.Client{Transport: transport, Timeout: c.httpClient.Timeout},
	}
}

// WithTimeout returns a copy with a different per-call timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	return &Client{
		base:       c.base,
		httpClient: &http.Client{Transport: c.httpClient.Transport, Timeout: timeout},
	}
}

// # Errors

// StatusError is a non-2xx response the caller must handle.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend: %s %s: %d %s", e.Method, e.Path, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend: %s %s: %d", e.Method, e.Path, e.StatusCode)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound
}

// # Plumbing

// do sends one request. body is JSON-encoded when non-nil; out is decoded
// from a 2xx response when non-nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.base.JoinPath(path)
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("backend: encode %s %s: %w", method, path, err)
		}
		reader = bytes.NewReader(payload)
	}

	request, err := http.NewRequestWithContext(ctx, method, target.String(), reader)
	if err != nil {
		return fmt.Errorf("backend: build %s %s: %w", method, path, err)
	}
	request.Header.Set("Accept", "application/json")
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return err
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return &StatusError{
			Method:     method,
			Path:       path,
			StatusCode: response.StatusCode,
			Message:    readMessage(response.Body),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, response.Body)
		return nil
	}
	if err := json.NewDecoder(response.Body).Decode(out); err != nil {
		return fmt.Errorf("backend: decode %s %s: %w", method, path, err)
	}
	return nil
}

// readMessage extracts {"message": "..."} from an error body when present.
func readMessage(body io.Reader) string {
	raw, _ := io.ReadAll(io.LimitReader(body, 4<<10))
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(raw, &payload) == nil {
		if payload.Message != "" {
			return payload.Message
		}
		return payload.Error
	}
	return strings.TrimSpace(string(raw))
}
