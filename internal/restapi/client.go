// Package restapi is the ticketing system's REST client: persons, issues,
// comments, their attachments, and the two small dbQueryUri-backed lookups
// (spam occurrence count, sender timezone) the dispatch pipeline needs.
// Built on go-resty/resty/v2, following the teacher's SDK client shape.
package restapi

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/inboxforge/mailgate/internal/config"
)

func bytesReader(data []byte) io.Reader {
	return bytes.NewReader(data)
}

// Client is the ticketing REST API client.
type Client struct {
	http *resty.Client
}

// New builds a Client from the service's REST configuration.
func New(cfg config.RESTConfig) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond)

	if cfg.Username != "" {
		http.SetBasicAuth(cfg.Username, cfg.Password)
	}

	http.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		r.SetHeader("X-Request-Id", uuid.NewString())
		return nil
	})
	http.OnAfterResponse(func(_ *resty.Client, r *resty.Response) error {
		if r.IsError() {
			return &APIError{StatusCode: r.StatusCode(), Body: string(r.Body())}
		}
		return nil
	})

	return &Client{http: http}
}

// APIError wraps a non-2xx ticketing API response.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("ticketing API returned %d: %s", e.StatusCode, e.Body)
}

// Ping verifies the ticketing API is reachable, used at startup per the
// "missing/unreachable REST config" fatal error class.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.http.R().SetContext(ctx).Get("/health")
	if err != nil {
		return fmt.Errorf("restapi: ping: %w", err)
	}
	return nil
}

func (c *Client) request(ctx context.Context) *resty.Request {
	return c.http.R().SetContext(ctx)
}
