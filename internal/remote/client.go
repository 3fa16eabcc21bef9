package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is the HTTP plumbing shared by the resource clients. One Client
// talks to one service origin.
type Client struct {
	BaseURL     string
	BearerToken string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

type validator interface {
	Validate() error
}

// httpClient never writes to c; a Client may be shared by concurrent
// sessions. Set HTTPClient before first use to reuse one instance.
func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: c.Timeout}
}

// do issues a single request. A non-2xx response or a transport failure is
// returned as *RequestError; a body that does not decode into out is returned
// as *DecodeError.
func (c *Client) do(ctx context.Context, op, method, endpoint string, body any, out any) error {
	target := c.URL(endpoint)
	var reader io.Reader
	if body != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("%s: encode body: %w", op, err)
		}
		reader = &buf
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.BearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	}
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return &RequestError{Op: op, Method: method, URL: target, Kind: KindNetworkUnavailable, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		kind := KindForStatus(resp.StatusCode)
		return &RequestError{
			Op:         op,
			Method:     method,
			URL:        target,
			StatusCode: resp.StatusCode,
			Kind:       kind,
			Body:       strings.TrimSpace(string(b)),
			Err:        kind.sentinel(),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &DecodeError{Op: op, Err: err}
	}
	return nil
}

// URL joins endpoint onto the base URL.
func (c *Client) URL(endpoint string) string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(endpoint, "/")
}

func validateOne(op string, v validator) error {
	if err := v.Validate(); err != nil {
		return &DecodeError{Op: op, Err: err}
	}
	return nil
}

func validateAll[T validator](op string, items []T) error {
	for i, item := range items {
		if err := item.Validate(); err != nil {
			return &DecodeError{Op: op, Err: fmt.Errorf("item %d: %w", i, err)}
		}
	}
	return nil
}
