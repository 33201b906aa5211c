package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	clierr "github.com/ggonzalez94/trezorctl/internal/errors"
	"github.com/ggonzalez94/trezorctl/internal/version"
)

// Client performs single-shot HTTP calls. Failures are mapped to CLI error
// codes and never retried.
type Client struct {
	httpClient *http.Client
	userAgent  string
}

func New(timeout time.Duration) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		userAgent:  version.CLIName + "/" + version.CLIVersion,
	}
}

// Do sends req and returns the response body of a 2xx reply.
func (c *Client) Do(ctx context.Context, req *http.Request) ([]byte, http.Header, error) {
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	resp, err := c.httpClient.Do(req.WithContext(ctx))
	if err != nil {
		return nil, nil, mapNetError(err)
	}
	buf, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return nil, resp.Header, clierr.Wrap(clierr.CodeUnavailable, "read response", readErr)
	}
	if err := statusError(resp.StatusCode, buf); err != nil {
		return buf, resp.Header, err
	}
	return buf, resp.Header, nil
}

func (c *Client) DoJSON(ctx context.Context, req *http.Request, out any) (http.Header, error) {
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	buf, header, err := c.Do(ctx, req)
	if err != nil {
		return header, err
	}
	if out == nil {
		return header, nil
	}
	if len(bytes.TrimSpace(buf)) == 0 {
		return header, clierr.New(clierr.CodeUnavailable, "server returned empty response")
	}
	if err := json.Unmarshal(buf, out); err != nil {
		return header, clierr.Wrap(clierr.CodeUnavailable, "decode JSON response", err)
	}
	return header, nil
}

func DoBodyJSON(ctx context.Context, c *Client, method, url string, body []byte, headers map[string]string, out any) (http.Header, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, "build request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.DoJSON(ctx, req, out)
}

// GetBytes downloads url and returns the raw body.
func GetBytes(ctx context.Context, c *Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, "build request", err)
	}
	buf, _, err := c.Do(ctx, req)
	return buf, err
}

// PostText posts a plain text body and returns the raw response body.
func PostText(ctx context.Context, c *Client, url string, body string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		return nil, clierr.Wrap(clierr.CodeInternal, "build request", err)
	}
	req.Header.Set("Content-Type", "text/plain")
	buf, _, err := c.Do(ctx, req)
	return buf, err
}

func statusError(status int, body []byte) error {
	switch {
	case status == http.StatusTooManyRequests:
		return clierr.New(clierr.CodeRateLimited, "server rate limited request")
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return clierr.New(clierr.CodeAuth, "server authentication failed")
	case status >= http.StatusInternalServerError:
		return clierr.New(clierr.CodeUnavailable, fmt.Sprintf("server unavailable (status %d)%s", status, detail(body)))
	case status < 200 || status >= 300:
		return clierr.New(clierr.CodeUnavailable, fmt.Sprintf("server returned unexpected status %d%s", status, detail(body)))
	}
	return nil
}

// detail extracts the {"error": "..."} message some daemons send with
// non-2xx replies.
func detail(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return ": " + payload.Error
	}
	return ""
}

func mapNetError(err error) error {
	if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
		return clierr.Wrap(clierr.CodeUnavailable, "request timeout", err)
	}
	return clierr.Wrap(clierr.CodeUnavailable, "request failed", err)
}
