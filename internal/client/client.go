// Package client talks to a remote counting service.
package client

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cell-counter/internal/api"

	"github.com/go-resty/resty/v2"
)

// DefaultTimeout bounds one request, upload and detection included.
const DefaultTimeout = 2 * time.Minute

// Client is a counting service client.
type Client struct {
	http *resty.Client
}

// New returns a client for the service at baseURL, e.g. http://rig:8080.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if !strings.Contains(baseURL, "://") {
		baseURL = "http://" + baseURL
	}
	return &Client{
		http: resty.New().
			SetBaseURL(strings.TrimRight(baseURL, "/")).
			SetTimeout(timeout).
			SetError(&api.ErrorResponse{}),
	}
}

// Ping checks that the service is up and returns its version.
func (c *Client) Ping(ctx context.Context) (string, error) {
	var out api.PingResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get(api.PingPath)
	if err != nil {
		return "", fmt.Errorf("ping: %w", err)
	}
	if resp.IsError() {
		return "", responseError(resp)
	}
	return out.Version, nil
}

// CountFile uploads the image at path and returns the service's answer.
func (c *Client) CountFile(ctx context.Context, path string) (*api.CountResponse, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	var out api.CountResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetFileReader(api.ImageField, filepath.Base(path), f).
		SetResult(&out).
		Post(api.CountPath)
	if err != nil {
		return nil, fmt.Errorf("count: %w", err)
	}
	if resp.IsError() {
		return nil, responseError(resp)
	}
	return &out, nil
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

func responseError(resp *resty.Response) error {
	msg := resp.String()
	if e, ok := resp.Error().(*api.ErrorResponse); ok && e.Error != "" {
		msg = e.Error
	}
	return &StatusError{Status: resp.StatusCode(), Message: msg}
}
