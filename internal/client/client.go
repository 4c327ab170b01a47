// Package client drives a remote job-submission REST API: it launches jobs
// as multipart uploads, polls their status endpoint until a terminal status,
// and downloads the resulting output files.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"bioflow/internal/telemetry"

	"go.uber.org/zap"
)

// Response pairs an HTTP status code with the parsed JSON body of a call
// against the remote API.
type Response struct {
	Status int
	Body   []byte
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	return json.Unmarshal(r.Body, v)
}

// FileField is a named file attachment for a multipart POST.
type FileField struct {
	Field    string
	Filename string
	Reader   io.Reader
}

// Client is a synchronous client for the remote job API. It is safe for
// sequential use; each call issues one blocking HTTP request.
type Client struct {
	httpClient *http.Client
	baseURL    string
	metrics    telemetry.MetricsClient
	schedule   Schedule
	sleep      func(ctx context.Context, d time.Duration) error
}

// New creates a client for the API rooted at baseURL. metrics may be nil.
func New(baseURL string, metrics telemetry.MetricsClient) *Client {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		baseURL:  baseURL,
		metrics:  metrics,
		schedule: DefaultSchedule(),
		sleep:    sleepContext,
	}
}

// BaseURL returns the API root the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// SetTimeout allows configuring a custom timeout for the HTTP client
func (c *Client) SetTimeout(timeout time.Duration) {
	c.httpClient.Timeout = timeout
}

// SetSchedule replaces the polling schedule.
func (c *Client) SetSchedule(s Schedule) {
	c.schedule = s
}

// Get issues a GET against url and parses the body as JSON. A body that is
// not valid JSON is an error.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.do(req)
}

// Post issues a multipart POST against url with the given plain form fields
// and file attachments, and parses the body as JSON.
func (c *Client) Post(ctx context.Context, url string, fields map[string]string, files []FileField) (*Response, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("failed to write form field %q: %w", name, err)
		}
	}
	for _, f := range files {
		part, err := writer.CreateFormFile(f.Field, f.Filename)
		if err != nil {
			return nil, fmt.Errorf("failed to create file field %q: %w", f.Field, err)
		}
		if _, err := io.Copy(part, f.Reader); err != nil {
			return nil, fmt.Errorf("failed to write file field %q: %w", f.Field, err)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return c.do(req)
}

func (c *Client) do(req *http.Request) (*Response, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.countRequest(req.Method, "failed")
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.countRequest(req.Method, "failed")
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if !json.Valid(body) {
		c.countRequest(req.Method, "failed")
		telemetry.Logger.Error("System error: remote API returned a non-JSON body",
			zap.String("url", req.URL.String()),
			zap.Int("status", resp.StatusCode),
		)
		return nil, fmt.Errorf("response body is not valid JSON (status %d)", resp.StatusCode)
	}

	c.countRequest(req.Method, "success")
	return &Response{Status: resp.StatusCode, Body: body}, nil
}

// statusCode issues a GET and reports only the response status, discarding
// the body. The polling loop never needs an intermediate body.
func (c *Client) statusCode(ctx context.Context, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func (c *Client) countRequest(method, outcome string) {
	if c.metrics != nil {
		c.metrics.IncrementRequestCounter(method, outcome)
	}
}

// sleepContext sleeps for d or until the context is cancelled.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
