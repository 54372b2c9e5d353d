package backend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrTransport network failure or non-2xx response.
	ErrTransport = errors.New("backend request failed")
	// ErrMalformed response body does not have the expected shape.
	ErrMalformed = errors.New("malformed backend response")
)

// HTTPError non-2xx response. It unwraps to ErrTransport.
type HTTPError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s: bad status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

func (e *HTTPError) Unwrap() error { return ErrTransport }

// Client thin resty wrapper for the sensor API. Requests are never retried.
type Client struct {
	http   *resty.Client
	logger *zap.Logger
}

// NewClient creates a client for baseURL.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")

	client.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		if r.Header.Get("X-Request-ID") == "" {
			r.SetHeader("X-Request-ID", uuid.NewString())
		}
		return nil
	})

	return &Client{http: client, logger: logger}
}

// Do sends one request and returns the raw response body of a 2xx response.
func (c *Client) Do(ctx context.Context, method, path string, query map[string]string, body any) ([]byte, error) {
	return c.do(ctx, method, path, query, body, "")
}

// Download GETs a binary document, e.g. a spreadsheet export.
func (c *Client) Download(ctx context.Context, path string, query map[string]string, accept string) ([]byte, error) {
	return c.do(ctx, resty.MethodGet, path, query, nil, accept)
}

func (c *Client) do(ctx context.Context, method, path string, query map[string]string, body any, accept string) ([]byte, error) {
	req := c.http.R().SetContext(ctx)
	if accept != "" {
		req.SetHeader("Accept", accept)
	}
	if len(query) > 0 {
		req.SetQueryParams(query)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}

	start := time.Now()
	resp, err := req.Execute(method, path)
	if err != nil {
		c.logger.Error("Backend call failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, fmt.Errorf("%s %s: %w: %w", method, path, ErrTransport, err)
	}

	c.logger.Debug("Backend call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status_code", resp.StatusCode()),
		zap.String("request_id", resp.Request.Header.Get("X-Request-ID")),
		zap.Duration("elapsed", time.Since(start)),
	)

	if !resp.IsSuccess() {
		c.logger.Warn("Backend returned error status",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status_code", resp.StatusCode()),
		)
		return nil, &HTTPError{Method: method, Path: path, Status: resp.StatusCode(), Body: string(resp.Body())}
	}
	return resp.Body(), nil
}

// Get issues a GET.
func (c *Client) Get(ctx context.Context, path string, query map[string]string) ([]byte, error) {
	return c.Do(ctx, resty.MethodGet, path, query, nil)
}

// Put issues a PUT with a JSON body.
func (c *Client) Put(ctx context.Context, path string, query map[string]string, body any) ([]byte, error) {
	return c.Do(ctx, resty.MethodPut, path, query, body)
}

// Post issues a POST with a JSON body (body may be nil).
func (c *Client) Post(ctx context.Context, path string, query map[string]string, body any) ([]byte, error) {
	return c.Do(ctx, resty.MethodPost, path, query, body)
}
