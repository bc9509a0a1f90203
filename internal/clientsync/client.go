package clientsync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"expertdesk/internal/request/handler"
	"expertdesk/internal/request/models"
	"expertdesk/pkg/platform/httputil"
)

const (
	DefaultBaseDelay  = 200 * time.Millisecond
	DefaultMaxRetries = 3
)

// StatusError is a non-retried answer from the server.
type StatusError struct {
	StatusCode int
	Code       string
	Details    string
}

func (e *StatusError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("server answered %d", e.StatusCode)
	}
	return fmt.Sprintf("server answered %d: %s: %s", e.StatusCode, e.Code, e.Details)
}

// NetworkError is returned once every retry of a transient failure is spent.
type NetworkError struct {
	Attempts int
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("request failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// Client calls the request API. Network errors and 5xx answers are retried
// with exponential backoff; 4xx answers return immediately.
type Client struct {
	baseURL    string
	http       *http.Client
	baseDelay  time.Duration
	maxRetries uint64
}

type ClientOption func(*Client)

func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		cl.http = c
	}
}

// WithRetry sets the first retry delay, doubled per attempt, and the number
// of retries after the first attempt.
func WithRetry(baseDelay time.Duration, maxRetries int) ClientOption {
	return func(cl *Client) {
		if baseDelay > 0 {
			cl.baseDelay = baseDelay
		}
		if maxRetries >= 0 {
			cl.maxRetries = uint64(maxRetries)
		}
	}
}

func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		http:       &http.Client{Timeout: 10 * time.Second},
		baseDelay:  DefaultBaseDelay,
		maxRetries: DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListRequests fetches the client's requests, newest first.
func (c *Client) ListRequests(ctx context.Context, clientID uuid.UUID) ([]models.Request, error) {
	var out []models.Request
	err := c.do(ctx, http.MethodGet, "/requests?clientId="+clientID.String(), nil, &out)
	return out, err
}

// CreateRequest submits a new request. Retrying a create is safe because the
// server collapses repeats of the same order.
func (c *Client) CreateRequest(ctx context.Context, body *handler.CreateRequestBody) (*models.Request, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	var out models.Request
	if err := c.do(ctx, http.MethodPost, "/requests", payload, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte, out any) error {
	attempts := 0
	op := func() error {
		attempts++
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode >= http.StatusInternalServerError:
			return decodeStatusError(resp)
		case resp.StatusCode >= http.StatusBadRequest:
			return backoff.Permanent(decodeStatusError(resp))
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("decode response: %w", err))
		}
		return nil
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.baseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(b, c.maxRetries), ctx))
	if err == nil {
		return nil
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode < http.StatusInternalServerError {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &NetworkError{Attempts: attempts, Err: err}
}

func decodeStatusError(resp *http.Response) *StatusError {
	statusErr := &StatusError{StatusCode: resp.StatusCode}
	var envelope httputil.ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&envelope); err == nil {
		statusErr.Code = envelope.Error
		statusErr.Details = envelope.Details
	}
	return statusErr
}
