package client

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

	"taskboard/internal/ordering"
)

// APIError is a decoded error envelope.
type APIError struct {
	Status  int
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

// Retryable reports whether the server made no change and the same request may be sent again.
func (e *APIError) Retryable() bool {
	return e.Code == "CONFLICT"
}

// Permutation decodes the details of a rejected reorder.
func (e *APIError) Permutation() (*ordering.PermutationError, bool) {
	if e.Code != "BAD_REQUEST" || len(e.Details) == 0 {
		return nil, false
	}
	var perm ordering.PermutationError
	if err := json.Unmarshal(e.Details, &perm); err != nil {
		return nil, false
	}
	return &perm, true
}

// Task is the part of a task the ordering client cares about.
type Task struct {
	ID       uuid.UUID `json:"id"`
	ColumnID uuid.UUID `json:"columnId"`
	Title    string    `json:"title"`
	Position int       `json:"position"`
}

type Option func(*APIClient)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *APIClient) { c.http = hc }
}

// WithRetry retries CONFLICT responses up to max times, interval apart.
func WithRetry(max uint64, interval time.Duration) Option {
	return func(c *APIClient) {
		c.newBackOff = func() backoff.BackOff {
			return backoff.WithMaxRetries(backoff.NewConstantBackOff(interval), max)
		}
	}
}

// APIClient calls the reorder endpoints with a bearer token.
type APIClient struct {
	baseURL    string
	token      string
	http       *http.Client
	newBackOff func() backoff.BackOff
}

func NewAPIClient(baseURL, token string, opts ...Option) *APIClient {
	c := &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
		newBackOff: func() backoff.BackOff {
			return backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3)
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *APIClient) ReorderBoards(ctx context.Context, ids []uuid.UUID) error {
	return c.do(ctx, http.MethodPut, "/boards/reorder", map[string][]uuid.UUID{"boardIds": ids}, nil)
}

func (c *APIClient) ReorderColumns(ctx context.Context, boardID uuid.UUID, ids []uuid.UUID) error {
	return c.do(ctx, http.MethodPut, "/boards/"+boardID.String()+"/columns/reorder", map[string][]uuid.UUID{"columnIds": ids}, nil)
}

// ReorderTasks sends the full order of columnID. A list that names exactly one task
// of another column moves that task here.
func (c *APIClient) ReorderTasks(ctx context.Context, columnID uuid.UUID, ids []uuid.UUID) error {
	return c.do(ctx, http.MethodPut, "/columns/"+columnID.String()+"/tasks/reorder", map[string][]uuid.UUID{"taskIds": ids}, nil)
}

func (c *APIClient) ListTasks(ctx context.Context, columnID uuid.UUID) ([]Task, error) {
	var tasks []Task
	if err := c.do(ctx, http.MethodGet, "/columns/"+columnID.String()+"/tasks", nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// RefreshTasks replaces the cached order of columnID with the server's.
func (c *APIClient) RefreshTasks(ctx context.Context, cache *Cache, columnID uuid.UUID) error {
	tasks, err := c.ListTasks(ctx, columnID)
	if err != nil {
		return err
	}
	ids := make([]uuid.UUID, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	cache.Replace(TasksKey(columnID), ids)
	return nil
}

func (c *APIClient) do(ctx context.Context, method, path string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}

	operation := func() error {
		err := c.send(ctx, method, path, payload, out)
		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Retryable() {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}
	return backoff.Retry(operation, backoff.WithContext(c.newBackOff(), ctx))
}

func (c *APIClient) send(ctx context.Context, method, path string, payload []byte, out interface{}) error {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode}
		var envelope struct {
			Error *APIError `json:"error"`
		}
		envelope.Error = apiErr
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil || apiErr.Code == "" {
			apiErr.Code = "INTERNAL"
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
