package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"timed-quiz-service/internal/domain"
)

// Client forwards results to a remote save endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	timeout    time.Duration
}

// Option configures the client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// WithTimeout sets the request timeout. A client passed to WithHTTPClient is copied, not modified.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// NewClient creates a client posting to endpoint, e.g. https://example.org/api/save_result/
func NewClient(endpoint string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if c.timeout > 0 {
		owned := *c.httpClient
		owned.Timeout = c.timeout
		c.httpClient = &owned
	}
	return c
}

// SaveResultRequest is the payload accepted by the save endpoint.
type SaveResultRequest struct {
	Name        string `json:"name"`
	Matric      string `json:"matric"`
	Field       string `json:"field"`
	Score       int    `json:"score"`
	Total       int    `json:"total"`
	Percentage  string `json:"percentage"`
	Competition bool   `json:"is_competition"`
}

type saveResultResponse struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewSaveResultRequest maps a record onto the wire payload; percentage keeps two decimals.
func NewSaveResultRequest(rec domain.ResultRecord) SaveResultRequest {
	return SaveResultRequest{
		Name:        rec.Identity.DisplayName,
		Matric:      rec.Identity.Matric,
		Field:       rec.Category,
		Score:       rec.Correct,
		Total:       rec.Total,
		Percentage:  strconv.FormatFloat(rec.Percentage, 'f', 2, 64),
		Competition: rec.Competition,
	}
}

// Send posts rec and fails on transport errors, non-2xx codes, or an error status in the body.
func (c *Client) Send(ctx context.Context, rec domain.ResultRecord) error {
	body, err := json.Marshal(NewSaveResultRequest(rec))
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send result: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("remote returned %d: %s", resp.StatusCode, bytes.TrimSpace(respBody))
	}

	var parsed saveResultResponse
	if len(bytes.TrimSpace(respBody)) > 0 && json.Unmarshal(respBody, &parsed) == nil && parsed.Status == "error" {
		return fmt.Errorf("remote rejected result: %s", parsed.Message)
	}
	return nil
}
