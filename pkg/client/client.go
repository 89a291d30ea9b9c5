// Package client is the Go SDK for the wattwise daemon.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rmax-ai/wattwise/pkg/ledger"
)

const defaultEndpoint = "http://127.0.0.1:5000"

// Client is the wattwise SDK client.
type Client struct {
	endpoint string
	http     *http.Client
	backoff  BackoffStrategy
	retries  int
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithRetries retries idempotent requests up to n extra times on network
// errors and 5xx responses, waiting according to b between attempts.
func WithRetries(n int, b BackoffStrategy) Option {
	return func(c *Client) {
		c.retries = n
		if b != nil {
			c.backoff = b
		}
	}
}

// NewClient creates a new wattwise client.
// endpoint defaults to "http://127.0.0.1:5000" if empty.
func NewClient(endpoint string, opts ...Option) *Client {
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	c := &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		// Chat answers may take up to the daemon's provider timeout.
		http:    &http.Client{Timeout: 90 * time.Second},
		backoff: noBackoff{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Endpoint returns the daemon base URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Ping checks the health of the daemon.
func (c *Client) Ping(ctx context.Context) (Status, error) {
	var status Status
	err := c.do(ctx, http.MethodGet, "/health", nil, &status)
	return status, err
}

// Appliances returns the ledger in listing order.
func (c *Client) Appliances(ctx context.Context) ([]Entry, error) {
	var listing ledger.Listing
	if err := c.do(ctx, http.MethodGet, "/api/appliances", nil, &listing); err != nil {
		return nil, err
	}
	return listing, nil
}

// AddAppliance sets name to hours and returns the updated ledger.
func (c *Client) AddAppliance(ctx context.Context, name string, hours int) ([]Entry, error) {
	body := map[string]any{"appliance": name, "hours": hours}
	var resp applianceResponse
	if err := c.do(ctx, http.MethodPost, "/api/appliances", body, &resp); err != nil {
		return nil, err
	}
	return resp.Appliances, nil
}

// RemoveAppliance deletes name and returns the updated ledger.
func (c *Client) RemoveAppliance(ctx context.Context, name string) ([]Entry, error) {
	var resp applianceResponse
	if err := c.do(ctx, http.MethodDelete, "/api/appliances/"+url.PathEscape(name), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Appliances, nil
}

// Predict forecasts the next bill from the last three, oldest first.
func (c *Client) Predict(ctx context.Context, bills []float64) (Prediction, error) {
	var resp predictResponse
	err := c.do(ctx, http.MethodPost, "/api/predict", map[string]any{"bills": bills}, &resp)
	return resp.Prediction, err
}

// PredictChart returns the bill trend chart as PNG bytes.
func (c *Client) PredictChart(ctx context.Context, bills []float64) ([]byte, error) {
	return c.raw(ctx, http.MethodPost, "/api/predict/chart", map[string]any{"bills": bills})
}

// Report fetches the hours report.
func (c *Client) Report(ctx context.Context) (HoursReport, error) {
	var r HoursReport
	err := c.do(ctx, http.MethodGet, "/api/report", nil, &r)
	return r, err
}

// Analysis fetches the cost analysis.
func (c *Client) Analysis(ctx context.Context) (CostAnalysis, error) {
	var r CostAnalysis
	err := c.do(ctx, http.MethodGet, "/api/analysis", nil, &r)
	return r, err
}

// Savings fetches the savings report.
func (c *Client) Savings(ctx context.Context) (SavingsReport, error) {
	var r SavingsReport
	err := c.do(ctx, http.MethodGet, "/api/mlreport", nil, &r)
	return r, err
}

// Ask sends question to the chatbot. An empty conversationID uses the
// daemon's shared conversation.
func (c *Client) Ask(ctx context.Context, conversationID, question string) (ChatReply, error) {
	body := map[string]string{"question": question}
	if conversationID != "" {
		body["conversation_id"] = conversationID
	}
	var reply ChatReply
	err := c.do(ctx, http.MethodPost, "/api/chatbot", body, &reply)
	return reply, err
}

// NewConversation starts a fresh chat history and returns its id.
func (c *Client) NewConversation(ctx context.Context) (string, error) {
	var resp sessionResponse
	err := c.do(ctx, http.MethodPost, "/api/chatbot/sessions", nil, &resp)
	return resp.ConversationID, err
}

// EndConversation discards a chat history.
func (c *Client) EndConversation(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/chatbot/sessions/"+url.PathEscape(id), nil, nil)
}

// Export downloads a report as CSV. reportType is report, analysis,
// mlreport or events.
func (c *Client) Export(ctx context.Context, reportType string) ([]byte, error) {
	return c.raw(ctx, http.MethodGet, "/api/export?type="+url.QueryEscape(reportType), nil)
}

// GetEvents fetches recent ledger events from the daemon.
func (c *Client) GetEvents(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	var events []Event
	err := c.do(ctx, http.MethodGet, "/api/events?limit="+strconv.Itoa(limit), nil, &events)
	return events, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	data, err := c.raw(ctx, method, path, body)
	if err != nil {
		return err
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) raw(ctx context.Context, method, path string, body any) ([]byte, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	attempts := 1
	if method == http.MethodGet {
		attempts += c.retries
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.backoff.Next(attempt - 1)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		data, err := c.once(ctx, method, path, payload)
		if err == nil {
			return data, nil
		}
		lastErr = err

		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode < 500 {
			return nil, err
		}
	}
	return nil, lastErr
}

func (c *Client) once(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, reader)
	if err != nil {
		return nil, err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var body struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &body) == nil {
			apiErr.Message = body.Error
		}
		return nil, apiErr
	}
	return data, nil
}
