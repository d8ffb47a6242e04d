package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Config holds the configuration for connecting to the Trace Bank API.
type Config struct {
	APIURL string // Base URL, e.g. "http://localhost:8080"
}

// BankClient is a pure HTTP client for the Trace Bank API.
type BankClient struct {
	cfg        Config
	httpClient *http.Client
}

// NewBankClient creates a new client for the Trace Bank API.
func NewBankClient(cfg Config) *BankClient {
	return &BankClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// apiError represents an error response from the API.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// doRequest makes an HTTP request to the API and returns the response body.
func (c *BankClient) doRequest(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	u, err := url.Parse(c.cfg.APIURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	return json.RawMessage(respBody), nil
}

// EvaluateTransaction submits a transaction for risk evaluation.
func (c *BankClient) EvaluateTransaction(ctx context.Context, body map[string]any) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodPost, "/api/v1/transactions", nil, body)
}

// GetUserHistory returns the stored transactions and stats for a user.
func (c *BankClient) GetUserHistory(ctx context.Context, userID string) (json.RawMessage, error) {
	path := "/api/v1/users/" + url.PathEscape(userID) + "/history"
	return c.doRequest(ctx, http.MethodGet, path, nil, nil)
}

// GetAuditLog returns the most recent evaluations across all users.
func (c *BankClient) GetAuditLog(ctx context.Context, limit int) (json.RawMessage, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return c.doRequest(ctx, http.MethodGet, "/api/v1/audit", q, nil)
}

// GetPolicy returns the active decision thresholds.
func (c *BankClient) GetPolicy(ctx context.Context) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/api/v1/policy", nil, nil)
}

// UpdatePolicy changes the decision thresholds. Omitted fields keep their
// current value.
func (c *BankClient) UpdatePolicy(ctx context.Context, review, block *float64) (json.RawMessage, error) {
	body := map[string]any{}
	if review != nil {
		body["review_cutoff"] = *review
	}
	if block != nil {
		body["block_cutoff"] = *block
	}
	return c.doRequest(ctx, http.MethodPut, "/api/v1/policy", nil, body)
}
