package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/TWankio2/lipaworld-orca/internal/domain/port"
)

// ErrCircuitOpen is returned without contacting the provider while the breaker is open.
var ErrCircuitOpen = port.ErrCircuitOpen

// maxBodyBytes caps how much of a provider response is read.
const maxBodyBytes = 1 << 20

// Compile-time interface check.
var _ port.ProviderClient = (*HTTPClient)(nil)

// HTTPClient implements port.ProviderClient against the provider's REST API.
type HTTPClient struct {
	client  *http.Client
	breaker *Breaker
	apiKey  string
	baseURL string
}

// NewHTTPClient creates a provider client. The per-call deadline comes from
// the caller's context; the transport timeout is only a backstop.
func NewHTTPClient(baseURL, apiKey string, breaker *Breaker) *HTTPClient {
	return &HTTPClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		breaker: breaker,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// CheckTransaction posts the transaction to the provider and returns the raw
// response body. Transport failures and non-2xx statuses are errors.
func (c *HTTPClient) CheckTransaction(ctx context.Context, payload port.ProviderPayload) ([]byte, error) {
	if !c.breaker.Allow() {
		return nil, ErrCircuitOpen
	}

	body, err := c.post(ctx, payload)
	if err != nil {
		c.breaker.RecordFailure()
		return nil, err
	}
	c.breaker.RecordSuccess()
	return body, nil
}

// Breaker exposes the client's circuit breaker for readiness checks.
func (c *HTTPClient) Breaker() *Breaker {
	return c.breaker
}

func (c *HTTPClient) post(ctx context.Context, payload port.ProviderPayload) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode provider payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/transactions/check", bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("provider API request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("provider API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}
