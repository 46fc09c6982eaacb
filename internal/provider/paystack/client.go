package paystack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/kudipay/settler/internal/logger"
)

// Result of one bill submission.
//
// OK means the provider accepted the payment. Raw holds the provider body
// verbatim for audit, it must never be rendered to an end user.
type Result struct {
	OK        bool
	Reference string
	Raw       json.RawMessage
}

type Client struct {
	baseURL   string
	secretKey string

	// No client timeout: the caller's context is the only cancellation
	// source. A hung provider call parks the purchase in processing and is
	// reconciled out of band.
	client *http.Client
	logger logger.Logger
}

func NewClient(baseURL string, secretKey string, l logger.Logger) *Client {
	return &Client{
		baseURL:   baseURL,
		secretKey: secretKey,
		client:    &http.Client{},
		logger:    l,
	}
}

// SubmitBill posts the category payload to /bill/{category}.
//
// There is no retry here: the orchestrator decides what a failure means and
// compensates. A non-2xx status or a body not asserting success both count as
// a failed result, not an error.
func (c *Client) SubmitBill(ctx context.Context, category string, payload map[string]any) (Result, error) {
	var result Result

	body, err := json.Marshal(payload)
	if err != nil {
		return result, fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/bill/"+category, bytes.NewReader(body))
	if err != nil {
		return result, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return result, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return result, fmt.Errorf("failed to read response: %w", err)
	}
	result.Raw = raw

	var decoded struct {
		Status bool `json:"status"`
		Data   struct {
			Reference string `json:"reference"`
		} `json:"data"`
	}
	// Tolerate undecodable bodies: the raw capture is what matters then
	_ = json.Unmarshal(raw, &decoded)

	if resp.StatusCode < 200 || resp.StatusCode > 299 || !decoded.Status {
		c.logger.Warn("Provider rejected bill submission", "category", category, "status_code", resp.StatusCode)
		return result, nil
	}

	result.OK = true
	result.Reference = decoded.Data.Reference
	return result, nil
}
