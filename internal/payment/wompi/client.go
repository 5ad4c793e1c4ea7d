package wompi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"cancha-booking/internal/logger"
)

// Client talks to the payment function that fronts the Wompi gateway. The
// function issues a hosted checkout URL; the gateway later reports the
// outcome through the events webhook.
type Client struct {
	client  *http.Client
	baseURL string
	logger  *logger.Logger
}

func NewClient(client *http.Client, baseURL string, log *logger.Logger) *Client {
	return &Client{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  log,
	}
}

// TransactionRequest is the createWompiTransaction body. Amount is in minor
// currency units (cents).
type TransactionRequest struct {
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	CustomerEmail string `json:"customerEmail"`
	Reference     string `json:"reference"`
}

// TransactionResponse carries the hosted checkout URL, or the function's
// error fields.
type TransactionResponse struct {
	CheckoutURL string `json:"checkoutUrl"`
	Error       string `json:"error,omitempty"`
	Details     string `json:"details,omitempty"`
}

// CreateTransaction requests a checkout URL for the given reference.
func (c *Client) CreateTransaction(ctx context.Context, txReq TransactionRequest) (*TransactionResponse, error) {
	url := fmt.Sprintf("%s/createWompiTransaction", c.baseURL)
	c.logger.Debug("WOMPI", fmt.Sprintf("Creating transaction %s for %d %s", txReq.Reference, txReq.Amount, txReq.Currency))

	body, err := json.Marshal(txReq)
	if err != nil {
		return nil, fmt.Errorf("failed to encode transaction request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create transaction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error("WOMPI", fmt.Sprintf("Payment function error: %v", err))
		return nil, fmt.Errorf("payment function error: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.logger.Error("WOMPI", fmt.Sprintf("Failed to close response body: %v", err))
		}
	}(resp.Body)

	var txResp TransactionResponse
	if err := json.NewDecoder(resp.Body).Decode(&txResp); err != nil {
		return nil, fmt.Errorf("failed to decode transaction response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := txResp.Error
		if msg == "" {
			msg = txResp.Details
		}
		c.logger.Error("WOMPI", fmt.Sprintf("Payment function returned status %d: %s", resp.StatusCode, msg))
		return nil, fmt.Errorf("payment function returned status %d: %s", resp.StatusCode, msg)
	}

	if txResp.Error != "" {
		return nil, fmt.Errorf("payment function error: %s", txResp.Error)
	}
	if txResp.CheckoutURL == "" {
		return nil, fmt.Errorf("payment function returned no checkout url")
	}

	c.logger.Info("WOMPI", fmt.Sprintf("Transaction created: %s", txReq.Reference))
	return &txResp, nil
}
