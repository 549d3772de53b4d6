package gateway

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/doubtsolve/backend/internal/config"
	"github.com/go-resty/resty/v2"
)

type apiError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

type RazorpayClient struct {
	client *resty.Client
	keyID  string
}

func NewRazorpayClient(cfg *config.GatewayConfig) *RazorpayClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetBasicAuth(cfg.KeyID, cfg.KeySecret).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &RazorpayClient{
		client: client,
		keyID:  cfg.KeyID,
	}
}

func (c *RazorpayClient) KeyID() string {
	return c.keyID
}

// CreateOrder asks the gateway for an order handle. The receipt doubles as the
// idempotency key so a retried order for the same doubt is recognisable upstream.
func (c *RazorpayClient) CreateOrder(ctx context.Context, req OrderRequest) (*Order, error) {
	var order Order
	var failure apiError

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("X-Idempotency-Key", req.Receipt).
		SetBody(req).
		SetResult(&order).
		SetError(&failure).
		Post("/v1/orders")
	if err != nil {
		log.Printf("[GATEWAY] Order request failed for receipt %s: %v", req.Receipt, err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if resp.IsError() {
		log.Printf("[GATEWAY] Order rejected for receipt %s: status=%d code=%s", req.Receipt, resp.StatusCode(), failure.Error.Code)
		if resp.StatusCode() >= 500 || resp.StatusCode() == 429 {
			return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode())
		}
		return nil, fmt.Errorf("order rejected: %s", failure.Error.Description)
	}

	if order.ID == "" {
		return nil, fmt.Errorf("order response missing id")
	}

	return &order, nil
}
