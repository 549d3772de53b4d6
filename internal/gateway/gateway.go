// Package gateway talks to the payment gateway that holds escrowed funds.
// It creates orders for the payer leg and verifies the signature the gateway
// attaches to a completed checkout.
package gateway

import (
	"context"
	"errors"
)

// ErrUnavailable marks failures where retrying the same request is safe.
var ErrUnavailable = errors.New("payment gateway unavailable")

type OrderRequest struct {
	AmountMinor int64             `json:"amount"`
	Currency    string            `json:"currency"`
	Receipt     string            `json:"receipt"`
	Notes       map[string]string `json:"notes,omitempty"`
}

type Order struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

// Gateway is the payer-to-escrow leg. Payouts to tutors are internal ledger credits.
type Gateway interface {
	CreateOrder(ctx context.Context, req OrderRequest) (*Order, error)
	KeyID() string
}
