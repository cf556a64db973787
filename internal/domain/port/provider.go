package port

import (
	"context"
	"errors"
)

// ErrCircuitOpen is returned by a ProviderClient that refuses calls while its
// circuit breaker is open.
var ErrCircuitOpen = errors.New("risk provider circuit breaker is open")

// ProviderClient is the port to the external risk-scoring provider. It
// returns the raw response body; interpreting it is the normalizer's job.
type ProviderClient interface {
	CheckTransaction(ctx context.Context, payload ProviderPayload) ([]byte, error)
}

// ProviderPayload is the transaction data sent to the provider.
type ProviderPayload struct {
	Metadata      map[string]string `json:"metadata,omitempty"`
	TransactionID string            `json:"transaction_id"`
	UserID        string            `json:"user_id"`
	Amount        string            `json:"amount"`
	Currency      string            `json:"currency"`
	Direction     string            `json:"direction"`
	Provider      string            `json:"provider"`
	PaymentMethod string            `json:"payment_method,omitempty"`
}
