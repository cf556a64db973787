package model

import (
	"errors"
	"fmt"
	"maps"

	"github.com/TWankio2/lipaworld-orca/internal/domain/valueobject"
	"github.com/TWankio2/lipaworld-orca/pkg/money"
)

// ErrInvalidRequest is returned when a transaction request fails validation.
var ErrInvalidRequest = errors.New("invalid transaction request")

// TransactionRequest is the immutable input to a risk evaluation.
type TransactionRequest struct {
	metadata      map[string]string
	amount        money.Money
	direction     valueobject.Direction
	provider      valueobject.Provider
	transactionID string
	userID        string
	paymentMethod string
}

// NewTransactionRequest validates and creates a TransactionRequest.
func NewTransactionRequest(
	transactionID string,
	userID string,
	amount money.Money,
	direction valueobject.Direction,
	provider valueobject.Provider,
	paymentMethod string,
	metadata map[string]string,
) (TransactionRequest, error) {
	if transactionID == "" {
		return TransactionRequest{}, fmt.Errorf("%w: transaction ID is required", ErrInvalidRequest)
	}
	if userID == "" {
		return TransactionRequest{}, fmt.Errorf("%w: user ID is required", ErrInvalidRequest)
	}
	if !amount.IsPositive() {
		return TransactionRequest{}, fmt.Errorf("%w: amount must be positive", ErrInvalidRequest)
	}
	if amount.Currency().Code() == "" {
		return TransactionRequest{}, fmt.Errorf("%w: currency is required", ErrInvalidRequest)
	}
	if direction.IsZero() {
		return TransactionRequest{}, fmt.Errorf("%w: direction is required", ErrInvalidRequest)
	}
	if provider.IsZero() {
		return TransactionRequest{}, fmt.Errorf("%w: provider is required", ErrInvalidRequest)
	}

	return TransactionRequest{
		transactionID: transactionID,
		userID:        userID,
		amount:        amount,
		direction:     direction,
		provider:      provider,
		paymentMethod: paymentMethod,
		metadata:      maps.Clone(metadata),
	}, nil
}

// --- Accessors ---

func (r TransactionRequest) TransactionID() string            { return r.transactionID }
func (r TransactionRequest) UserID() string                   { return r.userID }
func (r TransactionRequest) Amount() money.Money              { return r.amount }
func (r TransactionRequest) Currency() string                 { return r.amount.Currency().Code() }
func (r TransactionRequest) Direction() valueobject.Direction { return r.direction }
func (r TransactionRequest) Provider() valueobject.Provider   { return r.provider }
func (r TransactionRequest) PaymentMethod() string            { return r.paymentMethod }

// Metadata returns a copy of the free-form metadata.
func (r TransactionRequest) Metadata() map[string]string {
	return maps.Clone(r.metadata)
}
