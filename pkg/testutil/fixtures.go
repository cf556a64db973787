package testutil

import (
	"github.com/google/uuid"
)

// Fixed user IDs for deterministic testing.
const (
	TestUserID1 = "user-0001"
	TestUserID2 = "user-0002"
)

// NewTransactionID returns a unique transaction ID carrying a readable prefix.
func NewTransactionID(prefix string) string {
	return prefix + "-" + uuid.NewString()
}
