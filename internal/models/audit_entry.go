package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OperationKind is the direction of a balance change.
type OperationKind string

const (
	OperationCredit OperationKind = "credit"
	OperationDebit  OperationKind = "debit"
)

// AuditEntry is one immutable record of a committed balance change.
// Replaying an account's entries in commit order reconstructs every
// balance the account has ever held.
type AuditEntry struct {
	ID              string          `json:"id"`
	AccountID       string          `json:"account_id"`
	PreviousBalance decimal.Decimal `json:"previous_balance"`
	NewBalance      decimal.Decimal `json:"new_balance"`
	Delta           decimal.Decimal `json:"delta"`
	Kind            OperationKind   `json:"kind"`
	Actor           string          `json:"actor"`
	CorrelationID   string          `json:"correlation_id"`
	CreatedAt       time.Time       `json:"created_at"`
}
