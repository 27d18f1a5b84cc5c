package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus is the lifecycle state of a transfer.
// pending is the only non-terminal status.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
)

// Terminal reports whether the status can never change again.
func (s TransactionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// FailureReason is the stable failure code a caller can branch on.
type FailureReason string

const (
	ReasonInvalidRequest     FailureReason = "invalid_request"
	ReasonInsufficientFunds  FailureReason = "insufficient_funds"
	ReasonNotFound           FailureReason = "not_found"
	ReasonDenied             FailureReason = "denied"
	ReasonContention         FailureReason = "contention"
	ReasonCompensationFailed FailureReason = "compensation_failed"
	ReasonInternal           FailureReason = "internal_error"
)

// TransactionRecord represents one transfer between two accounts.
type TransactionRecord struct {
	ID                 string            `json:"id"`
	IdempotencyKey     string            `json:"idempotency_key,omitempty"`
	SourceAccount      string            `json:"source_account"`
	DestinationAccount string            `json:"destination_account"`
	Amount             decimal.Decimal   `json:"amount"`
	Status             TransactionStatus `json:"status"`
	FailureReason      FailureReason     `json:"failure_reason,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	CompletedAt        *time.Time        `json:"completed_at,omitempty"`
}
