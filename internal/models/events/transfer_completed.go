package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// Topics published by the transfer orchestrator.
const (
	TopicTransferCompleted = "transfer_completed"
	TopicLedgerAlerts      = "ledger_alerts"
)

// TransferCompleted is emitted after both legs of a transfer commit.
type TransferCompleted struct {
	TransactionID      string          `json:"transaction_id"`
	SourceAccount      string          `json:"source_account"`
	DestinationAccount string          `json:"destination_account"`
	Amount             decimal.Decimal `json:"amount"`
	OccurredAt         time.Time       `json:"occurred_at"`
}

// CompensationFailed is a non-retriable alert: a debit committed but both
// the credit and the compensating credit failed, leaving the ledger
// inconsistent until an operator reconciles it.
type CompensationFailed struct {
	TransactionID      string          `json:"transaction_id"`
	SourceAccount      string          `json:"source_account"`
	DestinationAccount string          `json:"destination_account"`
	Amount             decimal.Decimal `json:"amount"`
	DebitedBalance     decimal.Decimal `json:"debited_balance"`
	CreditError        string          `json:"credit_error"`
	CompensationError  string          `json:"compensation_error"`
	OccurredAt         time.Time       `json:"occurred_at"`
}
