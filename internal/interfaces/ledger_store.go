package interfaces

import (
	"context"

	"github.com/sheikh-saqib/banking-ledger-system/internal/models"
	"github.com/shopspring/decimal"
)

// LedgerStore is the durable home of accounts, audit entries and
// transaction records. A single account's state is consistent within one
// store; nothing is guaranteed across accounts, which is why transfers are
// composed from two single-account mutations.
type LedgerStore interface {
	CreateAccount(ctx context.Context, account models.Account) error
	GetAccount(ctx context.Context, accountID string) (models.Account, error)

	// CompareAndSetBalance is the sole balance-mutation primitive. The write
	// succeeds only if the stored balance still equals expected, and the
	// audit entry is appended atomically with it: either both are durable or
	// neither is. Returns models.ErrConflict on a lost race and
	// models.ErrNotFound for a missing account.
	CompareAndSetBalance(ctx context.Context, accountID string, expected, next decimal.Decimal, entry models.AuditEntry) error

	// AuditEntries returns one timestamp-ordered page of an account's
	// audit trail.
	AuditEntries(ctx context.Context, accountID string, limit, offset int) ([]models.AuditEntry, error)

	SaveTransaction(ctx context.Context, record models.TransactionRecord) error
	// UpdateTransaction rejects transitions out of a terminal status with
	// models.ErrTerminalStatus.
	UpdateTransaction(ctx context.Context, record models.TransactionRecord) error
	GetTransaction(ctx context.Context, transactionID string) (models.TransactionRecord, error)
	GetTransactionByIdempotencyKey(ctx context.Context, key string) (models.TransactionRecord, error)
}
