package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/sheikh-saqib/banking-ledger-system/internal/auth"
	interfaces "github.com/sheikh-saqib/banking-ledger-system/internal/interfaces"
	"github.com/sheikh-saqib/banking-ledger-system/internal/models"
	"github.com/shopspring/decimal"
)

// DefaultMaxRetries bounds the compare-and-set retry loop. The loop is
// cheap (read + conditional write, no sleep), so a small bound is enough
// before reporting contention to the caller.
const DefaultMaxRetries = 5

// DefaultMaxDeposit is the ceiling for an account's initial deposit.
var DefaultMaxDeposit = decimal.NewFromInt(1_000_000)

// Ledger applies balance changes to accounts. Concurrent mutations of the
// same account race safely: each attempt re-reads the balance and commits
// through the store's compare-and-set, so exactly one writer wins each
// round and the rest retry.
type Ledger struct {
	store      interfaces.LedgerStore
	gate       *auth.Gate
	maxRetries int
	maxDeposit decimal.Decimal
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithMaxRetries overrides the compare-and-set retry bound.
func WithMaxRetries(n int) Option {
	return func(l *Ledger) {
		if n > 0 {
			l.maxRetries = n
		}
	}
}

// WithMaxDeposit overrides the initial-deposit ceiling.
func WithMaxDeposit(max decimal.Decimal) Option {
	return func(l *Ledger) { l.maxDeposit = max }
}

// NewLedger creates a Ledger backed by the given store and authorization gate.
func NewLedger(store interfaces.LedgerStore, gate *auth.Gate, opts ...Option) *Ledger {
	l := &Ledger{
		store:      store,
		gate:       gate,
		maxRetries: DefaultMaxRetries,
		maxDeposit: DefaultMaxDeposit,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CreateAccount opens a new account with an initial deposit in
// [0, maxDeposit]. The deposit becomes the starting balance; audit replay
// begins from it.
func (l *Ledger) CreateAccount(ctx context.Context, ownerID string, kind models.AccountKind, initialDeposit decimal.Decimal) (models.Account, error) {
	if ownerID == "" {
		return models.Account{}, models.NewValidationError("owner_id", "must not be empty")
	}
	if !kind.Valid() {
		return models.Account{}, models.NewValidationError("kind", "must be checking or savings")
	}
	if initialDeposit.IsNegative() {
		return models.Account{}, models.NewValidationError("initial_deposit", "must not be negative")
	}
	if initialDeposit.GreaterThan(l.maxDeposit) {
		return models.Account{}, models.NewValidationError("initial_deposit", "exceeds maximum deposit")
	}

	now := time.Now()
	account := models.Account{
		ID:        uuid.New().String(),
		OwnerID:   ownerID,
		Kind:      kind,
		Balance:   initialDeposit,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := l.store.CreateAccount(ctx, account); err != nil {
		return models.Account{}, err
	}
	return account, nil
}

// GetAccount returns the account after an owner-scope check. A caller that
// does not own the account gets the same denial whether it exists or not.
func (l *Ledger) GetAccount(ctx context.Context, accountID, caller string) (models.Account, error) {
	if err := l.gate.Authorize(ctx, caller, accountID, auth.ScopeOwner); err != nil {
		return models.Account{}, err
	}
	return l.store.GetAccount(ctx, accountID)
}

// AuditEntries returns one page of the account's audit trail, owner-scoped.
func (l *Ledger) AuditEntries(ctx context.Context, accountID, caller string, limit, offset int) ([]models.AuditEntry, error) {
	if err := l.gate.Authorize(ctx, caller, accountID, auth.ScopeOwner); err != nil {
		return nil, err
	}
	return l.store.AuditEntries(ctx, accountID, limit, offset)
}

// Credit adds amount to the caller's own account.
func (l *Ledger) Credit(ctx context.Context, accountID, caller string, amount decimal.Decimal, correlationID string) (decimal.Decimal, error) {
	return l.apply(ctx, accountID, caller, amount, models.OperationCredit, auth.ScopeOwner, correlationID)
}

// Debit removes amount from the caller's own account.
func (l *Ledger) Debit(ctx context.Context, accountID, caller string, amount decimal.Decimal, correlationID string) (decimal.Decimal, error) {
	return l.apply(ctx, accountID, caller, amount, models.OperationDebit, auth.ScopeOwner, correlationID)
}

// Receive credits an account the caller does not own. Used for the credit
// leg of a transfer and for compensation credits; it takes the same
// compare-and-set path as every other mutation.
func (l *Ledger) Receive(ctx context.Context, accountID, caller string, amount decimal.Decimal, correlationID string) (decimal.Decimal, error) {
	return l.apply(ctx, accountID, caller, amount, models.OperationCredit, auth.ScopeDeposit, correlationID)
}

func (l *Ledger) apply(ctx context.Context, accountID, caller string, amount decimal.Decimal, kind models.OperationKind, scope auth.Scope, correlationID string) (decimal.Decimal, error) {
	if amount.Sign() <= 0 {
		return decimal.Zero, models.NewValidationError("amount", "must be positive")
	}
	if err := l.gate.Authorize(ctx, caller, accountID, scope); err != nil {
		return decimal.Zero, err
	}
	if correlationID == "" {
		correlationID = uuid.New().String()
	}

	for attempt := 0; attempt < l.maxRetries; attempt++ {
		account, err := l.store.GetAccount(ctx, accountID)
		if err != nil {
			return decimal.Zero, err
		}

		delta := amount
		if kind == models.OperationDebit {
			delta = amount.Neg()
		}
		next := account.Balance.Add(delta)
		if next.IsNegative() {
			return decimal.Zero, models.ErrInsufficientFunds
		}

		entry := models.AuditEntry{
			ID:              uuid.New().String(),
			AccountID:       accountID,
			PreviousBalance: account.Balance,
			NewBalance:      next,
			Delta:           delta,
			Kind:            kind,
			Actor:           caller,
			CorrelationID:   correlationID,
			CreatedAt:       time.Now(),
		}

		err = l.store.CompareAndSetBalance(ctx, accountID, account.Balance, next, entry)
		if err == nil {
			return next, nil
		}
		if errors.Is(err, models.ErrConflict) {
			continue
		}
		return decimal.Zero, err
	}
	return decimal.Zero, models.ErrContention
}
