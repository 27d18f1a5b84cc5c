package auth

import (
	"context"
	"errors"

	interfaces "github.com/sheikh-saqib/banking-ledger-system/internal/interfaces"
	"github.com/sheikh-saqib/banking-ledger-system/internal/models"
)

// Scope is the access level a caller needs for an account operation.
type Scope string

const (
	// ScopeOwner covers reads, debits and direct balance adjustments.
	// Granted only to the account's owner.
	ScopeOwner Scope = "owner"
	// ScopeDeposit covers credits arriving from a transfer, including
	// compensation credits. Granted to any authenticated identity; whether
	// the account exists is checked downstream, not here.
	ScopeDeposit Scope = "deposit"
)

// Gate validates that a caller may act on an account. Every mutation path
// goes through it; there is no unauthenticated internal shortcut.
type Gate struct {
	store interfaces.LedgerStore
}

func NewGate(store interfaces.LedgerStore) *Gate {
	return &Gate{store: store}
}

// Authorize returns nil when the caller holds the required scope for the
// account, models.ErrDenied otherwise. For ScopeOwner the denial is the
// same whether the account is missing or owned by someone else, so a denied
// caller learns nothing about existence.
func (g *Gate) Authorize(ctx context.Context, caller, accountID string, scope Scope) error {
	if caller == "" {
		return models.ErrDenied
	}

	switch scope {
	case ScopeDeposit:
		return nil
	case ScopeOwner:
		account, err := g.store.GetAccount(ctx, accountID)
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrDenied
		}
		if err != nil {
			return err
		}
		if account.OwnerID != caller {
			return models.ErrDenied
		}
		return nil
	default:
		return models.ErrDenied
	}
}
