package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountKind classifies an account.
type AccountKind string

const (
	KindChecking AccountKind = "checking"
	KindSavings  AccountKind = "savings"
)

// Valid reports whether the kind is one of the known account kinds.
func (k AccountKind) Valid() bool {
	return k == KindChecking || k == KindSavings
}

// Account holds the authoritative balance for a single owner-scoped account.
// Balance is only ever changed through the store's compare-and-set primitive.
type Account struct {
	ID        string          `json:"id"`
	OwnerID   string          `json:"owner_id"`
	Kind      AccountKind     `json:"kind"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
