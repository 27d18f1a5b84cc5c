package memory

import (
	"context"
	"sync"
	"time"

	interfaces "github.com/sheikh-saqib/banking-ledger-system/internal/interfaces"
	"github.com/sheikh-saqib/banking-ledger-system/internal/models"
	"github.com/shopspring/decimal"
)

// MemoryLedgerStore is an in-memory implementation of interfaces.LedgerStore.
// All state lives behind one mutex, which makes the balance write and the
// audit append trivially atomic. Used for tests and local development.
type MemoryLedgerStore struct {
	mu           sync.Mutex
	accounts     map[string]models.Account
	audits       map[string][]models.AuditEntry
	transactions map[string]models.TransactionRecord
	byIdemKey    map[string]string // idempotency key -> transaction id
}

// NewMemoryLedgerStore creates an empty in-memory store.
func NewMemoryLedgerStore() *MemoryLedgerStore {
	return &MemoryLedgerStore{
		accounts:     make(map[string]models.Account),
		audits:       make(map[string][]models.AuditEntry),
		transactions: make(map[string]models.TransactionRecord),
		byIdemKey:    make(map[string]string),
	}
}

func (m *MemoryLedgerStore) CreateAccount(ctx context.Context, account models.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.accounts[account.ID]; exists {
		return models.ErrAlreadyExists
	}
	m.accounts[account.ID] = account
	return nil
}

func (m *MemoryLedgerStore) GetAccount(ctx context.Context, accountID string) (models.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, exists := m.accounts[accountID]
	if !exists {
		return models.Account{}, models.ErrNotFound
	}
	return account, nil
}

// CompareAndSetBalance applies the balance write and the audit append in one
// critical section, so both become visible together or not at all.
func (m *MemoryLedgerStore) CompareAndSetBalance(ctx context.Context, accountID string, expected, next decimal.Decimal, entry models.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	account, exists := m.accounts[accountID]
	if !exists {
		return models.ErrNotFound
	}
	if !account.Balance.Equal(expected) {
		return models.ErrConflict
	}

	account.Balance = next
	account.UpdatedAt = time.Now()
	m.accounts[accountID] = account
	m.audits[accountID] = append(m.audits[accountID], entry)
	return nil
}

func (m *MemoryLedgerStore) AuditEntries(ctx context.Context, accountID string, limit, offset int) ([]models.AuditEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := m.audits[accountID]
	if offset < 0 {
		offset = 0
	}
	if offset >= len(all) {
		return []models.AuditEntry{}, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}

	// Entries are appended at commit time, so slice order is commit order.
	page := make([]models.AuditEntry, end-offset)
	copy(page, all[offset:end])
	return page, nil
}

func (m *MemoryLedgerStore) SaveTransaction(ctx context.Context, record models.TransactionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.transactions[record.ID] = record
	if record.IdempotencyKey != "" {
		m.byIdemKey[record.IdempotencyKey] = record.ID
	}
	return nil
}

func (m *MemoryLedgerStore) UpdateTransaction(ctx context.Context, record models.TransactionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, exists := m.transactions[record.ID]
	if !exists {
		return models.ErrNotFound
	}
	if current.Status.Terminal() {
		return models.ErrTerminalStatus
	}
	m.transactions[record.ID] = record
	return nil
}

func (m *MemoryLedgerStore) GetTransaction(ctx context.Context, transactionID string) (models.TransactionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, exists := m.transactions[transactionID]
	if !exists {
		return models.TransactionRecord{}, models.ErrNotFound
	}
	return record, nil
}

func (m *MemoryLedgerStore) GetTransactionByIdempotencyKey(ctx context.Context, key string) (models.TransactionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, exists := m.byIdemKey[key]
	if !exists {
		return models.TransactionRecord{}, models.ErrNotFound
	}
	return m.transactions[id], nil
}

// Compile-time check: ensure MemoryLedgerStore implements LedgerStore.
var _ interfaces.LedgerStore = (*MemoryLedgerStore)(nil)
