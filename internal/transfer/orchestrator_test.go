package transfer

import (
	"context"
	"sync"
	"testing"

	"github.com/sheikh-saqib/banking-ledger-system/internal/auth"
	"github.com/sheikh-saqib/banking-ledger-system/internal/idempotency"
	interfaces "github.com/sheikh-saqib/banking-ledger-system/internal/interfaces"
	"github.com/sheikh-saqib/banking-ledger-system/internal/ledger"
	"github.com/sheikh-saqib/banking-ledger-system/internal/models"
	"github.com/sheikh-saqib/banking-ledger-system/internal/models/events"
	"github.com/sheikh-saqib/banking-ledger-system/internal/storage/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// capturePublisher records published events for assertions.
type capturePublisher struct {
	mu     sync.Mutex
	topics []string
	events []any
}

func (p *capturePublisher) Publish(ctx context.Context, topic string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return nil
}

// captureNotifier records enqueued tasks.
type captureNotifier struct {
	mu    sync.Mutex
	tasks []models.NotificationTask
}

func (n *captureNotifier) Enqueue(task models.NotificationTask) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.tasks = append(n.tasks, task)
	return "task-id", nil
}

type fixture struct {
	store        interfaces.LedgerStore
	ledger       *ledger.Ledger
	publisher    *capturePublisher
	notifier     *captureNotifier
	orchestrator *Orchestrator
}

func newFixture(t *testing.T, store interfaces.LedgerStore) *fixture {
	t.Helper()
	if store == nil {
		store = memory.NewMemoryLedgerStore()
	}
	ldg := ledger.NewLedger(store, auth.NewGate(store))
	publisher := &capturePublisher{}
	notifier := &captureNotifier{}
	orchestrator := NewOrchestrator(store, ldg, publisher, notifier, idempotency.NewMemoryStore(), zap.NewNop())
	return &fixture{store: store, ledger: ldg, publisher: publisher, notifier: notifier, orchestrator: orchestrator}
}

func (f *fixture) account(t *testing.T, owner string, deposit int64) models.Account {
	t.Helper()
	account, err := f.ledger.CreateAccount(context.Background(), owner, models.KindChecking, decimal.NewFromInt(deposit))
	require.NoError(t, err)
	return account
}

func (f *fixture) balance(t *testing.T, accountID string) decimal.Decimal {
	t.Helper()
	account, err := f.store.GetAccount(context.Background(), accountID)
	require.NoError(t, err)
	return account.Balance
}

func TestTransferCompleted(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	source := f.account(t, "alice", 60)
	destination := f.account(t, "bob", 10)

	record, err := f.orchestrator.Transfer(ctx, source.ID, destination.ID, decimal.NewFromInt(50), "alice", "")
	require.NoError(t, err)

	assert.Equal(t, models.StatusCompleted, record.Status)
	assert.NotNil(t, record.CompletedAt)
	assert.True(t, f.balance(t, source.ID).Equal(decimal.NewFromInt(10)))
	assert.True(t, f.balance(t, destination.ID).Equal(decimal.NewFromInt(60)))

	// Persisted record matches the returned one.
	stored, err := f.orchestrator.GetTransaction(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, stored.Status)

	// Completion publishes one event and notifies both parties.
	require.Equal(t, []string{events.TopicTransferCompleted}, f.publisher.topics)
	require.Len(t, f.notifier.tasks, 2)
	assert.Equal(t, record.ID, f.notifier.tasks[0].CorrelationID)
	assert.Equal(t, "alice", f.notifier.tasks[0].Target)
	assert.Equal(t, "bob", f.notifier.tasks[1].Target)
}

func TestTransferValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	t.Run("same account", func(t *testing.T) {
		record, err := f.orchestrator.Transfer(ctx, "a1", "a1", decimal.NewFromInt(10), "alice", "")
		assert.True(t, models.IsValidation(err))
		assert.Equal(t, models.StatusFailed, record.Status)
		assert.Equal(t, models.ReasonInvalidRequest, record.FailureReason)
	})

	t.Run("non-positive amount", func(t *testing.T) {
		record, err := f.orchestrator.Transfer(ctx, "a1", "a2", decimal.Zero, "alice", "")
		assert.True(t, models.IsValidation(err))
		assert.Equal(t, models.ReasonInvalidRequest, record.FailureReason)
	})

	// Validation rejects before any store access: no record was persisted.
	_, err := f.store.GetTransactionByIdempotencyKey(ctx, "anything")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestTransferInsufficientFunds(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	source := f.account(t, "alice", 30)
	destination := f.account(t, "bob", 10)

	record, err := f.orchestrator.Transfer(ctx, source.ID, destination.ID, decimal.NewFromInt(50), "alice", "")
	require.NoError(t, err)

	assert.Equal(t, models.StatusFailed, record.Status)
	assert.Equal(t, models.ReasonInsufficientFunds, record.FailureReason)
	assert.True(t, f.balance(t, source.ID).Equal(decimal.NewFromInt(30)))
	assert.True(t, f.balance(t, destination.ID).Equal(decimal.NewFromInt(10)))
	assert.Empty(t, f.publisher.topics)
	assert.Empty(t, f.notifier.tasks)
}

func TestTransferDenied(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	source := f.account(t, "alice", 100)
	destination := f.account(t, "bob", 0)

	record, err := f.orchestrator.Transfer(ctx, source.ID, destination.ID, decimal.NewFromInt(10), "mallory", "")
	require.NoError(t, err)

	assert.Equal(t, models.StatusFailed, record.Status)
	assert.Equal(t, models.ReasonDenied, record.FailureReason)
	assert.True(t, f.balance(t, source.ID).Equal(decimal.NewFromInt(100)))
}

// A failed credit leg rolls the source back through a compensating credit:
// debit then compensation nets to zero.
func TestTransferCompensatesOnMissingDestination(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	source := f.account(t, "alice", 60)

	record, err := f.orchestrator.Transfer(ctx, source.ID, "a9-missing", decimal.NewFromInt(50), "alice", "")
	require.NoError(t, err)

	assert.Equal(t, models.StatusFailed, record.Status)
	assert.Equal(t, models.ReasonNotFound, record.FailureReason)
	assert.True(t, f.balance(t, source.ID).Equal(decimal.NewFromInt(60)), "source must be restored")

	// The audit trail shows both the debit and the compensating credit,
	// correlated to the transaction.
	entries, err := f.store.AuditEntries(ctx, source.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, models.OperationDebit, entries[0].Kind)
	assert.Equal(t, models.OperationCredit, entries[1].Kind)
	assert.Equal(t, record.ID, entries[0].CorrelationID)
	assert.Equal(t, record.ID, entries[1].CorrelationID)
}

// brokenStore allows a fixed number of compare-and-set calls, then fails
// every further one with a conflict. Used to strand a committed debit.
type brokenStore struct {
	interfaces.LedgerStore
	mu        sync.Mutex
	remaining int
}

func (b *brokenStore) CompareAndSetBalance(ctx context.Context, accountID string, expected, next decimal.Decimal, entry models.AuditEntry) error {
	b.mu.Lock()
	allowed := b.remaining > 0
	if allowed {
		b.remaining--
	}
	b.mu.Unlock()
	if !allowed {
		return models.ErrConflict
	}
	return b.LedgerStore.CompareAndSetBalance(ctx, accountID, expected, next, entry)
}

func TestTransferCompensationFailed(t *testing.T) {
	base := memory.NewMemoryLedgerStore()
	store := &brokenStore{LedgerStore: base, remaining: 1} // debit commits, nothing else does
	f := newFixture(t, store)
	ctx := context.Background()
	source := f.account(t, "alice", 60)

	record, err := f.orchestrator.Transfer(ctx, source.ID, "a9-missing", decimal.NewFromInt(50), "alice", "")
	require.ErrorIs(t, err, models.ErrCompensationFailed)

	assert.Equal(t, models.StatusFailed, record.Status)
	assert.Equal(t, models.ReasonCompensationFailed, record.FailureReason)

	// The debit is stranded until an operator reconciles it.
	assert.True(t, f.balance(t, source.ID).Equal(decimal.NewFromInt(10)))

	// The inconsistency is raised as a non-retriable alert, never swallowed.
	require.Equal(t, []string{events.TopicLedgerAlerts}, f.publisher.topics)
	alert, ok := f.publisher.events[0].(events.CompensationFailed)
	require.True(t, ok)
	assert.Equal(t, record.ID, alert.TransactionID)
	assert.NotEmpty(t, alert.CreditError)
	assert.NotEmpty(t, alert.CompensationError)
}

func TestTransferIdempotentReplay(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	source := f.account(t, "alice", 100)
	destination := f.account(t, "bob", 0)
	amount := decimal.NewFromInt(25)

	first, err := f.orchestrator.Transfer(ctx, source.ID, destination.ID, amount, "alice", "key-1")
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, first.Status)

	// Same key replays the original record; no money moves twice.
	second, err := f.orchestrator.Transfer(ctx, source.ID, destination.ID, amount, "alice", "key-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.True(t, f.balance(t, source.ID).Equal(decimal.NewFromInt(75)))
	assert.True(t, f.balance(t, destination.ID).Equal(decimal.NewFromInt(25)))

	// A fresh key executes normally.
	third, err := f.orchestrator.Transfer(ctx, source.ID, destination.ID, amount, "alice", "key-2")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, third.ID)
	assert.True(t, f.balance(t, source.ID).Equal(decimal.NewFromInt(50)))
}
