package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sheikh-saqib/banking-ledger-system/internal/idempotency"
	interfaces "github.com/sheikh-saqib/banking-ledger-system/internal/interfaces"
	"github.com/sheikh-saqib/banking-ledger-system/internal/ledger"
	"github.com/sheikh-saqib/banking-ledger-system/internal/metrics"
	"github.com/sheikh-saqib/banking-ledger-system/internal/models"
	"github.com/sheikh-saqib/banking-ledger-system/internal/models/events"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Notifier accepts completed-transfer notifications without blocking.
type Notifier interface {
	Enqueue(task models.NotificationTask) (string, error)
}

// Orchestrator composes two single-account mutations into one transfer.
// There is no cross-account transaction: the debit commits first, and a
// failed credit is undone by a compensating credit back to the source.
type Orchestrator struct {
	store     interfaces.LedgerStore
	ledger    *ledger.Ledger
	publisher interfaces.EventPublisher
	notifier  Notifier
	idem      idempotency.Store
	logger    *zap.Logger
}

func NewOrchestrator(
	store interfaces.LedgerStore,
	ldg *ledger.Ledger,
	publisher interfaces.EventPublisher,
	notifier Notifier,
	idem idempotency.Store,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		store:     store,
		ledger:    ldg,
		publisher: publisher,
		notifier:  notifier,
		idem:      idem,
		logger:    logger,
	}
}

// Transfer moves amount from the caller's source account to the destination
// account. The returned record is terminal unless the error is non-nil and
// the request never got past validation.
func (o *Orchestrator) Transfer(ctx context.Context, sourceID, destinationID string, amount decimal.Decimal, caller, idempotencyKey string) (models.TransactionRecord, error) {
	// Validation failures never touch the store.
	if sourceID == destinationID {
		return failedRecord(sourceID, destinationID, amount, models.ReasonInvalidRequest),
			models.NewValidationError("destination_account", "must differ from source account")
	}
	if amount.Sign() <= 0 {
		return failedRecord(sourceID, destinationID, amount, models.ReasonInvalidRequest),
			models.NewValidationError("amount", "must be positive")
	}

	record := models.TransactionRecord{
		ID:                 uuid.New().String(),
		IdempotencyKey:     idempotencyKey,
		SourceAccount:      sourceID,
		DestinationAccount: destinationID,
		Amount:             amount,
		Status:             models.StatusPending,
		CreatedAt:          time.Now(),
	}

	if idempotencyKey != "" {
		won, existingID, err := o.idem.Reserve(ctx, idempotencyKey, record.ID)
		if err != nil {
			return models.TransactionRecord{}, fmt.Errorf("reserve idempotency key: %w", err)
		}
		if !won {
			// Replay: hand back whatever the first attempt produced. If the
			// first attempt is still in flight its record may not be saved
			// yet, which surfaces as a conflict the caller can retry.
			existing, err := o.store.GetTransaction(ctx, existingID)
			if errors.Is(err, models.ErrNotFound) {
				return models.TransactionRecord{}, models.ErrConflict
			}
			if err != nil {
				return models.TransactionRecord{}, err
			}
			return existing, nil
		}
	}

	if err := o.store.SaveTransaction(ctx, record); err != nil {
		return models.TransactionRecord{}, fmt.Errorf("save transaction: %w", err)
	}

	// Debit leg. Nothing has been applied yet on failure, so the record
	// just goes terminal with the mutator's reason.
	if _, err := o.ledger.Debit(ctx, sourceID, caller, amount, record.ID); err != nil {
		return o.fail(ctx, record, reasonFor(err)), nil
	}

	// Credit leg. The debit is already committed; a failure here must be
	// compensated before the record goes terminal.
	if _, err := o.ledger.Receive(ctx, destinationID, caller, amount, record.ID); err != nil {
		return o.compensate(ctx, record, caller, err)
	}

	now := time.Now()
	record.Status = models.StatusCompleted
	record.CompletedAt = &now
	if err := o.store.UpdateTransaction(ctx, record); err != nil {
		o.logger.Error("mark transfer completed", zap.String("transaction_id", record.ID), zap.Error(err))
	}
	metrics.TransfersTotal.WithLabelValues(string(models.StatusCompleted)).Inc()

	o.publishCompleted(ctx, record)
	o.notifyParties(ctx, record, caller)
	return record, nil
}

// GetTransaction returns a transfer record by ID.
func (o *Orchestrator) GetTransaction(ctx context.Context, transactionID string) (models.TransactionRecord, error) {
	return o.store.GetTransaction(ctx, transactionID)
}

// compensate credits the debited amount back to the source. The
// compensating credit takes the same compare-and-set path as any other
// credit, so it is safe to race with concurrent mutations.
func (o *Orchestrator) compensate(ctx context.Context, record models.TransactionRecord, caller string, creditErr error) (models.TransactionRecord, error) {
	_, compErr := o.ledger.Receive(ctx, record.SourceAccount, caller, record.Amount, record.ID)
	if compErr == nil {
		return o.fail(ctx, record, reasonFor(creditErr)), nil
	}
	return o.escalate(ctx, record, creditErr, compErr)
}

// escalate records a compensation failure: the debit is committed and could
// not be restored automatically. Surfaced loudly, never as a generic
// failure.
func (o *Orchestrator) escalate(ctx context.Context, record models.TransactionRecord, creditErr, compErr error) (models.TransactionRecord, error) {
	record = o.fail(ctx, record, models.ReasonCompensationFailed)
	metrics.CompensationFailures.Inc()

	// Best-effort read of the stranded balance for the operator.
	stranded := decimal.Zero
	if account, err := o.store.GetAccount(ctx, record.SourceAccount); err == nil {
		stranded = account.Balance
	}

	o.logger.Error("transfer compensation failed, manual reconciliation required",
		zap.String("transaction_id", record.ID),
		zap.String("source_account", record.SourceAccount),
		zap.String("destination_account", record.DestinationAccount),
		zap.String("amount", record.Amount.String()),
		zap.String("source_balance_after_debit", stranded.String()),
		zap.NamedError("credit_error", creditErr),
		zap.NamedError("compensation_error", compErr))

	alert := events.CompensationFailed{
		TransactionID:      record.ID,
		SourceAccount:      record.SourceAccount,
		DestinationAccount: record.DestinationAccount,
		Amount:             record.Amount,
		DebitedBalance:     stranded,
		CreditError:        creditErr.Error(),
		CompensationError:  compErr.Error(),
		OccurredAt:         time.Now(),
	}
	if err := o.publisher.Publish(ctx, events.TopicLedgerAlerts, alert); err != nil {
		o.logger.Error("publish compensation alert", zap.String("transaction_id", record.ID), zap.Error(err))
	}
	return record, models.ErrCompensationFailed
}

func (o *Orchestrator) fail(ctx context.Context, record models.TransactionRecord, reason models.FailureReason) models.TransactionRecord {
	now := time.Now()
	record.Status = models.StatusFailed
	record.FailureReason = reason
	record.CompletedAt = &now
	if err := o.store.UpdateTransaction(ctx, record); err != nil {
		o.logger.Error("mark transfer failed", zap.String("transaction_id", record.ID), zap.Error(err))
	}
	metrics.TransfersTotal.WithLabelValues(string(models.StatusFailed)).Inc()
	metrics.TransferFailures.WithLabelValues(string(reason)).Inc()
	return record
}

func (o *Orchestrator) publishCompleted(ctx context.Context, record models.TransactionRecord) {
	event := events.TransferCompleted{
		TransactionID:      record.ID,
		SourceAccount:      record.SourceAccount,
		DestinationAccount: record.DestinationAccount,
		Amount:             record.Amount,
		OccurredAt:         time.Now(),
	}
	if err := o.publisher.Publish(ctx, events.TopicTransferCompleted, event); err != nil {
		o.logger.Warn("publish transfer event", zap.String("transaction_id", record.ID), zap.Error(err))
	}
}

// notifyParties enqueues best-effort notifications for both owners. A full
// queue or a delivery failure never changes the transfer outcome.
func (o *Orchestrator) notifyParties(ctx context.Context, record models.TransactionRecord, caller string) {
	if o.notifier == nil {
		return
	}

	payload := fmt.Sprintf("transfer %s: %s moved from %s to %s",
		record.ID, record.Amount.String(), record.SourceAccount, record.DestinationAccount)

	tasks := []models.NotificationTask{
		{Target: caller, Channel: models.ChannelEmail, Payload: payload, CorrelationID: record.ID},
	}
	if destination, err := o.store.GetAccount(ctx, record.DestinationAccount); err == nil {
		tasks = append(tasks, models.NotificationTask{
			Target:        destination.OwnerID,
			Channel:       models.ChannelPush,
			Payload:       payload,
			CorrelationID: record.ID,
		})
	}
	for _, task := range tasks {
		if _, err := o.notifier.Enqueue(task); err != nil {
			o.logger.Warn("enqueue notification", zap.String("transaction_id", record.ID), zap.Error(err))
		}
	}
}

func failedRecord(sourceID, destinationID string, amount decimal.Decimal, reason models.FailureReason) models.TransactionRecord {
	now := time.Now()
	return models.TransactionRecord{
		SourceAccount:      sourceID,
		DestinationAccount: destinationID,
		Amount:             amount,
		Status:             models.StatusFailed,
		FailureReason:      reason,
		CreatedAt:          now,
		CompletedAt:        &now,
	}
}

// reasonFor maps a mutator error onto the record's stable failure code.
// Distinct kinds stay distinct: a missing account is never reported as
// insufficient funds.
func reasonFor(err error) models.FailureReason {
	switch {
	case models.IsValidation(err):
		return models.ReasonInvalidRequest
	case errors.Is(err, models.ErrDenied):
		return models.ReasonDenied
	case errors.Is(err, models.ErrNotFound):
		return models.ReasonNotFound
	case errors.Is(err, models.ErrInsufficientFunds):
		return models.ReasonInsufficientFunds
	case errors.Is(err, models.ErrContention):
		return models.ReasonContention
	default:
		return models.ReasonInternal
	}
}
