package postgres

import (
	"context"
	"database/sql"
	"errors"

	interfaces "github.com/sheikh-saqib/banking-ledger-system/internal/interfaces"
	"github.com/sheikh-saqib/banking-ledger-system/internal/models"
	"github.com/shopspring/decimal"
)

// PostgresLedgerStore implements interfaces.LedgerStore on top of Postgres.
// The compare-and-set is a conditional UPDATE; the audit append rides in the
// same database transaction, so both rows commit or neither does.
type PostgresLedgerStore struct {
	db *sql.DB
}

func NewPostgresLedgerStore(db *sql.DB) *PostgresLedgerStore {
	return &PostgresLedgerStore{db: db}
}

func (p *PostgresLedgerStore) CreateAccount(ctx context.Context, account models.Account) error {
	const query = `INSERT INTO accounts (id, owner_id, kind, balance, created_at, updated_at)
	VALUES ($1,$2,$3,$4,$5,$6)
	ON CONFLICT (id) DO NOTHING`

	res, err := p.db.ExecContext(ctx, query,
		account.ID, account.OwnerID, string(account.Kind), account.Balance, account.CreatedAt, account.UpdatedAt)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return models.ErrAlreadyExists
	}
	return nil
}

func (p *PostgresLedgerStore) GetAccount(ctx context.Context, accountID string) (models.Account, error) {
	const query = `SELECT id, owner_id, kind, balance, created_at, updated_at
	FROM accounts WHERE id = $1`

	var account models.Account
	var kind string
	err := p.db.QueryRowContext(ctx, query, accountID).Scan(
		&account.ID, &account.OwnerID, &kind, &account.Balance, &account.CreatedAt, &account.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Account{}, models.ErrNotFound
	}
	if err != nil {
		return models.Account{}, err
	}
	account.Kind = models.AccountKind(kind)
	return account, nil
}

func (p *PostgresLedgerStore) CompareAndSetBalance(ctx context.Context, accountID string, expected, next decimal.Decimal, entry models.AuditEntry) error {
	dbTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			dbTx.Rollback()
		}
	}()

	const update = `UPDATE accounts SET balance = $1, updated_at = $2
	WHERE id = $3 AND balance = $4`

	res, err := dbTx.ExecContext(ctx, update, next, entry.CreatedAt, accountID, expected)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Distinguish a lost race from a missing account.
		const exists = `SELECT 1 FROM accounts WHERE id = $1`
		var one int
		scanErr := dbTx.QueryRowContext(ctx, exists, accountID).Scan(&one)
		if errors.Is(scanErr, sql.ErrNoRows) {
			err = models.ErrNotFound
			return err
		}
		if scanErr != nil {
			err = scanErr
			return err
		}
		err = models.ErrConflict
		return err
	}

	err = p.appendAudit(ctx, dbTx, entry)
	if err != nil {
		return err
	}
	return dbTx.Commit()
}

func (p *PostgresLedgerStore) appendAudit(ctx context.Context, dbTx *sql.Tx, entry models.AuditEntry) error {
	const query = `INSERT INTO audit_entries
	(id, account_id, previous_balance, new_balance, delta, kind, actor, correlation_id, created_at)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`

	_, err := dbTx.ExecContext(ctx, query,
		entry.ID, entry.AccountID, entry.PreviousBalance, entry.NewBalance,
		entry.Delta, string(entry.Kind), entry.Actor, entry.CorrelationID, entry.CreatedAt)
	return err
}

func (p *PostgresLedgerStore) AuditEntries(ctx context.Context, accountID string, limit, offset int) ([]models.AuditEntry, error) {
	const query = `SELECT id, account_id, previous_balance, new_balance, delta, kind, actor, correlation_id, created_at
	FROM audit_entries
	WHERE account_id = $1
	ORDER BY created_at ASC, id ASC
	LIMIT $2 OFFSET $3`

	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := p.db.QueryContext(ctx, query, accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := []models.AuditEntry{}
	for rows.Next() {
		var entry models.AuditEntry
		var kind string
		if err := rows.Scan(&entry.ID, &entry.AccountID, &entry.PreviousBalance, &entry.NewBalance,
			&entry.Delta, &kind, &entry.Actor, &entry.CorrelationID, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.Kind = models.OperationKind(kind)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (p *PostgresLedgerStore) SaveTransaction(ctx context.Context, record models.TransactionRecord) error {
	const query = `INSERT INTO transactions
	(id, idempotency_key, source_account, destination_account, amount, status, failure_reason, created_at, completed_at)
	VALUES ($1, NULLIF($2,''), $3, $4, $5, $6, $7, $8, $9)`

	_, err := p.db.ExecContext(ctx, query,
		record.ID, record.IdempotencyKey, record.SourceAccount, record.DestinationAccount,
		record.Amount, string(record.Status), string(record.FailureReason), record.CreatedAt, record.CompletedAt)
	return err
}

func (p *PostgresLedgerStore) UpdateTransaction(ctx context.Context, record models.TransactionRecord) error {
	// Terminal statuses are final; the WHERE clause refuses to overwrite them.
	const query = `UPDATE transactions
	SET status = $1, failure_reason = $2, completed_at = $3
	WHERE id = $4 AND status = 'pending'`

	res, err := p.db.ExecContext(ctx, query,
		string(record.Status), string(record.FailureReason), record.CompletedAt, record.ID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		const exists = `SELECT 1 FROM transactions WHERE id = $1`
		var one int
		scanErr := p.db.QueryRowContext(ctx, exists, record.ID).Scan(&one)
		if errors.Is(scanErr, sql.ErrNoRows) {
			return models.ErrNotFound
		}
		if scanErr != nil {
			return scanErr
		}
		return models.ErrTerminalStatus
	}
	return nil
}

func (p *PostgresLedgerStore) GetTransaction(ctx context.Context, transactionID string) (models.TransactionRecord, error) {
	const query = `SELECT id, COALESCE(idempotency_key,''), source_account, destination_account, amount, status, failure_reason, created_at, completed_at
	FROM transactions WHERE id = $1`

	return p.scanTransaction(p.db.QueryRowContext(ctx, query, transactionID))
}

func (p *PostgresLedgerStore) GetTransactionByIdempotencyKey(ctx context.Context, key string) (models.TransactionRecord, error) {
	const query = `SELECT id, COALESCE(idempotency_key,''), source_account, destination_account, amount, status, failure_reason, created_at, completed_at
	FROM transactions WHERE idempotency_key = $1`

	return p.scanTransaction(p.db.QueryRowContext(ctx, query, key))
}

func (p *PostgresLedgerStore) scanTransaction(row *sql.Row) (models.TransactionRecord, error) {
	var record models.TransactionRecord
	var status, reason string
	var completedAt sql.NullTime
	err := row.Scan(&record.ID, &record.IdempotencyKey, &record.SourceAccount, &record.DestinationAccount,
		&record.Amount, &status, &reason, &record.CreatedAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.TransactionRecord{}, models.ErrNotFound
	}
	if err != nil {
		return models.TransactionRecord{}, err
	}
	record.Status = models.TransactionStatus(status)
	record.FailureReason = models.FailureReason(reason)
	if completedAt.Valid {
		record.CompletedAt = &completedAt.Time
	}
	return record, nil
}

// Compile-time check: ensure PostgresLedgerStore implements LedgerStore.
var _ interfaces.LedgerStore = (*PostgresLedgerStore)(nil)
