// Package store persists settlement batches, schedules and transfers in
// PostgreSQL. Rows are revalidated through the domain constructors on the
// way out, so a hand-edited or corrupted row fails loudly instead of
// producing an entity that violates the status/timestamp invariants.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"hash/fnv"

	"github.com/google/uuid"

	"github.com/utapedia/backend/internal/money"
	"github.com/utapedia/backend/internal/settlement"
)

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// querier is satisfied by both *sql.DB and *sql.Tx so the query helpers can
// run inside or outside a payout transaction.
type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const selectBatchColumns = `
	b.id, b.monetization_account_id, b.currency, b.period_start, b.period_end,
	b.status, b.gross_amount, b.fee_amount,
	b.processed_at, b.paid_at, b.failed_at, b.failure_reason,
	b.created_at, b.updated_at
`

func scanBatch(s scanner) (*settlement.Batch, error) {
	var p settlement.BatchParams

	var statusStr, currencyStr string

	var reason sql.NullString

	if err := s.Scan(
		&p.ID, &p.AccountID, &currencyStr, &p.PeriodStart, &p.PeriodEnd,
		&statusStr, &p.GrossAmount, &p.FeeAmount,
		&p.ProcessedAt, &p.PaidAt, &p.FailedAt, &reason,
		&p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}

	p.Currency = money.Currency(currencyStr)
	p.Status = settlement.BatchStatus(statusStr)
	p.FailureReason = reason.String

	b, err := settlement.BuildBatch(p)
	if err != nil {
		return nil, fmt.Errorf("reconstituting batch %s: %w", p.ID, err)
	}

	return b, nil
}

func createBatch(ctx context.Context, q querier, b *settlement.Batch) error {
	query := `
		INSERT INTO settlement_batches
			(id, monetization_account_id, currency, period_start, period_end,
			 status, gross_amount, fee_amount,
			 processed_at, paid_at, failed_at, failure_reason,
			 created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NULLIF($12, ''), NOW(), NOW())
		RETURNING created_at, updated_at
	`

	err := q.QueryRowContext(ctx, query,
		b.ID, b.AccountID, b.Currency, b.PeriodStart, b.PeriodEnd,
		b.Status, b.Gross.Amount, b.Fee.Amount,
		b.ProcessedAt, b.PaidAt, b.FailedAt, b.FailureReason,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating batch: %w", err)
	}

	return nil
}

func getBatch(ctx context.Context, q querier, id uuid.UUID) (*settlement.Batch, error) {
	query := `SELECT ` + selectBatchColumns + ` FROM settlement_batches b WHERE b.id = $1`

	b, err := scanBatch(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, settlement.ErrNotFound
		}

		return nil, fmt.Errorf("getting batch: %w", err)
	}

	return b, nil
}

func saveBatch(ctx context.Context, q querier, b *settlement.Batch) error {
	query := `
		UPDATE settlement_batches
		SET status = $1, gross_amount = $2, fee_amount = $3,
			processed_at = $4, paid_at = $5, failed_at = $6,
			failure_reason = NULLIF($7, ''), updated_at = NOW()
		WHERE id = $8
	`

	_, err := q.ExecContext(ctx, query,
		b.Status, b.Gross.Amount, b.Fee.Amount,
		b.ProcessedAt, b.PaidAt, b.FailedAt, b.FailureReason,
		b.ID,
	)
	if err != nil {
		return fmt.Errorf("saving batch: %w", err)
	}

	return nil
}

func (s *Store) CreateBatch(ctx context.Context, b *settlement.Batch) error {
	return createBatch(ctx, s.db, b)
}

func (s *Store) GetBatch(ctx context.Context, id uuid.UUID) (*settlement.Batch, error) {
	return getBatch(ctx, s.db, id)
}

func (s *Store) SaveBatch(ctx context.Context, b *settlement.Batch) error {
	return saveBatch(ctx, s.db, b)
}

func (s *Store) ListBatches(ctx context.Context, filter settlement.BatchFilter) ([]*settlement.Batch, error) {
	query := `SELECT ` + selectBatchColumns + ` FROM settlement_batches b WHERE 1=1`

	var args []any

	argIdx := 1

	if filter.Status != nil {
		query += fmt.Sprintf(" AND b.status = $%d", argIdx)

		args = append(args, *filter.Status)
		argIdx++
	}

	if filter.AccountID != nil {
		query += fmt.Sprintf(" AND b.monetization_account_id = $%d", argIdx)

		args = append(args, *filter.AccountID)
		argIdx++
	}

	query += " ORDER BY b.period_start ASC, b.created_at ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing batches: %w", err)
	}
	defer rows.Close()

	var batches []*settlement.Batch

	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning batch: %w", err)
		}

		batches = append(batches, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating batch rows: %w", err)
	}

	return batches, nil
}

func (s *Store) FindPendingBatch(ctx context.Context, accountID uuid.UUID) (*settlement.Batch, error) {
	query := `SELECT ` + selectBatchColumns + `
		FROM settlement_batches b
		WHERE b.monetization_account_id = $1 AND b.status = $2
		ORDER BY b.period_start DESC
		LIMIT 1`

	b, err := scanBatch(s.db.QueryRowContext(ctx, query, accountID, settlement.BatchPending))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, settlement.ErrNotFound
		}

		return nil, fmt.Errorf("finding pending batch: %w", err)
	}

	return b, nil
}

const selectScheduleColumns = `
	s.id, s.monetization_account_id, s.anchor_date, s.interval, s.payout_delay_days,
	s.threshold_amount, s.threshold_currency, s.created_at, s.updated_at
`

func scanSchedule(sc scanner) (*settlement.Schedule, error) {
	var p settlement.ScheduleParams

	var intervalStr string

	var thresholdAmount sql.NullInt64

	var thresholdCurrency sql.NullString

	if err := sc.Scan(
		&p.ID, &p.AccountID, &p.Anchor, &intervalStr, &p.PayoutDelayDays,
		&thresholdAmount, &thresholdCurrency, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}

	p.Interval = settlement.Interval(intervalStr)

	if thresholdAmount.Valid && thresholdCurrency.Valid {
		threshold := money.New(thresholdAmount.Int64, money.Currency(thresholdCurrency.String))
		p.Threshold = &threshold
	}

	sched, err := settlement.BuildSchedule(p)
	if err != nil {
		return nil, fmt.Errorf("reconstituting schedule %s: %w", p.ID, err)
	}

	return sched, nil
}

func (s *Store) CreateSchedule(ctx context.Context, sched *settlement.Schedule) error {
	query := `
		INSERT INTO settlement_schedules
			(id, monetization_account_id, anchor_date, interval, payout_delay_days,
			 threshold_amount, threshold_currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
		RETURNING created_at, updated_at
	`

	var thresholdAmount *int64

	var thresholdCurrency *string

	if sched.Threshold != nil {
		thresholdAmount = &sched.Threshold.Amount
		currency := string(sched.Threshold.Currency)
		thresholdCurrency = &currency
	}

	err := s.db.QueryRowContext(ctx, query,
		sched.ID, sched.AccountID, sched.Anchor, sched.Interval, sched.PayoutDelayDays,
		thresholdAmount, thresholdCurrency,
	).Scan(&sched.CreatedAt, &sched.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating schedule: %w", err)
	}

	return nil
}

func (s *Store) GetSchedule(ctx context.Context, id uuid.UUID) (*settlement.Schedule, error) {
	query := `SELECT ` + selectScheduleColumns + ` FROM settlement_schedules s WHERE s.id = $1`

	sched, err := scanSchedule(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, settlement.ErrNotFound
		}

		return nil, fmt.Errorf("getting schedule: %w", err)
	}

	return sched, nil
}

func (s *Store) GetScheduleByAccount(ctx context.Context, accountID uuid.UUID) (*settlement.Schedule, error) {
	query := `SELECT ` + selectScheduleColumns + ` FROM settlement_schedules s WHERE s.monetization_account_id = $1`

	sched, err := scanSchedule(s.db.QueryRowContext(ctx, query, accountID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, settlement.ErrNotFound
		}

		return nil, fmt.Errorf("getting schedule by account: %w", err)
	}

	return sched, nil
}

func (s *Store) SaveSchedule(ctx context.Context, sched *settlement.Schedule) error {
	query := `
		UPDATE settlement_schedules
		SET anchor_date = $1, updated_at = NOW()
		WHERE id = $2
	`

	_, err := s.db.ExecContext(ctx, query, sched.Anchor, sched.ID)
	if err != nil {
		return fmt.Errorf("saving schedule: %w", err)
	}

	return nil
}

const selectTransferColumns = `
	t.id, t.settlement_batch_id,
	t.account_id, t.account_holder_id, t.bank_name, t.account_number,
	t.receiving_currency, t.account_verified,
	t.amount, t.currency, t.status,
	t.sent_at, t.failed_at, t.failure_reason, t.created_at
`

func scanTransfer(s scanner) (*settlement.Transfer, error) {
	var p settlement.TransferParams

	var statusStr, receivingCurrency, amountCurrency string

	var amount int64

	var reason sql.NullString

	if err := s.Scan(
		&p.ID, &p.BatchID,
		&p.Account.ID, &p.Account.HolderID, &p.Account.BankName, &p.Account.AccountNumber,
		&receivingCurrency, &p.Account.Verified,
		&amount, &amountCurrency, &statusStr,
		&p.SentAt, &p.FailedAt, &reason, &p.CreatedAt,
	); err != nil {
		return nil, err
	}

	p.Account.Currency = money.Currency(receivingCurrency)
	p.Amount = money.New(amount, money.Currency(amountCurrency))
	p.Status = settlement.TransferStatus(statusStr)
	p.FailureReason = reason.String

	tr, err := settlement.BuildTransfer(p)
	if err != nil {
		return nil, fmt.Errorf("reconstituting transfer %s: %w", p.ID, err)
	}

	return tr, nil
}

func createTransfer(ctx context.Context, q querier, tr *settlement.Transfer) error {
	query := `
		INSERT INTO transfers
			(id, settlement_batch_id,
			 account_id, account_holder_id, bank_name, account_number,
			 receiving_currency, account_verified,
			 amount, currency, status,
			 sent_at, failed_at, failure_reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NULLIF($14, ''), NOW())
		RETURNING created_at
	`

	err := q.QueryRowContext(ctx, query,
		tr.ID, tr.BatchID,
		tr.Account.ID, tr.Account.HolderID, tr.Account.BankName, tr.Account.AccountNumber,
		tr.Account.Currency, tr.Account.Verified,
		tr.Amount.Amount, tr.Amount.Currency, tr.Status,
		tr.SentAt, tr.FailedAt, tr.FailureReason,
	).Scan(&tr.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating transfer: %w", err)
	}

	return nil
}

func getTransfer(ctx context.Context, q querier, id uuid.UUID) (*settlement.Transfer, error) {
	query := `SELECT ` + selectTransferColumns + ` FROM transfers t WHERE t.id = $1`

	tr, err := scanTransfer(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, settlement.ErrNotFound
		}

		return nil, fmt.Errorf("getting transfer: %w", err)
	}

	return tr, nil
}

func saveTransfer(ctx context.Context, q querier, tr *settlement.Transfer) error {
	query := `
		UPDATE transfers
		SET status = $1, sent_at = $2, failed_at = $3, failure_reason = NULLIF($4, '')
		WHERE id = $5
	`

	_, err := q.ExecContext(ctx, query,
		tr.Status, tr.SentAt, tr.FailedAt, tr.FailureReason, tr.ID,
	)
	if err != nil {
		return fmt.Errorf("saving transfer: %w", err)
	}

	return nil
}

func (s *Store) GetTransfer(ctx context.Context, id uuid.UUID) (*settlement.Transfer, error) {
	return getTransfer(ctx, s.db, id)
}

func (s *Store) GetTransferByBatch(ctx context.Context, batchID uuid.UUID) (*settlement.Transfer, error) {
	query := `SELECT ` + selectTransferColumns + ` FROM transfers t WHERE t.settlement_batch_id = $1`

	tr, err := scanTransfer(s.db.QueryRowContext(ctx, query, batchID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, settlement.ErrNotFound
		}

		return nil, fmt.Errorf("getting transfer by batch: %w", err)
	}

	return tr, nil
}

// payoutLockKey hashes a batch id into the key space of pg_advisory_xact_lock.
func payoutLockKey(batchID uuid.UUID) int64 {
	h := fnv.New64a()
	h.Write(batchID[:])

	return int64(h.Sum64())
}

type payoutTx struct {
	tx *sql.Tx
}

// BeginPayout opens a transaction holding an advisory lock on the batch so
// concurrent payout steps against the same batch serialize instead of
// racing load-mutate-save.
func (s *Store) BeginPayout(ctx context.Context, batchID uuid.UUID) (settlement.PayoutTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning payout tx: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock($1)", payoutLockKey(batchID)); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("acquiring payout lock: %w", err)
	}

	return &payoutTx{tx: tx}, nil
}

func (p *payoutTx) Commit() error   { return p.tx.Commit() }
func (p *payoutTx) Rollback() error { return p.tx.Rollback() }

func (p *payoutTx) GetBatch(ctx context.Context, id uuid.UUID) (*settlement.Batch, error) {
	return getBatch(ctx, p.tx, id)
}

func (p *payoutTx) SaveBatch(ctx context.Context, b *settlement.Batch) error {
	return saveBatch(ctx, p.tx, b)
}

func (p *payoutTx) CreateTransfer(ctx context.Context, tr *settlement.Transfer) error {
	return createTransfer(ctx, p.tx, tr)
}

func (p *payoutTx) GetTransfer(ctx context.Context, id uuid.UUID) (*settlement.Transfer, error) {
	return getTransfer(ctx, p.tx, id)
}

func (p *payoutTx) SaveTransfer(ctx context.Context, tr *settlement.Transfer) error {
	return saveTransfer(ctx, p.tx, tr)
}
