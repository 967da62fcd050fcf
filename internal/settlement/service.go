package settlement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/utapedia/backend/internal/money"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=settlement
type Repository interface {
	CreateBatch(ctx context.Context, b *Batch) error
	GetBatch(ctx context.Context, id uuid.UUID) (*Batch, error)
	SaveBatch(ctx context.Context, b *Batch) error
	ListBatches(ctx context.Context, filter BatchFilter) ([]*Batch, error)
	FindPendingBatch(ctx context.Context, accountID uuid.UUID) (*Batch, error)

	CreateSchedule(ctx context.Context, s *Schedule) error
	GetSchedule(ctx context.Context, id uuid.UUID) (*Schedule, error)
	GetScheduleByAccount(ctx context.Context, accountID uuid.UUID) (*Schedule, error)
	SaveSchedule(ctx context.Context, s *Schedule) error

	GetTransfer(ctx context.Context, id uuid.UUID) (*Transfer, error)
	GetTransferByBatch(ctx context.Context, batchID uuid.UUID) (*Transfer, error)

	BeginPayout(ctx context.Context, batchID uuid.UUID) (PayoutTx, error)
}

// PayoutTx is one payout step executed as a single storage transaction.
// The implementation must serialize concurrent payout steps against the
// same batch; the entities themselves carry no locking.
type PayoutTx interface {
	GetBatch(ctx context.Context, id uuid.UUID) (*Batch, error)
	SaveBatch(ctx context.Context, b *Batch) error
	CreateTransfer(ctx context.Context, t *Transfer) error
	GetTransfer(ctx context.Context, id uuid.UUID) (*Transfer, error)
	SaveTransfer(ctx context.Context, t *Transfer) error
	Commit() error
	Rollback() error
}

// AccountDirectory resolves the destination settlement account for a
// monetization account. Backed by the account service; out of scope here.
type AccountDirectory interface {
	Resolve(ctx context.Context, accountID uuid.UUID) (BankAccount, error)
}

// Ledger supplies the available balance used by threshold schedules.
type Ledger interface {
	AvailableBalance(ctx context.Context, accountID uuid.UUID, currency money.Currency) (money.Money, error)
}

// Service orchestrates the settlement cycle: opening batches, recording
// revenue, starting payouts and reflecting transfer outcomes back onto
// batches. Entities hold the invariants; the service sequences them and
// drives persistence.
type Service struct {
	repo      Repository
	directory AccountDirectory
	ledger    Ledger
}

func NewService(repo Repository, directory AccountDirectory, ledger Ledger) *Service {
	return &Service{repo: repo, directory: directory, ledger: ledger}
}

type CreateScheduleParams struct {
	AccountID       uuid.UUID
	Interval        Interval
	Anchor          time.Time
	PayoutDelayDays int
	Threshold       *money.Money
}

func (s *Service) CreateSchedule(ctx context.Context, params CreateScheduleParams) (*Schedule, error) {
	var (
		sched *Schedule
		err   error
	)

	if params.Interval == IntervalThreshold {
		if params.Threshold == nil {
			return nil, validationf("schedule: threshold cadence requires a threshold amount")
		}

		if params.PayoutDelayDays != 0 {
			return nil, validationf("schedule: threshold cadence must not have a payout delay")
		}

		sched, err = NewThresholdSchedule(params.AccountID, params.Anchor, *params.Threshold)
	} else {
		if params.Threshold != nil {
			return nil, validationf("schedule: %s cadence must not have a threshold", params.Interval)
		}

		sched, err = NewCadenceSchedule(params.AccountID, params.Interval, params.Anchor, params.PayoutDelayDays)
	}

	if err != nil {
		return nil, err
	}

	if err := s.repo.CreateSchedule(ctx, sched); err != nil {
		return nil, fmt.Errorf("creating schedule: %w", err)
	}

	return sched, nil
}

func (s *Service) GetSchedule(ctx context.Context, id uuid.UUID) (*Schedule, error) {
	return s.repo.GetSchedule(ctx, id)
}

func (s *Service) GetScheduleByAccount(ctx context.Context, accountID uuid.UUID) (*Schedule, error) {
	return s.repo.GetScheduleByAccount(ctx, accountID)
}

// CheckDue reports whether the schedule is due at now. For threshold
// schedules the account's available balance is fetched from the ledger in
// the threshold's currency.
func (s *Service) CheckDue(ctx context.Context, scheduleID uuid.UUID, now time.Time) (bool, error) {
	sched, err := s.repo.GetSchedule(ctx, scheduleID)
	if err != nil {
		return false, err
	}

	var available *money.Money

	if sched.Interval == IntervalThreshold {
		balance, err := s.ledger.AvailableBalance(ctx, sched.AccountID, sched.Threshold.Currency)
		if err != nil {
			return false, fmt.Errorf("fetching available balance: %w", err)
		}

		available = &balance
	}

	return sched.IsDue(now, available)
}

// AdvanceSchedule moves the schedule to its next period and persists it.
// Called by the payout job after a successful settlement cycle.
func (s *Service) AdvanceSchedule(ctx context.Context, scheduleID uuid.UUID) (*Schedule, error) {
	sched, err := s.repo.GetSchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	sched.Advance()

	if err := s.repo.SaveSchedule(ctx, sched); err != nil {
		return nil, fmt.Errorf("saving schedule: %w", err)
	}

	return sched, nil
}

type OpenBatchParams struct {
	AccountID   uuid.UUID
	Currency    money.Currency
	PeriodStart time.Time
	PeriodEnd   time.Time
}

// OpenBatch creates a Pending batch for one account and period.
func (s *Service) OpenBatch(ctx context.Context, params OpenBatchParams) (*Batch, error) {
	b, err := NewBatch(params.AccountID, params.Currency, params.PeriodStart, params.PeriodEnd)
	if err != nil {
		return nil, err
	}

	if err := s.repo.CreateBatch(ctx, b); err != nil {
		return nil, fmt.Errorf("creating batch: %w", err)
	}

	return b, nil
}

func (s *Service) GetBatch(ctx context.Context, id uuid.UUID) (*Batch, error) {
	return s.repo.GetBatch(ctx, id)
}

func (s *Service) ListBatches(ctx context.Context, filter BatchFilter) ([]*Batch, error) {
	return s.repo.ListBatches(ctx, filter)
}

// GetPendingBatch returns the account's open batch, the one revenue is
// currently being recorded into.
func (s *Service) GetPendingBatch(ctx context.Context, accountID uuid.UUID) (*Batch, error) {
	return s.repo.FindPendingBatch(ctx, accountID)
}

// BatchFilter narrows ListBatches. Nil fields match everything.
type BatchFilter struct {
	Status    *BatchStatus
	AccountID *uuid.UUID
}

// RecordRevenue adds a revenue amount to a pending batch's gross amount.
func (s *Service) RecordRevenue(ctx context.Context, batchID uuid.UUID, amount money.Money) (*Batch, error) {
	b, err := s.repo.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	if err := b.RecordRevenue(amount); err != nil {
		return nil, err
	}

	if err := s.repo.SaveBatch(ctx, b); err != nil {
		return nil, fmt.Errorf("saving batch: %w", err)
	}

	return b, nil
}

// ApplyFee adds a platform fee to a pending batch.
func (s *Service) ApplyFee(ctx context.Context, batchID uuid.UUID, amount money.Money) (*Batch, error) {
	b, err := s.repo.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	if err := b.ApplyFee(amount); err != nil {
		return nil, err
	}

	if err := s.repo.SaveBatch(ctx, b); err != nil {
		return nil, fmt.Errorf("saving batch: %w", err)
	}

	return b, nil
}

// RecordReport applies a parsed gateway report to a pending batch in one
// step: every revenue amount is recorded before any fee, regardless of the
// order the lines appeared in the file, and the batch is saved once. A
// rejected line means nothing is persisted, so re-uploading the same file
// never double-records the lines that came before it.
func (s *Service) RecordReport(ctx context.Context, batchID uuid.UUID, revenues, fees []money.Money) (*Batch, error) {
	b, err := s.repo.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	for _, amount := range revenues {
		if err := b.RecordRevenue(amount); err != nil {
			return nil, err
		}
	}

	for _, amount := range fees {
		if err := b.ApplyFee(amount); err != nil {
			return nil, err
		}
	}

	if err := s.repo.SaveBatch(ctx, b); err != nil {
		return nil, fmt.Errorf("saving batch: %w", err)
	}

	return b, nil
}

// StartPayout moves a pending batch to Processing and creates the Pending
// transfer of its net amount to the account's resolved settlement account.
// Both writes happen in one payout transaction.
func (s *Service) StartPayout(ctx context.Context, batchID uuid.UUID, at time.Time) (*Transfer, error) {
	ptx, err := s.repo.BeginPayout(ctx, batchID)
	if err != nil {
		return nil, fmt.Errorf("beginning payout: %w", err)
	}
	defer ptx.Rollback()

	b, err := ptx.GetBatch(ctx, batchID)
	if err != nil {
		return nil, err
	}

	if err := b.MarkProcessing(at); err != nil {
		return nil, err
	}

	net := b.Net()
	if !net.IsPositive() {
		return nil, validationf("batch: nothing to pay out, net amount is %s", net)
	}

	account, err := s.directory.Resolve(ctx, b.AccountID)
	if err != nil {
		return nil, fmt.Errorf("resolving settlement account: %w", err)
	}

	if !account.Verified {
		return nil, validationf("batch: settlement account %s is not verified", account.ID)
	}

	transfer, err := NewTransfer(b.ID, account, net)
	if err != nil {
		return nil, err
	}

	if err := ptx.SaveBatch(ctx, b); err != nil {
		return nil, fmt.Errorf("saving batch: %w", err)
	}

	if err := ptx.CreateTransfer(ctx, transfer); err != nil {
		return nil, fmt.Errorf("creating transfer: %w", err)
	}

	if err := ptx.Commit(); err != nil {
		return nil, fmt.Errorf("committing payout: %w", err)
	}

	return transfer, nil
}

// SettleTransfer records the bank rail's success: the transfer is marked
// Sent and its batch Paid, in one payout transaction.
func (s *Service) SettleTransfer(ctx context.Context, transferID uuid.UUID, at time.Time) (*Transfer, error) {
	transfer, err := s.repo.GetTransfer(ctx, transferID)
	if err != nil {
		return nil, err
	}

	ptx, err := s.repo.BeginPayout(ctx, transfer.BatchID)
	if err != nil {
		return nil, fmt.Errorf("beginning payout: %w", err)
	}
	defer ptx.Rollback()

	// Re-read inside the transaction; the first read was only to learn
	// the batch id.
	transfer, err = ptx.GetTransfer(ctx, transferID)
	if err != nil {
		return nil, err
	}

	if err := transfer.MarkSent(at); err != nil {
		return nil, err
	}

	b, err := ptx.GetBatch(ctx, transfer.BatchID)
	if err != nil {
		return nil, err
	}

	if err := b.MarkPaid(at); err != nil {
		return nil, err
	}

	if err := ptx.SaveTransfer(ctx, transfer); err != nil {
		return nil, fmt.Errorf("saving transfer: %w", err)
	}

	if err := ptx.SaveBatch(ctx, b); err != nil {
		return nil, fmt.Errorf("saving batch: %w", err)
	}

	if err := ptx.Commit(); err != nil {
		return nil, fmt.Errorf("committing payout: %w", err)
	}

	return transfer, nil
}

// FailTransfer records the bank rail's failure: the transfer is marked
// Failed and its batch Failed with the same reason, in one payout
// transaction.
func (s *Service) FailTransfer(ctx context.Context, transferID uuid.UUID, reason string, at time.Time) (*Transfer, error) {
	transfer, err := s.repo.GetTransfer(ctx, transferID)
	if err != nil {
		return nil, err
	}

	ptx, err := s.repo.BeginPayout(ctx, transfer.BatchID)
	if err != nil {
		return nil, fmt.Errorf("beginning payout: %w", err)
	}
	defer ptx.Rollback()

	transfer, err = ptx.GetTransfer(ctx, transferID)
	if err != nil {
		return nil, err
	}

	if err := transfer.MarkFailed(reason, at); err != nil {
		return nil, err
	}

	b, err := ptx.GetBatch(ctx, transfer.BatchID)
	if err != nil {
		return nil, err
	}

	if err := b.Fail(reason, at); err != nil {
		return nil, err
	}

	if err := ptx.SaveTransfer(ctx, transfer); err != nil {
		return nil, fmt.Errorf("saving transfer: %w", err)
	}

	if err := ptx.SaveBatch(ctx, b); err != nil {
		return nil, fmt.Errorf("saving batch: %w", err)
	}

	if err := ptx.Commit(); err != nil {
		return nil, fmt.Errorf("committing payout: %w", err)
	}

	return transfer, nil
}

func (s *Service) GetTransfer(ctx context.Context, id uuid.UUID) (*Transfer, error) {
	return s.repo.GetTransfer(ctx, id)
}

func (s *Service) GetTransferForBatch(ctx context.Context, batchID uuid.UUID) (*Transfer, error) {
	return s.repo.GetTransferByBatch(ctx, batchID)
}
