package settlement

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/utapedia/backend/internal/money"
)

// BatchStatus is the lifecycle state of a settlement batch.
type BatchStatus string

const (
	BatchPending    BatchStatus = "pending"
	BatchProcessing BatchStatus = "processing"
	BatchPaid       BatchStatus = "paid"
	BatchFailed     BatchStatus = "failed"
)

// Batch aggregates one monetization account's revenue and fees over one
// period into gross/fee/net amounts and drives the payout state machine:
//
//	Pending -> Processing -> Paid | Failed
//
// Paid and Failed are terminal. Batches are never deleted; they remain as
// audit records. All mutation goes through the methods below, which either
// commit the whole change or leave the batch untouched and return an error.
type Batch struct {
	ID            uuid.UUID
	AccountID     uuid.UUID // monetization account the batch pays out
	Currency      money.Currency
	PeriodStart   time.Time
	PeriodEnd     time.Time
	Status        BatchStatus
	Gross         money.Money
	Fee           money.Money
	ProcessedAt   *time.Time
	PaidAt        *time.Time
	FailedAt      *time.Time
	FailureReason string
	CreatedAt     time.Time
	UpdatedAt     *time.Time
}

// BatchParams carries every persisted field of a batch for BuildBatch.
type BatchParams struct {
	ID            uuid.UUID
	AccountID     uuid.UUID
	Currency      money.Currency
	PeriodStart   time.Time
	PeriodEnd     time.Time
	Status        BatchStatus
	GrossAmount   int64
	FeeAmount     int64
	ProcessedAt   *time.Time
	PaidAt        *time.Time
	FailedAt      *time.Time
	FailureReason string
	CreatedAt     time.Time
	UpdatedAt     *time.Time
}

// NewBatch creates a Pending batch for one account and period with zero
// gross and fee amounts.
func NewBatch(accountID uuid.UUID, currency money.Currency, periodStart, periodEnd time.Time) (*Batch, error) {
	return BuildBatch(BatchParams{
		ID:          uuid.New(),
		AccountID:   accountID,
		Currency:    currency,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		Status:      BatchPending,
	})
}

// BuildBatch assembles a batch from raw fields and validates the full
// invariant set, including the status/timestamp table. It is the single
// construction path for both new batches and rows reconstituted from
// storage.
func BuildBatch(p BatchParams) (*Batch, error) {
	if p.ID == uuid.Nil {
		return nil, validationf("batch: id is required")
	}

	if p.AccountID == uuid.Nil {
		return nil, validationf("batch: account id is required")
	}

	if p.Currency == "" {
		return nil, validationf("batch: currency is required")
	}

	if p.PeriodStart.After(p.PeriodEnd) {
		return nil, validationf("batch: period start %s is after period end %s",
			p.PeriodStart.Format(time.DateOnly), p.PeriodEnd.Format(time.DateOnly))
	}

	if p.GrossAmount < 0 {
		return nil, validationf("batch: gross amount must not be negative")
	}

	if p.FeeAmount < 0 {
		return nil, validationf("batch: fee amount must not be negative")
	}

	if p.FeeAmount > p.GrossAmount {
		return nil, validationf("batch: fee amount %d exceeds gross amount %d", p.FeeAmount, p.GrossAmount)
	}

	if err := validateBatchStatus(p); err != nil {
		return nil, err
	}

	return &Batch{
		ID:            p.ID,
		AccountID:     p.AccountID,
		Currency:      p.Currency,
		PeriodStart:   p.PeriodStart,
		PeriodEnd:     p.PeriodEnd,
		Status:        p.Status,
		Gross:         money.New(p.GrossAmount, p.Currency),
		Fee:           money.New(p.FeeAmount, p.Currency),
		ProcessedAt:   p.ProcessedAt,
		PaidAt:        p.PaidAt,
		FailedAt:      p.FailedAt,
		FailureReason: strings.TrimSpace(p.FailureReason),
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}, nil
}

// validateBatchStatus enforces the status/timestamp consistency table.
// Every status constrains which timestamps and which failure reason may be
// present; any combination outside the table is rejected.
func validateBatchStatus(p BatchParams) error {
	switch p.Status {
	case BatchPending:
		if p.ProcessedAt != nil {
			return validationf("batch: pending batch must not have processed_at")
		}

		if p.PaidAt != nil {
			return validationf("batch: pending batch must not have paid_at")
		}

		if p.FailedAt != nil {
			return validationf("batch: pending batch must not have failed_at")
		}

		if strings.TrimSpace(p.FailureReason) != "" {
			return validationf("batch: pending batch must not have a failure reason")
		}

	case BatchProcessing:
		if p.ProcessedAt == nil {
			return validationf("batch: processing batch requires processed_at")
		}

		if p.PaidAt != nil {
			return validationf("batch: processing batch must not have paid_at")
		}

		if p.FailedAt != nil {
			return validationf("batch: processing batch must not have failed_at")
		}

		if strings.TrimSpace(p.FailureReason) != "" {
			return validationf("batch: processing batch must not have a failure reason")
		}

	case BatchPaid:
		if p.ProcessedAt == nil {
			return validationf("batch: paid batch requires processed_at")
		}

		if p.PaidAt == nil {
			return validationf("batch: paid batch requires paid_at")
		}

		if p.FailedAt != nil {
			return validationf("batch: paid batch must not have failed_at")
		}

		if strings.TrimSpace(p.FailureReason) != "" {
			return validationf("batch: paid batch must not have a failure reason")
		}

	case BatchFailed:
		// processed_at may be present or absent: a batch can fail before
		// or after processing started.
		if p.PaidAt != nil {
			return validationf("batch: failed batch must not have paid_at")
		}

		if p.FailedAt == nil {
			return validationf("batch: failed batch requires failed_at")
		}

		if strings.TrimSpace(p.FailureReason) == "" {
			return validationf("batch: failed batch requires a failure reason")
		}

	default:
		return validationf("batch: unknown status %q", p.Status)
	}

	return nil
}

// Net returns gross minus fee in the batch's currency.
func (b *Batch) Net() money.Money {
	return money.New(b.Gross.Amount-b.Fee.Amount, b.Currency)
}

// RecordRevenue adds amount to the batch's gross amount. The amount must be
// in the batch's currency, and revenue can only be recorded while the batch
// is still Pending.
func (b *Batch) RecordRevenue(amount money.Money) error {
	if b.Status != BatchPending {
		return &TransitionError{Entity: "batch " + b.ID.String(), State: string(b.Status), Op: "record revenue"}
	}

	gross, err := b.Gross.Add(amount)
	if err != nil {
		return validationf("batch: revenue amount in %s does not match batch currency %s", amount.Currency, b.Currency)
	}

	if gross.Amount < b.Fee.Amount {
		return validationf("batch: recording %s would put gross below the applied fees", amount)
	}

	b.Gross = gross

	return nil
}

// ApplyFee adds amount to the batch's fee amount. The amount must be in the
// batch's currency and the resulting fee must not exceed the gross amount.
// Like revenue, fees are only applied while the batch is Pending.
func (b *Batch) ApplyFee(amount money.Money) error {
	if b.Status != BatchPending {
		return &TransitionError{Entity: "batch " + b.ID.String(), State: string(b.Status), Op: "apply fee"}
	}

	fee, err := b.Fee.Add(amount)
	if err != nil {
		return validationf("batch: fee amount in %s does not match batch currency %s", amount.Currency, b.Currency)
	}

	if fee.Amount > b.Gross.Amount {
		return validationf("batch: fee %s would exceed gross amount %s", fee, b.Gross)
	}

	b.Fee = fee

	return nil
}

// MarkProcessing moves a Pending batch to Processing at the given time.
func (b *Batch) MarkProcessing(at time.Time) error {
	if b.Status != BatchPending {
		return &TransitionError{Entity: "batch " + b.ID.String(), State: string(b.Status), Op: "mark processing"}
	}

	if at.IsZero() {
		return validationf("batch: processed_at is required")
	}

	b.Status = BatchProcessing
	b.ProcessedAt = &at

	return nil
}

// MarkPaid moves a Processing batch to Paid at the given time.
func (b *Batch) MarkPaid(at time.Time) error {
	if b.Status != BatchProcessing {
		return &TransitionError{Entity: "batch " + b.ID.String(), State: string(b.Status), Op: "mark paid"}
	}

	if at.IsZero() {
		return validationf("batch: paid_at is required")
	}

	b.Status = BatchPaid
	b.PaidAt = &at

	return nil
}

// Fail moves the batch to Failed with a reason. A batch can fail from any
// state except Paid; once money has gone out, failure is no longer
// representable.
func (b *Batch) Fail(reason string, at time.Time) error {
	if b.Status == BatchPaid {
		return &TransitionError{Entity: "batch " + b.ID.String(), State: string(b.Status), Op: "fail"}
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return validationf("batch: failure reason must not be blank")
	}

	if at.IsZero() {
		return validationf("batch: failed_at is required")
	}

	b.Status = BatchFailed
	b.FailureReason = reason
	b.FailedAt = &at

	return nil
}
