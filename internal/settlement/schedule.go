package settlement

import (
	"time"

	"github.com/google/uuid"

	"github.com/utapedia/backend/internal/money"
)

// Interval is the payout cadence of a schedule.
type Interval string

const (
	IntervalMonthly  Interval = "monthly"
	IntervalBiweekly Interval = "biweekly"
	// IntervalThreshold triggers a payout when the account's available
	// balance reaches the configured threshold instead of on a calendar
	// cycle.
	IntervalThreshold Interval = "threshold"
)

// Schedule is the per-account configuration deciding when a settlement
// should occur. Calendar cadences (monthly, biweekly) pay out at
// anchor + payout delay; the threshold cadence pays out as soon as the
// available balance reaches the threshold.
//
// The cadence shape is fixed by the constructor used: NewCadenceSchedule
// never carries a threshold, NewThresholdSchedule never carries a delay.
type Schedule struct {
	ID        uuid.UUID
	AccountID uuid.UUID
	// Anchor is the next closing date for calendar cadences. For the
	// threshold cadence it is a fixed reference date only; due-ness is
	// decided by the balance alone.
	Anchor          time.Time
	Interval        Interval
	PayoutDelayDays int
	Threshold       *money.Money // set iff Interval == IntervalThreshold
	CreatedAt       time.Time
	UpdatedAt       *time.Time
}

// ScheduleParams carries every persisted field of a schedule for
// BuildSchedule.
type ScheduleParams struct {
	ID              uuid.UUID
	AccountID       uuid.UUID
	Anchor          time.Time
	Interval        Interval
	PayoutDelayDays int
	Threshold       *money.Money
	CreatedAt       time.Time
	UpdatedAt       *time.Time
}

// NewCadenceSchedule creates a monthly or biweekly schedule anchored at the
// given closing date, paying out payoutDelayDays after each anchor.
func NewCadenceSchedule(accountID uuid.UUID, interval Interval, anchor time.Time, payoutDelayDays int) (*Schedule, error) {
	if interval != IntervalMonthly && interval != IntervalBiweekly {
		return nil, validationf("schedule: %q is not a calendar cadence", interval)
	}

	return BuildSchedule(ScheduleParams{
		ID:              uuid.New(),
		AccountID:       accountID,
		Anchor:          anchor,
		Interval:        interval,
		PayoutDelayDays: payoutDelayDays,
	})
}

// NewThresholdSchedule creates a schedule that pays out when the account's
// available balance reaches threshold. Threshold payouts fire immediately
// on the balance crossing; there is no payout delay.
func NewThresholdSchedule(accountID uuid.UUID, anchor time.Time, threshold money.Money) (*Schedule, error) {
	return BuildSchedule(ScheduleParams{
		ID:        uuid.New(),
		AccountID: accountID,
		Anchor:    anchor,
		Interval:  IntervalThreshold,
		Threshold: &threshold,
	})
}

// BuildSchedule assembles a schedule from raw fields and validates the
// cadence invariants. Single construction path for new schedules and rows
// reconstituted from storage.
func BuildSchedule(p ScheduleParams) (*Schedule, error) {
	if p.ID == uuid.Nil {
		return nil, validationf("schedule: id is required")
	}

	if p.AccountID == uuid.Nil {
		return nil, validationf("schedule: account id is required")
	}

	if p.Anchor.IsZero() {
		return nil, validationf("schedule: anchor date is required")
	}

	if p.PayoutDelayDays < 0 {
		return nil, validationf("schedule: payout delay must not be negative")
	}

	switch p.Interval {
	case IntervalMonthly, IntervalBiweekly:
		if p.Threshold != nil {
			return nil, validationf("schedule: %s cadence must not have a threshold", p.Interval)
		}

	case IntervalThreshold:
		if p.Threshold == nil {
			return nil, validationf("schedule: threshold cadence requires a threshold amount")
		}

		if !p.Threshold.IsPositive() {
			return nil, validationf("schedule: threshold amount must be positive")
		}

		if p.PayoutDelayDays != 0 {
			return nil, validationf("schedule: threshold cadence must not have a payout delay")
		}

	default:
		return nil, validationf("schedule: unknown interval %q", p.Interval)
	}

	return &Schedule{
		ID:              p.ID,
		AccountID:       p.AccountID,
		Anchor:          p.Anchor,
		Interval:        p.Interval,
		PayoutDelayDays: p.PayoutDelayDays,
		Threshold:       p.Threshold,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}, nil
}

// NextPayoutDate returns the anchor date plus the payout delay. For the
// threshold cadence the anchor comes back unchanged; it is a reference
// date, not a due date, and due-ness must go through IsDue.
func (s *Schedule) NextPayoutDate() time.Time {
	return s.Anchor.AddDate(0, 0, s.PayoutDelayDays)
}

// IsDue reports whether a settlement should occur at now.
//
// Calendar cadences ignore available and are due once now reaches the next
// payout date (inclusive). The threshold cadence requires the caller to
// supply the account's available balance in the threshold currency and is
// due once the balance reaches the threshold (inclusive).
func (s *Schedule) IsDue(now time.Time, available *money.Money) (bool, error) {
	if s.Interval != IntervalThreshold {
		return !now.Before(s.NextPayoutDate()), nil
	}

	if available == nil {
		return false, validationf("schedule: threshold check requires an available balance")
	}

	cmp, err := available.Cmp(*s.Threshold)
	if err != nil {
		return false, validationf("schedule: balance in %s does not match threshold currency %s",
			available.Currency, s.Threshold.Currency)
	}

	return cmp >= 0, nil
}

// Advance moves the schedule to its next period after a successful
// settlement cycle: one calendar month for monthly, 14 days for biweekly.
// For the threshold cadence the anchor is not meaningful and Advance is a
// no-op; every threshold check stands on the current balance alone.
func (s *Schedule) Advance() {
	switch s.Interval {
	case IntervalMonthly:
		s.Anchor = s.Anchor.AddDate(0, 1, 0)
	case IntervalBiweekly:
		s.Anchor = s.Anchor.AddDate(0, 0, 14)
	case IntervalThreshold:
	}
}
