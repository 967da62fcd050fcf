package settlement_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utapedia/backend/internal/money"
	"github.com/utapedia/backend/internal/settlement"
)

func ts(y, m, d, h int) time.Time {
	return time.Date(y, time.Month(m), d, h, 0, 0, 0, time.UTC)
}

func pendingBatch(t *testing.T) *settlement.Batch {
	t.Helper()

	b, err := settlement.NewBatch(uuid.New(), money.JPY, ts(2024, 1, 1, 0), ts(2024, 1, 31, 0))
	require.NoError(t, err)

	return b
}

func TestNewBatch(t *testing.T) {
	b := pendingBatch(t)

	assert.Equal(t, settlement.BatchPending, b.Status)
	assert.Equal(t, money.Zero(money.JPY), b.Gross)
	assert.Equal(t, money.Zero(money.JPY), b.Fee)
	assert.Equal(t, money.Zero(money.JPY), b.Net())
	assert.Nil(t, b.ProcessedAt)
	assert.Nil(t, b.PaidAt)
	assert.Nil(t, b.FailedAt)
	assert.Empty(t, b.FailureReason)
}

func TestNewBatch_PeriodStartAfterEnd(t *testing.T) {
	_, err := settlement.NewBatch(uuid.New(), money.JPY, ts(2024, 2, 1, 0), ts(2024, 1, 31, 0))
	require.Error(t, err)

	var verr *settlement.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestBuildBatch_StatusTimestampTable(t *testing.T) {
	now := ts(2024, 2, 1, 12)

	type testCase struct {
		name        string
		status      settlement.BatchStatus
		processedAt *time.Time
		paidAt      *time.Time
		failedAt    *time.Time
		reason      string
		wantErr     bool
	}

	tests := []testCase{
		{name: "PendingClean", status: settlement.BatchPending},
		{name: "PendingWithProcessedAt", status: settlement.BatchPending, processedAt: &now, wantErr: true},
		{name: "PendingWithPaidAt", status: settlement.BatchPending, paidAt: &now, wantErr: true},
		{name: "PendingWithFailedAt", status: settlement.BatchPending, failedAt: &now, wantErr: true},
		{name: "PendingWithReason", status: settlement.BatchPending, reason: "boom", wantErr: true},

		{name: "ProcessingClean", status: settlement.BatchProcessing, processedAt: &now},
		{name: "ProcessingMissingProcessedAt", status: settlement.BatchProcessing, wantErr: true},
		{name: "ProcessingWithPaidAt", status: settlement.BatchProcessing, processedAt: &now, paidAt: &now, wantErr: true},
		{name: "ProcessingWithFailedAt", status: settlement.BatchProcessing, processedAt: &now, failedAt: &now, wantErr: true},
		{name: "ProcessingWithReason", status: settlement.BatchProcessing, processedAt: &now, reason: "boom", wantErr: true},

		{name: "PaidClean", status: settlement.BatchPaid, processedAt: &now, paidAt: &now},
		{name: "PaidMissingProcessedAt", status: settlement.BatchPaid, paidAt: &now, wantErr: true},
		{name: "PaidMissingPaidAt", status: settlement.BatchPaid, processedAt: &now, wantErr: true},
		{name: "PaidWithFailedAt", status: settlement.BatchPaid, processedAt: &now, paidAt: &now, failedAt: &now, wantErr: true},
		{name: "PaidWithReason", status: settlement.BatchPaid, processedAt: &now, paidAt: &now, reason: "boom", wantErr: true},

		{name: "FailedClean", status: settlement.BatchFailed, failedAt: &now, reason: "rail rejected"},
		{name: "FailedAfterProcessing", status: settlement.BatchFailed, processedAt: &now, failedAt: &now, reason: "rail rejected"},
		{name: "FailedMissingFailedAt", status: settlement.BatchFailed, reason: "rail rejected", wantErr: true},
		{name: "FailedMissingReason", status: settlement.BatchFailed, failedAt: &now, wantErr: true},
		{name: "FailedBlankReason", status: settlement.BatchFailed, failedAt: &now, reason: "   ", wantErr: true},
		{name: "FailedWithPaidAt", status: settlement.BatchFailed, failedAt: &now, paidAt: &now, reason: "rail rejected", wantErr: true},

		{name: "UnknownStatus", status: settlement.BatchStatus("settled"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := settlement.BuildBatch(settlement.BatchParams{
				ID:            uuid.New(),
				AccountID:     uuid.New(),
				Currency:      money.JPY,
				PeriodStart:   ts(2024, 1, 1, 0),
				PeriodEnd:     ts(2024, 1, 31, 0),
				Status:        tt.status,
				GrossAmount:   7000,
				FeeAmount:     700,
				ProcessedAt:   tt.processedAt,
				PaidAt:        tt.paidAt,
				FailedAt:      tt.failedAt,
				FailureReason: tt.reason,
			})

			if tt.wantErr {
				require.Error(t, err)

				var verr *settlement.ValidationError
				assert.ErrorAs(t, err, &verr)

				return
			}

			require.NoError(t, err)
		})
	}
}

func TestBuildBatch_FeeExceedsGross(t *testing.T) {
	_, err := settlement.BuildBatch(settlement.BatchParams{
		ID:          uuid.New(),
		AccountID:   uuid.New(),
		Currency:    money.JPY,
		PeriodStart: ts(2024, 1, 1, 0),
		PeriodEnd:   ts(2024, 1, 31, 0),
		Status:      settlement.BatchPending,
		GrossAmount: 1000,
		FeeAmount:   1001,
	})
	require.Error(t, err)

	var verr *settlement.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestBatch_RecordRevenueAndFees(t *testing.T) {
	b := pendingBatch(t)

	require.NoError(t, b.RecordRevenue(money.New(5000, money.JPY)))
	require.NoError(t, b.RecordRevenue(money.New(2000, money.JPY)))
	require.NoError(t, b.ApplyFee(money.New(700, money.JPY)))

	assert.Equal(t, money.New(7000, money.JPY), b.Gross)
	assert.Equal(t, money.New(700, money.JPY), b.Fee)
	assert.Equal(t, money.New(6300, money.JPY), b.Net())
}

func TestBatch_RecordRevenue_CurrencyMismatch(t *testing.T) {
	b := pendingBatch(t)

	err := b.RecordRevenue(money.New(5000, money.USD))
	require.Error(t, err)

	var verr *settlement.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.True(t, b.Gross.IsZero(), "failed call must not change the batch")
}

func TestBatch_ApplyFee_ExceedsGross(t *testing.T) {
	b := pendingBatch(t)
	require.NoError(t, b.RecordRevenue(money.New(1000, money.JPY)))

	err := b.ApplyFee(money.New(1500, money.JPY))
	require.Error(t, err)

	var verr *settlement.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.True(t, b.Fee.IsZero(), "failed call must not change the batch")

	// Right at the boundary is fine.
	require.NoError(t, b.ApplyFee(money.New(1000, money.JPY)))
	assert.True(t, b.Net().IsZero())
}

func TestBatch_ApplyFee_CurrencyMismatch(t *testing.T) {
	b := pendingBatch(t)
	require.NoError(t, b.RecordRevenue(money.New(1000, money.JPY)))

	err := b.ApplyFee(money.New(100, money.KRW))

	var verr *settlement.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestBatch_Lifecycle(t *testing.T) {
	b := pendingBatch(t)
	require.NoError(t, b.RecordRevenue(money.New(7000, money.JPY)))
	require.NoError(t, b.ApplyFee(money.New(700, money.JPY)))

	t1 := ts(2024, 2, 1, 9)
	t2 := ts(2024, 2, 1, 15)

	require.NoError(t, b.MarkProcessing(t1))
	assert.Equal(t, settlement.BatchProcessing, b.Status)
	require.NotNil(t, b.ProcessedAt)
	assert.Equal(t, t1, *b.ProcessedAt)

	require.NoError(t, b.MarkPaid(t2))
	assert.Equal(t, settlement.BatchPaid, b.Status)
	require.NotNil(t, b.PaidAt)
	assert.Equal(t, t2, *b.PaidAt)

	// Paid is terminal against failure.
	err := b.Fail("rail rejected", ts(2024, 2, 1, 16))
	require.Error(t, err)

	var terr *settlement.TransitionError
	assert.ErrorAs(t, err, &terr)
	assert.Equal(t, settlement.BatchPaid, b.Status)
}

func TestBatch_MarkProcessing_OnlyFromPending(t *testing.T) {
	b := pendingBatch(t)
	require.NoError(t, b.MarkProcessing(ts(2024, 2, 1, 9)))

	err := b.MarkProcessing(ts(2024, 2, 1, 10))
	require.Error(t, err)

	var terr *settlement.TransitionError
	assert.ErrorAs(t, err, &terr)
}

func TestBatch_MarkPaid_OnlyFromProcessing(t *testing.T) {
	b := pendingBatch(t)

	err := b.MarkPaid(ts(2024, 2, 1, 9))
	require.Error(t, err)

	var terr *settlement.TransitionError
	assert.ErrorAs(t, err, &terr)
}

func TestBatch_Fail_FromPendingAndProcessing(t *testing.T) {
	at := ts(2024, 2, 1, 9)

	pending := pendingBatch(t)
	require.NoError(t, pending.Fail("account closed", at))
	assert.Equal(t, settlement.BatchFailed, pending.Status)
	assert.Equal(t, "account closed", pending.FailureReason)
	assert.Nil(t, pending.ProcessedAt)

	processing := pendingBatch(t)
	require.NoError(t, processing.MarkProcessing(at))
	require.NoError(t, processing.Fail("rail rejected", at))
	assert.Equal(t, settlement.BatchFailed, processing.Status)
	assert.NotNil(t, processing.ProcessedAt)
}

func TestBatch_Fail_BlankReason(t *testing.T) {
	b := pendingBatch(t)

	err := b.Fail("   ", ts(2024, 2, 1, 9))
	require.Error(t, err)

	var verr *settlement.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, settlement.BatchPending, b.Status)
}

func TestBatch_NoMutationAfterPending(t *testing.T) {
	b := pendingBatch(t)
	require.NoError(t, b.RecordRevenue(money.New(1000, money.JPY)))
	require.NoError(t, b.MarkProcessing(ts(2024, 2, 1, 9)))

	var terr *settlement.TransitionError

	err := b.RecordRevenue(money.New(500, money.JPY))
	assert.ErrorAs(t, err, &terr)

	err = b.ApplyFee(money.New(100, money.JPY))
	assert.ErrorAs(t, err, &terr)
}
