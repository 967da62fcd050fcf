package settlement_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/utapedia/backend/internal/money"
	"github.com/utapedia/backend/internal/settlement"
)

type serviceMocks struct {
	repo      *settlement.MockRepository
	directory *settlement.MockAccountDirectory
	ledger    *settlement.MockLedger
}

func newService(t *testing.T) (*settlement.Service, serviceMocks) {
	t.Helper()

	ctrl := gomock.NewController(t)

	m := serviceMocks{
		repo:      settlement.NewMockRepository(ctrl),
		directory: settlement.NewMockAccountDirectory(ctrl),
		ledger:    settlement.NewMockLedger(ctrl),
	}

	return settlement.NewService(m.repo, m.directory, m.ledger), m
}

func TestService_CreateSchedule(t *testing.T) {
	threshold := money.New(5000, money.JPY)

	type testCase struct {
		name      string
		params    settlement.CreateScheduleParams
		setupMock func(m serviceMocks)
		wantErr   bool
	}

	tests := []testCase{
		{
			name: "Monthly",
			params: settlement.CreateScheduleParams{
				AccountID:       uuid.New(),
				Interval:        settlement.IntervalMonthly,
				Anchor:          date(2024, 1, 10),
				PayoutDelayDays: 5,
			},
			setupMock: func(m serviceMocks) {
				m.repo.EXPECT().CreateSchedule(gomock.Any(), gomock.Any()).Return(nil)
			},
		},
		{
			name: "Threshold",
			params: settlement.CreateScheduleParams{
				AccountID: uuid.New(),
				Interval:  settlement.IntervalThreshold,
				Anchor:    date(2024, 1, 10),
				Threshold: &threshold,
			},
			setupMock: func(m serviceMocks) {
				m.repo.EXPECT().CreateSchedule(gomock.Any(), gomock.Any()).Return(nil)
			},
		},
		{
			name: "ThresholdWithDelayRejected",
			params: settlement.CreateScheduleParams{
				AccountID:       uuid.New(),
				Interval:        settlement.IntervalThreshold,
				Anchor:          date(2024, 1, 10),
				PayoutDelayDays: 5,
				Threshold:       &threshold,
			},
			wantErr: true,
		},
		{
			name: "MonthlyWithThresholdRejected",
			params: settlement.CreateScheduleParams{
				AccountID: uuid.New(),
				Interval:  settlement.IntervalMonthly,
				Anchor:    date(2024, 1, 10),
				Threshold: &threshold,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newService(t)
			if tt.setupMock != nil {
				tt.setupMock(m)
			}

			got, err := svc.CreateSchedule(context.Background(), tt.params)

			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, got.ID)
			assert.Equal(t, tt.params.Interval, got.Interval)
		})
	}
}

func TestService_CheckDue_Threshold(t *testing.T) {
	svc, m := newService(t)

	accountID := uuid.New()
	sched, err := settlement.NewThresholdSchedule(accountID, date(2024, 1, 10), money.New(5000, money.JPY))
	require.NoError(t, err)

	m.repo.EXPECT().GetSchedule(gomock.Any(), sched.ID).Return(sched, nil)
	m.ledger.EXPECT().
		AvailableBalance(gomock.Any(), accountID, money.JPY).
		Return(money.New(6000, money.JPY), nil)

	due, err := svc.CheckDue(context.Background(), sched.ID, time.Now())
	require.NoError(t, err)
	assert.True(t, due)
}

func TestService_CheckDue_CadenceSkipsLedger(t *testing.T) {
	svc, m := newService(t)

	sched, err := settlement.NewCadenceSchedule(uuid.New(), settlement.IntervalMonthly, date(2024, 1, 10), 5)
	require.NoError(t, err)

	m.repo.EXPECT().GetSchedule(gomock.Any(), sched.ID).Return(sched, nil)

	due, err := svc.CheckDue(context.Background(), sched.ID, date(2024, 1, 14))
	require.NoError(t, err)
	assert.False(t, due)
}

func TestService_AdvanceSchedule(t *testing.T) {
	svc, m := newService(t)

	sched, err := settlement.NewCadenceSchedule(uuid.New(), settlement.IntervalBiweekly, date(2024, 1, 10), 5)
	require.NoError(t, err)

	m.repo.EXPECT().GetSchedule(gomock.Any(), sched.ID).Return(sched, nil)
	m.repo.EXPECT().SaveSchedule(gomock.Any(), sched).Return(nil)

	got, err := svc.AdvanceSchedule(context.Background(), sched.ID)
	require.NoError(t, err)
	assert.Equal(t, date(2024, 1, 24), got.Anchor)
}

func TestService_OpenBatch(t *testing.T) {
	svc, m := newService(t)

	m.repo.EXPECT().CreateBatch(gomock.Any(), gomock.Any()).Return(nil)

	b, err := svc.OpenBatch(context.Background(), settlement.OpenBatchParams{
		AccountID:   uuid.New(),
		Currency:    money.JPY,
		PeriodStart: date(2024, 1, 1),
		PeriodEnd:   date(2024, 1, 31),
	})
	require.NoError(t, err)
	assert.Equal(t, settlement.BatchPending, b.Status)
}

func TestService_RecordRevenue(t *testing.T) {
	svc, m := newService(t)

	b, err := settlement.NewBatch(uuid.New(), money.JPY, date(2024, 1, 1), date(2024, 1, 31))
	require.NoError(t, err)

	m.repo.EXPECT().GetBatch(gomock.Any(), b.ID).Return(b, nil)
	m.repo.EXPECT().SaveBatch(gomock.Any(), b).Return(nil)

	got, err := svc.RecordRevenue(context.Background(), b.ID, money.New(5000, money.JPY))
	require.NoError(t, err)
	assert.Equal(t, money.New(5000, money.JPY), got.Gross)
}

func TestService_RecordRevenue_CurrencyMismatchDoesNotSave(t *testing.T) {
	svc, m := newService(t)

	b, err := settlement.NewBatch(uuid.New(), money.JPY, date(2024, 1, 1), date(2024, 1, 31))
	require.NoError(t, err)

	m.repo.EXPECT().GetBatch(gomock.Any(), b.ID).Return(b, nil)

	_, err = svc.RecordRevenue(context.Background(), b.ID, money.New(5000, money.USD))
	require.Error(t, err)

	var verr *settlement.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestService_RecordReport_FeeBeforeRevenueInFile(t *testing.T) {
	svc, m := newService(t)

	b, err := settlement.NewBatch(uuid.New(), money.JPY, date(2024, 1, 1), date(2024, 1, 31))
	require.NoError(t, err)

	m.repo.EXPECT().GetBatch(gomock.Any(), b.ID).Return(b, nil)
	m.repo.EXPECT().SaveBatch(gomock.Any(), b).Return(nil)

	// A month-start system-fee debit sorts before the month's revenue in
	// the export; revenue must still land first so the fee has gross to
	// draw against.
	got, err := svc.RecordReport(context.Background(), b.ID,
		[]money.Money{money.New(8500, money.JPY)},
		[]money.Money{money.New(700, money.JPY)},
	)
	require.NoError(t, err)

	assert.Equal(t, money.New(8500, money.JPY), got.Gross)
	assert.Equal(t, money.New(700, money.JPY), got.Fee)
	assert.Equal(t, money.New(7800, money.JPY), got.Net())
}

func TestService_RecordReport_RejectedLineSavesNothing(t *testing.T) {
	svc, m := newService(t)

	b, err := settlement.NewBatch(uuid.New(), money.JPY, date(2024, 1, 1), date(2024, 1, 31))
	require.NoError(t, err)

	// No SaveBatch expectation: a fee exceeding the file's revenue must
	// leave the batch row untouched so the upload can be retried whole.
	m.repo.EXPECT().GetBatch(gomock.Any(), b.ID).Return(b, nil)

	_, err = svc.RecordReport(context.Background(), b.ID,
		[]money.Money{money.New(500, money.JPY)},
		[]money.Money{money.New(700, money.JPY)},
	)
	require.Error(t, err)

	var verr *settlement.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func payableBatch(t *testing.T, accountID uuid.UUID) *settlement.Batch {
	t.Helper()

	b, err := settlement.NewBatch(accountID, money.JPY, date(2024, 1, 1), date(2024, 1, 31))
	require.NoError(t, err)
	require.NoError(t, b.RecordRevenue(money.New(7000, money.JPY)))
	require.NoError(t, b.ApplyFee(money.New(700, money.JPY)))

	return b
}

func TestService_StartPayout(t *testing.T) {
	svc, m := newService(t)
	ctrl := gomock.NewController(t)
	ptx := settlement.NewMockPayoutTx(ctrl)

	accountID := uuid.New()
	b := payableBatch(t, accountID)
	at := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)

	account := settlement.BankAccount{
		ID:            uuid.New(),
		HolderID:      uuid.New(),
		BankName:      "Mizuho",
		AccountNumber: "1234567",
		Currency:      money.JPY,
		Verified:      true,
	}

	m.repo.EXPECT().BeginPayout(gomock.Any(), b.ID).Return(ptx, nil)
	ptx.EXPECT().GetBatch(gomock.Any(), b.ID).Return(b, nil)
	m.directory.EXPECT().Resolve(gomock.Any(), accountID).Return(account, nil)
	ptx.EXPECT().SaveBatch(gomock.Any(), b).Return(nil)
	ptx.EXPECT().CreateTransfer(gomock.Any(), gomock.Any()).Return(nil)
	ptx.EXPECT().Commit().Return(nil)
	ptx.EXPECT().Rollback().Return(nil)

	transfer, err := svc.StartPayout(context.Background(), b.ID, at)
	require.NoError(t, err)

	assert.Equal(t, settlement.BatchProcessing, b.Status)
	assert.Equal(t, settlement.TransferPending, transfer.Status)
	assert.Equal(t, money.New(6300, money.JPY), transfer.Amount)
	assert.Equal(t, b.ID, transfer.BatchID)
	assert.Equal(t, account.ID, transfer.Account.ID)
}

func TestService_StartPayout_UnverifiedAccount(t *testing.T) {
	svc, m := newService(t)
	ctrl := gomock.NewController(t)
	ptx := settlement.NewMockPayoutTx(ctrl)

	accountID := uuid.New()
	b := payableBatch(t, accountID)

	account := settlement.BankAccount{
		ID:       uuid.New(),
		Currency: money.JPY,
		Verified: false,
	}

	m.repo.EXPECT().BeginPayout(gomock.Any(), b.ID).Return(ptx, nil)
	ptx.EXPECT().GetBatch(gomock.Any(), b.ID).Return(b, nil)
	m.directory.EXPECT().Resolve(gomock.Any(), accountID).Return(account, nil)
	ptx.EXPECT().Rollback().Return(nil)

	_, err := svc.StartPayout(context.Background(), b.ID, time.Now())
	require.Error(t, err)

	var verr *settlement.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestService_StartPayout_NothingToPay(t *testing.T) {
	svc, m := newService(t)
	ctrl := gomock.NewController(t)
	ptx := settlement.NewMockPayoutTx(ctrl)

	b, err := settlement.NewBatch(uuid.New(), money.JPY, date(2024, 1, 1), date(2024, 1, 31))
	require.NoError(t, err)

	m.repo.EXPECT().BeginPayout(gomock.Any(), b.ID).Return(ptx, nil)
	ptx.EXPECT().GetBatch(gomock.Any(), b.ID).Return(b, nil)
	ptx.EXPECT().Rollback().Return(nil)

	_, err = svc.StartPayout(context.Background(), b.ID, time.Now())
	require.Error(t, err)

	var verr *settlement.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestService_StartPayout_AlreadyProcessing(t *testing.T) {
	svc, m := newService(t)
	ctrl := gomock.NewController(t)
	ptx := settlement.NewMockPayoutTx(ctrl)

	b := payableBatch(t, uuid.New())
	require.NoError(t, b.MarkProcessing(time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)))

	m.repo.EXPECT().BeginPayout(gomock.Any(), b.ID).Return(ptx, nil)
	ptx.EXPECT().GetBatch(gomock.Any(), b.ID).Return(b, nil)
	ptx.EXPECT().Rollback().Return(nil)

	_, err := svc.StartPayout(context.Background(), b.ID, time.Now())
	require.Error(t, err)

	var terr *settlement.TransitionError
	assert.ErrorAs(t, err, &terr)
}

func TestService_SettleTransfer(t *testing.T) {
	svc, m := newService(t)
	ctrl := gomock.NewController(t)
	ptx := settlement.NewMockPayoutTx(ctrl)

	b := payableBatch(t, uuid.New())
	require.NoError(t, b.MarkProcessing(time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)))

	transfer, err := settlement.NewTransfer(b.ID, settlement.BankAccount{
		ID:       uuid.New(),
		Currency: money.JPY,
		Verified: true,
	}, b.Net())
	require.NoError(t, err)

	at := time.Date(2024, 2, 1, 15, 0, 0, 0, time.UTC)

	m.repo.EXPECT().GetTransfer(gomock.Any(), transfer.ID).Return(transfer, nil)
	m.repo.EXPECT().BeginPayout(gomock.Any(), b.ID).Return(ptx, nil)
	ptx.EXPECT().GetTransfer(gomock.Any(), transfer.ID).Return(transfer, nil)
	ptx.EXPECT().GetBatch(gomock.Any(), b.ID).Return(b, nil)
	ptx.EXPECT().SaveTransfer(gomock.Any(), transfer).Return(nil)
	ptx.EXPECT().SaveBatch(gomock.Any(), b).Return(nil)
	ptx.EXPECT().Commit().Return(nil)
	ptx.EXPECT().Rollback().Return(nil)

	got, err := svc.SettleTransfer(context.Background(), transfer.ID, at)
	require.NoError(t, err)

	assert.Equal(t, settlement.TransferSent, got.Status)
	assert.Equal(t, at, *got.SentAt)
	assert.Equal(t, settlement.BatchPaid, b.Status)
	assert.Equal(t, at, *b.PaidAt)
}

func TestService_FailTransfer(t *testing.T) {
	svc, m := newService(t)
	ctrl := gomock.NewController(t)
	ptx := settlement.NewMockPayoutTx(ctrl)

	b := payableBatch(t, uuid.New())
	require.NoError(t, b.MarkProcessing(time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)))

	transfer, err := settlement.NewTransfer(b.ID, settlement.BankAccount{
		ID:       uuid.New(),
		Currency: money.JPY,
		Verified: true,
	}, b.Net())
	require.NoError(t, err)

	at := time.Date(2024, 2, 1, 15, 0, 0, 0, time.UTC)

	m.repo.EXPECT().GetTransfer(gomock.Any(), transfer.ID).Return(transfer, nil)
	m.repo.EXPECT().BeginPayout(gomock.Any(), b.ID).Return(ptx, nil)
	ptx.EXPECT().GetTransfer(gomock.Any(), transfer.ID).Return(transfer, nil)
	ptx.EXPECT().GetBatch(gomock.Any(), b.ID).Return(b, nil)
	ptx.EXPECT().SaveTransfer(gomock.Any(), transfer).Return(nil)
	ptx.EXPECT().SaveBatch(gomock.Any(), b).Return(nil)
	ptx.EXPECT().Commit().Return(nil)
	ptx.EXPECT().Rollback().Return(nil)

	got, err := svc.FailTransfer(context.Background(), transfer.ID, "account closed", at)
	require.NoError(t, err)

	assert.Equal(t, settlement.TransferFailed, got.Status)
	assert.Equal(t, "account closed", got.FailureReason)
	assert.Equal(t, settlement.BatchFailed, b.Status)
	assert.Equal(t, "account closed", b.FailureReason)
}

func TestService_RecordRevenue_NotFound(t *testing.T) {
	svc, m := newService(t)

	id := uuid.New()
	m.repo.EXPECT().GetBatch(gomock.Any(), id).Return(nil, settlement.ErrNotFound)

	_, err := svc.RecordRevenue(context.Background(), id, money.New(100, money.JPY))
	assert.ErrorIs(t, err, settlement.ErrNotFound)
}

func TestService_StartPayout_BeginError(t *testing.T) {
	svc, m := newService(t)

	id := uuid.New()
	m.repo.EXPECT().BeginPayout(gomock.Any(), id).Return(nil, errors.New("db down"))

	_, err := svc.StartPayout(context.Background(), id, time.Now())
	assert.Error(t, err)
}
