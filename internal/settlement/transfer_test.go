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

func jpyAccount() settlement.BankAccount {
	return settlement.BankAccount{
		ID:            uuid.New(),
		HolderID:      uuid.New(),
		BankName:      "Mizuho",
		AccountNumber: "1234567",
		Currency:      money.JPY,
		Verified:      true,
	}
}

func TestNewTransfer(t *testing.T) {
	tr, err := settlement.NewTransfer(uuid.New(), jpyAccount(), money.New(1000, money.JPY))
	require.NoError(t, err)

	assert.Equal(t, settlement.TransferPending, tr.Status)
	assert.Equal(t, money.New(1000, money.JPY), tr.Amount)
	assert.Nil(t, tr.SentAt)
	assert.Nil(t, tr.FailedAt)
}

func TestNewTransfer_ReceivingCurrencyMismatch(t *testing.T) {
	account := jpyAccount()
	account.Currency = money.KRW

	_, err := settlement.NewTransfer(uuid.New(), account, money.New(1000, money.JPY))
	require.Error(t, err)

	var verr *settlement.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestTransfer_MarkSent(t *testing.T) {
	tr, err := settlement.NewTransfer(uuid.New(), jpyAccount(), money.New(1000, money.JPY))
	require.NoError(t, err)

	at := ts(2024, 2, 1, 15)
	require.NoError(t, tr.MarkSent(at))
	assert.Equal(t, settlement.TransferSent, tr.Status)
	require.NotNil(t, tr.SentAt)
	assert.Equal(t, at, *tr.SentAt)

	// Sent is terminal; marking twice fails.
	err = tr.MarkSent(ts(2024, 2, 1, 16))
	require.Error(t, err)

	var terr *settlement.TransitionError
	assert.ErrorAs(t, err, &terr)
}

func TestTransfer_MarkFailed(t *testing.T) {
	tr, err := settlement.NewTransfer(uuid.New(), jpyAccount(), money.New(1000, money.JPY))
	require.NoError(t, err)

	at := ts(2024, 2, 1, 15)
	require.NoError(t, tr.MarkFailed("account closed", at))
	assert.Equal(t, settlement.TransferFailed, tr.Status)
	assert.Equal(t, "account closed", tr.FailureReason)
	require.NotNil(t, tr.FailedAt)
	assert.Equal(t, at, *tr.FailedAt)

	var terr *settlement.TransitionError

	err = tr.MarkSent(at)
	assert.ErrorAs(t, err, &terr, "failed transfer cannot be sent")

	err = tr.MarkFailed("again", at)
	assert.ErrorAs(t, err, &terr, "failed transfer cannot fail twice")
}

func TestTransfer_MarkFailed_BlankReason(t *testing.T) {
	tr, err := settlement.NewTransfer(uuid.New(), jpyAccount(), money.New(1000, money.JPY))
	require.NoError(t, err)

	err = tr.MarkFailed("  ", ts(2024, 2, 1, 15))
	require.Error(t, err)

	var verr *settlement.ValidationError
	assert.ErrorAs(t, err, &verr)
	assert.Equal(t, settlement.TransferPending, tr.Status)
}

func TestTransfer_MarkSentAfterSentKeepsTimestamp(t *testing.T) {
	tr, err := settlement.NewTransfer(uuid.New(), jpyAccount(), money.New(1000, money.JPY))
	require.NoError(t, err)

	at := ts(2024, 2, 1, 15)
	require.NoError(t, tr.MarkSent(at))
	_ = tr.MarkSent(ts(2024, 2, 1, 18))

	assert.Equal(t, at, *tr.SentAt, "rejected call must not change the transfer")
}

func TestBuildTransfer_StatusTimestampTable(t *testing.T) {
	now := ts(2024, 2, 1, 15)

	type testCase struct {
		name     string
		status   settlement.TransferStatus
		sentAt   *time.Time
		failedAt *time.Time
		reason   string
		wantErr  bool
	}

	tests := []testCase{
		{name: "PendingClean", status: settlement.TransferPending},
		{name: "PendingWithSentAt", status: settlement.TransferPending, sentAt: &now, wantErr: true},
		{name: "PendingWithFailedAt", status: settlement.TransferPending, failedAt: &now, wantErr: true},
		{name: "PendingWithReason", status: settlement.TransferPending, reason: "boom", wantErr: true},

		{name: "SentClean", status: settlement.TransferSent, sentAt: &now},
		{name: "SentMissingSentAt", status: settlement.TransferSent, wantErr: true},
		{name: "SentWithFailedAt", status: settlement.TransferSent, sentAt: &now, failedAt: &now, wantErr: true},
		{name: "SentWithReason", status: settlement.TransferSent, sentAt: &now, reason: "boom", wantErr: true},

		{name: "FailedClean", status: settlement.TransferFailed, failedAt: &now, reason: "account closed"},
		{name: "FailedMissingFailedAt", status: settlement.TransferFailed, reason: "account closed", wantErr: true},
		{name: "FailedMissingReason", status: settlement.TransferFailed, failedAt: &now, wantErr: true},
		{name: "FailedWithSentAt", status: settlement.TransferFailed, sentAt: &now, failedAt: &now, reason: "account closed", wantErr: true},

		{name: "UnknownStatus", status: settlement.TransferStatus("done"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := settlement.BuildTransfer(settlement.TransferParams{
				ID:            uuid.New(),
				BatchID:       uuid.New(),
				Account:       jpyAccount(),
				Amount:        money.New(6300, money.JPY),
				Status:        tt.status,
				SentAt:        tt.sentAt,
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
