package transfer

import (
	"time"

	"github.com/google/uuid"

	"github.com/utapedia/backend/internal/money"
	"github.com/utapedia/backend/internal/settlement"
)

type transferResponse struct {
	ID            uuid.UUID                 `json:"id"`
	BatchID       uuid.UUID                 `json:"batch_id"`
	Amount        int64                     `json:"amount"`
	Currency      money.Currency            `json:"currency"`
	Status        settlement.TransferStatus `json:"status"`
	BankName      string                    `json:"bank_name"`
	AccountNumber string                    `json:"account_number"`
	SentAt        *time.Time                `json:"sent_at,omitempty"`
	FailedAt      *time.Time                `json:"failed_at,omitempty"`
	FailureReason string                    `json:"failure_reason,omitempty"`
	CreatedAt     time.Time                 `json:"created_at"`
}

func toResponse(t *settlement.Transfer) transferResponse {
	return transferResponse{
		ID:            t.ID,
		BatchID:       t.BatchID,
		Amount:        t.Amount.Amount,
		Currency:      t.Amount.Currency,
		Status:        t.Status,
		BankName:      t.Account.BankName,
		AccountNumber: t.Account.AccountNumber,
		SentAt:        t.SentAt,
		FailedAt:      t.FailedAt,
		FailureReason: t.FailureReason,
		CreatedAt:     t.CreatedAt,
	}
}
