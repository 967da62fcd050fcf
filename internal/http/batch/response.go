package batch

import (
	"time"

	"github.com/google/uuid"

	"github.com/utapedia/backend/internal/money"
	"github.com/utapedia/backend/internal/settlement"
)

type batchResponse struct {
	ID            uuid.UUID              `json:"id"`
	AccountID     uuid.UUID              `json:"account_id"`
	Currency      money.Currency         `json:"currency"`
	PeriodStart   time.Time              `json:"period_start"`
	PeriodEnd     time.Time              `json:"period_end"`
	Status        settlement.BatchStatus `json:"status"`
	GrossAmount   int64                  `json:"gross_amount"`
	FeeAmount     int64                  `json:"fee_amount"`
	NetAmount     int64                  `json:"net_amount"`
	ProcessedAt   *time.Time             `json:"processed_at,omitempty"`
	PaidAt        *time.Time             `json:"paid_at,omitempty"`
	FailedAt      *time.Time             `json:"failed_at,omitempty"`
	FailureReason string                 `json:"failure_reason,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     *time.Time             `json:"updated_at,omitempty"`
}

func toResponse(b *settlement.Batch) batchResponse {
	return batchResponse{
		ID:            b.ID,
		AccountID:     b.AccountID,
		Currency:      b.Currency,
		PeriodStart:   b.PeriodStart,
		PeriodEnd:     b.PeriodEnd,
		Status:        b.Status,
		GrossAmount:   b.Gross.Amount,
		FeeAmount:     b.Fee.Amount,
		NetAmount:     b.Net().Amount,
		ProcessedAt:   b.ProcessedAt,
		PaidAt:        b.PaidAt,
		FailedAt:      b.FailedAt,
		FailureReason: b.FailureReason,
		CreatedAt:     b.CreatedAt,
		UpdatedAt:     b.UpdatedAt,
	}
}

func toResponseList(batches []*settlement.Batch) []batchResponse {
	resp := make([]batchResponse, len(batches))
	for i, b := range batches {
		resp[i] = toResponse(b)
	}

	return resp
}

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

func toTransferResponse(t *settlement.Transfer) transferResponse {
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
