package settlement

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/utapedia/backend/internal/money"
)

// TransferStatus is the lifecycle state of a transfer.
type TransferStatus string

const (
	TransferPending TransferStatus = "pending"
	TransferSent    TransferStatus = "sent"
	TransferFailed  TransferStatus = "failed"
)

// BankAccount is the destination settlement account a transfer pays into,
// as resolved from the account directory at payout time. The copy kept on
// the transfer is a snapshot: the audit record must show where the money
// went even after the directory entry changes.
type BankAccount struct {
	ID            uuid.UUID
	HolderID      uuid.UUID
	BankName      string
	AccountNumber string
	Currency      money.Currency // currency the account can receive
	Verified      bool
}

// Transfer records a single money movement executing a batch's payout.
// Its state machine is terminal either way:
//
//	Pending -> Sent | Failed
//
// Transfers are mutated at most once and retained as audit records.
type Transfer struct {
	ID            uuid.UUID
	BatchID       uuid.UUID
	Account       BankAccount
	Amount        money.Money
	Status        TransferStatus
	SentAt        *time.Time
	FailedAt      *time.Time
	FailureReason string
	CreatedAt     time.Time
}

// TransferParams carries every persisted field of a transfer for
// BuildTransfer.
type TransferParams struct {
	ID            uuid.UUID
	BatchID       uuid.UUID
	Account       BankAccount
	Amount        money.Money
	Status        TransferStatus
	SentAt        *time.Time
	FailedAt      *time.Time
	FailureReason string
	CreatedAt     time.Time
}

// NewTransfer creates a Pending transfer of amount from a batch to a
// destination account. The amount must be in the currency the account
// receives; a transfer can never exist for an account that cannot take it.
func NewTransfer(batchID uuid.UUID, account BankAccount, amount money.Money) (*Transfer, error) {
	return BuildTransfer(TransferParams{
		ID:      uuid.New(),
		BatchID: batchID,
		Account: account,
		Amount:  amount,
		Status:  TransferPending,
	})
}

// BuildTransfer assembles a transfer from raw fields and validates the full
// invariant set. Single construction path for new transfers and rows
// reconstituted from storage.
func BuildTransfer(p TransferParams) (*Transfer, error) {
	if p.ID == uuid.Nil {
		return nil, validationf("transfer: id is required")
	}

	if p.BatchID == uuid.Nil {
		return nil, validationf("transfer: batch id is required")
	}

	if p.Account.ID == uuid.Nil {
		return nil, validationf("transfer: settlement account is required")
	}

	if p.Amount.Currency == "" {
		return nil, validationf("transfer: amount currency is required")
	}

	if p.Amount.Currency != p.Account.Currency {
		return nil, validationf("transfer: amount in %s but account %s receives %s",
			p.Amount.Currency, p.Account.ID, p.Account.Currency)
	}

	if err := validateTransferStatus(p); err != nil {
		return nil, err
	}

	return &Transfer{
		ID:            p.ID,
		BatchID:       p.BatchID,
		Account:       p.Account,
		Amount:        p.Amount,
		Status:        p.Status,
		SentAt:        p.SentAt,
		FailedAt:      p.FailedAt,
		FailureReason: strings.TrimSpace(p.FailureReason),
		CreatedAt:     p.CreatedAt,
	}, nil
}

func validateTransferStatus(p TransferParams) error {
	switch p.Status {
	case TransferPending:
		if p.SentAt != nil {
			return validationf("transfer: pending transfer must not have sent_at")
		}

		if p.FailedAt != nil {
			return validationf("transfer: pending transfer must not have failed_at")
		}

		if strings.TrimSpace(p.FailureReason) != "" {
			return validationf("transfer: pending transfer must not have a failure reason")
		}

	case TransferSent:
		if p.SentAt == nil {
			return validationf("transfer: sent transfer requires sent_at")
		}

		if p.FailedAt != nil {
			return validationf("transfer: sent transfer must not have failed_at")
		}

		if strings.TrimSpace(p.FailureReason) != "" {
			return validationf("transfer: sent transfer must not have a failure reason")
		}

	case TransferFailed:
		if p.SentAt != nil {
			return validationf("transfer: failed transfer must not have sent_at")
		}

		if p.FailedAt == nil {
			return validationf("transfer: failed transfer requires failed_at")
		}

		if strings.TrimSpace(p.FailureReason) == "" {
			return validationf("transfer: failed transfer requires a failure reason")
		}

	default:
		return validationf("transfer: unknown status %q", p.Status)
	}

	return nil
}

// MarkSent moves a Pending transfer to Sent at the given time. Sent and
// Failed are both terminal; marking twice fails.
func (t *Transfer) MarkSent(at time.Time) error {
	if t.Status != TransferPending {
		return &TransitionError{Entity: "transfer " + t.ID.String(), State: string(t.Status), Op: "mark sent"}
	}

	if at.IsZero() {
		return validationf("transfer: sent_at is required")
	}

	t.Status = TransferSent
	t.SentAt = &at

	return nil
}

// MarkFailed moves a Pending transfer to Failed with a reason.
func (t *Transfer) MarkFailed(reason string, at time.Time) error {
	if t.Status != TransferPending {
		return &TransitionError{Entity: "transfer " + t.ID.String(), State: string(t.Status), Op: "mark failed"}
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return validationf("transfer: failure reason must not be blank")
	}

	if at.IsZero() {
		return validationf("transfer: failed_at is required")
	}

	t.Status = TransferFailed
	t.FailureReason = reason
	t.FailedAt = &at

	return nil
}
