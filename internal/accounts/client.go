// Package accounts talks to the account service, the system of record for
// creators' settlement bank accounts.
package accounts

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/utapedia/backend/internal/money"
	"github.com/utapedia/backend/internal/settlement"
)

// Client resolves settlement bank accounts over the account service's
// HTTP API. It implements settlement.AccountDirectory.
type Client struct {
	baseURL string
	client  *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type bankAccountDTO struct {
	ID            uuid.UUID      `json:"id"`
	HolderID      uuid.UUID      `json:"holder_id"`
	BankName      string         `json:"bank_name"`
	AccountNumber string         `json:"account_number"`
	Currency      money.Currency `json:"currency"`
	Verified      bool           `json:"verified"`
}

func (c *Client) Resolve(ctx context.Context, accountID uuid.UUID) (settlement.BankAccount, error) {
	url := fmt.Sprintf("%s/api/v1/accounts/%s/bank-account", c.baseURL, accountID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return settlement.BankAccount{}, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return settlement.BankAccount{}, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return settlement.BankAccount{}, fmt.Errorf("account %s: %w", accountID, settlement.ErrNotFound)
	default:
		return settlement.BankAccount{}, fmt.Errorf("unexpected status code %d from account service", resp.StatusCode)
	}

	var dto bankAccountDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return settlement.BankAccount{}, fmt.Errorf("decoding response: %w", err)
	}

	return settlement.BankAccount{
		ID:            dto.ID,
		HolderID:      dto.HolderID,
		BankName:      dto.BankName,
		AccountNumber: dto.AccountNumber,
		Currency:      dto.Currency,
		Verified:      dto.Verified,
	}, nil
}
