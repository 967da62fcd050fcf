// Package ledger talks to the ledger service, which tracks per-account
// earned balances. Threshold schedules consult it to decide due-ness.
package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/utapedia/backend/internal/money"
)

// Client fetches available balances over the ledger service's HTTP API.
// It implements settlement.Ledger.
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

type balanceDTO struct {
	Amount   int64          `json:"amount"`
	Currency money.Currency `json:"currency"`
}

func (c *Client) AvailableBalance(ctx context.Context, accountID uuid.UUID, currency money.Currency) (money.Money, error) {
	url := fmt.Sprintf("%s/api/v1/balances/%s?currency=%s", c.baseURL, accountID, currency)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return money.Money{}, fmt.Errorf("creating request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return money.Money{}, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return money.Money{}, fmt.Errorf("unexpected status code %d from ledger service", resp.StatusCode)
	}

	var dto balanceDTO
	if err := json.NewDecoder(resp.Body).Decode(&dto); err != nil {
		return money.Money{}, fmt.Errorf("decoding response: %w", err)
	}

	if dto.Currency != currency {
		return money.Money{}, fmt.Errorf("ledger returned balance in %s, requested %s", dto.Currency, currency)
	}

	return money.New(dto.Amount, dto.Currency), nil
}
