package schedule

import (
	"time"

	"github.com/google/uuid"

	"github.com/utapedia/backend/internal/settlement"
)

type scheduleResponse struct {
	ID              uuid.UUID           `json:"id"`
	AccountID       uuid.UUID           `json:"account_id"`
	Interval        settlement.Interval `json:"interval"`
	Anchor          time.Time           `json:"anchor"`
	PayoutDelayDays int                 `json:"payout_delay_days"`
	NextPayoutDate  *time.Time          `json:"next_payout_date,omitempty"`
	Threshold       *thresholdDTO       `json:"threshold,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       *time.Time          `json:"updated_at,omitempty"`
}

func toResponse(s *settlement.Schedule) scheduleResponse {
	resp := scheduleResponse{
		ID:              s.ID,
		AccountID:       s.AccountID,
		Interval:        s.Interval,
		Anchor:          s.Anchor,
		PayoutDelayDays: s.PayoutDelayDays,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}

	if s.Interval == settlement.IntervalThreshold {
		resp.Threshold = &thresholdDTO{
			Amount:   s.Threshold.Amount,
			Currency: s.Threshold.Currency,
		}
	} else {
		d := s.NextPayoutDate()
		resp.NextPayoutDate = &d
	}

	return resp
}
