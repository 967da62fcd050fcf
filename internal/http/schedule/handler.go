package schedule

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/utapedia/backend/internal/http/httperr"
	"github.com/utapedia/backend/internal/money"
	"github.com/utapedia/backend/internal/settlement"
)

type Handler struct {
	svc *settlement.Service
}

func NewHandler(svc *settlement.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.getByAccount)
	r.Get("/{id}", h.get)
	r.Get("/{id}/due", h.checkDue)
	r.Post("/{id}/advance", h.advance)
}

type thresholdDTO struct {
	Amount   int64          `json:"amount"`
	Currency money.Currency `json:"currency"`
}

type createScheduleRequest struct {
	AccountID       uuid.UUID           `json:"account_id"`
	Interval        settlement.Interval `json:"interval"`
	Anchor          time.Time           `json:"anchor"`
	PayoutDelayDays int                 `json:"payout_delay_days"`
	Threshold       *thresholdDTO       `json:"threshold,omitempty"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	params := settlement.CreateScheduleParams{
		AccountID:       req.AccountID,
		Interval:        req.Interval,
		Anchor:          req.Anchor,
		PayoutDelayDays: req.PayoutDelayDays,
	}

	if req.Threshold != nil {
		m := money.New(req.Threshold.Amount, req.Threshold.Currency)
		params.Threshold = &m
	}

	sched, err := h.svc.CreateSchedule(r.Context(), params)
	if err != nil {
		httperr.Write(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(toResponse(sched)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	sched, err := h.svc.GetSchedule(r.Context(), id)
	if err != nil {
		httperr.Write(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(sched)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) getByAccount(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(r.URL.Query().Get("account_id"))
	if err != nil {
		http.Error(w, "account_id query parameter is required", http.StatusBadRequest)
		return
	}

	sched, err := h.svc.GetScheduleByAccount(r.Context(), accountID)
	if err != nil {
		httperr.Write(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(sched)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

type dueResponse struct {
	Due bool      `json:"due"`
	At  time.Time `json:"at"`
}

func (h *Handler) checkDue(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	at := time.Now()

	if s := r.URL.Query().Get("at"); s != "" {
		parsed, err := time.Parse(time.RFC3339, s)
		if err != nil {
			http.Error(w, "invalid at parameter, expected RFC 3339", http.StatusBadRequest)
			return
		}

		at = parsed
	}

	due, err := h.svc.CheckDue(r.Context(), id, at)
	if err != nil {
		httperr.Write(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(dueResponse{Due: due, At: at}); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) advance(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return
	}

	sched, err := h.svc.AdvanceSchedule(r.Context(), id)
	if err != nil {
		httperr.Write(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(toResponse(sched)); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
