package report

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/utapedia/backend/internal/http/httperr"
	"github.com/utapedia/backend/internal/money"
	"github.com/utapedia/backend/internal/revenue"
	"github.com/utapedia/backend/internal/settlement"
)

// Handler ingests gateway settlement reports: the uploaded CSV is parsed
// into revenue and fee lines which are recorded onto a pending batch.
type Handler struct {
	revenueSvc    *revenue.Service
	settlementSvc *settlement.Service
}

func NewHandler(revenueSvc *revenue.Service, settlementSvc *settlement.Service) *Handler {
	return &Handler{
		revenueSvc:    revenueSvc,
		settlementSvc: settlementSvc,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.upload)
}

type uploadResponse struct {
	RevenueLines int   `json:"revenue_lines"`
	FeeLines     int   `json:"fee_lines"`
	GrossAmount  int64 `json:"gross_amount"`
	FeeAmount    int64 `json:"fee_amount"`
	NetAmount    int64 `json:"net_amount"`
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		http.Error(w, "failed to parse form: "+err.Error(), http.StatusBadRequest)
		return
	}

	gateway := revenue.Gateway(r.FormValue("gateway"))
	if gateway == "" {
		http.Error(w, "gateway field is required", http.StatusBadRequest)
		return
	}

	batchID, err := uuid.Parse(r.FormValue("batch_id"))
	if err != nil {
		http.Error(w, "batch_id field is required", http.StatusBadRequest)
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "file field is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	lines, err := h.revenueSvc.Import(gateway, file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var revenues, fees []money.Money

	for _, line := range lines {
		switch line.Kind {
		case revenue.KindRevenue:
			revenues = append(revenues, line.Amount)
		case revenue.KindFee:
			fees = append(fees, line.Amount)
		}
	}

	batch, err := h.settlementSvc.RecordReport(r.Context(), batchID, revenues, fees)
	if err != nil {
		httperr.Write(w, err)
		return
	}

	resp := uploadResponse{
		RevenueLines: len(revenues),
		FeeLines:     len(fees),
		GrossAmount:  batch.Gross.Amount,
		FeeAmount:    batch.Fee.Amount,
		NetAmount:    batch.Net().Amount,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}
