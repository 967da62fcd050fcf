package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/utapedia/backend/internal/accounts"
	"github.com/utapedia/backend/internal/config"
	"github.com/utapedia/backend/internal/database"
	utapediaHttp "github.com/utapedia/backend/internal/http"
	batchHandler "github.com/utapedia/backend/internal/http/batch"
	reportHandler "github.com/utapedia/backend/internal/http/report"
	scheduleHandler "github.com/utapedia/backend/internal/http/schedule"
	transferHandler "github.com/utapedia/backend/internal/http/transfer"
	"github.com/utapedia/backend/internal/ledger"
	"github.com/utapedia/backend/internal/revenue"
	"github.com/utapedia/backend/internal/revenue/starpay"
	"github.com/utapedia/backend/internal/settlement"
	settlementStore "github.com/utapedia/backend/internal/settlement/store"
)

func main() {
	// Missing .env is fine; containers inject the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var (
		settlementService = settlement.NewService(
			settlementStore.New(db),
			accounts.NewClient(cfg.Accounts.BaseURL),
			ledger.NewClient(cfg.Ledger.BaseURL),
		)
		revenueService = revenue.NewService(starpay.NewParser())
	)

	var (
		batchH    = batchHandler.NewHandler(settlementService)
		scheduleH = scheduleHandler.NewHandler(settlementService)
		transferH = transferHandler.NewHandler(settlementService)
		reportH   = reportHandler.NewHandler(revenueService, settlementService)
	)

	router := utapediaHttp.New(batchH, scheduleH, transferH, reportH, cfg.Server.AllowedOrigins)

	port := fmt.Sprintf(":%d", cfg.App.Port)
	slog.Info("starting server", "app", cfg.App.Name, "port", port)

	if err := http.ListenAndServe(port, router); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
