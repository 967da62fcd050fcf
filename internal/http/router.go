package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/utapedia/backend/internal/http/batch"
	"github.com/utapedia/backend/internal/http/report"
	"github.com/utapedia/backend/internal/http/schedule"
	"github.com/utapedia/backend/internal/http/transfer"
)

func New(
	batchesV1 *batch.Handler,
	schedulesV1 *schedule.Handler,
	transfersV1 *transfer.Handler,
	reportsV1 *report.Handler,
	allowedOrigins []string,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/batches", func(r chi.Router) {
			batchesV1.Routes(r)
		})

		r.Route("/schedules", func(r chi.Router) {
			r.Use(middleware.AllowContentType("application/json"))
			schedulesV1.Routes(r)
		})

		r.Route("/transfers", func(r chi.Router) {
			transfersV1.Routes(r)
		})

		r.Route("/reports", reportsV1.Routes)
	})

	return router
}
