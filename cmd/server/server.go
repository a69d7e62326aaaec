// cmd/server/server.go
package main

import (
	"net/http"
	"strconv"
	"time"

	"github.com/codr1/courtwallet/internal/api"
	"github.com/codr1/courtwallet/internal/api/courts"
	"github.com/codr1/courtwallet/internal/api/reservations"
	"github.com/codr1/courtwallet/internal/api/wallet"
	"github.com/codr1/courtwallet/internal/config"
)

func newServer(cfg *config.Config, a *app) *http.Server {
	router := http.NewServeMux()

	// Setup middleware chain
	handler := api.ChainMiddleware(
		router,
		api.WithLogging(false),
		api.WithRecovery,
		api.WithIdentity,
		api.WithRequestID,
	)

	reservations.InitHandlers(a.booking, a.limiter)
	courts.InitHandlers(a.db.Queries, a.booking)
	wallet.InitHandlers(a.ledger)

	registerRoutes(router)

	return &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.App.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

func registerRoutes(mux *http.ServeMux) {
	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Court routes
	mux.HandleFunc("GET /api/v1/courts", courts.HandleList)
	mux.HandleFunc("GET /api/v1/courts/availability", courts.HandleAvailability)
	mux.HandleFunc("GET /api/v1/courts/calendar", courts.HandleCalendar)

	// Reservation routes
	mux.HandleFunc("GET /api/v1/reservations", reservations.HandleList)
	mux.HandleFunc("POST /api/v1/reservations", reservations.HandleCreate)
	mux.HandleFunc("POST /api/v1/reservations/holds", reservations.HandleHold)
	mux.HandleFunc("POST /api/v1/reservations/recurring", reservations.HandleCreateRecurring)
	mux.HandleFunc("GET /api/v1/reservations/{id}", reservations.HandleGet)
	mux.HandleFunc("POST /api/v1/reservations/{id}/confirm", reservations.HandleConfirm)
	mux.HandleFunc("POST /api/v1/reservations/{id}/cancel", reservations.HandleCancel)
	mux.HandleFunc("GET /api/v1/reservations/{id}/cancel-preview", reservations.HandleCancelPreview)
	mux.HandleFunc("POST /api/v1/reservations/{id}/edit", reservations.HandleEdit)
	mux.HandleFunc("POST /api/v1/reservations/{id}/reschedule", reservations.HandleReschedule)

	// Wallet routes
	mux.HandleFunc("GET /api/v1/accounts/{id}/balance", wallet.HandleBalance)
	mux.HandleFunc("GET /api/v1/accounts/{id}/entries", wallet.HandleEntries)
	mux.HandleFunc("GET /api/v1/accounts/{id}/verify", wallet.HandleVerify)
	mux.HandleFunc("POST /api/v1/accounts/{id}/deposits", wallet.HandleRequestDeposit)
	mux.HandleFunc("GET /api/v1/deposits/pending", wallet.HandlePendingDeposits)
	mux.HandleFunc("POST /api/v1/deposits/{id}/approve", wallet.HandleApproveDeposit)
	mux.HandleFunc("POST /api/v1/deposits/{id}/reject", wallet.HandleRejectDeposit)
}
