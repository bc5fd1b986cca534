/**
 * @description
 * This file sets up the HTTP router for the transaction-service. It defines
 * the API endpoints, associates them with their corresponding handlers, and
 * applies middleware for panic recovery, timeouts, and internal auth.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// TransactionRoutes creates and returns the router for the transaction service.
func TransactionRoutes(h *TransactionHandlers, internalAPIKey string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	r.Group(func(r chi.Router) {
		r.Use(InternalAPIKeyMiddleware(internalAPIKey))

		r.Post("/transactions", h.CreateTransactionHandler)
		r.Get("/transactions/{transactionID}", h.GetTransactionHandler)
	})

	return r
}
