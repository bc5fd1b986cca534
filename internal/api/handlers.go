/**
 * @description
 * This file contains the HTTP handlers for the transaction-service's API
 * endpoints. Handlers are responsible for parsing incoming requests, calling
 * the appropriate methods on the application service, and writing the HTTP
 * response. They act as the bridge between the web layer and the business
 * logic layer.
 *
 * @dependencies
 * - encoding/json, net/http: Standard Go libraries.
 * - internal/app, internal/store: For service logic and custom errors.
 */

package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/veripay/transaction-flow/internal/app"
	"github.com/veripay/transaction-flow/internal/store"
)

// TransactionHandlers holds the application service that handlers will use.
type TransactionHandlers struct {
	service *app.Service
	log     *logrus.Logger
}

// NewTransactionHandlers creates a new instance of TransactionHandlers.
func NewTransactionHandlers(service *app.Service, log *logrus.Logger) *TransactionHandlers {
	return &TransactionHandlers{service: service, log: log}
}

// CreateTransactionHandler handles POST /transactions. The response carries
// the pending aggregate; the fraud verdict arrives asynchronously.
func (h *TransactionHandlers) CreateTransactionHandler(w http.ResponseWriter, r *http.Request) {
	var input app.CreateTransactionInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tx, err := h.service.CreateTransaction(r.Context(), input)
	if err != nil {
		if errors.Is(err, app.ErrInvalidInput) {
			h.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if errors.Is(err, app.ErrRateLimited) {
			h.writeError(w, http.StatusTooManyRequests, err.Error())
			return
		}
		h.log.WithError(err).Error("transaction creation failed")
		h.writeError(w, http.StatusInternalServerError, "could not create transaction")
		return
	}

	h.writeJSON(w, http.StatusCreated, tx)
}

// GetTransactionHandler handles GET /transactions/{transactionID}.
func (h *TransactionHandlers) GetTransactionHandler(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "transactionID"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	tx, err := h.service.GetTransaction(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrTransactionNotFound) {
			h.writeError(w, http.StatusNotFound, "transaction not found")
			return
		}
		h.log.WithField("transaction_id", id).WithError(err).Error("transaction lookup failed")
		h.writeError(w, http.StatusInternalServerError, "could not fetch transaction")
		return
	}

	h.writeJSON(w, http.StatusOK, tx)
}

func (h *TransactionHandlers) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.WithError(err).Error("response encoding failed")
	}
}

func (h *TransactionHandlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
