package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/expenseledger/internal/adapter/http/dto"
	"github.com/iho/expenseledger/internal/domain"
	"github.com/iho/expenseledger/internal/usecase"
)

// TransactionService defines the behavior needed by TransactionHandler.
type TransactionService interface {
	CreateOrUpdateTransaction(ctx context.Context, input usecase.TransactionInput) (*domain.Transaction, error)
	GetTransaction(ctx context.Context, id string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, input usecase.ListTransactionsInput) ([]*domain.Transaction, error)
	DeleteTransaction(ctx context.Context, id, walletID string) error
}

// TransactionHandler handles transaction-related HTTP requests.
type TransactionHandler struct {
	transactionUC TransactionService
}

// NewTransactionHandler creates a new TransactionHandler.
func NewTransactionHandler(transactionUC TransactionService) *TransactionHandler {
	return &TransactionHandler{transactionUC: transactionUC}
}

// Create records a new transaction and applies its effect to the wallet.
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, "", http.StatusCreated)
}

// Update rewrites a transaction, moving its effect between wallets when needed.
func (h *TransactionHandler) Update(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, chi.URLParam(r, "id"), http.StatusOK)
}

func (h *TransactionHandler) save(w http.ResponseWriter, r *http.Request, id string, status int) {
	var req dto.TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	txn, err := h.transactionUC.CreateOrUpdateTransaction(r.Context(), req.ToUseCaseInput(id))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, status, dto.TransactionFromDomain(txn))
}

// Get retrieves a transaction by ID.
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeBadRequest(w, "missing transaction ID")
		return
	}

	txn, err := h.transactionUC.GetTransaction(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TransactionFromDomain(txn))
}

// List lists transactions of a user, newest first, optionally for one wallet.
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	txns, err := h.transactionUC.ListTransactions(r.Context(), usecase.ListTransactionsInput{
		UID:      query.Get("uid"),
		WalletID: query.Get("walletId"),
		Limit:    parseIntQuery(r, "limit", 0),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListTransactionsResponse{
		Transactions: dto.TransactionsFromDomain(txns),
		Total:        len(txns),
	})
}

// Delete removes a transaction and reverts its effect on the given wallet.
func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	err := h.transactionUC.DeleteTransaction(r.Context(), chi.URLParam(r, "id"), r.URL.Query().Get("walletId"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
