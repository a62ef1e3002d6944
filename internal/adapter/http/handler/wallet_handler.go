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

// WalletService defines the behavior needed by WalletHandler.
type WalletService interface {
	CreateOrUpdateWallet(ctx context.Context, input usecase.WalletInput) (*domain.Wallet, error)
	GetWallet(ctx context.Context, id string) (*domain.Wallet, error)
	ListWallets(ctx context.Context, uid string) ([]*domain.Wallet, error)
	DeleteWallet(ctx context.Context, id string) error
	PurgeWalletTransactions(ctx context.Context, walletID string) (int, error)
}

// ReconciliationService defines the reconciliation behavior exposed over HTTP.
type ReconciliationService interface {
	ReconcileWallet(ctx context.Context, walletID string) (*usecase.ReconciliationResult, error)
	GenerateReconciliationReport(ctx context.Context, uid string) (*usecase.ReconciliationReport, error)
}

// WalletHandler handles wallet-related HTTP requests.
type WalletHandler struct {
	walletUC    WalletService
	reconcileUC ReconciliationService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletUC WalletService, reconcileUC ReconciliationService) *WalletHandler {
	return &WalletHandler{walletUC: walletUC, reconcileUC: reconcileUC}
}

// Create creates a new wallet.
func (h *WalletHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, "", http.StatusCreated)
}

// Update merges the request fields into an existing wallet.
func (h *WalletHandler) Update(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, chi.URLParam(r, "id"), http.StatusOK)
}

func (h *WalletHandler) save(w http.ResponseWriter, r *http.Request, id string, status int) {
	var req dto.WalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	wallet, err := h.walletUC.CreateOrUpdateWallet(r.Context(), req.ToUseCaseInput(id))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, status, dto.WalletFromDomain(wallet))
}

// Get retrieves a wallet by ID.
func (h *WalletHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeBadRequest(w, "missing wallet ID")
		return
	}

	wallet, err := h.walletUC.GetWallet(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.WalletFromDomain(wallet))
}

// List lists the wallets of a user, newest first.
func (h *WalletHandler) List(w http.ResponseWriter, r *http.Request) {
	wallets, err := h.walletUC.ListWallets(r.Context(), r.URL.Query().Get("uid"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListWalletsResponse{
		Wallets: dto.WalletsFromDomain(wallets),
		Total:   len(wallets),
	})
}

// Delete removes a wallet and every transaction attributed to it.
func (h *WalletHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.walletUC.DeleteWallet(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Purge removes the leftover transactions of an already deleted wallet.
func (h *WalletHandler) Purge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	removed, err := h.walletUC.PurgeWalletTransactions(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PurgeResponse{WalletID: id, Removed: removed})
}

// Reconcile compares a wallet's stored totals with the sum of its transactions.
func (h *WalletHandler) Reconcile(w http.ResponseWriter, r *http.Request) {
	result, err := h.reconcileUC.ReconcileWallet(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ReconciliationFromUseCase(result))
}

// Report reconciles every wallet of a user.
func (h *WalletHandler) Report(w http.ResponseWriter, r *http.Request) {
	report, err := h.reconcileUC.GenerateReconciliationReport(r.Context(), r.URL.Query().Get("uid"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ReconciliationReportFromUseCase(report))
}
