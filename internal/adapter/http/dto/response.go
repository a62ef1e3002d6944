package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/expenseledger/internal/domain"
	"github.com/iho/expenseledger/internal/usecase"
)

// WalletResponse represents a wallet in API responses.
type WalletResponse struct {
	ID           string          `json:"id"`
	UID          string          `json:"uid"`
	Name         string          `json:"name"`
	Image        string          `json:"image,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	TotalIncome  decimal.Decimal `json:"totalIncome"`
	TotalExpense decimal.Decimal `json:"totalExpense"`
	Created      time.Time       `json:"created"`
	Version      int64           `json:"version"`
}

// WalletFromDomain converts a domain wallet to a response.
func WalletFromDomain(w *domain.Wallet) *WalletResponse {
	return &WalletResponse{
		ID:           w.ID,
		UID:          w.UID,
		Name:         w.Name,
		Image:        w.Image,
		Amount:       w.Amount,
		TotalIncome:  w.TotalIncome,
		TotalExpense: w.TotalExpense,
		Created:      w.Created,
		Version:      w.Version,
	}
}

// WalletsFromDomain converts domain wallets to responses.
func WalletsFromDomain(wallets []*domain.Wallet) []*WalletResponse {
	result := make([]*WalletResponse, len(wallets))
	for i, w := range wallets {
		result[i] = WalletFromDomain(w)
	}
	return result
}

// ListWalletsResponse represents a list of wallets.
type ListWalletsResponse struct {
	Wallets []*WalletResponse `json:"wallets"`
	Total   int               `json:"total"`
}

// TransactionResponse represents a transaction in API responses.
type TransactionResponse struct {
	ID          string                 `json:"id"`
	UID         string                 `json:"uid"`
	Type        domain.TransactionType `json:"type"`
	Amount      decimal.Decimal        `json:"amount"`
	WalletID    string                 `json:"walletId"`
	Category    string                 `json:"category,omitempty"`
	Description string                 `json:"description,omitempty"`
	Date        time.Time              `json:"date"`
	Image       string                 `json:"image,omitempty"`
}

// TransactionFromDomain converts a domain transaction to a response.
func TransactionFromDomain(t *domain.Transaction) *TransactionResponse {
	return &TransactionResponse{
		ID:          t.ID,
		UID:         t.UID,
		Type:        t.Type,
		Amount:      t.Amount,
		WalletID:    t.WalletID,
		Category:    t.Category,
		Description: t.Description,
		Date:        t.Date,
		Image:       t.Image,
	}
}

// TransactionsFromDomain converts domain transactions to responses.
func TransactionsFromDomain(txns []*domain.Transaction) []*TransactionResponse {
	result := make([]*TransactionResponse, len(txns))
	for i, t := range txns {
		result[i] = TransactionFromDomain(t)
	}
	return result
}

// ListTransactionsResponse represents a list of transactions.
type ListTransactionsResponse struct {
	Transactions []*TransactionResponse `json:"transactions"`
	Total        int                    `json:"total"`
}

// BucketResponse is one point of a statistics series.
type BucketResponse struct {
	Label   string          `json:"label"`
	Start   time.Time       `json:"start"`
	End     time.Time       `json:"end"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

// StatsResponse represents bucketed statistics in API responses.
type StatsResponse struct {
	Period       domain.Period          `json:"period"`
	Series       []BucketResponse       `json:"series"`
	Transactions []*TransactionResponse `json:"transactions"`
}

// StatsFromDomain converts domain statistics to a response.
func StatsFromDomain(s *domain.Stats) *StatsResponse {
	series := make([]BucketResponse, len(s.Series))
	for i, b := range s.Series {
		series[i] = BucketResponse{Label: b.Label, Start: b.Start, End: b.End, Income: b.Income, Expense: b.Expense}
	}
	return &StatsResponse{
		Period:       s.Period,
		Series:       series,
		Transactions: TransactionsFromDomain(s.Transactions),
	}
}

// TotalsResponse holds the balance triple of a wallet.
type TotalsResponse struct {
	Amount       decimal.Decimal `json:"amount"`
	TotalIncome  decimal.Decimal `json:"totalIncome"`
	TotalExpense decimal.Decimal `json:"totalExpense"`
}

func totalsFromDelta(d domain.Delta) TotalsResponse {
	return TotalsResponse{Amount: d.Amount, TotalIncome: d.Income, TotalExpense: d.Expense}
}

// ReconciliationResponse represents a wallet reconciliation in API responses.
type ReconciliationResponse struct {
	WalletID         string          `json:"walletId"`
	Recorded         TotalsResponse  `json:"recorded"`
	Calculated       TotalsResponse  `json:"calculated"`
	Difference       decimal.Decimal `json:"difference"`
	TransactionCount int             `json:"transactionCount"`
	IsReconciled     bool            `json:"isReconciled"`
	LastChecked      time.Time       `json:"lastChecked"`
}

// ReconciliationFromUseCase converts a reconciliation result to a response.
func ReconciliationFromUseCase(r *usecase.ReconciliationResult) *ReconciliationResponse {
	return &ReconciliationResponse{
		WalletID:         r.WalletID,
		Recorded:         totalsFromDelta(r.Recorded),
		Calculated:       totalsFromDelta(r.Calculated),
		Difference:       r.Difference,
		TransactionCount: r.TransactionCount,
		IsReconciled:     r.IsReconciled,
		LastChecked:      r.LastChecked,
	}
}

// ReconciliationReportResponse represents a per-user reconciliation report.
type ReconciliationReportResponse struct {
	UID               string                    `json:"uid"`
	TotalWallets      int                       `json:"totalWallets"`
	ReconciledWallets int                       `json:"reconciledWallets"`
	Discrepancies     []*ReconciliationResponse `json:"discrepancies"`
	CheckedAt         time.Time                 `json:"checkedAt"`
}

// ReconciliationReportFromUseCase converts a reconciliation report to a response.
func ReconciliationReportFromUseCase(r *usecase.ReconciliationReport) *ReconciliationReportResponse {
	discrepancies := make([]*ReconciliationResponse, len(r.Discrepancies))
	for i, d := range r.Discrepancies {
		discrepancies[i] = ReconciliationFromUseCase(d)
	}
	return &ReconciliationReportResponse{
		UID:               r.UID,
		TotalWallets:      r.TotalWallets,
		ReconciledWallets: r.ReconciledWallets,
		Discrepancies:     discrepancies,
		CheckedAt:         r.CheckedAt,
	}
}

// PurgeResponse reports how many transactions a purge removed.
type PurgeResponse struct {
	WalletID string `json:"walletId"`
	Removed  int    `json:"removed"`
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// HealthResponse represents health check response.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
