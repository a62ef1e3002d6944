package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/expenseledger/internal/domain"
	"github.com/iho/expenseledger/internal/infrastructure/metrics"
)

// ReconciliationUseCase checks stored wallet balances against their live transactions.
type ReconciliationUseCase struct {
	store    DocumentStore
	wallets  *WalletUseCase
	metrics  *metrics.Metrics
	pageSize int
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(store DocumentStore, wallets *WalletUseCase, m *metrics.Metrics) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		store:    store,
		wallets:  wallets,
		metrics:  m,
		pageSize: DefaultCascadePageSize,
	}
}

// ReconciliationResult represents the result of a reconciliation check
type ReconciliationResult struct {
	WalletID         string
	Recorded         domain.Delta
	Calculated       domain.Delta
	Difference       decimal.Decimal
	TransactionCount int
	IsReconciled     bool
	LastChecked      time.Time
}

// ReconcileWallet sums the live transactions of a wallet and compares the totals
// with the stored amount, totalIncome and totalExpense.
func (uc *ReconciliationUseCase) ReconcileWallet(ctx context.Context, walletID string) (*ReconciliationResult, error) {
	wallet, err := uc.wallets.GetWallet(ctx, walletID)
	if err != nil {
		return nil, err
	}

	calculated := domain.Delta{Amount: decimal.Zero, Income: decimal.Zero, Expense: decimal.Zero}
	count := 0
	after := ""

	for {
		docs, err := uc.store.Query(ctx, domain.CollectionTransactions, domain.Query{
			Filters: []domain.Filter{domain.Where(domain.FieldWalletID, domain.OpEqual, walletID)},
			Limit:   uc.pageSize,
			AfterID: after,
		})
		if err != nil {
			return nil, storeErr(err, "query transactions of wallet %s", walletID)
		}
		if len(docs) == 0 {
			break
		}

		txns, err := decodeTransactions(docs)
		if err != nil {
			return nil, err
		}
		for _, t := range txns {
			effect := t.Effect()
			calculated.Amount = calculated.Amount.Add(effect.Amount)
			calculated.Income = calculated.Income.Add(effect.Income)
			calculated.Expense = calculated.Expense.Add(effect.Expense)
		}

		count += len(docs)
		after = docs[len(docs)-1].ID
	}

	recorded := domain.Delta{Amount: wallet.Amount, Income: wallet.TotalIncome, Expense: wallet.TotalExpense}
	reconciled := recorded.Amount.Equal(calculated.Amount) &&
		recorded.Income.Equal(calculated.Income) &&
		recorded.Expense.Equal(calculated.Expense)

	if !reconciled && uc.metrics != nil {
		uc.metrics.ReconciliationDrift.Inc()
	}

	return &ReconciliationResult{
		WalletID:         walletID,
		Recorded:         recorded,
		Calculated:       calculated,
		Difference:       recorded.Amount.Sub(calculated.Amount),
		TransactionCount: count,
		IsReconciled:     reconciled,
		LastChecked:      time.Now().UTC(),
	}, nil
}

// ReconciliationReport represents a full reconciliation report
type ReconciliationReport struct {
	UID               string
	TotalWallets      int
	ReconciledWallets int
	Discrepancies     []*ReconciliationResult
	CheckedAt         time.Time
}

// GenerateReconciliationReport reconciles every wallet of a user.
func (uc *ReconciliationUseCase) GenerateReconciliationReport(ctx context.Context, uid string) (*ReconciliationReport, error) {
	wallets, err := uc.wallets.ListWallets(ctx, uid)
	if err != nil {
		return nil, err
	}

	report := &ReconciliationReport{
		UID:           uid,
		TotalWallets:  len(wallets),
		Discrepancies: make([]*ReconciliationResult, 0),
		CheckedAt:     time.Now().UTC(),
	}

	for _, w := range wallets {
		result, err := uc.ReconcileWallet(ctx, w.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to reconcile wallet %s: %w", w.ID, err)
		}
		if result.IsReconciled {
			report.ReconciledWallets++
		} else {
			report.Discrepancies = append(report.Discrepancies, result)
		}
	}

	return report, nil
}
