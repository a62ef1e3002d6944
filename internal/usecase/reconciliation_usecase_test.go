package usecase_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/expenseledger/internal/domain"
	"github.com/iho/expenseledger/internal/infrastructure/metrics"
	"github.com/iho/expenseledger/internal/usecase"
)

func TestReconciliationUseCase_ReconciledWallet(t *testing.T) {
	f := newFixture(t)
	recon := usecase.NewReconciliationUseCase(f.store, f.wallets, nil)
	ctx := context.Background()

	w := f.createWallet(t, "user-1", "Cash")
	f.record(t, "user-1", w.ID, domain.TransactionTypeIncome, 100)
	expense := f.record(t, "user-1", w.ID, domain.TransactionTypeExpense, 30)
	f.record(t, "user-1", w.ID, domain.TransactionTypeExpense, 20)
	require.NoError(t, f.txns.DeleteTransaction(ctx, expense.ID, w.ID))

	result, err := recon.ReconcileWallet(ctx, w.ID)
	require.NoError(t, err)

	assert.True(t, result.IsReconciled)
	assert.Equal(t, 2, result.TransactionCount)
	assert.True(t, result.Calculated.Amount.Equal(amt(80)))
	assert.True(t, result.Difference.IsZero())
}

func TestReconciliationUseCase_DetectsDrift(t *testing.T) {
	f := newFixture(t)
	m := metrics.NewWithRegisterer(prometheus.NewRegistry())
	recon := usecase.NewReconciliationUseCase(f.store, f.wallets, m)
	ctx := context.Background()

	w := f.createWallet(t, "user-1", "Cash")
	f.record(t, "user-1", w.ID, domain.TransactionTypeIncome, 100)

	// Simulate a write that bypassed the ledger.
	_, err := f.store.Update(ctx, domain.CollectionWallets, w.ID, domain.Fields{domain.FieldAmount: amt(120)})
	require.NoError(t, err)

	result, err := recon.ReconcileWallet(ctx, w.ID)
	require.NoError(t, err)

	assert.False(t, result.IsReconciled)
	assert.True(t, result.Difference.Equal(amt(20)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ReconciliationDrift))
}

func TestReconciliationUseCase_Report(t *testing.T) {
	f := newFixture(t)
	recon := usecase.NewReconciliationUseCase(f.store, f.wallets, nil)
	ctx := context.Background()

	good := f.createWallet(t, "user-1", "Good")
	bad := f.createWallet(t, "user-1", "Bad")
	f.record(t, "user-1", good.ID, domain.TransactionTypeIncome, 10)
	f.record(t, "user-1", bad.ID, domain.TransactionTypeIncome, 10)

	_, err := f.store.Update(ctx, domain.CollectionWallets, bad.ID, domain.Fields{domain.FieldTotalIncome: amt(5)})
	require.NoError(t, err)

	report, err := recon.GenerateReconciliationReport(ctx, "user-1")
	require.NoError(t, err)

	assert.Equal(t, 2, report.TotalWallets)
	assert.Equal(t, 1, report.ReconciledWallets)
	require.Len(t, report.Discrepancies, 1)
	assert.Equal(t, bad.ID, report.Discrepancies[0].WalletID)
}

func TestReconciliationUseCase_MissingWallet(t *testing.T) {
	f := newFixture(t)
	recon := usecase.NewReconciliationUseCase(f.store, f.wallets, nil)

	_, err := recon.ReconcileWallet(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrWalletNotFound)
}
