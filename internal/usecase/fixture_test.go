package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/expenseledger/internal/adapter/repository/memory"
	"github.com/iho/expenseledger/internal/adapter/repository/postgres"
	"github.com/iho/expenseledger/internal/domain"
	"github.com/iho/expenseledger/internal/usecase"
	"github.com/iho/expenseledger/internal/usecase/mocks"
)

type fixture struct {
	store    *memory.Store
	uploader *mocks.MockImageUploader
	wallets  *usecase.WalletUseCase
	txns     *usecase.TransactionUseCase
}

type fixtureOptions struct {
	store    usecase.DocumentStore
	cache    usecase.Cache
	pageSize int
}

func testRetrier() *postgres.Retrier {
	return postgres.NewRetrierWithConfig(zerolog.Nop(), postgres.RetrierConfig{
		MaxRetries:      100,
		InitialInterval: time.Millisecond,
		MaxInterval:     5 * time.Millisecond,
	})
}

func newFixture(t *testing.T) *fixture {
	return newFixtureWith(t, fixtureOptions{})
}

func newFixtureWith(t *testing.T, opts fixtureOptions) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	mem := memory.NewStore(postgres.NewULIDGenerator())

	var store usecase.DocumentStore = mem
	if opts.store != nil {
		store = opts.store
	}

	f := &fixture{store: mem, uploader: mocks.NewMockImageUploader(ctrl)}
	f.wallets = usecase.NewWalletUseCase(store, f.uploader, testRetrier(), opts.cache, zerolog.Nop(), nil, opts.pageSize)
	f.txns = usecase.NewTransactionUseCase(store, f.wallets, f.uploader, testRetrier(), opts.cache, zerolog.Nop(), nil)
	return f
}

func ptr[T any](v T) *T { return &v }

func amt(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func (f *fixture) createWallet(t *testing.T, uid, name string) *domain.Wallet {
	t.Helper()
	w, err := f.wallets.CreateOrUpdateWallet(context.Background(), usecase.WalletInput{UID: uid, Name: ptr(name)})
	require.NoError(t, err)
	return w
}

func txnInput(uid, walletID string, typ domain.TransactionType, amount int64) usecase.TransactionInput {
	in := usecase.TransactionInput{
		UID:      uid,
		Type:     ptr(typ),
		Amount:   ptr(amt(amount)),
		WalletID: ptr(walletID),
		Date:     ptr(time.Now().UTC()),
	}
	if typ == domain.TransactionTypeExpense {
		in.Category = ptr("food")
	}
	return in
}

func (f *fixture) record(t *testing.T, uid, walletID string, typ domain.TransactionType, amount int64) *domain.Transaction {
	t.Helper()
	txn, err := f.txns.CreateOrUpdateTransaction(context.Background(), txnInput(uid, walletID, typ, amount))
	require.NoError(t, err)
	return txn
}

func (f *fixture) assertWallet(t *testing.T, walletID string, amount, income, expense int64) {
	t.Helper()
	w, err := f.wallets.GetWallet(context.Background(), walletID)
	require.NoError(t, err)
	assert.True(t, w.Amount.Equal(amt(amount)), "amount: want %d, got %s", amount, w.Amount)
	assert.True(t, w.TotalIncome.Equal(amt(income)), "totalIncome: want %d, got %s", income, w.TotalIncome)
	assert.True(t, w.TotalExpense.Equal(amt(expense)), "totalExpense: want %d, got %s", expense, w.TotalExpense)
	assert.True(t, w.Amount.Equal(w.TotalIncome.Sub(w.TotalExpense)), "amount must equal totalIncome - totalExpense")
}

func (f *fixture) countTransactions(t *testing.T, walletID string) int {
	t.Helper()
	docs, err := f.store.Query(context.Background(), domain.CollectionTransactions, domain.Query{
		Filters: []domain.Filter{domain.Where(domain.FieldWalletID, domain.OpEqual, walletID)},
	})
	require.NoError(t, err)
	return len(docs)
}

// failingBatchStore wraps the memory store with batches that never commit.
type failingBatchStore struct {
	*memory.Store
}

func (s failingBatchStore) Batch() usecase.WriteBatch {
	return failingBatch{s.Store.Batch()}
}

type failingBatch struct {
	usecase.WriteBatch
}

func (failingBatch) Commit(context.Context) error {
	return errors.New("batch commit failed")
}
