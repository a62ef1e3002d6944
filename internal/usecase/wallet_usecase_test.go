package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/expenseledger/internal/domain"
	"github.com/iho/expenseledger/internal/usecase"
)

func TestWalletUseCase_CreateStartsEmpty(t *testing.T) {
	f := newFixture(t)

	w := f.createWallet(t, "user-1", "  Cash  ")

	assert.NotEmpty(t, w.ID)
	assert.Equal(t, "user-1", w.UID)
	assert.Equal(t, "Cash", w.Name)
	assert.False(t, w.Created.IsZero())
	f.assertWallet(t, w.ID, 0, 0, 0)
}

func TestWalletUseCase_CreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		input usecase.WalletInput
	}{
		{"missing uid", usecase.WalletInput{Name: ptr("Cash")}},
		{"missing name", usecase.WalletInput{UID: "user-1"}},
		{"blank name", usecase.WalletInput{UID: "user-1", Name: ptr("   ")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.wallets.CreateOrUpdateWallet(ctx, tt.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}

	wallets, err := f.wallets.ListWallets(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, wallets)
}

func TestWalletUseCase_CreateUploadsLocalImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.uploader.EXPECT().
		Upload(gomock.Any(), "/tmp/cash.png", usecase.WalletImageFolder).
		Return("https://img.example.com/wallets/cash.png", nil)

	w, err := f.wallets.CreateOrUpdateWallet(ctx, usecase.WalletInput{
		UID:   "user-1",
		Name:  ptr("Cash"),
		Image: ptr("/tmp/cash.png"),
	})
	require.NoError(t, err)
	assert.Equal(t, "https://img.example.com/wallets/cash.png", w.Image)
}

func TestWalletUseCase_CreateKeepsRemoteImage(t *testing.T) {
	f := newFixture(t)

	w, err := f.wallets.CreateOrUpdateWallet(context.Background(), usecase.WalletInput{
		UID:   "user-1",
		Name:  ptr("Cash"),
		Image: ptr("https://img.example.com/existing.png"),
	})
	require.NoError(t, err)
	assert.Equal(t, "https://img.example.com/existing.png", w.Image)
}

func TestWalletUseCase_CreateUploadFailureWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.uploader.EXPECT().
		Upload(gomock.Any(), gomock.Any(), gomock.Any()).
		Return("", errors.New("connection reset"))

	_, err := f.wallets.CreateOrUpdateWallet(ctx, usecase.WalletInput{
		UID:   "user-1",
		Name:  ptr("Cash"),
		Image: ptr("/tmp/cash.png"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUploadFailed)
	assert.Equal(t, domain.KindUploadFailed, domain.KindOf(err))

	wallets, err := f.wallets.ListWallets(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, wallets)
}

func TestWalletUseCase_UpdateKeepsBalances(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	w := f.createWallet(t, "user-1", "Cash")
	f.record(t, "user-1", w.ID, domain.TransactionTypeIncome, 100)

	updated, err := f.wallets.CreateOrUpdateWallet(ctx, usecase.WalletInput{ID: w.ID, Name: ptr("Pocket")})
	require.NoError(t, err)
	assert.Equal(t, "Pocket", updated.Name)
	assert.Equal(t, "user-1", updated.UID)
	f.assertWallet(t, w.ID, 100, 100, 0)
}

func TestWalletUseCase_UpdateClearsImage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	w, err := f.wallets.CreateOrUpdateWallet(ctx, usecase.WalletInput{
		UID:   "user-1",
		Name:  ptr("Cash"),
		Image: ptr("https://img.example/cash.png"),
	})
	require.NoError(t, err)
	require.Equal(t, "https://img.example/cash.png", w.Image)

	_, err = f.wallets.CreateOrUpdateWallet(ctx, usecase.WalletInput{ID: w.ID, Image: ptr("")})
	require.NoError(t, err)

	stored, err := f.wallets.GetWallet(ctx, w.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Image)
	assert.Equal(t, "Cash", stored.Name)
}

func TestWalletUseCase_UpdateMissingWallet(t *testing.T) {
	f := newFixture(t)

	_, err := f.wallets.CreateOrUpdateWallet(context.Background(), usecase.WalletInput{ID: "missing", Name: ptr("Cash")})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrWalletNotFound)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestWalletUseCase_ListWalletsNewestFirst(t *testing.T) {
	f := newFixture(t)

	first := f.createWallet(t, "user-1", "First")
	second := f.createWallet(t, "user-1", "Second")
	f.createWallet(t, "user-2", "Other")

	wallets, err := f.wallets.ListWallets(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, wallets, 2)
	assert.Equal(t, second.ID, wallets[0].ID)
	assert.Equal(t, first.ID, wallets[1].ID)
}

func TestWalletUseCase_DeleteWalletCascadesAcrossPages(t *testing.T) {
	f := newFixtureWith(t, fixtureOptions{pageSize: 2})
	ctx := context.Background()

	w := f.createWallet(t, "user-1", "Cash")
	other := f.createWallet(t, "user-1", "Card")
	for i := 0; i < 5; i++ {
		f.record(t, "user-1", w.ID, domain.TransactionTypeIncome, 10)
	}
	f.record(t, "user-1", other.ID, domain.TransactionTypeIncome, 10)

	require.NoError(t, f.wallets.DeleteWallet(ctx, w.ID))

	_, err := f.wallets.GetWallet(ctx, w.ID)
	assert.ErrorIs(t, err, domain.ErrWalletNotFound)
	assert.Equal(t, 0, f.countTransactions(t, w.ID))
	assert.Equal(t, 1, f.countTransactions(t, other.ID))
	f.assertWallet(t, other.ID, 10, 10, 0)
}

func TestWalletUseCase_DeleteMissingWallet(t *testing.T) {
	f := newFixture(t)

	err := f.wallets.DeleteWallet(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrWalletNotFound)
}

func TestWalletUseCase_CascadeFailureIsResumable(t *testing.T) {
	failing := newFixtureWith(t, fixtureOptions{})
	f := newFixtureWith(t, fixtureOptions{store: failingBatchStore{failing.store}})
	ctx := context.Background()

	w := f.createWallet(t, "user-1", "Cash")
	f.record(t, "user-1", w.ID, domain.TransactionTypeIncome, 10)
	f.record(t, "user-1", w.ID, domain.TransactionTypeExpense, 5)

	// The wallet is gone even though its transactions could not be removed.
	require.NoError(t, f.wallets.DeleteWallet(ctx, w.ID))
	_, err := failing.wallets.GetWallet(ctx, w.ID)
	assert.ErrorIs(t, err, domain.ErrWalletNotFound)
	assert.Equal(t, 2, failing.countTransactions(t, w.ID))

	removed, err := failing.wallets.PurgeWalletTransactions(ctx, w.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)
	assert.Equal(t, 0, failing.countTransactions(t, w.ID))
}

func TestWalletUseCase_PurgeRejectsLiveWallet(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	w := f.createWallet(t, "user-1", "Cash")
	f.record(t, "user-1", w.ID, domain.TransactionTypeIncome, 10)

	_, err := f.wallets.PurgeWalletTransactions(ctx, w.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, 1, f.countTransactions(t, w.ID))
}

func TestWalletUseCase_ApplyDeltaRejectsOverdraw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	w := f.createWallet(t, "user-1", "Cash")
	_, err := f.wallets.ApplyDelta(ctx, w.ID, domain.EffectOf(domain.TransactionTypeIncome, amt(40)))
	require.NoError(t, err)

	_, err = f.wallets.ApplyDelta(ctx, w.ID, domain.EffectOf(domain.TransactionTypeExpense, amt(50)))
	require.Error(t, err)

	var insufficient *domain.InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)
	assert.True(t, insufficient.Shortfall().Equal(amt(10)))
	f.assertWallet(t, w.ID, 40, 40, 0)
}

func TestWalletUseCase_ConcurrentApplyDelta(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	w := f.createWallet(t, "user-1", "Cash")

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.wallets.ApplyDelta(ctx, w.ID, domain.EffectOf(domain.TransactionTypeIncome, amt(1)))
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	f.assertWallet(t, w.ID, workers, workers, 0)
}

func TestWalletUseCase_ApplyDeltaMissingWallet(t *testing.T) {
	f := newFixture(t)

	_, err := f.wallets.ApplyDelta(context.Background(), "missing", domain.EffectOf(domain.TransactionTypeIncome, amt(1)))
	assert.ErrorIs(t, err, domain.ErrWalletNotFound)
}
