package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/expenseledger/internal/domain"
	"github.com/iho/expenseledger/internal/infrastructure/metrics"
)

// TransactionUseCase owns transaction documents and keeps wallet balances in step
// with them through the WalletUseCase.
type TransactionUseCase struct {
	store    DocumentStore
	wallets  *WalletUseCase
	uploader ImageUploader
	retrier  Retrier
	cache    Cache
	logger   zerolog.Logger
	metrics  *metrics.Metrics
}

// NewTransactionUseCase creates a new TransactionUseCase. cache and m may be nil.
func NewTransactionUseCase(
	store DocumentStore,
	wallets *WalletUseCase,
	uploader ImageUploader,
	retrier Retrier,
	cache Cache,
	logger zerolog.Logger,
	m *metrics.Metrics,
) *TransactionUseCase {
	return &TransactionUseCase{
		store:    store,
		wallets:  wallets,
		uploader: uploader,
		retrier:  retrier,
		cache:    cache,
		logger:   logger.With().Str("component", "transactions").Logger(),
		metrics:  m,
	}
}

// TransactionInput is a create (no ID) or update (ID set) of a transaction.
// On update nil fields keep their stored value.
type TransactionInput struct {
	ID          string
	UID         string
	Type        *domain.TransactionType
	Amount      *decimal.Decimal
	WalletID    *string
	Category    *string
	Description *string
	Date        *time.Time
	Image       *string
}

// mergeInto overlays the set fields of in onto a copy of base.
func (in TransactionInput) mergeInto(base domain.Transaction) domain.Transaction {
	if in.Type != nil {
		base.Type = *in.Type
	}
	if in.Amount != nil {
		base.Amount = *in.Amount
	}
	if in.WalletID != nil {
		base.WalletID = *in.WalletID
	}
	if in.Category != nil {
		base.Category = *in.Category
	}
	if in.Description != nil {
		base.Description = *in.Description
	}
	if in.Date != nil {
		base.Date = *in.Date
	}
	if in.Image != nil {
		base.Image = *in.Image
	}
	return base
}

// ListTransactionsInput selects transactions of a user, optionally of one wallet.
type ListTransactionsInput struct {
	UID      string
	WalletID string
	Limit    int
}

// CreateOrUpdateTransaction creates a transaction when input.ID is empty and updates it otherwise.
func (uc *TransactionUseCase) CreateOrUpdateTransaction(ctx context.Context, input TransactionInput) (*domain.Transaction, error) {
	var (
		txn *domain.Transaction
		err error
	)
	if input.ID == "" {
		txn, err = uc.createTransaction(ctx, input)
	} else {
		txn, err = uc.updateTransaction(ctx, input)
	}
	if err != nil {
		uc.countError(err)
		return nil, err
	}

	invalidateStats(ctx, uc.cache, uc.logger, txn.UID)
	return txn, nil
}

func (uc *TransactionUseCase) createTransaction(ctx context.Context, input TransactionInput) (*domain.Transaction, error) {
	if input.UID == "" {
		return nil, domain.Invalid("uid is required")
	}

	txn := input.mergeInto(domain.Transaction{UID: input.UID})
	if err := txn.Validate(); err != nil {
		return nil, err
	}

	effect := txn.Effect()

	// Fail fast before the upload; the transaction below re-checks.
	if err := uc.wallets.CheckDelta(ctx, txn.WalletID, effect); err != nil {
		return nil, err
	}

	image, err := uploadImage(ctx, uc.uploader, txn.Image, TransactionImageFolder)
	if err != nil {
		return nil, err
	}
	txn.Image = image

	err = uc.retrier.Retry(ctx, func() error {
		return uc.store.RunTransaction(ctx, func(ctx context.Context, tx StoreTx) error {
			steps := []LedgerStep{{WalletID: txn.WalletID, Delta: effect, Kind: StepApply}}
			if _, err := uc.wallets.ApplyStepsTx(ctx, tx, steps); err != nil {
				return err
			}
			txn.ID = tx.Create(domain.CollectionTransactions, txn.Fields())
			return nil
		})
	})
	if err != nil {
		return nil, storeErr(err, "create transaction")
	}

	if uc.metrics != nil {
		uc.metrics.TransactionsCreated.Inc()
		uc.metrics.TransactionAmount.WithLabelValues(string(txn.Type)).Observe(txn.Amount.InexactFloat64())
	}
	uc.logger.Info().
		Str("transaction_id", txn.ID).
		Str("wallet_id", txn.WalletID).
		Str("type", string(txn.Type)).
		Str("amount", txn.Amount.String()).
		Msg("transaction created")

	return &txn, nil
}

func (uc *TransactionUseCase) updateTransaction(ctx context.Context, input TransactionInput) (*domain.Transaction, error) {
	// Validate against the current document before uploading anything.
	current, err := uc.GetTransaction(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	preview := input.mergeInto(*current)
	if err := preview.Validate(); err != nil {
		return nil, err
	}

	if input.Image != nil {
		image, err := uploadImage(ctx, uc.uploader, *input.Image, TransactionImageFolder)
		if err != nil {
			return nil, err
		}
		input.Image = &image
	}

	var (
		result     domain.Transaction
		rebalanced bool
	)
	err = uc.retrier.Retry(ctx, func() error {
		return uc.store.RunTransaction(ctx, func(ctx context.Context, tx StoreTx) error {
			doc, err := tx.Get(ctx, domain.CollectionTransactions, input.ID)
			if err != nil {
				return notFoundAs(err, domain.ErrTransactionNotFound, input.ID)
			}
			old, err := domain.TransactionFromDocument(doc)
			if err != nil {
				return err
			}

			next := input.mergeInto(*old)
			if err := next.Validate(); err != nil {
				return err
			}

			rebalanced = old.AffectsBalance(&next)
			if rebalanced {
				// Revert on the original wallet, then apply on the destination.
				// For the same wallet the new effect is checked against the reverted balance.
				steps := []LedgerStep{
					{WalletID: old.WalletID, Delta: old.Effect().Inverse(), Kind: StepApply},
					{WalletID: next.WalletID, Delta: next.Effect(), Kind: StepApply},
				}
				if _, err := uc.wallets.ApplyStepsTx(ctx, tx, steps); err != nil {
					return err
				}
			}

			tx.Set(domain.CollectionTransactions, input.ID, next.Fields())
			result = next
			return nil
		})
	})
	if err != nil {
		return nil, storeErr(err, "update transaction %s", input.ID)
	}

	mode := "fields"
	if rebalanced {
		mode = "rebalanced"
	}
	if uc.metrics != nil {
		uc.metrics.TransactionsUpdated.WithLabelValues(mode).Inc()
	}
	uc.logger.Info().Str("transaction_id", result.ID).Str("mode", mode).Msg("transaction updated")

	return &result, nil
}

// DeleteTransaction removes a transaction and its effect on the wallet.
// An empty walletID means the stored wallet; a different one is rejected.
func (uc *TransactionUseCase) DeleteTransaction(ctx context.Context, id, walletID string) error {
	if id == "" {
		return domain.Invalid("transaction id is required")
	}

	var (
		uid        string
		walletGone bool
	)
	err := uc.retrier.Retry(ctx, func() error {
		return uc.store.RunTransaction(ctx, func(ctx context.Context, tx StoreTx) error {
			doc, err := tx.Get(ctx, domain.CollectionTransactions, id)
			if err != nil {
				return notFoundAs(err, domain.ErrTransactionNotFound, id)
			}
			txn, err := domain.TransactionFromDocument(doc)
			if err != nil {
				return err
			}
			if walletID != "" && walletID != txn.WalletID {
				return domain.Invalid("transaction %s belongs to wallet %s, not %s", id, txn.WalletID, walletID)
			}
			uid = txn.UID

			steps := []LedgerStep{{WalletID: txn.WalletID, Delta: txn.Effect(), Kind: StepReverse}}
			_, err = uc.wallets.ApplyStepsTx(ctx, tx, steps)
			walletGone = isWalletNotFound(err)
			if err != nil && !walletGone {
				return err
			}

			tx.Delete(domain.CollectionTransactions, id)
			return nil
		})
	})
	if err != nil {
		uc.countError(err)
		return storeErr(err, "delete transaction %s", id)
	}

	if uc.metrics != nil {
		uc.metrics.TransactionsDeleted.Inc()
	}
	uc.logger.Info().Str("transaction_id", id).Bool("wallet_gone", walletGone).Msg("transaction deleted")

	invalidateStats(ctx, uc.cache, uc.logger, uid)
	return nil
}

// GetTransaction retrieves a transaction by ID.
func (uc *TransactionUseCase) GetTransaction(ctx context.Context, id string) (*domain.Transaction, error) {
	if id == "" {
		return nil, domain.Invalid("transaction id is required")
	}

	doc, err := uc.store.Get(ctx, domain.CollectionTransactions, id)
	if err != nil {
		return nil, storeErr(notFoundAs(err, domain.ErrTransactionNotFound, id), "get transaction")
	}

	return domain.TransactionFromDocument(doc)
}

// ListTransactions returns a user's transactions, newest first.
func (uc *TransactionUseCase) ListTransactions(ctx context.Context, input ListTransactionsInput) ([]*domain.Transaction, error) {
	if input.UID == "" {
		return nil, domain.Invalid("uid is required")
	}

	filters := []domain.Filter{domain.Where(domain.FieldUID, domain.OpEqual, input.UID)}
	if input.WalletID != "" {
		filters = append(filters, domain.Where(domain.FieldWalletID, domain.OpEqual, input.WalletID))
	}

	docs, err := uc.store.Query(ctx, domain.CollectionTransactions, domain.Query{
		Filters: filters,
		OrderBy: []domain.Order{{Field: domain.FieldDate, Desc: true}},
		Limit:   domain.ClampLimit(input.Limit, DefaultListLimit, MaxListLimit),
	})
	if err != nil {
		return nil, storeErr(err, "list transactions")
	}

	return decodeTransactions(docs)
}

func (uc *TransactionUseCase) countError(err error) {
	if uc.metrics != nil {
		uc.metrics.TransactionErrors.WithLabelValues(string(domain.KindOf(err))).Inc()
	}
}

func isWalletNotFound(err error) bool {
	return errors.Is(err, domain.ErrWalletNotFound)
}

func decodeTransactions(docs []*domain.Document) ([]*domain.Transaction, error) {
	txns := make([]*domain.Transaction, 0, len(docs))
	for _, doc := range docs {
		t, err := domain.TransactionFromDocument(doc)
		if err != nil {
			return nil, storeErr(err, "decode transaction")
		}
		txns = append(txns, t)
	}
	return txns, nil
}
