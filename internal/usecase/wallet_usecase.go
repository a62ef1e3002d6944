package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/expenseledger/internal/domain"
	"github.com/iho/expenseledger/internal/infrastructure/metrics"
)

// WalletUseCase owns wallet documents and their balance fields.
type WalletUseCase struct {
	store    DocumentStore
	uploader ImageUploader
	retrier  Retrier
	cache    Cache
	logger   zerolog.Logger
	metrics  *metrics.Metrics
	pageSize int
	now      func() time.Time
}

// NewWalletUseCase creates a new WalletUseCase. cache and m may be nil.
// A pageSize of zero uses DefaultCascadePageSize.
func NewWalletUseCase(
	store DocumentStore,
	uploader ImageUploader,
	retrier Retrier,
	cache Cache,
	logger zerolog.Logger,
	m *metrics.Metrics,
	pageSize int,
) *WalletUseCase {
	if pageSize <= 0 {
		pageSize = DefaultCascadePageSize
	}
	return &WalletUseCase{
		store:    store,
		uploader: uploader,
		retrier:  retrier,
		cache:    cache,
		logger:   logger.With().Str("component", "wallets").Logger(),
		metrics:  m,
		pageSize: pageSize,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// WalletInput is a create (no ID) or merge update (ID set) of a wallet.
// Nil fields are left unchanged on update.
type WalletInput struct {
	ID    string
	UID   string
	Name  *string
	Image *string
}

// StepKind selects how a LedgerStep changes its wallet.
type StepKind int

const (
	// StepApply adds the delta, rejecting expenses the wallet cannot cover.
	StepApply StepKind = iota
	// StepReverse removes a transaction effect, rejecting income removals
	// that would leave the wallet negative.
	StepReverse
)

// LedgerStep is one balance change executed inside a store transaction.
type LedgerStep struct {
	WalletID string
	Delta    domain.Delta
	Kind     StepKind
}

// CreateOrUpdateWallet creates a wallet when input.ID is empty and merge-updates it otherwise.
func (uc *WalletUseCase) CreateOrUpdateWallet(ctx context.Context, input WalletInput) (*domain.Wallet, error) {
	if input.ID == "" {
		return uc.createWallet(ctx, input)
	}
	return uc.updateWallet(ctx, input)
}

func (uc *WalletUseCase) createWallet(ctx context.Context, input WalletInput) (*domain.Wallet, error) {
	if strings.TrimSpace(input.UID) == "" {
		return nil, domain.Invalid("uid is required")
	}
	if input.Name == nil {
		return nil, domain.Invalid("wallet name cannot be empty")
	}
	if err := domain.ValidateWalletName(*input.Name); err != nil {
		return nil, err
	}

	var image string
	if input.Image != nil {
		url, err := uploadImage(ctx, uc.uploader, *input.Image, WalletImageFolder)
		if err != nil {
			return nil, err
		}
		image = url
	}

	wallet := domain.Wallet{
		UID:     input.UID,
		Name:    strings.TrimSpace(*input.Name),
		Image:   image,
		Created: uc.now(),
	}

	doc, err := uc.store.Create(ctx, domain.CollectionWallets, wallet.Fields())
	if err != nil {
		return nil, storeErr(err, "create wallet")
	}

	if uc.metrics != nil {
		uc.metrics.WalletsCreated.Inc()
	}
	uc.logger.Info().Str("wallet_id", doc.ID).Str("uid", wallet.UID).Msg("wallet created")

	return domain.WalletFromDocument(doc)
}

func (uc *WalletUseCase) updateWallet(ctx context.Context, input WalletInput) (*domain.Wallet, error) {
	patch := domain.Fields{}

	if input.Name != nil {
		if err := domain.ValidateWalletName(*input.Name); err != nil {
			return nil, err
		}
		patch[domain.FieldName] = strings.TrimSpace(*input.Name)
	}

	if input.Image != nil {
		url, err := uploadImage(ctx, uc.uploader, *input.Image, WalletImageFolder)
		if err != nil {
			return nil, err
		}
		patch[domain.FieldImage] = url
	}

	if len(patch) == 0 {
		return uc.GetWallet(ctx, input.ID)
	}

	doc, err := uc.store.Update(ctx, domain.CollectionWallets, input.ID, patch)
	if err != nil {
		return nil, storeErr(notFoundAs(err, domain.ErrWalletNotFound, input.ID), "update wallet %s", input.ID)
	}

	return domain.WalletFromDocument(doc)
}

// GetWallet retrieves a wallet by ID.
func (uc *WalletUseCase) GetWallet(ctx context.Context, id string) (*domain.Wallet, error) {
	if id == "" {
		return nil, domain.Invalid("wallet id is required")
	}

	doc, err := uc.store.Get(ctx, domain.CollectionWallets, id)
	if err != nil {
		return nil, storeErr(notFoundAs(err, domain.ErrWalletNotFound, id), "get wallet")
	}

	return domain.WalletFromDocument(doc)
}

// ListWallets returns the wallets of a user, newest first.
func (uc *WalletUseCase) ListWallets(ctx context.Context, uid string) ([]*domain.Wallet, error) {
	if uid == "" {
		return nil, domain.Invalid("uid is required")
	}

	docs, err := uc.store.Query(ctx, domain.CollectionWallets, domain.Query{
		Filters: []domain.Filter{domain.Where(domain.FieldUID, domain.OpEqual, uid)},
		OrderBy: []domain.Order{{Field: domain.FieldCreated, Desc: true}},
	})
	if err != nil {
		return nil, storeErr(err, "list wallets")
	}

	wallets := make([]*domain.Wallet, 0, len(docs))
	for _, doc := range docs {
		w, err := domain.WalletFromDocument(doc)
		if err != nil {
			return nil, storeErr(err, "decode wallet")
		}
		wallets = append(wallets, w)
	}

	return wallets, nil
}

// DeleteWallet deletes the wallet document, then every transaction attributed to it.
// The cascade is best effort: a failure is logged and counted, the wallet stays
// deleted, and PurgeWalletTransactions finishes the job later.
func (uc *WalletUseCase) DeleteWallet(ctx context.Context, id string) error {
	wallet, err := uc.GetWallet(ctx, id)
	if err != nil {
		return err
	}

	if err := uc.store.Delete(ctx, domain.CollectionWallets, id); err != nil {
		return storeErr(err, "delete wallet %s", id)
	}

	if uc.metrics != nil {
		uc.metrics.WalletsDeleted.Inc()
	}

	removed, err := uc.cascade(ctx, id)
	if err != nil {
		if uc.metrics != nil {
			uc.metrics.CascadeFailures.Inc()
		}
		uc.logger.Error().
			Err(err).
			Str("wallet_id", id).
			Int("removed", removed).
			Msg("cascade delete stopped, wallet transactions remain")
	} else {
		uc.logger.Info().Str("wallet_id", id).Int("removed", removed).Msg("wallet deleted")
	}

	invalidateStats(ctx, uc.cache, uc.logger, wallet.UID)
	return nil
}

// PurgeWalletTransactions resumes the cascade delete of an already deleted wallet
// and returns how many transactions it removed.
func (uc *WalletUseCase) PurgeWalletTransactions(ctx context.Context, walletID string) (int, error) {
	if walletID == "" {
		return 0, domain.Invalid("wallet id is required")
	}

	_, err := uc.store.Get(ctx, domain.CollectionWallets, walletID)
	switch {
	case err == nil:
		return 0, domain.Invalid("wallet %s still exists, delete the wallet instead", walletID)
	case !errors.Is(err, domain.ErrNotFound):
		return 0, storeErr(err, "get wallet")
	}

	removed, err := uc.cascade(ctx, walletID)
	if err != nil {
		return removed, err
	}

	uc.logger.Info().Str("wallet_id", walletID).Int("removed", removed).Msg("wallet transactions purged")
	return removed, nil
}

// cascade deletes transactions of a wallet one bounded batch at a time until none remain.
func (uc *WalletUseCase) cascade(ctx context.Context, walletID string) (int, error) {
	removed := 0

	for {
		docs, err := uc.store.Query(ctx, domain.CollectionTransactions, domain.Query{
			Filters: []domain.Filter{domain.Where(domain.FieldWalletID, domain.OpEqual, walletID)},
			Limit:   uc.pageSize,
		})
		if err != nil {
			return removed, storeErr(err, "query transactions of wallet %s", walletID)
		}
		if len(docs) == 0 {
			return removed, nil
		}

		batch := uc.store.Batch()
		for _, doc := range docs {
			batch.Delete(domain.CollectionTransactions, doc.ID)
		}
		if err := batch.Commit(ctx); err != nil {
			return removed, storeErr(err, "delete transactions of wallet %s", walletID)
		}

		removed += len(docs)
		if uc.metrics != nil {
			uc.metrics.CascadeDeleted.Add(float64(len(docs)))
		}
	}
}

// CheckDelta reports whether delta could be applied to the wallet right now
// without writing anything.
func (uc *WalletUseCase) CheckDelta(ctx context.Context, walletID string, delta domain.Delta) error {
	wallet, err := uc.GetWallet(ctx, walletID)
	if err != nil {
		return err
	}
	_, err = wallet.Apply(delta)
	return err
}

// ApplyDelta atomically adds delta to a wallet's balance fields.
func (uc *WalletUseCase) ApplyDelta(ctx context.Context, walletID string, delta domain.Delta) (*domain.Wallet, error) {
	if walletID == "" {
		return nil, domain.Invalid("wallet id is required")
	}

	var result *domain.Wallet
	err := uc.retrier.Retry(ctx, func() error {
		return uc.store.RunTransaction(ctx, func(ctx context.Context, tx StoreTx) error {
			wallets, err := uc.ApplyStepsTx(ctx, tx, []LedgerStep{{WalletID: walletID, Delta: delta, Kind: StepApply}})
			if err != nil {
				return err
			}
			result = wallets[walletID]
			return nil
		})
	})
	if err != nil {
		return nil, storeErr(err, "apply delta to wallet %s", walletID)
	}

	return result, nil
}

// ApplyStepsTx reads every wallet the steps touch, runs the steps in order against
// those in-memory wallets and queues the resulting balance writes on tx.
// A rejected step returns before anything is queued.
func (uc *WalletUseCase) ApplyStepsTx(ctx context.Context, tx StoreTx, steps []LedgerStep) (map[string]*domain.Wallet, error) {
	wallets := make(map[string]*domain.Wallet, len(steps))
	var order []string

	for _, step := range steps {
		if _, ok := wallets[step.WalletID]; ok {
			continue
		}
		doc, err := tx.Get(ctx, domain.CollectionWallets, step.WalletID)
		if err != nil {
			return nil, notFoundAs(err, domain.ErrWalletNotFound, step.WalletID)
		}
		w, err := domain.WalletFromDocument(doc)
		if err != nil {
			return nil, err
		}
		wallets[step.WalletID] = w
		order = append(order, step.WalletID)
	}

	for _, step := range steps {
		current := wallets[step.WalletID]

		var (
			next domain.Wallet
			err  error
		)
		switch step.Kind {
		case StepReverse:
			next, err = current.Reverse(step.Delta)
		default:
			next, err = current.Apply(step.Delta)
		}
		if err != nil {
			return nil, err
		}

		wallets[step.WalletID] = &next
		uc.countOperation(step.Kind)
	}

	for _, id := range order {
		tx.Set(domain.CollectionWallets, id, wallets[id].BalanceFields())
		wallets[id].Version++
	}

	return wallets, nil
}

func (uc *WalletUseCase) countOperation(kind StepKind) {
	if uc.metrics != nil {
		uc.metrics.WalletOperations.WithLabelValues(kind.String()).Inc()
	}
}

func (k StepKind) String() string {
	if k == StepReverse {
		return "reverse"
	}
	return "apply"
}
