package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/iho/expenseledger/internal/domain"
)

// storeErr tags an unclassified port error as a store failure and adds context.
// Errors that already carry a kind are only annotated.
func storeErr(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if domain.KindOf(err) != domain.KindStoreError || errors.Is(err, domain.ErrStore) {
		return fmt.Errorf("%s: %w", msg, err)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrStore, msg, err)
}

// notFoundAs replaces a generic document-not-found error with a typed one.
func notFoundAs(err error, typed error, id string) error {
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("%w: %s", typed, id)
	}
	return err
}

// uploadImage uploads ref unless it is empty or already remote.
func uploadImage(ctx context.Context, uploader ImageUploader, ref, folder string) (string, error) {
	if ref == "" || domain.IsRemoteImage(ref) {
		return ref, nil
	}
	if uploader == nil {
		return "", fmt.Errorf("%w: no uploader configured", domain.ErrUploadFailed)
	}

	url, err := uploader.Upload(ctx, ref, folder)
	if err != nil {
		if errors.Is(err, domain.ErrUploadFailed) {
			return "", err
		}
		return "", fmt.Errorf("%w: %w", domain.ErrUploadFailed, err)
	}
	return url, nil
}

// invalidateStats drops every cached statistics series of a user.
// Cache failures are logged and otherwise ignored.
func invalidateStats(ctx context.Context, cache Cache, logger zerolog.Logger, uid string) {
	if cache == nil || uid == "" {
		return
	}
	for _, p := range []domain.Period{domain.PeriodWeek, domain.PeriodMonth, domain.PeriodYear} {
		if err := cache.Delete(ctx, statsCacheKey(uid, p)); err != nil {
			logger.Warn().Err(err).Str("uid", uid).Str("period", string(p)).Msg("failed to invalidate stats cache")
		}
	}
}
