package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// Error kinds. Every error returned by the use cases wraps exactly one of these.
	ErrInvalidInput        = errors.New("invalid input")
	ErrNotFound            = errors.New("not found")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrUploadFailed        = errors.New("image upload failed")
	ErrStore               = errors.New("store operation failed")

	// Not found errors
	ErrWalletNotFound      = fmt.Errorf("wallet %w", ErrNotFound)
	ErrTransactionNotFound = fmt.Errorf("transaction %w", ErrNotFound)
	ErrDocumentNotFound    = fmt.Errorf("document %w", ErrNotFound)

	// Balance errors
	ErrIncomeReversal = fmt.Errorf("%w: deleting this income would leave the wallet negative", ErrInsufficientBalance)

	// ErrConcurrentModification is returned by a store transaction when a document it read
	// was changed before commit. Callers retry the whole transaction.
	ErrConcurrentModification = errors.New("concurrent modification detected")
)

// Kind classifies an error into the ledger error taxonomy.
type Kind string

const (
	KindInvalidInput        Kind = "invalid_input"
	KindNotFound            Kind = "not_found"
	KindInsufficientBalance Kind = "insufficient_balance"
	KindUploadFailed        Kind = "upload_failed"
	KindStoreError          Kind = "store_error"
)

// KindOf returns the taxonomy kind of err. Unknown errors are store errors.
func KindOf(err error) Kind {
	switch {
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInsufficientBalance):
		return KindInsufficientBalance
	case errors.Is(err, ErrUploadFailed):
		return KindUploadFailed
	default:
		return KindStoreError
	}
}

// UserMessage returns a short message suitable for direct display.
// Infrastructure failures never leak their details.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	switch KindOf(err) {
	case KindInvalidInput:
		return err.Error()
	case KindNotFound:
		switch {
		case errors.Is(err, ErrWalletNotFound):
			return ErrWalletNotFound.Error()
		case errors.Is(err, ErrTransactionNotFound):
			return ErrTransactionNotFound.Error()
		default:
			return ErrNotFound.Error()
		}
	case KindInsufficientBalance:
		if errors.Is(err, ErrIncomeReversal) {
			return "deleting this income would leave the wallet with a negative balance"
		}
		return "wallet balance is too low for this expense"
	case KindUploadFailed:
		return "failed to upload image"
	default:
		return "operation failed"
	}
}

// InsufficientBalanceError provides details about a balance shortage.
type InsufficientBalanceError struct {
	WalletID  string
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance in wallet %s: available %s, requested %s (short by %s)",
		e.WalletID, e.Available, e.Requested, e.Shortfall())
}

// Shortfall is how much more the wallet would need to cover the request.
func (e *InsufficientBalanceError) Shortfall() decimal.Decimal {
	return e.Requested.Sub(e.Available)
}

// Unwrap makes errors.Is(err, ErrInsufficientBalance) work.
func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

// Invalid builds an ErrInvalidInput with a human readable reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
