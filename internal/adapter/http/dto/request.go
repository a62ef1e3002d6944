package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/expenseledger/internal/domain"
	"github.com/iho/expenseledger/internal/usecase"
)

// WalletRequest creates or updates a wallet. Omitted fields are left unchanged on update.
type WalletRequest struct {
	UID   string  `json:"uid"`
	Name  *string `json:"name,omitempty"`
	Image *string `json:"image,omitempty"`
}

// ToUseCaseInput converts to use case input. An empty id creates a wallet.
func (r *WalletRequest) ToUseCaseInput(id string) usecase.WalletInput {
	return usecase.WalletInput{
		ID:    id,
		UID:   r.UID,
		Name:  r.Name,
		Image: r.Image,
	}
}

// TransactionRequest creates or updates a transaction.
type TransactionRequest struct {
	UID         string                  `json:"uid"`
	Type        *domain.TransactionType `json:"type,omitempty"`
	Amount      *decimal.Decimal        `json:"amount,omitempty"`
	WalletID    *string                 `json:"walletId,omitempty"`
	Category    *string                 `json:"category,omitempty"`
	Description *string                 `json:"description,omitempty"`
	Date        *time.Time              `json:"date,omitempty"`
	Image       *string                 `json:"image,omitempty"`
}

// ToUseCaseInput converts to use case input. An empty id creates a transaction.
func (r *TransactionRequest) ToUseCaseInput(id string) usecase.TransactionInput {
	return usecase.TransactionInput{
		ID:          id,
		UID:         r.UID,
		Type:        r.Type,
		Amount:      r.Amount,
		WalletID:    r.WalletID,
		Category:    r.Category,
		Description: r.Description,
		Date:        r.Date,
		Image:       r.Image,
	}
}
