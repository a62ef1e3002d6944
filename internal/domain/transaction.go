package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction field names as stored in the document store.
const (
	FieldType        = "type"
	FieldWalletID    = "walletId"
	FieldCategory    = "category"
	FieldDescription = "description"
	FieldDate        = "date"
)

// TransactionType tags a transaction as money in or money out.
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// IsValid reports whether t is a known type.
func (t TransactionType) IsValid() bool {
	return t == TransactionTypeIncome || t == TransactionTypeExpense
}

// Transaction is a single income or expense record attributed to one wallet.
type Transaction struct {
	ID          string
	UID         string
	Type        TransactionType
	Amount      decimal.Decimal
	WalletID    string
	Category    string
	Description string
	Date        time.Time
	Image       string
}

// Validate checks the fields every stored transaction must satisfy.
func (t *Transaction) Validate() error {
	if err := ValidateAmount(t.Amount); err != nil {
		return err
	}
	if t.Type == "" {
		return Invalid("transaction type is required")
	}
	if !t.Type.IsValid() {
		return Invalid("unknown transaction type %q", t.Type)
	}
	if t.Type == TransactionTypeExpense && strings.TrimSpace(t.Category) == "" {
		return Invalid("category is required for expenses")
	}
	if t.WalletID == "" {
		return Invalid("wallet is required")
	}
	if t.Date.IsZero() {
		return Invalid("date is required")
	}
	if err := ValidateText("category", t.Category, MaxCategoryLength); err != nil {
		return err
	}
	return ValidateText("description", t.Description, MaxDescriptionLength)
}

// Effect returns the delta this transaction contributes to its wallet.
func (t *Transaction) Effect() Delta {
	return EffectOf(t.Type, t.Amount)
}

// AffectsBalance reports whether replacing t with next changes any wallet balance.
func (t *Transaction) AffectsBalance(next *Transaction) bool {
	return t.Type != next.Type || !t.Amount.Equal(next.Amount) || t.WalletID != next.WalletID
}

// Fields returns the document representation of the transaction.
func (t *Transaction) Fields() Fields {
	return Fields{
		FieldType:        string(t.Type),
		FieldAmount:      t.Amount,
		FieldWalletID:    t.WalletID,
		FieldCategory:    t.Category,
		FieldDescription: t.Description,
		FieldDate:        t.Date,
		FieldUID:         t.UID,
		FieldImage:       t.Image,
	}
}

// TransactionFromDocument decodes a transaction document.
func TransactionFromDocument(doc *Document) (*Transaction, error) {
	t := &Transaction{
		ID:          doc.ID,
		UID:         doc.Fields.String(FieldUID),
		Type:        TransactionType(doc.Fields.String(FieldType)),
		WalletID:    doc.Fields.String(FieldWalletID),
		Category:    doc.Fields.String(FieldCategory),
		Description: doc.Fields.String(FieldDescription),
		Image:       doc.Fields.String(FieldImage),
	}

	var err error
	if t.Amount, err = doc.Fields.Decimal(FieldAmount); err != nil {
		return nil, fmt.Errorf("transaction %s: %w", doc.ID, err)
	}
	if t.Date, err = doc.Fields.Time(FieldDate); err != nil {
		return nil, fmt.Errorf("transaction %s: %w", doc.ID, err)
	}

	return t, nil
}
