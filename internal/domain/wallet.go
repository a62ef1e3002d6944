package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Wallet field names as stored in the document store.
const (
	FieldName         = "name"
	FieldImage        = "image"
	FieldAmount       = "amount"
	FieldTotalIncome  = "totalIncome"
	FieldTotalExpense = "totalExpense"
	FieldCreated      = "created"
	FieldUID          = "uid"
)

// Wallet is a named money container with a running balance.
// Amount always equals TotalIncome - TotalExpense outside of an in-flight operation.
type Wallet struct {
	ID           string
	UID          string
	Name         string
	Image        string
	Amount       decimal.Decimal
	TotalIncome  decimal.Decimal
	TotalExpense decimal.Decimal
	Created      time.Time
	Version      int64
}

// Delta is the signed change one transaction effect makes to a wallet.
type Delta struct {
	Amount  decimal.Decimal
	Income  decimal.Decimal
	Expense decimal.Decimal
}

// EffectOf returns the delta a live transaction of the given type and amount contributes.
func EffectOf(t TransactionType, amount decimal.Decimal) Delta {
	if t == TransactionTypeIncome {
		return Delta{Amount: amount, Income: amount, Expense: decimal.Zero}
	}
	return Delta{Amount: amount.Neg(), Income: decimal.Zero, Expense: amount}
}

// Inverse returns the delta that undoes d.
func (d Delta) Inverse() Delta {
	return Delta{Amount: d.Amount.Neg(), Income: d.Income.Neg(), Expense: d.Expense.Neg()}
}

// IsZero reports whether d changes nothing.
func (d Delta) IsZero() bool {
	return d.Amount.IsZero() && d.Income.IsZero() && d.Expense.IsZero()
}

func (d Delta) String() string {
	return fmt.Sprintf("amount=%s income=%s expense=%s", d.Amount, d.Income, d.Expense)
}

// Apply returns the wallet after d. A delta that adds expense and leaves the
// balance negative is rejected with *InsufficientBalanceError.
func (w Wallet) Apply(d Delta) (Wallet, error) {
	next := w.applyUnchecked(d)
	if d.Expense.IsPositive() && next.Amount.IsNegative() {
		return w, &InsufficientBalanceError{
			WalletID:  w.ID,
			Available: w.Amount,
			Requested: d.Expense,
		}
	}
	return next, nil
}

// Reverse removes a transaction effect from the wallet. Removing an income
// that the wallet can no longer cover is rejected with ErrIncomeReversal.
func (w Wallet) Reverse(effect Delta) (Wallet, error) {
	next := w.applyUnchecked(effect.Inverse())
	if effect.Income.IsPositive() && next.Amount.IsNegative() {
		return w, fmt.Errorf("%w: wallet %s has %s, income is %s", ErrIncomeReversal, w.ID, w.Amount, effect.Income)
	}
	return next, nil
}

func (w Wallet) applyUnchecked(d Delta) Wallet {
	w.Amount = w.Amount.Add(d.Amount)
	w.TotalIncome = w.TotalIncome.Add(d.Income)
	w.TotalExpense = w.TotalExpense.Add(d.Expense)
	return w
}

// Fields returns the full document representation of the wallet.
func (w Wallet) Fields() Fields {
	return Fields{
		FieldName:         w.Name,
		FieldAmount:       w.Amount,
		FieldTotalIncome:  w.TotalIncome,
		FieldTotalExpense: w.TotalExpense,
		FieldCreated:      w.Created,
		FieldUID:          w.UID,
		FieldImage:        w.Image,
	}
}

// BalanceFields returns only the balance fields, for merge writes.
func (w Wallet) BalanceFields() Fields {
	return Fields{
		FieldAmount:       w.Amount,
		FieldTotalIncome:  w.TotalIncome,
		FieldTotalExpense: w.TotalExpense,
	}
}

// WalletFromDocument decodes a wallet document.
func WalletFromDocument(doc *Document) (*Wallet, error) {
	w := &Wallet{
		ID:      doc.ID,
		UID:     doc.Fields.String(FieldUID),
		Name:    doc.Fields.String(FieldName),
		Image:   doc.Fields.String(FieldImage),
		Version: doc.Version,
	}

	var err error
	if w.Amount, err = doc.Fields.Decimal(FieldAmount); err != nil {
		return nil, fmt.Errorf("wallet %s: %w", doc.ID, err)
	}
	if w.TotalIncome, err = doc.Fields.Decimal(FieldTotalIncome); err != nil {
		return nil, fmt.Errorf("wallet %s: %w", doc.ID, err)
	}
	if w.TotalExpense, err = doc.Fields.Decimal(FieldTotalExpense); err != nil {
		return nil, fmt.Errorf("wallet %s: %w", doc.ID, err)
	}
	if w.Created, err = doc.Fields.Time(FieldCreated); err != nil {
		return nil, fmt.Errorf("wallet %s: %w", doc.ID, err)
	}

	return w, nil
}
