package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Validation constants
const (
	MaxWalletNameLength  = 255
	MaxCategoryLength    = 64
	MaxDescriptionLength = 1024
	MaxTransactionAmount = "1000000000000" // 1 trillion
)

var maxTransactionAmount = decimal.RequireFromString(MaxTransactionAmount)

// ValidateWalletName validates a wallet display label.
func ValidateWalletName(name string) error {
	name = strings.TrimSpace(name)

	if name == "" {
		return Invalid("wallet name cannot be empty")
	}

	if len(name) > MaxWalletNameLength {
		return Invalid("wallet name exceeds %d characters", MaxWalletNameLength)
	}

	return nil
}

// ValidateAmount validates a transaction amount.
func ValidateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return Invalid("amount must be positive")
	}

	if amount.GreaterThan(maxTransactionAmount) {
		return Invalid("amount exceeds maximum of %s", MaxTransactionAmount)
	}

	return nil
}

// ValidateText validates optional free text fields.
func ValidateText(field, value string, maxLen int) error {
	if len(value) > maxLen {
		return Invalid("%s exceeds %d characters", field, maxLen)
	}
	return nil
}

// ClampLimit normalizes a list limit into [1, max], using def when unset.
func ClampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// IsRemoteImage reports whether ref already points at an uploaded image.
func IsRemoteImage(ref string) bool {
	return strings.HasPrefix(ref, "https://") || strings.HasPrefix(ref, "http://")
}
