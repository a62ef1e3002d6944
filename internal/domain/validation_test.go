package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidateWalletName(t *testing.T) {
	t.Parallel()

	t.Run("valid name", func(t *testing.T) {
		if err := ValidateWalletName("Cash"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("empty name rejected", func(t *testing.T) {
		err := ValidateWalletName("   ")
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("name too long", func(t *testing.T) {
		tooLong := strings.Repeat("a", MaxWalletNameLength+1)
		err := ValidateWalletName(tooLong)
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestValidateAmount(t *testing.T) {
	t.Parallel()

	valid := decimal.NewFromFloat(100.25)
	if err := ValidateAmount(valid); err != nil {
		t.Fatalf("expected valid amount, got %v", err)
	}

	if err := ValidateAmount(decimal.Zero); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for zero, got %v", err)
	}

	tooLarge := maxTransactionAmount.Add(decimal.NewFromInt(1))
	if err := ValidateAmount(tooLarge); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for large amount, got %v", err)
	}
}

func TestClampLimit(t *testing.T) {
	t.Parallel()

	cases := []struct{ in, want int }{
		{0, 30},
		{-1, 30},
		{10, 10},
		{500, 500},
		{501, 500},
	}
	for _, c := range cases {
		if got := ClampLimit(c.in, 30, 500); got != c.want {
			t.Fatalf("ClampLimit(%d) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestIsRemoteImage(t *testing.T) {
	t.Parallel()

	if !IsRemoteImage("https://res.example/img.png") {
		t.Fatal("expected https ref to be remote")
	}
	if IsRemoteImage("/tmp/receipt.jpg") {
		t.Fatal("expected local path not to be remote")
	}
	if IsRemoteImage("") {
		t.Fatal("expected empty ref not to be remote")
	}
}
