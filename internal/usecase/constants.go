package usecase

import "time"

const (
	// DefaultCascadePageSize is how many transactions one cascade batch deletes.
	// Kept under the 500 writes per batch ceiling of document stores.
	DefaultCascadePageSize = 500

	// DefaultListLimit and MaxListLimit bound transaction listings.
	DefaultListLimit = 30
	MaxListLimit     = 500

	// DefaultStatsCacheTTL is how long a computed statistics series is served from cache.
	DefaultStatsCacheTTL = 5 * time.Minute

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour

	// IdempotencyPending is stored under a key while the first request holding it is in flight.
	IdempotencyPending = "processing"

	// Upload folders.
	WalletImageFolder      = "wallets"
	TransactionImageFolder = "transactions"
)
