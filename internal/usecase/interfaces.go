package usecase

import (
	"context"
	"time"

	"github.com/iho/expenseledger/internal/domain"
)

// DocumentReader reads single documents by ID.
// Missing documents are reported as domain.ErrDocumentNotFound.
type DocumentReader interface {
	Get(ctx context.Context, collection, id string) (*domain.Document, error)
}

// DocumentStore defines data access for keyed documents grouped in collections.
type DocumentStore interface {
	DocumentReader
	// Create stores a new document under a store-assigned ID.
	Create(ctx context.Context, collection string, fields domain.Fields) (*domain.Document, error)
	// Upsert merges fields into the document, creating it when absent.
	Upsert(ctx context.Context, collection, id string, fields domain.Fields) (*domain.Document, error)
	// Update merges fields into an existing document.
	Update(ctx context.Context, collection, id string, fields domain.Fields) (*domain.Document, error)
	Delete(ctx context.Context, collection, id string) error
	Query(ctx context.Context, collection string, q domain.Query) ([]*domain.Document, error)
	// Batch starts an atomic multi-document write batch.
	Batch() WriteBatch
	// RunTransaction runs fn as an atomic read-modify-write unit. Every document read
	// through tx is version checked at commit; a conflict fails the whole unit with
	// domain.ErrConcurrentModification and nothing is written.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx StoreTx) error) error
	Ping(ctx context.Context) error
}

// WriteBatch collects writes that commit together or not at all.
type WriteBatch interface {
	Set(collection, id string, fields domain.Fields)
	Delete(collection, id string)
	Len() int
	Commit(ctx context.Context) error
}

// StoreTx is the handle passed to a RunTransaction callback.
// All reads must happen before the first write.
type StoreTx interface {
	DocumentReader
	// Create queues a new document and returns the ID it will be stored under.
	Create(collection string, fields domain.Fields) string
	// Set queues a merge write.
	Set(collection, id string, fields domain.Fields)
	Delete(collection, id string)
}

// ImageUploader stores a local image and returns its remote URL.
type ImageUploader interface {
	Upload(ctx context.Context, localRef, folder string) (string, error)
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Retrier re-runs operations that failed with a transient error.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a claimed key whose request failed.
	Release(ctx context.Context, key string) error
}
