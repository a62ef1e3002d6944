package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/iho/expenseledger/internal/domain"
	"github.com/iho/expenseledger/internal/usecase"
)

const (
	insertDocument = `INSERT INTO documents (collection, id, fields, version, created_at, updated_at)
VALUES ($1, $2, $3, 1, $4, $4)`

	upsertDocument = `INSERT INTO documents (collection, id, fields, version, created_at, updated_at)
VALUES ($1, $2, $3, 1, $4, $4)
ON CONFLICT (collection, id) DO UPDATE
SET fields = documents.fields || EXCLUDED.fields, version = documents.version + 1, updated_at = EXCLUDED.updated_at
RETURNING id, fields, version, created_at, updated_at`

	updateDocument = `UPDATE documents
SET fields = fields || $3, version = version + 1, updated_at = $4
WHERE collection = $1 AND id = $2
RETURNING id, fields, version, created_at, updated_at`

	getDocument = selectDocument + ` WHERE collection = $1 AND id = $2`

	deleteDocument = `DELETE FROM documents WHERE collection = $1 AND id = $2`

	lockVersion = `SELECT version FROM documents WHERE collection = $1 AND id = $2 FOR UPDATE`
)

var errWriteBeforeRead = errors.New("transaction reads must happen before writes")

// DocumentStore implements usecase.DocumentStore on a single JSONB table.
type DocumentStore struct {
	pool  pgxPool
	txm   *TxManager
	idGen usecase.IDGenerator
	now   func() time.Time
}

// NewDocumentStore creates a new DocumentStore.
func NewDocumentStore(pool *pgxpool.Pool, idGen usecase.IDGenerator) *DocumentStore {
	return newDocumentStoreWithPool(pool, idGen)
}

func newDocumentStoreWithPool(pool pgxPool, idGen usecase.IDGenerator) *DocumentStore {
	return &DocumentStore{
		pool:  pool,
		txm:   newTxManagerWithPool(pool),
		idGen: idGen,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Get retrieves a document by ID.
func (s *DocumentStore) Get(ctx context.Context, collection, id string) (*domain.Document, error) {
	row := s.pool.QueryRow(ctx, getDocument, collection, id)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s/%s: %w", collection, id, domain.ErrDocumentNotFound)
		}
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

// Create stores a new document under a generated ID.
func (s *DocumentStore) Create(ctx context.Context, collection string, fields domain.Fields) (*domain.Document, error) {
	data, err := encodeFields(fields)
	if err != nil {
		return nil, err
	}

	id := s.idGen.Generate()
	now := s.now()
	if _, err := s.pool.Exec(ctx, insertDocument, collection, id, data, now); err != nil {
		return nil, fmt.Errorf("create %s/%s: %w", collection, id, err)
	}

	return &domain.Document{ID: id, Fields: fields.Clone(), Version: 1, CreatedAt: now, UpdatedAt: now}, nil
}

// Upsert merges fields into the document, creating it when absent.
func (s *DocumentStore) Upsert(ctx context.Context, collection, id string, fields domain.Fields) (*domain.Document, error) {
	data, err := encodeFields(fields)
	if err != nil {
		return nil, err
	}

	doc, err := scanDocument(s.pool.QueryRow(ctx, upsertDocument, collection, id, data, s.now()))
	if err != nil {
		return nil, fmt.Errorf("upsert %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

// Update merges fields into an existing document.
func (s *DocumentStore) Update(ctx context.Context, collection, id string, fields domain.Fields) (*domain.Document, error) {
	data, err := encodeFields(fields)
	if err != nil {
		return nil, err
	}

	doc, err := scanDocument(s.pool.QueryRow(ctx, updateDocument, collection, id, data, s.now()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%s/%s: %w", collection, id, domain.ErrDocumentNotFound)
		}
		return nil, fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	return doc, nil
}

// Delete removes a document. Deleting a missing document is not an error.
func (s *DocumentStore) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.pool.Exec(ctx, deleteDocument, collection, id); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

// Query returns the documents of a collection matching q.
func (s *DocumentStore) Query(ctx context.Context, collection string, q domain.Query) ([]*domain.Document, error) {
	sql, args, err := buildQuery(collection, q)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	defer rows.Close()

	var docs []*domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", collection, err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}

	return docs, nil
}

// Batch starts a write batch committed in one PostgreSQL transaction.
func (s *DocumentStore) Batch() usecase.WriteBatch {
	return &batch{store: s}
}

// RunTransaction runs fn, then locks every document it read, compares versions
// and applies the queued writes in one PostgreSQL transaction.
func (s *DocumentStore) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx usecase.StoreTx) error) error {
	tx := &storeTx{store: s, reads: make(map[docKey]int64)}

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if len(tx.ops) == 0 {
		return nil
	}

	return s.txm.WithTx(ctx, func(pgTx pgx.Tx) error {
		for _, key := range tx.sortedReads() {
			var current int64
			err := pgTx.QueryRow(ctx, lockVersion, key.collection, key.id).Scan(&current)
			if err != nil && !errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("lock %s/%s: %w", key.collection, key.id, err)
			}
			if current != tx.reads[key] {
				return fmt.Errorf("%s/%s: %w", key.collection, key.id, domain.ErrConcurrentModification)
			}
		}
		return s.applyOps(ctx, pgTx, tx.ops)
	})
}

// Ping checks the database connection.
func (s *DocumentStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

type docKey struct {
	collection string
	id         string
}

type opKind int

const (
	opSet opKind = iota
	opCreate
	opDelete
)

type writeOp struct {
	kind       opKind
	collection string
	id         string
	fields     domain.Fields
}

func (s *DocumentStore) applyOps(ctx context.Context, tx pgx.Tx, ops []writeOp) error {
	now := s.now()

	for _, op := range ops {
		var err error
		switch op.kind {
		case opDelete:
			_, err = tx.Exec(ctx, deleteDocument, op.collection, op.id)
		case opCreate, opSet:
			var data []byte
			if data, err = encodeFields(op.fields); err != nil {
				return err
			}
			query := upsertDocument
			if op.kind == opCreate {
				query = insertDocument
			}
			_, err = tx.Exec(ctx, query, op.collection, op.id, data, now)
		}
		if err != nil {
			return fmt.Errorf("write %s/%s: %w", op.collection, op.id, err)
		}
	}
	return nil
}

type batch struct {
	store *DocumentStore
	ops   []writeOp
}

func (b *batch) Set(collection, id string, fields domain.Fields) {
	b.ops = append(b.ops, writeOp{kind: opSet, collection: collection, id: id, fields: fields.Clone()})
}

func (b *batch) Delete(collection, id string) {
	b.ops = append(b.ops, writeOp{kind: opDelete, collection: collection, id: id})
}

func (b *batch) Len() int {
	return len(b.ops)
}

func (b *batch) Commit(ctx context.Context) error {
	if len(b.ops) == 0 {
		return nil
	}
	err := b.store.txm.WithTx(ctx, func(tx pgx.Tx) error {
		return b.store.applyOps(ctx, tx, b.ops)
	})
	if err != nil {
		return err
	}
	b.ops = nil
	return nil
}

type storeTx struct {
	store *DocumentStore
	reads map[docKey]int64
	ops   []writeOp
}

func (t *storeTx) Get(ctx context.Context, collection, id string) (*domain.Document, error) {
	if len(t.ops) > 0 {
		return nil, errWriteBeforeRead
	}

	doc, err := t.store.Get(ctx, collection, id)
	switch {
	case err == nil:
		t.reads[docKey{collection, id}] = doc.Version
	case errors.Is(err, domain.ErrDocumentNotFound):
		t.reads[docKey{collection, id}] = 0
	}
	return doc, err
}

func (t *storeTx) Create(collection string, fields domain.Fields) string {
	id := t.store.idGen.Generate()
	t.ops = append(t.ops, writeOp{kind: opCreate, collection: collection, id: id, fields: fields.Clone()})
	return id
}

func (t *storeTx) Set(collection, id string, fields domain.Fields) {
	t.ops = append(t.ops, writeOp{kind: opSet, collection: collection, id: id, fields: fields.Clone()})
}

func (t *storeTx) Delete(collection, id string) {
	t.ops = append(t.ops, writeOp{kind: opDelete, collection: collection, id: id})
}

// sortedReads returns the read keys in a stable order so concurrent commits lock
// rows in the same sequence.
func (t *storeTx) sortedReads() []docKey {
	keys := make([]docKey, 0, len(t.reads))
	for k := range t.reads {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].collection != keys[j].collection {
			return keys[i].collection < keys[j].collection
		}
		return keys[i].id < keys[j].id
	})
	return keys
}

func scanDocument(row pgx.Row) (*domain.Document, error) {
	var (
		doc domain.Document
		raw []byte
	)
	if err := row.Scan(&doc.ID, &raw, &doc.Version, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return nil, err
	}

	fields, err := decodeFields(raw)
	if err != nil {
		return nil, fmt.Errorf("document %s: %w", doc.ID, err)
	}
	doc.Fields = fields
	return &doc, nil
}
