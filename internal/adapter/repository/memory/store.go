// Package memory provides an in-process DocumentStore used for local runs and tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iho/expenseledger/internal/domain"
	"github.com/iho/expenseledger/internal/usecase"
)

var errWriteBeforeRead = errors.New("transaction reads must happen before writes")

type docKey struct {
	collection string
	id         string
}

// Store implements usecase.DocumentStore in memory.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]*domain.Document
	idGen       usecase.IDGenerator
	now         func() time.Time
}

// NewStore creates an empty Store.
func NewStore(idGen usecase.IDGenerator) *Store {
	return &Store{
		collections: make(map[string]map[string]*domain.Document),
		idGen:       idGen,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Get retrieves a document by ID.
func (s *Store) Get(ctx context.Context, collection, id string) (*domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, domain.ErrDocumentNotFound)
	}
	return copyDoc(doc), nil
}

// Create stores a new document under a generated ID.
func (s *Store) Create(ctx context.Context, collection string, fields domain.Fields) (*domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.idGen.Generate()
	s.apply(writeOp{kind: opCreate, collection: collection, id: id, fields: fields})
	return copyDoc(s.collections[collection][id]), nil
}

// Upsert merges fields into a document, creating it when absent.
func (s *Store) Upsert(ctx context.Context, collection, id string, fields domain.Fields) (*domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.apply(writeOp{kind: opSet, collection: collection, id: id, fields: fields})
	return copyDoc(s.collections[collection][id]), nil
}

// Update merges fields into an existing document.
func (s *Store) Update(ctx context.Context, collection, id string, fields domain.Fields) (*domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[collection][id]; !ok {
		return nil, fmt.Errorf("%s/%s: %w", collection, id, domain.ErrDocumentNotFound)
	}

	s.apply(writeOp{kind: opSet, collection: collection, id: id, fields: fields})
	return copyDoc(s.collections[collection][id]), nil
}

// Delete removes a document. Deleting a missing document is not an error.
func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.apply(writeOp{kind: opDelete, collection: collection, id: id})
	return nil
}

// Query returns the documents of a collection that match every filter.
func (s *Store) Query(ctx context.Context, collection string, q domain.Query) ([]*domain.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	var docs []*domain.Document
	for _, doc := range s.collections[collection] {
		if q.AfterID != "" && doc.ID <= q.AfterID {
			continue
		}
		if matches(doc, q.Filters) {
			docs = append(docs, copyDoc(doc))
		}
	}
	s.mu.RUnlock()

	sortDocs(docs, q.OrderBy)

	if q.Limit > 0 && len(docs) > q.Limit {
		docs = docs[:q.Limit]
	}
	return docs, nil
}

// Batch starts a write batch.
func (s *Store) Batch() usecase.WriteBatch {
	return &batch{store: s}
}

// RunTransaction runs fn and commits its queued writes if no document it read changed.
func (s *Store) RunTransaction(ctx context.Context, fn func(ctx context.Context, tx usecase.StoreTx) error) error {
	tx := &storeTx{store: s, reads: make(map[docKey]int64)}

	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, version := range tx.reads {
		var current int64
		if doc, ok := s.collections[key.collection][key.id]; ok {
			current = doc.Version
		}
		if current != version {
			return fmt.Errorf("%s/%s: %w", key.collection, key.id, domain.ErrConcurrentModification)
		}
	}

	for _, op := range tx.ops {
		s.apply(op)
	}
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error {
	return nil
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

// apply must be called with s.mu held.
func (s *Store) apply(op writeOp) {
	coll, ok := s.collections[op.collection]
	if !ok {
		coll = make(map[string]*domain.Document)
		s.collections[op.collection] = coll
	}

	now := s.now()

	switch op.kind {
	case opDelete:
		delete(coll, op.id)
	case opCreate:
		coll[op.id] = &domain.Document{ID: op.id, Fields: op.fields.Clone(), Version: 1, CreatedAt: now, UpdatedAt: now}
	case opSet:
		doc, exists := coll[op.id]
		if !exists {
			coll[op.id] = &domain.Document{ID: op.id, Fields: op.fields.Clone(), Version: 1, CreatedAt: now, UpdatedAt: now}
			return
		}
		fields := doc.Fields.Clone()
		fields.Merge(op.fields)
		coll[op.id] = &domain.Document{
			ID:        op.id,
			Fields:    fields,
			Version:   doc.Version + 1,
			CreatedAt: doc.CreatedAt,
			UpdatedAt: now,
		}
	}
}

type batch struct {
	store *Store
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
	if err := ctx.Err(); err != nil {
		return err
	}

	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	for _, op := range b.ops {
		b.store.apply(op)
	}
	b.ops = nil
	return nil
}

type storeTx struct {
	store *Store
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

func copyDoc(doc *domain.Document) *domain.Document {
	out := *doc
	out.Fields = doc.Fields.Clone()
	return &out
}

func sortDocs(docs []*domain.Document, orders []domain.Order) {
	if len(orders) == 0 {
		sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
		return
	}

	sort.SliceStable(docs, func(i, j int) bool {
		for _, o := range orders {
			c := compareField(docs[i].Fields[o.Field], docs[j].Fields[o.Field])
			if c == 0 {
				continue
			}
			if o.Desc {
				return c > 0
			}
			return c < 0
		}
		return docs[i].ID < docs[j].ID
	})
}
