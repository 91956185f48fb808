package docstore

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is the in-process Store implementation. It backs tests and
// single-node runs and is safe for concurrent use.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]map[string]*Document
	notifier    *notifier
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]*Document),
		notifier:    newNotifier(),
	}
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.collections[collection][id]
	if !ok {
		return nil, ErrNotFound
	}
	return snapshotCopy(doc), nil
}

func (s *MemoryStore) ListCollection(ctx context.Context, collection string) ([]*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Document
	for _, doc := range s.collections[collection] {
		out = append(out, snapshotCopy(doc))
	}
	return out, nil
}

func (s *MemoryStore) Set(ctx context.Context, collection, id string, fields map[string]any, opts ...SetOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	o := applyOptions(opts)
	now := time.Now().UTC()

	s.mu.Lock()
	existing := s.collections[collection][id]

	var currentVersion int64
	var existingFields map[string]any
	if existing != nil {
		currentVersion = existing.Version
		existingFields = existing.Fields
	}
	if o.hasExpected && o.expectedVersion != currentVersion {
		s.mu.Unlock()
		return ErrVersionConflict
	}

	doc := &Document{
		Collection: collection,
		ID:         id,
		Fields:     resolveWrite(existingFields, fields, o.merge, now),
		Version:    currentVersion + 1,
		UpdatedAt:  now,
	}
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]*Document)
	}
	s.collections[collection][id] = doc
	s.mu.Unlock()

	s.notifier.notify(collection, id, doc)
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	_, existed := s.collections[collection][id]
	delete(s.collections[collection], id)
	s.mu.Unlock()

	if existed {
		s.notifier.notify(collection, id, nil)
	}
	return nil
}

func (s *MemoryStore) QueryContains(ctx context.Context, collection, field, value string) ([]*Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*Document
	for _, doc := range s.collections[collection] {
		for _, item := range stringList(doc.Fields[field]) {
			if item == value {
				out = append(out, snapshotCopy(doc))
				break
			}
		}
	}
	return out, nil
}

func (s *MemoryStore) Subscribe(ctx context.Context, collection, id string, onChange func(*Document)) (Unsubscribe, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.notifier.subscribe(collection, id, onChange), nil
}
