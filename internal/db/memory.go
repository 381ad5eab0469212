package db

import (
	"context"
	"fmt"
	"sync"
)

type memoryCollection struct {
	order []string
	docs  map[string]map[string]any
}

// MemoryStore keeps documents in process memory. Documents are returned in insertion order.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memoryCollection)}
}

func (s *MemoryStore) collection(name string) *memoryCollection {
	c, ok := s.collections[name]
	if !ok {
		c = &memoryCollection{docs: make(map[string]map[string]any)}
		s.collections[name] = c
	}
	return c
}

func copyFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// GetAll returns every document in the collection.
func (s *MemoryStore) GetAll(ctx context.Context, collection string) ([]Document, error) {
	return s.GetPage(ctx, collection, -1, 0)
}

// GetByID returns the document or nil when it does not exist.
func (s *MemoryStore) GetByID(_ context.Context, collection, id string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[collection]
	if !ok {
		return nil, nil
	}
	fields, ok := c.docs[id]
	if !ok {
		return nil, nil
	}
	return &Document{ID: id, Fields: copyFields(fields)}, nil
}

// Create stores a copy of fields.
func (s *MemoryStore) Create(ctx context.Context, collection string, fields map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	id, data := splitID(fields)

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(collection)
	if _, exists := c.docs[id]; exists {
		return "", fmt.Errorf("failed to create %s document %s: %w", collection, id, ErrConflict)
	}
	c.docs[id] = data
	c.order = append(c.order, id)
	return id, nil
}

// Update merges fields into the stored document.
func (s *MemoryStore) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[collection]
	if !ok {
		return ErrNotFound
	}
	existing, ok := c.docs[id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range fields {
		if k == "id" {
			continue
		}
		existing[k] = v
	}
	return nil
}

// Delete removes the document if present.
func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[collection]
	if !ok {
		return nil
	}
	if _, ok := c.docs[id]; !ok {
		return nil
	}
	delete(c.docs, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

// Count returns the number of documents in the collection.
func (s *MemoryStore) Count(_ context.Context, collection string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[collection]
	if !ok {
		return 0, nil
	}
	return int64(len(c.docs)), nil
}

// GetPage returns up to limit documents from offset. A negative limit returns the rest.
func (s *MemoryStore) GetPage(ctx context.Context, collection string, limit, offset int) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := []Document{}
	c, ok := s.collections[collection]
	if !ok || offset >= len(c.order) {
		return docs, nil
	}
	if offset < 0 {
		offset = 0
	}

	end := len(c.order)
	if limit >= 0 && offset+limit < end {
		end = offset + limit
	}
	for _, id := range c.order[offset:end] {
		docs = append(docs, Document{ID: id, Fields: copyFields(c.docs[id])})
	}
	return docs, nil
}

// FindOne returns the first document, in insertion order, whose field equals value.
func (s *MemoryStore) FindOne(_ context.Context, collection, field, value string) (*Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[collection]
	if !ok {
		return nil, nil
	}
	for _, id := range c.order {
		fields := c.docs[id]
		if v, ok := fields[field].(string); ok && v == value {
			return &Document{ID: id, Fields: copyFields(fields)}, nil
		}
	}
	return nil, nil
}

// Close is a no-op.
func (s *MemoryStore) Close(_ context.Context) error {
	return nil
}
