package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore keeps saved games in process memory
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Create(ctx context.Context, userID string, state []byte, meta Metadata) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	meta, err := PrepareCreate(userID, state, meta)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[meta.ID] = Record{Metadata: meta, State: append([]byte(nil), state...)}
	return meta.ID, nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, state []byte, meta Metadata) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	meta, err := PrepareUpdate(id, state, meta)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	meta.ID = existing.ID
	meta.UserID = existing.UserID
	meta.CreatedAt = existing.CreatedAt
	s.records[id] = Record{Metadata: meta, State: append([]byte(nil), state...)}
	return nil
}

func (s *MemoryStore) List(ctx context.Context, userID string) ([]Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Metadata
	for _, rec := range s.records {
		if rec.UserID == userID {
			out = append(out, rec.Metadata)
		}
	}
	SortByUpdated(out)
	return out, nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return Record{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	rec.State = append([]byte(nil), rec.State...)
	return rec, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(s.records, id)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// SortByUpdated orders listings newest first, breaking ties by id.
func SortByUpdated(items []Metadata) {
	sort.Slice(items, func(i, j int) bool {
		if !items[i].UpdatedAt.Equal(items[j].UpdatedAt) {
			return items[i].UpdatedAt.After(items[j].UpdatedAt)
		}
		return items[i].ID > items[j].ID
	})
}
