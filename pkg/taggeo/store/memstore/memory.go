package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/taggeo/taggeo/pkg/taggeo/store"
)

// Store is an in-memory implementation of store.Table.
type Store struct {
	mu      sync.RWMutex
	records map[uint64]store.GeoRecord
}

// New creates a new in-memory table.
func New() *Store {
	return &Store{
		records: make(map[uint64]store.GeoRecord),
	}
}

// Close implements store.Table.
func (s *Store) Close() error { return nil }

// Put inserts or overwrites the record for id.
func (s *Store) Put(ctx context.Context, id uint64, rec store.GeoRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[id] = rec
	return nil
}

// Get returns the record for id.
func (s *Store) Get(ctx context.Context, id uint64) (store.GeoRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	return rec, ok, nil
}

// Len returns the number of distinct ids.
func (s *Store) Len(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records), nil
}

// Each visits records in ascending id order.
func (s *Store) Each(ctx context.Context, fn func(id uint64, rec store.GeoRecord) error) error {
	s.mu.RLock()
	ids := make([]uint64, 0, len(s.records))
	for id := range s.records {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		rec, ok, _ := s.Get(ctx, id)
		if !ok {
			continue
		}
		if err := fn(id, rec); err != nil {
			return err
		}
	}
	return nil
}
