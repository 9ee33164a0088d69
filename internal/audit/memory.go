package audit

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// MemoryStore keeps the audit log for the life of the process.
type MemoryStore struct {
	mu       sync.RWMutex
	entries  []Record
	byHash   map[Hash]int
	payloads map[Hash][]byte
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byHash:   make(map[Hash]int),
		payloads: make(map[Hash][]byte),
	}
}

func (s *MemoryStore) Append(_ context.Context, link Link) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var head *Record
	if n := len(s.entries); n > 0 {
		head = &s.entries[n-1]
	}
	rec, err := link(head)
	if err != nil {
		return Record{}, err
	}
	if _, ok := s.byHash[rec.Hash]; ok {
		return Record{}, fmt.Errorf("append %s: entry exists", rec.Hash)
	}
	rec.Raw = slices.Clone(rec.Raw)
	s.byHash[rec.Hash] = len(s.entries)
	s.entries = append(s.entries, rec)
	return rec, nil
}

func (s *MemoryStore) Last(_ context.Context) (Record, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.entries) == 0 {
		return Record{}, false, nil
	}
	return s.entries[len(s.entries)-1], true, nil
}

func (s *MemoryStore) Entry(_ context.Context, h Hash) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, ok := s.byHash[h]
	if !ok {
		return Record{}, fmt.Errorf("entry %s: %w", h, ErrNotFound)
	}
	return s.entries[i], nil
}

func (s *MemoryStore) Tail(_ context.Context, n int) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	start := max(len(s.entries)-n, 0)
	return slices.Clone(s.entries[start:]), nil
}

func (s *MemoryStore) PutPayload(_ context.Context, h Hash, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.payloads[h]; !ok {
		s.payloads[h] = slices.Clone(data)
	}
	return nil
}

func (s *MemoryStore) Payload(_ context.Context, h Hash) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.payloads[h]
	if !ok {
		return nil, fmt.Errorf("payload %s: %w", h, ErrNotFound)
	}
	return slices.Clone(data), nil
}

// Len returns the number of entries.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *MemoryStore) Close() error { return nil }
