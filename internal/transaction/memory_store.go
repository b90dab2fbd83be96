package transaction

import (
	"context"
	"sync"
)

type memoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore constructs an in-memory record store.
func NewMemoryStore() Store {
	return &memoryStore{records: make(map[string]Record)}
}

func (s *memoryStore) Create(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[rec.ID]; exists {
		return ErrDuplicate
	}
	s.records[rec.ID] = rec
	return nil
}

func (s *memoryStore) GetByID(ctx context.Context, id string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

func (s *memoryStore) UpdateStatus(ctx context.Context, id string, status Status) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	rec.Status = status
	s.records[id] = rec
	return rec, nil
}

func (s *memoryStore) FindBySenderOrReceiver(ctx context.Context, accountID string) ([]Record, error) {
	return s.filter(ctx, func(r Record) bool {
		return r.SenderID == accountID || r.ReceiverID == accountID
	})
}

func (s *memoryStore) FindAll(ctx context.Context) ([]Record, error) {
	return s.filter(ctx, func(Record) bool { return true })
}

func (s *memoryStore) filter(ctx context.Context, keep func(Record) bool) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]Record, 0, len(s.records))
	for _, rec := range s.records {
		if keep(rec) {
			out = append(out, rec)
		}
	}
	s.mu.RUnlock()
	SortNewestFirst(out)
	return out, nil
}
