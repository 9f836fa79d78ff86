package history

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryRepository keeps records in process memory. It backs the API
// when no database is configured, and tests.
type InMemoryRepository struct {
	mu      sync.RWMutex
	records []*Record // newest first
	now     func() time.Time
}

var _ Repository = (*InMemoryRepository)(nil)

// NewInMemoryRepository creates a new in-memory history repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{now: time.Now}
}

// Save stores a copy of the record.
func (r *InMemoryRepository) Save(_ context.Context, record *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if record.ID == "" {
		record.ID = NewID()
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = r.now().UTC()
	}

	cpy := *record

	// Same order as the Postgres store: created_at DESC, id DESC.
	idx := sort.Search(len(r.records), func(i int) bool {
		return !newer(r.records[i], &cpy)
	})
	r.records = append(r.records, nil)
	copy(r.records[idx+1:], r.records[idx:])
	r.records[idx] = &cpy

	if len(r.records) > MaxRecords {
		clear(r.records[MaxRecords:])
		r.records = r.records[:MaxRecords]
	}

	return nil
}

// ListRecent returns copies of up to limit records, newest first.
func (r *InMemoryRepository) ListRecent(_ context.Context, limit int) ([]*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	limit = NormalizeLimit(limit)
	if limit > len(r.records) {
		limit = len(r.records)
	}

	out := make([]*Record, 0, limit)
	for _, rec := range r.records[:limit] {
		cpy := *rec
		out = append(out, &cpy)
	}
	return out, nil
}

// Latest returns a copy of the newest record.
func (r *InMemoryRepository) Latest(_ context.Context) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if len(r.records) == 0 {
		return nil, ErrNoRecords
	}
	cpy := *r.records[0]
	return &cpy, nil
}

// Count returns the number of stored records.
func (r *InMemoryRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.records)
}

func newer(a, b *Record) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID > b.ID
	}
	return a.CreatedAt.After(b.CreatedAt)
}
