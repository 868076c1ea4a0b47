package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ummitifli/storefront/internal/domain"
)

// MemoryStore keeps products in process. It backs tests and the demo mode.
type MemoryStore struct {
	mu   sync.RWMutex
	rows map[string]domain.Product
	seq  map[string]int64
	next int64

	now   func() time.Time
	newID func() string
}

// NewMemoryStore returns an empty store, optionally seeded with rows.
func NewMemoryStore(seed ...domain.Product) *MemoryStore {
	s := &MemoryStore{
		rows:  make(map[string]domain.Product),
		seq:   make(map[string]int64),
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, p := range seed {
		s.put(p)
	}
	return s
}

// SetClock replaces the timestamp source.
func (s *MemoryStore) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func (s *MemoryStore) put(p domain.Product) {
	if _, ok := s.rows[p.ID]; !ok {
		s.next++
		s.seq[p.ID] = s.next
	}
	s.rows[p.ID] = p
}

func (s *MemoryStore) List(ctx context.Context, q Query) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := make([]domain.Product, 0, len(s.rows))
	for _, p := range s.rows {
		if q.match(p) {
			rows = append(rows, p)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return s.seq[rows[i].ID] < s.seq[rows[j].ID] })
	// descending sorts break timestamp ties toward the latest insert
	if len(q.Order) > 0 && q.Order[0].Desc {
		reverse(rows)
	}
	sortRows(rows, q.Order)
	return rows, nil
}

func (s *MemoryStore) Insert(ctx context.Context, in domain.ProductInput) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return domain.Product{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := domain.NewProduct(s.newID(), in, s.now())
	s.put(p)
	return p, nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, patch domain.ProductPatch) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return domain.Product{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.rows[id]
	if !ok {
		return domain.Product{}, ErrNotFound
	}
	patch.Apply(&p)
	ts := s.now()
	p.UpdatedAt = &ts
	s.put(p)
	return p, nil
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.rows, id)
	delete(s.seq, id)
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }

func reverse(rows []domain.Product) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}
