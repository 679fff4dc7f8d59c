package symptom

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// MemoryRepo is an in-memory Repository for tests.
type MemoryRepo struct {
	mu    sync.Mutex
	store map[uuid.UUID]*Symptom
	now   func() time.Time
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[uuid.UUID]*Symptom), now: func() time.Time { return time.Now().UTC() }}
}

func (r *MemoryRepo) Create(_ context.Context, s *Symptom) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = r.now()
	}
	s.UpdatedAt = s.CreatedAt
	cp := *s
	cp.Images = append(ImageList{}, s.Images...)
	r.store[s.ID] = &cp
	return nil
}

func (r *MemoryRepo) GetByID(_ context.Context, id uuid.UUID) (*Symptom, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.store[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *s
	return &cp, nil
}

func (r *MemoryRepo) CompareAndSetStatus(_ context.Context, id uuid.UUID, from, to Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.store[id]
	if !ok || s.Status != from {
		return false, nil
	}
	s.Status = to
	s.UpdatedAt = r.now()
	return true, nil
}

func (r *MemoryRepo) SetStatus(_ context.Context, id uuid.UUID, to Status) (Status, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.store[id]
	if !ok {
		return "", pgx.ErrNoRows
	}
	from := s.Status
	s.Status = to
	s.UpdatedAt = r.now()
	return from, nil
}

func (r *MemoryRepo) SetConsentResearch(_ context.Context, id uuid.UUID, granted bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.store[id]
	if !ok {
		return pgx.ErrNoRows
	}
	s.ConsentResearch = granted
	return nil
}

func (r *MemoryRepo) ListByPatient(_ context.Context, patientID uuid.UUID, f HistoryFilter) ([]*Symptom, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Symptom
	for _, s := range r.store {
		if s.PatientID != patientID {
			continue
		}
		if f.Status != nil && s.Status != *f.Status {
			continue
		}
		if f.From != nil && s.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && !s.CreatedAt.Before(*f.To) {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// All returns a copy of every stored symptom.
func (r *MemoryRepo) All() []*Symptom {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]*Symptom, 0, len(r.store))
	for _, s := range r.store {
		cp := *s
		items = append(items, &cp)
	}
	return items
}
