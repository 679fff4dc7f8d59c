package identity

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/clinicflow/clinicflow/internal/platform/auth"
)

// In-memory repositories back the service tests of this and dependent
// packages. Missing rows are reported as pgx.ErrNoRows like the pg versions.

type MemoryUserRepo struct {
	mu    sync.RWMutex
	store map[uuid.UUID]*User
}

func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{store: make(map[uuid.UUID]*User)}
}

func (r *MemoryUserRepo) Create(_ context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.CreatedAt = time.Now().UTC()
	cp := *u
	r.store[u.ID] = &cp
	return nil
}

func (r *MemoryUserRepo) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.store[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *u
	return &cp, nil
}

func (r *MemoryUserRepo) ListDoctors(_ context.Context, exclude uuid.UUID) ([]*User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*User
	for _, u := range r.store {
		if u.Role == auth.RoleDoctor && u.ID != exclude {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type MemoryLabRepo struct {
	mu    sync.RWMutex
	store map[uuid.UUID]*Lab
}

func NewMemoryLabRepo() *MemoryLabRepo {
	return &MemoryLabRepo{store: make(map[uuid.UUID]*Lab)}
}

func (r *MemoryLabRepo) Create(_ context.Context, l *Lab) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	l.CreatedAt = time.Now().UTC()
	cp := *l
	r.store[l.ID] = &cp
	return nil
}

func (r *MemoryLabRepo) GetByID(_ context.Context, id uuid.UUID) (*Lab, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	l, ok := r.store[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *l
	return &cp, nil
}

func (r *MemoryLabRepo) List(_ context.Context) ([]*Lab, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Lab
	for _, l := range r.store {
		cp := *l
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

type MemoryTestTypeRepo struct {
	mu    sync.RWMutex
	store map[uuid.UUID]*TestType
}

func NewMemoryTestTypeRepo() *MemoryTestTypeRepo {
	return &MemoryTestTypeRepo{store: make(map[uuid.UUID]*TestType)}
}

func (r *MemoryTestTypeRepo) Create(_ context.Context, tt *TestType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.store {
		if existing.Name == tt.Name {
			tt.ID, tt.CreatedAt = existing.ID, existing.CreatedAt
			return nil
		}
	}
	if tt.ID == uuid.Nil {
		tt.ID = uuid.New()
	}
	tt.CreatedAt = time.Now().UTC()
	cp := *tt
	r.store[tt.ID] = &cp
	return nil
}

func (r *MemoryTestTypeRepo) GetByID(_ context.Context, id uuid.UUID) (*TestType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tt, ok := r.store[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *tt
	return &cp, nil
}

func (r *MemoryTestTypeRepo) List(_ context.Context) ([]*TestType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*TestType
	for _, tt := range r.store {
		cp := *tt
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// NewMemoryService wires a Service over fresh in-memory repositories.
func NewMemoryService() *Service {
	return NewService(NewMemoryUserRepo(), NewMemoryLabRepo(), NewMemoryTestTypeRepo())
}
