package labtest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// MemoryRepo is an in-memory Repository for tests.
type MemoryRepo struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*TestRequest
	order    []uuid.UUID
	results  []*TestResult
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{requests: make(map[uuid.UUID]*TestRequest)}
}

func (r *MemoryRepo) CreateRequest(_ context.Context, tr *TestRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tr.ID == uuid.Nil {
		tr.ID = uuid.New()
	}
	if tr.RequestedAt.IsZero() {
		tr.RequestedAt = time.Now().UTC()
	}
	cp := *tr
	r.requests[tr.ID] = &cp
	r.order = append(r.order, tr.ID)
	return nil
}

func (r *MemoryRepo) GetRequest(_ context.Context, id uuid.UUID) (*TestRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tr, ok := r.requests[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *tr
	return &cp, nil
}

func (r *MemoryRepo) GetRequestByToken(_ context.Context, token string) (*TestRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tr := range r.requests {
		if tr.UploadToken == token {
			cp := *tr
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *MemoryRepo) LatestForSymptom(_ context.Context, symptomID uuid.UUID) (*TestRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.order) - 1; i >= 0; i-- {
		if tr := r.requests[r.order[i]]; tr.SymptomID == symptomID {
			cp := *tr
			return &cp, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *MemoryRepo) MarkUploaded(_ context.Context, id uuid.UUID, at time.Time, onlyPending bool) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tr, ok := r.requests[id]
	if !ok || (onlyPending && tr.Status != RequestPending) {
		return false, nil
	}
	tr.Status = RequestUploaded
	tr.UploadedAt = &at
	return true, nil
}

func (r *MemoryRepo) AddResult(_ context.Context, res *TestResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	res.UploadedAt = time.Now().UTC()
	cp := *res
	cp.Files = append([]ResultFile(nil), res.Files...)
	r.results = append(r.results, &cp)
	return nil
}

func (r *MemoryRepo) ListResults(_ context.Context, requestID uuid.UUID) ([]*TestResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*TestResult
	for _, res := range r.results {
		if res.TestRequestID == requestID {
			cp := *res
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Requests returns a copy of every test request in creation order.
func (r *MemoryRepo) Requests() []*TestRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]*TestRequest, 0, len(r.order))
	for _, id := range r.order {
		cp := *r.requests[id]
		items = append(items, &cp)
	}
	return items
}
