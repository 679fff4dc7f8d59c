package consent

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
	store map[uuid.UUID]*Consent
	order []uuid.UUID
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{store: make(map[uuid.UUID]*Consent)}
}

func (r *MemoryRepo) Create(_ context.Context, c *Consent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.GrantedAt.IsZero() {
		c.GrantedAt = time.Now().UTC()
	}
	cp := *c
	r.store[c.ID] = &cp
	r.order = append(r.order, c.ID)
	return nil
}

func (r *MemoryRepo) GetByID(_ context.Context, id uuid.UUID) (*Consent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.store[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *c
	return &cp, nil
}

func (r *MemoryRepo) ListBySymptom(_ context.Context, symptomID uuid.UUID) ([]*Consent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Consent
	for _, id := range r.order {
		if c := r.store[id]; c.SymptomID == symptomID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MemoryRepo) Revoke(_ context.Context, id uuid.UUID, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.store[id]
	if !ok || c.RevokedAt != nil {
		return false, nil
	}
	c.RevokedAt = &at
	return true, nil
}

func (r *MemoryRepo) ReferralStanding(_ context.Context, symptomID, doctorID uuid.UUID) (bool, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var granted, revoked bool
	for _, c := range r.store {
		if c.SymptomID != symptomID || c.Purpose != PurposeReferral || c.DoctorID == nil || *c.DoctorID != doctorID {
			continue
		}
		if c.Active() {
			granted = true
		}
		if c.RevokedAt != nil {
			revoked = true
		}
	}
	return granted, revoked, nil
}

func (r *MemoryRepo) ActivePurposes(_ context.Context, symptomIDs []uuid.UUID) (map[uuid.UUID][]Purpose, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := make(map[uuid.UUID]bool, len(symptomIDs))
	for _, id := range symptomIDs {
		want[id] = true
	}
	seen := make(map[uuid.UUID]map[Purpose]bool)
	out := make(map[uuid.UUID][]Purpose)
	for _, c := range r.store {
		if !want[c.SymptomID] || !c.Active() {
			continue
		}
		if seen[c.SymptomID] == nil {
			seen[c.SymptomID] = make(map[Purpose]bool)
		}
		if !seen[c.SymptomID][c.Purpose] {
			seen[c.SymptomID][c.Purpose] = true
			out[c.SymptomID] = append(out[c.SymptomID], c.Purpose)
		}
	}
	for id := range out {
		sort.Slice(out[id], func(i, j int) bool { return out[id][i] < out[id][j] })
	}
	return out, nil
}

// MemoryFlags is an in-memory SymptomFlags for tests.
type MemoryFlags struct {
	mu       sync.Mutex
	subjects map[uuid.UUID]*Subject
}

func NewMemoryFlags() *MemoryFlags {
	return &MemoryFlags{subjects: make(map[uuid.UUID]*Subject)}
}

// Put registers a symptom owned by patientID.
func (f *MemoryFlags) Put(symptomID, patientID uuid.UUID, research bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subjects[symptomID] = &Subject{PatientID: patientID, ConsentResearch: research}
}

func (f *MemoryFlags) ConsentSubject(_ context.Context, symptomID uuid.UUID) (Subject, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.subjects[symptomID]
	if !ok {
		return Subject{}, pgx.ErrNoRows
	}
	return *s, nil
}

func (f *MemoryFlags) SetConsentResearch(_ context.Context, symptomID uuid.UUID, granted bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.subjects[symptomID]
	if !ok {
		return pgx.ErrNoRows
	}
	s.ConsentResearch = granted
	return nil
}
