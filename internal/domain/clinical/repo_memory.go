package clinical

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryDiagnosisRepo is an in-memory DiagnosisRepository. Names resolves
// doctor names for ListBySymptom.
type MemoryDiagnosisRepo struct {
	mu    sync.Mutex
	items []*Diagnosis
	Names func(doctorID uuid.UUID) string
}

func NewMemoryDiagnosisRepo() *MemoryDiagnosisRepo { return &MemoryDiagnosisRepo{} }

func (r *MemoryDiagnosisRepo) Create(_ context.Context, d *Diagnosis) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	d.CreatedAt = time.Now().UTC()
	cp := *d
	r.items = append(r.items, &cp)
	return nil
}

func (r *MemoryDiagnosisRepo) ListBySymptom(_ context.Context, symptomID uuid.UUID) ([]*Diagnosis, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Diagnosis
	for _, d := range r.items {
		if d.SymptomID != symptomID {
			continue
		}
		cp := *d
		if r.Names != nil {
			cp.DoctorName = r.Names(d.DoctorID)
		}
		out = append(out, &cp)
	}
	return out, nil
}

// Len reports the number of stored diagnoses.
func (r *MemoryDiagnosisRepo) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

type MemoryReferralRepo struct {
	mu    sync.Mutex
	items []*Referral
}

func NewMemoryReferralRepo() *MemoryReferralRepo { return &MemoryReferralRepo{} }

func (r *MemoryReferralRepo) Create(_ context.Context, ref *Referral) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ref.ID == uuid.Nil {
		ref.ID = uuid.New()
	}
	ref.CreatedAt = time.Now().UTC()
	cp := *ref
	r.items = append(r.items, &cp)
	return nil
}

func (r *MemoryReferralRepo) ListBySymptom(_ context.Context, symptomID uuid.UUID) ([]*Referral, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*Referral
	for _, ref := range r.items {
		if ref.SymptomID == symptomID {
			cp := *ref
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MemoryReferralRepo) HasReferral(_ context.Context, symptomID, doctorID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ref := range r.items {
		if ref.SymptomID == symptomID && ref.DoctorID == doctorID {
			return true, nil
		}
	}
	return false, nil
}
