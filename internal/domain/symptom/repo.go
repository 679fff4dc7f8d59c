package symptom

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, s *Symptom) error
	GetByID(ctx context.Context, id uuid.UUID) (*Symptom, error)
	// CompareAndSetStatus moves id from one status to another and reports
	// false when the stored status no longer equals from.
	CompareAndSetStatus(ctx context.Context, id uuid.UUID, from, to Status) (bool, error)
	// SetStatus moves id to a status unconditionally and returns the status
	// it replaced.
	SetStatus(ctx context.Context, id uuid.UUID, to Status) (Status, error)
	SetConsentResearch(ctx context.Context, id uuid.UUID, granted bool) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, f HistoryFilter) ([]*Symptom, error)
}
