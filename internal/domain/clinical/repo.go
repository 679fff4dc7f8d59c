package clinical

import (
	"context"

	"github.com/google/uuid"
)

type DiagnosisRepository interface {
	Create(ctx context.Context, d *Diagnosis) error
	// ListBySymptom returns diagnoses oldest first with DoctorName filled in.
	ListBySymptom(ctx context.Context, symptomID uuid.UUID) ([]*Diagnosis, error)
}

type ReferralRepository interface {
	Create(ctx context.Context, r *Referral) error
	ListBySymptom(ctx context.Context, symptomID uuid.UUID) ([]*Referral, error)
	HasReferral(ctx context.Context, symptomID, doctorID uuid.UUID) (bool, error)
}
