package consent

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, c *Consent) error
	GetByID(ctx context.Context, id uuid.UUID) (*Consent, error)
	ListBySymptom(ctx context.Context, symptomID uuid.UUID) ([]*Consent, error)
	// Revoke marks id revoked at the given time and reports false when it
	// was already revoked.
	Revoke(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	// ReferralStanding reports whether doctorID holds an active REFERRAL
	// consent on the symptom, and whether one naming them was revoked.
	ReferralStanding(ctx context.Context, symptomID, doctorID uuid.UUID) (granted, revoked bool, err error)
	ActivePurposes(ctx context.Context, symptomIDs []uuid.UUID) (map[uuid.UUID][]Purpose, error)
}

// SymptomFlags gives the ledger access to the consent flags stored on the
// symptom itself.
type SymptomFlags interface {
	ConsentSubject(ctx context.Context, symptomID uuid.UUID) (Subject, error)
	SetConsentResearch(ctx context.Context, symptomID uuid.UUID, granted bool) error
}
