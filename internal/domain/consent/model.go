package consent

import (
	"time"

	"github.com/google/uuid"
)

type Purpose string

const (
	PurposeTreatment Purpose = "treatment"
	PurposeReferral  Purpose = "referral"
	PurposeResearch  Purpose = "research"
)

// Consent is one row of the ledger. DoctorID is nil only for research
// pool grants.
type Consent struct {
	ID        uuid.UUID  `json:"id"`
	SymptomID uuid.UUID  `json:"symptom_id"`
	PatientID uuid.UUID  `json:"patient_id"`
	DoctorID  *uuid.UUID `json:"doctor_id,omitempty"`
	Purpose   Purpose    `json:"purpose"`
	Granted   bool       `json:"granted"`
	GrantedAt time.Time  `json:"granted_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// Active reports whether the consent is granted and not revoked.
func (c *Consent) Active() bool {
	return c.Granted && c.RevokedAt == nil
}

// Subject is the part of a symptom the ledger needs to authorize and
// update consent changes.
type Subject struct {
	PatientID       uuid.UUID
	ConsentResearch bool
}
