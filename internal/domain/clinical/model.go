package clinical

import (
	"time"

	"github.com/google/uuid"
)

// Diagnosis is a doctor's note on a symptom. PatientID is copied from the
// symptom, never taken from the request.
type Diagnosis struct {
	ID         uuid.UUID `json:"id"`
	SymptomID  uuid.UUID `json:"symptom_id"`
	DoctorID   uuid.UUID `json:"doctor_id"`
	PatientID  uuid.UUID `json:"patient_id"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
	DoctorName string    `json:"doctor_name,omitempty"`
}

// Referral hands a symptom to another doctor. Referrals accumulate.
type Referral struct {
	ID         uuid.UUID `json:"id"`
	SymptomID  uuid.UUID `json:"symptom_id"`
	DoctorID   uuid.UUID `json:"doctor_id"`
	ReferredBy uuid.UUID `json:"referred_by"`
	CreatedAt  time.Time `json:"created_at"`
}
