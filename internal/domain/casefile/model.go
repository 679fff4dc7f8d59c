package casefile

import (
	"time"

	"github.com/google/uuid"

	"github.com/clinicflow/clinicflow/internal/domain/symptom"
)

// PatientInfo is only ever rendered for FullView.
type PatientInfo struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Age     int       `json:"age,omitempty"`
	Gender  string    `json:"gender,omitempty"`
	Phone   string    `json:"phone,omitempty"`
	Email   *string   `json:"email,omitempty"`
	Address string    `json:"address,omitempty"`
}

type DiagnosisEntry struct {
	DoctorName string    `json:"doctor_name"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

type ResultEntry struct {
	Files      []FileEntry `json:"files"`
	Summary    *string     `json:"summary,omitempty"`
	UploadedAt time.Time   `json:"uploaded_at"`
}

// FileEntry names the uploaded file only for FullView.
type FileEntry struct {
	Name     string `json:"name,omitempty"`
	Location string `json:"location"`
}

type AppointmentEntry struct {
	ID          uuid.UUID `json:"id"`
	Status      string    `json:"status"`
	ScheduledAt time.Time `json:"scheduled_at"`
}

type TestEntry struct {
	RequestID   uuid.UUID         `json:"request_id"`
	TestType    string            `json:"test_type"`
	Status      string            `json:"status"`
	LabName     string            `json:"lab_name"`
	LabLocation string            `json:"lab_location,omitempty"`
	RequestedAt time.Time         `json:"requested_at"`
	Results     []ResultEntry     `json:"results"`
	Appointment *AppointmentEntry `json:"appointment,omitempty"`
}

// SymptomDetail is the role-shaped projection of one symptom.
type SymptomDetail struct {
	ID               uuid.UUID         `json:"id"`
	Description      string            `json:"description"`
	Images           symptom.ImageList `json:"images"`
	Status           symptom.Status    `json:"status"`
	CreatedAt        time.Time         `json:"created_at"`
	ConsentTreatment bool              `json:"consent_treatment"`
	ConsentReferral  bool              `json:"consent_referral"`
	ConsentResearch  bool              `json:"consent_research"`
	Access           string            `json:"access"`
	Patient          *PatientInfo      `json:"patient,omitempty"`
	Diagnoses        []DiagnosisEntry  `json:"diagnoses"`
	Test             *TestEntry        `json:"test,omitempty"`
}

// DashboardRow is a candidate symptom for a doctor's dashboard together with
// the facts needed to resolve that doctor's access.
type DashboardRow struct {
	SymptomID       uuid.UUID
	Description     string
	Images          []string
	Status          symptom.Status
	CreatedAt       time.Time
	PatientID       uuid.UUID
	PatientName     string
	GPID            uuid.UUID
	ConsentResearch bool
	HasReferral     bool
	ReferralGranted bool
	ReferralRevoked bool
}

type DashboardEntry struct {
	ID          uuid.UUID         `json:"id"`
	Description string            `json:"description"`
	Images      symptom.ImageList `json:"images"`
	Status      symptom.Status    `json:"status"`
	CreatedAt   time.Time         `json:"created_at"`
	Access      string            `json:"access"`
	PatientName string            `json:"patient_name,omitempty"`
}

// WorklistFilter bounds a lab worklist. To is exclusive.
type WorklistFilter struct {
	Status string
	From   *time.Time
	To     *time.Time
}

type WorklistEntry struct {
	TestRequestID     uuid.UUID  `json:"test_request_id"`
	SymptomID         uuid.UUID  `json:"symptom_id"`
	DoctorName        string     `json:"doctor_name"`
	PatientName       string     `json:"patient_name"`
	PatientAge        int        `json:"patient_age,omitempty"`
	TestType          string     `json:"test_type"`
	Status            string     `json:"status"`
	UploadToken       string     `json:"upload_token"`
	RequestedAt       time.Time  `json:"requested_at"`
	AppointmentID     *uuid.UUID `json:"appointment_id,omitempty"`
	AppointmentStatus *string    `json:"appointment_status,omitempty"`
	ScheduledAt       *time.Time `json:"scheduled_at,omitempty"`
}
