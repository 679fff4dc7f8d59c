package labtest

import (
	"time"

	"github.com/google/uuid"
)

type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestUploaded RequestStatus = "uploaded"
)

// TestRequest assigns a symptom to a lab for one test type. UploadToken is
// the bearer secret lab staff present when uploading results.
type TestRequest struct {
	ID          uuid.UUID     `json:"id"`
	SymptomID   uuid.UUID     `json:"symptom_id"`
	DoctorID    uuid.UUID     `json:"doctor_id"`
	LabID       uuid.UUID     `json:"lab_id"`
	TestTypeID  uuid.UUID     `json:"test_type_id"`
	UploadToken string        `json:"upload_token"`
	Status      RequestStatus `json:"status"`
	RequestedAt time.Time     `json:"requested_at"`
	UploadedAt  *time.Time    `json:"uploaded_at,omitempty"`
}

type ResultFile struct {
	Name     string `json:"name"`
	Location string `json:"location"`
}

// TestResult is one upload against a request. Results are append-only.
type TestResult struct {
	ID            uuid.UUID    `json:"id"`
	TestRequestID uuid.UUID    `json:"test_request_id"`
	Files         []ResultFile `json:"files"`
	Summary       *string      `json:"summary,omitempty"`
	UploadedAt    time.Time    `json:"uploaded_at"`
}
